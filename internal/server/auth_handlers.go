package server

import (
	"net/http"
	"time"

	"github.com/careeros/careeros/internal/auth"
	"github.com/careeros/careeros/internal/cookie"
	"github.com/careeros/careeros/internal/googleauth"
	jsonwriter "github.com/careeros/careeros/internal/json"
	"github.com/careeros/careeros/internal/log"
	"github.com/careeros/careeros/internal/storage"
	"github.com/google/uuid"
)

// AuthHandlers serves the OAuth flow and connection status endpoints
type AuthHandlers struct {
	authenticator googleauth.Authenticator
	manager       *auth.Manager
	store         storage.Store
	cookies       *cookie.Jar
	frontendURL   string
}

// NewAuthHandlers creates auth handlers with dependency injection
func NewAuthHandlers(
	authenticator googleauth.Authenticator,
	manager *auth.Manager,
	store storage.Store,
	cookies *cookie.Jar,
	frontendURL string,
) *AuthHandlers {
	return &AuthHandlers{
		authenticator: authenticator,
		manager:       manager,
		store:         store,
		cookies:       cookies,
		frontendURL:   frontendURL,
	}
}

// StartHandler begins the authorization-code flow: it binds a fresh nonce to
// the browser via the signed state cookie and redirects to Google's consent
// screen.
func (h *AuthHandlers) StartHandler(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	h.cookies.SetState(w, state)

	http.Redirect(w, r, h.authenticator.AuthURL(state), http.StatusFound)
}

// CallbackHandler completes the flow. The state check runs before any call
// to the provider: a missing, unsigned, or mismatched state cookie is the
// CSRF signal and aborts with 400.
func (h *AuthHandlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	stored, ok := h.cookies.State(r)
	if !ok || state == "" || stored != state {
		log.LogWarnWithFields("auth", "OAuth state mismatch", map[string]any{
			"has_cookie": ok,
		})
		jsonwriter.WriteBadRequest(w, "Invalid state parameter")
		return
	}

	token, err := h.authenticator.Exchange(ctx, code)
	if err != nil {
		log.LogErrorWithFields("auth", "Code exchange failed", map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "Authentication failed")
		return
	}

	info, err := h.authenticator.UserInfo(ctx, token)
	if err != nil {
		log.LogErrorWithFields("auth", "User info fetch failed", map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "Authentication failed")
		return
	}

	if err := h.manager.SaveGrant(ctx, info, token); err != nil {
		log.LogErrorWithFields("auth", "Failed to store credential grant", map[string]any{
			"error":   err.Error(),
			"subject": info.Subject,
		})
		jsonwriter.WriteInternalServerError(w, "Authentication failed")
		return
	}

	h.cookies.SetSession(w, info.Subject)
	h.cookies.ClearState(w)

	http.Redirect(w, r, h.frontendURL+"/settings", http.StatusFound)
}

// DisconnectHandler clears the session cookie. The stored credential record
// and the provider-side grant are left intact, so a re-login by the same
// user silently reuses them (soft logout).
func (h *AuthHandlers) DisconnectHandler(w http.ResponseWriter, r *http.Request) {
	h.cookies.ClearSession(w)
	jsonwriter.Write(w, map[string]bool{"success": true})
}

type statusResponse struct {
	Connected    bool       `json:"connected"`
	Email        string     `json:"email,omitempty"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
}

// StatusHandler reports whether the browser has a connected Google account
func (h *AuthHandlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.cookies.Session(r)
	if !ok {
		jsonwriter.Write(w, statusResponse{Connected: false})
		return
	}

	account, err := h.store.GetAccount(r.Context(), subject)
	if err != nil {
		jsonwriter.Write(w, statusResponse{Connected: false})
		return
	}

	jsonwriter.Write(w, statusResponse{
		Connected:    true,
		Email:        account.Email,
		LastSyncedAt: &account.LastSyncedAt,
	})
}
