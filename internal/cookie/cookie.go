package cookie

import (
	"net/http"
	"time"

	"github.com/careeros/careeros/internal/crypto"
	"github.com/careeros/careeros/internal/envutil"
	"github.com/careeros/careeros/internal/log"
)

// Cookie names used by the Career OS backend
const (
	// SessionCookie carries the signed Google subject id of the logged-in user
	SessionCookie = "career_os_session"
	// StateCookie carries the signed anti-forgery nonce during the OAuth flow
	StateCookie = "oauth_state"
)

const (
	SessionTTL = 7 * 24 * time.Hour
	StateTTL   = 10 * time.Minute
)

// Jar signs and verifies the browser cookies. Values are tamper-evident
// (value.signature) so possession of a valid session cookie is sufficient
// authorization for the API proxy endpoints.
type Jar struct {
	secret []byte
}

func NewJar(secret []byte) *Jar {
	return &Jar{secret: secret}
}

// SetSession sets the session cookie for the given subject
func (j *Jar) SetSession(w http.ResponseWriter, subject string) {
	set(w, SessionCookie, crypto.SignValue(subject, j.secret), SessionTTL)

	log.LogTraceWithFields("cookie", "Session cookie set", map[string]any{
		"maxAge": SessionTTL.String(),
	})
}

// Session returns the verified subject from the session cookie, if any
func (j *Jar) Session(r *http.Request) (string, bool) {
	return j.get(r, SessionCookie)
}

// ClearSession removes the session cookie
func (j *Jar) ClearSession(w http.ResponseWriter) {
	expire(w, SessionCookie)
	log.LogTraceWithFields("cookie", "Session cookie cleared", nil)
}

// SetState sets the short-lived OAuth state cookie
func (j *Jar) SetState(w http.ResponseWriter, nonce string) {
	set(w, StateCookie, crypto.SignValue(nonce, j.secret), StateTTL)
}

// State returns the verified nonce from the state cookie, if any
func (j *Jar) State(r *http.Request) (string, bool) {
	return j.get(r, StateCookie)
}

// ClearState removes the OAuth state cookie
func (j *Jar) ClearState(w http.ResponseWriter) {
	expire(w, StateCookie)
}

func (j *Jar) get(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	return crypto.UnsignValue(c.Value, j.secret)
}

func set(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   !envutil.IsDev(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})
}

func expire(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}
