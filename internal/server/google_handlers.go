package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/careeros/careeros/internal/auth"
	"github.com/careeros/careeros/internal/cookie"
	jsonwriter "github.com/careeros/careeros/internal/json"
	"github.com/careeros/careeros/internal/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	defaultThreadCount = 15
	maxThreadCount     = 50
)

// GoogleHandlers proxies Calendar and Gmail calls for the logged-in user.
// Each endpoint resolves a credential per request; the token source behind
// it refreshes transparently when the stored access token has expired.
type GoogleHandlers struct {
	manager *auth.Manager
	cookies *cookie.Jar

	// endpoint overrides the Google API base URL in tests; empty in production
	endpoint string
}

// NewGoogleHandlers creates the API proxy handlers
func NewGoogleHandlers(manager *auth.Manager, cookies *cookie.Jar, endpoint string) *GoogleHandlers {
	return &GoogleHandlers{
		manager:  manager,
		cookies:  cookies,
		endpoint: endpoint,
	}
}

// tokenSource authorizes the request. It writes the 401 response itself
// when the session is missing or the credential cannot be resolved.
func (h *GoogleHandlers) tokenSource(w http.ResponseWriter, r *http.Request) (oauth2.TokenSource, bool) {
	subject, ok := h.cookies.Session(r)
	if !ok {
		jsonwriter.WriteUnauthorized(w, "Unauthorized")
		return nil, false
	}

	source, err := h.manager.Resolve(r.Context(), subject)
	if err != nil {
		log.LogWarnWithFields("proxy", "Credential resolution failed", map[string]any{
			"subject": subject,
			"error":   err.Error(),
		})
		jsonwriter.WriteUnauthorized(w, "Session expired")
		return nil, false
	}
	return source, true
}

func (h *GoogleHandlers) clientOptions(source oauth2.TokenSource) []option.ClientOption {
	opts := []option.ClientOption{option.WithTokenSource(source)}
	if h.endpoint != "" {
		opts = append(opts, option.WithEndpoint(h.endpoint))
	}
	return opts
}

// CalendarUpcomingHandler returns the next 10 upcoming events on the
// primary calendar, ordered by start time
func (h *GoogleHandlers) CalendarUpcomingHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	source, ok := h.tokenSource(w, r)
	if !ok {
		return
	}

	svc, err := calendar.NewService(ctx, h.clientOptions(source)...)
	if err != nil {
		log.LogError("Failed to create calendar service: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to fetch calendar events")
		return
	}

	events, err := svc.Events.List("primary").
		TimeMin(time.Now().Format(time.RFC3339)).
		MaxResults(10).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		log.LogError("Calendar events list failed: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to fetch calendar events")
		return
	}

	jsonwriter.Write(w, map[string]any{"events": events.Items})
}

// GmailProfileHandler passes through the mailbox profile
func (h *GoogleHandlers) GmailProfileHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	source, ok := h.tokenSource(w, r)
	if !ok {
		return
	}

	svc, err := gmail.NewService(ctx, h.clientOptions(source)...)
	if err != nil {
		log.LogError("Failed to create gmail service: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to fetch Gmail profile")
		return
	}

	profile, err := svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		log.LogError("Gmail profile fetch failed: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to fetch Gmail profile")
		return
	}

	jsonwriter.Write(w, profile)
}

// emailThread is the reshaped inbox thread returned to the frontend
type emailThread struct {
	ID      string `json:"id"`
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
	IsRead  bool   `json:"isRead"`
}

// GmailThreadsHandler lists up to maxResults inbox threads. Thread detail
// fetches are issued concurrently and joined before responding; a thread
// that yields no parseable headers is dropped rather than failing the
// whole request.
func (h *GoogleHandlers) GmailThreadsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	source, ok := h.tokenSource(w, r)
	if !ok {
		return
	}

	maxResults := defaultThreadCount
	if raw := r.URL.Query().Get("maxResults"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			jsonwriter.WriteBadRequest(w, "maxResults must be a positive integer")
			return
		}
		maxResults = min(n, maxThreadCount)
	}

	svc, err := gmail.NewService(ctx, h.clientOptions(source)...)
	if err != nil {
		log.LogError("Failed to create gmail service: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to fetch Gmail threads")
		return
	}

	list, err := svc.Users.Threads.List("me").
		LabelIds("INBOX").
		MaxResults(int64(maxResults)).
		Context(ctx).
		Do()
	if err != nil {
		log.LogError("Gmail threads list failed: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to fetch Gmail threads")
		return
	}

	results := make([]*emailThread, len(list.Threads))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range list.Threads {
		i, t := i, t
		g.Go(func() error {
			full, err := svc.Users.Threads.Get("me", t.Id).
				Format("metadata").
				MetadataHeaders("From", "Subject", "Date").
				Context(gctx).
				Do()
			if err != nil {
				return err
			}
			results[i] = reshapeThread(full)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.LogError("Gmail thread fetch failed: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to fetch Gmail threads")
		return
	}

	threads := make([]*emailThread, 0, len(results))
	for _, t := range results {
		if t != nil {
			threads = append(threads, t)
		}
	}

	jsonwriter.Write(w, map[string]any{"threads": threads})
}

// reshapeThread extracts sender/subject/snippet/date/read-state from a
// thread's first message. Returns nil when no usable headers are present.
func reshapeThread(t *gmail.Thread) *emailThread {
	if len(t.Messages) == 0 {
		return nil
	}
	first := t.Messages[0]
	if first.Payload == nil {
		return nil
	}

	var sender, subject, date string
	for _, header := range first.Payload.Headers {
		switch header.Name {
		case "From":
			sender = header.Value
		case "Subject":
			subject = header.Value
		case "Date":
			date = header.Value
		}
	}
	if sender == "" && subject == "" {
		return nil
	}
	if date == "" && first.InternalDate > 0 {
		date = time.UnixMilli(first.InternalDate).UTC().Format(time.RFC3339)
	}

	snippet := t.Snippet
	if snippet == "" {
		snippet = first.Snippet
	}

	isRead := true
	for _, message := range t.Messages {
		for _, label := range message.LabelIds {
			if label == "UNREAD" {
				isRead = false
			}
		}
	}

	return &emailThread{
		ID:      t.Id,
		Sender:  sender,
		Subject: subject,
		Snippet: snippet,
		Date:    date,
		IsRead:  isRead,
	}
}
