package server

import (
	"net/http"
)

// NewHandler assembles the full HTTP surface with middleware applied
func NewHandler(authHandlers *AuthHandlers, googleHandlers *GoogleHandlers, frontendURL string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", HealthHandler)

	mux.HandleFunc("GET /auth/google/start", authHandlers.StartHandler)
	mux.HandleFunc("GET /auth/google/callback", authHandlers.CallbackHandler)
	mux.HandleFunc("POST /auth/google/disconnect", authHandlers.DisconnectHandler)

	mux.HandleFunc("GET /api/google/status", authHandlers.StatusHandler)
	mux.HandleFunc("GET /api/google/calendar/upcoming", googleHandlers.CalendarUpcomingHandler)
	mux.HandleFunc("GET /api/google/gmail/profile", googleHandlers.GmailProfileHandler)
	mux.HandleFunc("GET /api/google/gmail/threads", googleHandlers.GmailThreadsHandler)

	return ChainMiddleware(mux,
		NewCORSMiddleware(frontendURL),
		NewLoggerMiddleware("http"),
		NewRecoverMiddleware("http"),
	)
}
