// Package api assembles the HTTP surface: public identity routes, the
// token-protected notes subtree, and operational endpoints.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/notes-api/internal/httpx"
	"example.com/notes-api/internal/notes"
	"example.com/notes-api/internal/users"
)

func NewRouter(log *slog.Logger, usersH *users.Handlers, notesH *notes.Handlers, authMW func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(withRequestID)
	r.Use(withRequestLogging(log))
	r.Use(withMetrics)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Signup and login establish identity and stay outside the gateway.
	r.Post("/signup", usersH.Signup)
	r.Post("/login", usersH.Login)

	r.Group(func(r chi.Router) {
		r.Use(authMW)
		r.Get("/me", usersH.Me)
		r.Mount("/notes", notesH.Routes())
	})

	return r
}
