package server

import (
	"net/http"

	"github.com/csrental/cees/internal/api"
	"github.com/csrental/cees/internal/api/handlers"
	"github.com/csrental/cees/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	SessionValidator middleware.SessionValidator
	DocumentHandler  *handlers.DocumentHandler
	ChatHandler      *handlers.ChatHandler
	SessionHandler   *handlers.SessionHandler
	MaxBodyBytes     int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = 12 * 1024 * 1024
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(cfg.SessionValidator))

		r.Get("/auth/me", cfg.SessionHandler.Me)
		r.Post("/auth/logout", cfg.SessionHandler.Logout)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/upload", cfg.DocumentHandler.Upload)
			r.Get("/", cfg.DocumentHandler.ListMine)
			r.Get("/{id}", cfg.DocumentHandler.Get)
		})

		r.Post("/chat", cfg.ChatHandler.SendMessage)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/documents", cfg.DocumentHandler.ListAdmin)
			r.Post("/documents/{id}/approve", cfg.DocumentHandler.Approve)
			r.Post("/documents/{id}/reject", cfg.DocumentHandler.Reject)
		})
	})

	return r
}
