package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/wordmaster/internal/session"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(ctrl *session.Controller, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(ctrl)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Reads.
	r.Get("/state", h.State)
	r.Get("/words", h.ListWords)
	r.Get("/stats", h.Stats)

	// Collection.
	r.Post("/import", h.Import)
	r.Post("/shuffle", h.Shuffle)
	r.Post("/reset", h.Reset)
	r.Delete("/words", h.Clear)
	r.Post("/words/{id}/toggle", h.ToggleWord)

	// Session.
	r.Put("/mode", h.SetMode)
	r.Put("/filter", h.SetFilter)
	r.Post("/direction/toggle", h.ToggleDirection)
	r.Post("/flip", h.Flip)
	r.Post("/next", h.Next)
	r.Post("/prev", h.Prev)
	r.Post("/rate", h.Rate)

	// Dictation.
	r.Put("/dictation/input", h.SetInput)
	r.Post("/dictation/check", h.Check)
	r.Post("/dictation/reveal", h.Reveal)
	r.Post("/dictation/submit", h.Submit)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
