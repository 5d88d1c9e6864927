package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/memosync/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{slug}", h.GetNote)
	r.Put("/notes/{slug}", h.UpdateNote)
	r.Delete("/notes/{slug}", h.DeleteNote)
	r.Post("/notes/{slug}/push", h.PushNote)
	r.Delete("/notes/{slug}/pending", h.DiscardPending)

	r.Post("/sync", h.Sync)
	r.Get("/status", h.Status)

	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.PutSettings)
	r.Delete("/settings", h.DeleteSettings)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
