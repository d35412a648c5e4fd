package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notehub/internal/auth"
	"github.com/starford/notehub/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// Every route requires a principal resolved by resolver.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, resolver auth.Resolver, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(PrincipalMiddleware(resolver))

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/shared", h.ListShared)
	r.Get("/notes/{id}", h.GetNote)
	r.Put("/notes/{id}", h.UpdateNote)
	r.Patch("/notes/{id}", h.PatchNote)
	r.Delete("/notes/{id}", h.DeleteNote)

	// Sharing and visibility.
	r.Post("/notes/{id}/share", h.ShareNote)
	r.Post("/notes/{id}/unshare", h.UnshareNote)
	r.Post("/notes/{id}/make-public", h.MakePublic)
	r.Post("/notes/{id}/make-private", h.MakePrivate)

	// Search.
	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
