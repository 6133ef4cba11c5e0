package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes. The fixed routes win over the catch-all in chi's radix tree.
	r.Get("/notes/search", h.SearchNotes)
	r.Get("/notes/recent", h.RecentNotes)
	r.Get("/notes/*", h.GetNote)
	r.Post("/notes", h.CreateNote)

	// Daily notes.
	r.Get("/daily/{date}", h.GetDailyNote)
	r.Post("/daily/{date}/tasks", h.AddDailyTask)

	// Tasks and tags (served from the index).
	r.Get("/tasks", h.ListTasks)
	r.Post("/tasks/mark", h.MarkTask)
	r.Get("/tags/{tag}/notes", h.NotesByTag)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
