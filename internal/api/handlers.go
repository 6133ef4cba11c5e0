package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/noteservice"
)

const defaultRecentCount = 10

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// notePath extracts the note path from the URL (everything after /api/notes/).
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, key string, def int) (int, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

// SearchNotes handles GET /api/notes/search.
//
//	@Summary		Case-insensitive content search
//	@Tags			notes
//	@Produce		json
//	@Param			q	query		string	true	"Search query"
//	@Success		200	{object}	NoteListResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/search [get]
func (h *Handler) SearchNotes(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.SearchByContent(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, noteList(results))
}

// RecentNotes handles GET /api/notes/recent.
//
//	@Summary		Most recently modified notes
//	@Tags			notes
//	@Produce		json
//	@Param			count	query		int	false	"Number of notes (default 10)"
//	@Success		200		{object}	NoteListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/recent [get]
func (h *Handler) RecentNotes(w http.ResponseWriter, r *http.Request) {
	count, ok := queryInt(r, "count", defaultRecentCount)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("count must be an integer"))
		return
	}
	results, err := h.svc.ListRecent(r.Context(), count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, noteList(results))
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note by path
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.ReadNote(r.Context(), notePath(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, noteResponse(note))
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	CreateNoteResponse
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rel, err := h.svc.CreateNote(r.Context(), noteservice.CreateNoteInput{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
		Folder:  req.Folder,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateNoteResponse{Path: rel})
}

// GetDailyNote handles GET /api/daily/{date}.
//
//	@Summary		Get the daily note for a date
//	@Tags			daily
//	@Produce		json
//	@Param			date	path		string	true	"today, yesterday or YYYY-MM-DD"
//	@Success		200		{object}	NoteResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/daily/{date} [get]
func (h *Handler) GetDailyNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.ReadDailyNote(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, noteResponse(note))
}

// AddDailyTask handles POST /api/daily/{date}/tasks.
//
//	@Summary		Add an open task to the daily Short List
//	@Tags			daily
//	@Accept			json
//	@Produce		json
//	@Param			date	path		string			true	"today, yesterday or YYYY-MM-DD"
//	@Param			body	body		AddTaskRequest	true	"Task to add"
//	@Success		201		{object}	AddTaskResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/daily/{date}/tasks [post]
func (h *Handler) AddDailyTask(w http.ResponseWriter, r *http.Request) {
	var req AddTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.AddTaskToDaily(r.Context(), req.TaskText, chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// MarkTask handles POST /api/tasks/mark.
//
//	@Summary		Set the status of matching task lines
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MarkTaskRequest	true	"Task to mark"
//	@Success		200		{object}	MarkTaskResponse
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/mark [post]
func (h *Handler) MarkTask(w http.ResponseWriter, r *http.Request) {
	var req MarkTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.MarkTask(r.Context(), req.Path, req.TaskText, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListTasks handles GET /api/tasks.
//
//	@Summary		List indexed tasks
//	@Tags			tasks
//	@Produce		json
//	@Param			status	query		string	false	"Status filter"
//	@Param			path	query		string	false	"Note path filter"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	TaskListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks [get]
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", 0)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("limit must be an integer"))
		return
	}
	q := r.URL.Query()
	rows, err := h.svc.ListTasks(r.Context(), noteservice.TaskFilter{
		Status: q.Get("status"),
		Path:   q.Get("path"),
		Limit:  limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TaskListResponse{Tasks: nonNilSlice(rows)})
}

// NotesByTag handles GET /api/tags/{tag}/notes.
//
//	@Summary		Notes carrying a tag
//	@Tags			tags
//	@Produce		json
//	@Param			tag		path		string	true	"Tag, without '#'"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	TaggedNotesResponse
//	@Security		BearerAuth
//	@Router			/tags/{tag}/notes [get]
func (h *Handler) NotesByTag(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", 0)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("limit must be an integer"))
		return
	}
	rows, err := h.svc.NotesByTag(r.Context(), chi.URLParam(r, "tag"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TaggedNotesResponse{Notes: nonNilSlice(rows)})
}
