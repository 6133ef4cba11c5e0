package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/tasks"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title   string   `json:"title" example:"Query Tips"`
	Content string   `json:"content" example:"Use EXPLAIN."`
	Tags    []string `json:"tags,omitempty" example:"snippet,sql"`
	Folder  string   `json:"folder,omitempty" example:"projects/work"`
}

// Validate checks the required fields.
func (r CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Content, validation.Required),
	)
}

// CreateNoteResponse is returned after a note is created.
type CreateNoteResponse struct {
	Path string `json:"path" example:"projects/work/Query Tips.md"`
}

// MarkTaskRequest is the request body for marking a task.
type MarkTaskRequest struct {
	Path     string `json:"path" example:"dailies/2025-12-04.md"`
	TaskText string `json:"task_text" example:"Call MetEd"`
	Status   string `json:"status" example:"Completed"`
}

// Validate checks the required fields and the status vocabulary.
func (r MarkTaskRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.TaskText, validation.Required),
		validation.Field(&r.Status, validation.Required, validation.In(statusNames()...)),
	)
}

// AddTaskRequest is the request body for adding a task to a daily note.
type AddTaskRequest struct {
	TaskText string `json:"task_text" example:"Call Mom"`
}

// Validate checks the required fields.
func (r AddTaskRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TaskText, validation.Required),
	)
}

// NoteResponse is a note with its content.
type NoteResponse struct {
	Path      string    `json:"path" example:"projects/plan.md"`
	Content   string    `json:"content"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

func noteResponse(n *models.Note) NoteResponse {
	return NoteResponse{Path: n.Path, Content: n.Content, Size: n.Size, UpdatedAt: n.UpdatedAt}
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Path      string    `json:"path"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes"`
}

func noteList(metas []models.NoteMetadata) NoteListResponse {
	items := make([]NoteListItem, len(metas))
	for i, m := range metas {
		items[i] = NoteListItem{Path: m.Path, UpdatedAt: m.UpdatedAt}
	}
	return NoteListResponse{Notes: items}
}

// MarkTaskResponse is the domain result of marking a task.
type MarkTaskResponse = noteservice.MarkResult

// AddTaskResponse is the domain result of adding a task.
type AddTaskResponse = noteservice.AddResult

// TaskListResponse wraps indexed task lines.
type TaskListResponse struct {
	Tasks []index.TaskRow `json:"tasks"`
}

// TaggedNotesResponse wraps notes carrying a tag.
type TaggedNotesResponse struct {
	Notes []index.NoteRow `json:"notes"`
}

func statusNames() []any {
	all := tasks.Statuses()
	out := make([]any, len(all))
	for i, s := range all {
		out[i] = string(s)
	}
	return out
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
