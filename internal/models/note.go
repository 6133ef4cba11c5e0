// Package models defines the domain types for quire.
package models

import "time"

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`     // vault-relative, slash separated
	AbsPath   string    `json:"abs_path"` // canonical absolute path
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Note is a note's metadata together with its full content.
type Note struct {
	NoteMetadata
	Content string `json:"content"`
}
