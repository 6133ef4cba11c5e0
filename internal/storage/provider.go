// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/quire/internal/models"

// Provider is the interface for vault file operations. Every path argument may be
// vault-relative or absolute; it is resolved through the vault guard before use.
type Provider interface {
	// Root returns the canonical vault root.
	Root() string
	// Resolve canonicalises path and verifies it lies inside the vault.
	Resolve(path string) (string, error)
	// Rel returns the vault-relative slash path of a resolved absolute path.
	Rel(abs string) (string, error)
	// List returns metadata for every non-ignored .md file under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Stat returns metadata for a single file.
	Stat(path string) (models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write replaces the whole file at path atomically.
	Write(path string, content []byte) error
	// Create writes a new file and fails if one already exists at path.
	Create(path string, content []byte) error
	// Ignored reports whether a vault-relative path is hidden by the ignore patterns.
	Ignored(rel string) bool
	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string) error
}
