package index

import (
	"time"

	"github.com/starford/quire/internal/tasks"
)

// NoteIndex defines the interface for note indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type NoteIndex interface {
	IndexFile(path string, data []byte, modTime time.Time) error
	UpsertNote(n NoteRow, items []tasks.Task) error
	DeleteNote(path string) error
	GetChecksum(path string) (string, error)
	GetNote(path string) (*NoteRow, error)
	AllChecksums() (map[string]string, error)
	ListTasks(q TaskQuery) ([]TaskRow, error)
	NotesByTag(tag string, limit int) ([]NoteRow, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
