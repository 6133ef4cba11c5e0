// Package noteservice implements the vault operations: content search, recency
// listing, note and daily-note reads, note creation, and task mutation.
package noteservice

import (
	"errors"
	"io/fs"
	"log/slog"
	"runtime"
	"time"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/storage"
)

// Conditions reported by the service.
var (
	ErrEmptyQuery         = apperr.New(apperr.ErrInvalidInput, "query cannot be empty")
	ErrEmptyPath          = apperr.New(apperr.ErrInvalidInput, "path cannot be empty")
	ErrInvalidCount       = apperr.New(apperr.ErrInvalidInput, "count must be greater than 0")
	ErrEmptyTitle         = apperr.New(apperr.ErrInvalidInput, "title cannot be empty")
	ErrEmptyContent       = apperr.New(apperr.ErrInvalidInput, "content cannot be empty")
	ErrEmptyTaskText      = apperr.New(apperr.ErrInvalidInput, "task text cannot be empty")
	ErrMultilineTask      = apperr.New(apperr.ErrInvalidInput, "task text must be a single line")
	ErrEmptyTag           = apperr.New(apperr.ErrInvalidInput, "tag cannot be empty")
	ErrFolderRestricted   = apperr.New(apperr.ErrInvalidInput, "cannot create notes in 'dailies' folder; daily notes are managed through the daily note operations")
	ErrFolderCreateFailed = apperr.New(apperr.ErrIO, "cannot create folder")
	ErrNoteAlreadyExists  = apperr.New(apperr.ErrAlreadyExists, "note already exists")
	ErrNoteNotFound       = apperr.New(apperr.ErrNotFound, "file not found")
	ErrDailyNotFound      = apperr.New(apperr.ErrNotFound, "daily note not found")
	ErrIndexDisabled      = apperr.New(apperr.ErrInvalidInput, "note index is not enabled")
)

// Notifier receives change notifications after successful mutations.
type Notifier interface {
	PublishNoteEvent(kind, path string)
}

// Service coordinates vault storage, the optional index and change notification.
type Service struct {
	store    storage.Provider
	db       index.NoteIndex
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	workers  int
	locks    *pathLocks
}

// Option configures a Service.
type Option func(*Service)

// WithIndex keeps idx up to date after every mutation and enables the
// task and tag queries.
func WithIndex(idx index.NoteIndex) Option {
	return func(s *Service) {
		s.db = idx
	}
}

// WithNotifier sets the receiver of change notifications.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithClock overrides the time source used to resolve "today" and "yesterday".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithSearchWorkers bounds the number of files read concurrently by SearchByContent.
func WithSearchWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New creates a service on top of store.
func New(store storage.Provider, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  slog.Default(),
		now:     time.Now,
		workers: runtime.GOMAXPROCS(0),
		locks:   newPathLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) notify(kind, rel string) {
	if s.notifier != nil {
		s.notifier.PublishNoteEvent(kind, rel)
	}
}

// indexAhead stores the index entry for data before it is written to rel, so that
// the watcher finds a matching checksum when the write lands and stays quiet.
// Index failures never fail the mutation that triggered them.
func (s *Service) indexAhead(rel string, data []byte) {
	if s.db == nil {
		return
	}
	if err := s.db.IndexFile(rel, data, time.Time{}); err != nil {
		s.logger.Warn("noteservice: reindex failed",
			slog.String("path", rel), slog.String("error", err.Error()))
	}
}

// resync restores the index entry for rel from disk after a failed write.
func (s *Service) resync(rel string) {
	if s.db == nil {
		return
	}
	data, err := s.store.Read(rel)
	if errors.Is(err, fs.ErrNotExist) {
		err = s.db.DeleteNote(rel)
	} else if err == nil {
		var modTime time.Time
		if meta, statErr := s.store.Stat(rel); statErr == nil {
			modTime = meta.UpdatedAt
		}
		err = s.db.IndexFile(rel, data, modTime)
	}
	if err != nil {
		s.logger.Warn("noteservice: resync failed",
			slog.String("path", rel), slog.String("error", err.Error()))
	}
}
