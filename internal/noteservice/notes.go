package noteservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/daily"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/sse"
	"github.com/starford/quire/internal/storage"
)

// ErrInvalidTitle is returned for titles that would name a path rather than a file.
var ErrInvalidTitle = apperr.New(apperr.ErrInvalidInput, "title cannot contain path separators")

// CreateNoteInput holds the arguments of CreateNote. Tags and Folder are optional.
type CreateNoteInput struct {
	Title   string
	Content string
	Tags    []string
	Folder  string
}

// ReadNote returns the note at path, which may be vault-relative or absolute.
func (s *Service) ReadNote(_ context.Context, path string) (*models.Note, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}
	abs, err := s.store.Resolve(path)
	if err != nil {
		return nil, err
	}
	return s.load(abs, func() error {
		return fmt.Errorf("%w at %s", ErrNoteNotFound, path)
	})
}

// ReadDailyNote returns the daily note for a "today", "yesterday" or YYYY-MM-DD token.
func (s *Service) ReadDailyNote(_ context.Context, dateToken string) (*models.Note, error) {
	d, err := daily.ParseDate(dateToken, s.now())
	if err != nil {
		return nil, err
	}
	abs, err := s.store.Resolve(daily.NotePath(d))
	if err != nil {
		return nil, err
	}
	return s.load(abs, func() error {
		return fmt.Errorf("%w for %s", ErrDailyNotFound, d.Format(daily.DateLayout))
	})
}

func (s *Service) load(abs string, notFound func() error) (*models.Note, error) {
	data, err := s.store.Read(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound()
	}
	if err != nil {
		return nil, err
	}
	meta, err := s.store.Stat(abs)
	if err != nil {
		return nil, err
	}
	return &models.Note{NoteMetadata: meta, Content: string(data)}, nil
}

// CreateNote writes a new note named "<Title>.md" into Folder (the vault root when
// empty) and returns its vault-relative path. An existing note is never overwritten.
func (s *Service) CreateNote(_ context.Context, in CreateNoteInput) (string, error) {
	if strings.TrimSpace(in.Title) == "" {
		return "", ErrEmptyTitle
	}
	if strings.TrimSpace(in.Content) == "" {
		return "", ErrEmptyContent
	}
	if strings.ContainsAny(in.Title, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTitle, in.Title)
	}

	folder := strings.TrimSpace(in.Folder)
	if folder == "" {
		folder = "."
	} else if isDailyFolder(folder) {
		return "", ErrFolderRestricted
	}

	dir, err := s.store.Resolve(folder)
	if err != nil {
		return "", err
	}
	abs, err := s.store.Resolve(filepath.Join(dir, in.Title+".md"))
	if err != nil {
		return "", err
	}

	unlock := s.locks.lock(abs)
	defer unlock()

	if err := s.store.MkdirAll(dir); err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrFolderCreateFailed, folder, err)
	}

	rel, err := s.store.Rel(abs)
	if err != nil {
		return "", err
	}
	body := []byte(renderBody(in.Content, in.Tags))
	s.indexAhead(rel, body)
	if err := s.store.Create(abs, body); err != nil {
		s.resync(rel)
		if errors.Is(err, storage.ErrFileExists) {
			return "", fmt.Errorf("%w: '%s'", ErrNoteAlreadyExists, in.Title)
		}
		return "", err
	}
	s.notify(sse.KindCreated, rel)
	s.logger.Info("noteservice: note created", slog.String("path", rel))
	return rel, nil
}

// isDailyFolder reports whether folder names the daily notes directory.
func isDailyFolder(folder string) bool {
	return strings.EqualFold(filepath.Clean(filepath.FromSlash(folder)), daily.Folder)
}

// renderBody prefixes content with a "#a #b" tag line and one blank line.
// Blank tags are dropped; tags already starting with '#' are kept as is.
func renderBody(content string, tags []string) string {
	var rendered []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !strings.HasPrefix(t, "#") {
			t = "#" + t
		}
		rendered = append(rendered, t)
	}
	if len(rendered) == 0 {
		return content
	}
	return strings.Join(rendered, " ") + "\n\n" + content
}
