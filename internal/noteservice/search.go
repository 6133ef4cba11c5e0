package noteservice

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/quire/internal/models"
)

// SearchByContent returns every note whose content contains query, compared
// case-insensitively, ordered by vault-relative path. Files that cannot be read
// are logged and skipped.
func (s *Service) SearchByContent(ctx context.Context, query string) ([]models.NoteMetadata, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	metas, err := s.store.List("")
	if err != nil {
		return nil, fmt.Errorf("noteservice: search: %w", err)
	}

	needle := strings.ToLower(query)
	hits := make([]bool, len(metas))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, m := range metas {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := s.store.Read(m.Path)
			if err != nil {
				s.logger.Warn("noteservice: search: skipping unreadable note",
					slog.String("path", m.Path), slog.String("error", err.Error()))
				return nil
			}
			hits[i] = strings.Contains(strings.ToLower(string(data)), needle)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("noteservice: search: %w", err)
	}

	var out []models.NoteMetadata
	for i, m := range metas {
		if hits[i] {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b models.NoteMetadata) int {
		return cmp.Compare(a.Path, b.Path)
	})
	return out, nil
}

// ListRecent returns the count most recently modified notes, newest first.
func (s *Service) ListRecent(_ context.Context, count int) ([]models.NoteMetadata, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}
	metas, err := s.store.List("")
	if err != nil {
		return nil, fmt.Errorf("noteservice: recent: %w", err)
	}
	slices.SortFunc(metas, func(a, b models.NoteMetadata) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})
	if len(metas) > count {
		metas = metas[:count]
	}
	return metas, nil
}
