package index

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if checksums[m.Path] == Checksum(data) {
			continue
		}
		if err := db.IndexFile(m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNote(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile parses data and upserts the note, its tags and its tasks.
// The title falls back to the file name when the note has neither frontmatter title nor H1.
func (db *DB) IndexFile(p string, data []byte, modTime time.Time) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	title := res.Title
	if title == "" {
		title = strings.TrimSuffix(path.Base(p), ".md")
	}
	if modTime.IsZero() {
		modTime = time.Now()
	}
	return db.UpsertNote(NoteRow{
		Path:      p,
		Title:     title,
		Checksum:  Checksum(data),
		Tags:      res.Tags,
		UpdatedAt: modTime,
	}, res.Tasks)
}

// Checksum returns the hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
