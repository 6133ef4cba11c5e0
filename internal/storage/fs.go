package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/natefinch/atomic"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/vault"
)

// ErrFileExists is returned by Create when the target is already present.
var ErrFileExists = apperr.New(apperr.ErrAlreadyExists, "file already exists")

// FS implements Provider backed by the local file system.
type FS struct {
	guard  *vault.Guard
	ignore []glob.Glob
	logger *slog.Logger
}

// Option configures an FS.
type Option func(*FS) error

// WithIgnore hides files whose vault-relative path matches one of the glob patterns
// (e.g. ".obsidian/**") from List.
func WithIgnore(patterns ...string) Option {
	return func(f *FS) error {
		for _, p := range patterns {
			g, err := glob.Compile(p, '/')
			if err != nil {
				return fmt.Errorf("storage: ignore pattern %q: %w", p, err)
			}
			f.ignore = append(f.ignore, g)
		}
		return nil
	}
}

// WithLogger sets the logger used for skipped entries.
func WithLogger(l *slog.Logger) Option {
	return func(f *FS) error {
		f.logger = l
		return nil
	}
}

// NewFS creates a new FS provider confined by guard.
func NewFS(guard *vault.Guard, opts ...Option) (*FS, error) {
	f := &FS{guard: guard, logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Root returns the canonical vault root.
func (f *FS) Root() string {
	return f.guard.Root()
}

// Resolve canonicalises path against the vault root.
func (f *FS) Resolve(path string) (string, error) {
	return f.guard.Resolve(path)
}

// Rel returns the vault-relative slash path of a resolved absolute path.
func (f *FS) Rel(abs string) (string, error) {
	return f.guard.Rel(abs)
}

func (f *FS) ignored(rel string, dir bool) bool {
	if dir {
		rel += "/"
	}
	for _, g := range f.ignore {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Ignored reports whether the vault-relative slash path rel, or any directory
// containing it, matches an ignore pattern.
func (f *FS) Ignored(rel string) bool {
	if len(f.ignore) == 0 {
		return false
	}
	rel = filepath.ToSlash(rel)
	if f.ignored(rel, false) {
		return true
	}
	for i := 0; i < len(rel); i++ {
		if rel[i] == '/' && f.ignored(rel[:i], true) {
			return true
		}
	}
	return false
}

// List walks dir and returns metadata for every .md file. Unreadable entries below dir
// are logged and skipped.
func (f *FS) List(dir string) ([]models.NoteMetadata, error) {
	if dir == "" {
		dir = "."
	}
	base, err := f.guard.Resolve(dir)
	if err != nil {
		return nil, err
	}

	var out []models.NoteMetadata
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == base {
				return walkErr
			}
			f.logger.Warn("storage: skipping unreadable entry",
				slog.String("path", p), slog.String("error", walkErr.Error()))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, relErr := f.guard.Rel(p)
		if relErr != nil {
			return nil
		}
		if p != base && f.ignored(rel, d.IsDir()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		info, err := f.entryInfo(p, d)
		if err != nil {
			f.logger.Warn("storage: skipping entry",
				slog.String("path", rel), slog.String("error", err.Error()))
			return nil
		}
		if info.IsDir() {
			return nil
		}
		out = append(out, models.NoteMetadata{
			Path:      rel,
			AbsPath:   p,
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, ioErr("list", dir, err)
	}
	return out, nil
}

// entryInfo returns file info for a walked entry. Symlinks are followed only when
// their target stays inside the vault.
func (f *FS) entryInfo(p string, d fs.DirEntry) (fs.FileInfo, error) {
	if d.Type()&fs.ModeSymlink == 0 {
		return d.Info()
	}
	target, err := f.guard.Resolve(p)
	if err != nil {
		return nil, err
	}
	return os.Stat(target)
}

// Stat returns metadata for the file at path.
func (f *FS) Stat(path string) (models.NoteMetadata, error) {
	abs, err := f.guard.Resolve(path)
	if err != nil {
		return models.NoteMetadata{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.NoteMetadata{}, ioErr("stat", path, err)
	}
	rel, _ := f.guard.Rel(abs)
	return models.NoteMetadata{
		Path:      rel,
		AbsPath:   abs,
		Size:      info.Size(),
		UpdatedAt: info.ModTime(),
	}, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.guard.Resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, ioErr("read", path, err)
	}
	return data, nil
}

// Write atomically replaces the file content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.guard.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return ioErr("mkdir", path, err)
	}
	if err := atomic.WriteFile(abs, bytes.NewReader(content)); err != nil {
		return ioErr("write", path, err)
	}
	return nil
}

// Create writes a new file without ever replacing an existing one. The content is staged
// in a temp file and hard-linked into place, so the note appears complete or not at all.
func (f *FS) Create(path string, content []byte) error {
	abs, err := f.guard.Resolve(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	tmp, err := os.CreateTemp(dir, ".quire-tmp-*")
	if err != nil {
		return ioErr("create temp", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return ioErr("write temp", path, err)
	}
	// CreateTemp uses 0600; notes share the mode of every other vault file.
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return ioErr("chmod temp", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return ioErr("fsync", path, err)
	}
	if err := tmp.Close(); err != nil {
		return ioErr("close temp", path, err)
	}

	linkErr := os.Link(tmpName, abs)
	switch {
	case linkErr == nil:
		return nil
	case errors.Is(linkErr, fs.ErrExist):
		return fmt.Errorf("%w: %s", ErrFileExists, path)
	}

	// Filesystems without hard links: fall back to an exclusive create.
	out, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrFileExists, path)
		}
		return ioErr("create", path, err)
	}
	if _, err := out.Write(content); err != nil {
		_ = out.Close()
		return ioErr("create", path, err)
	}
	if err := out.Close(); err != nil {
		return ioErr("create", path, err)
	}
	return nil
}

// MkdirAll creates dir and any missing parents inside the vault.
func (f *FS) MkdirAll(dir string) error {
	abs, err := f.guard.Resolve(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return ioErr("mkdir", dir, err)
	}
	return nil
}

func ioErr(op, path string, err error) error {
	return fmt.Errorf("%w: storage: %s %s: %w", apperr.ErrIO, op, path, err)
}
