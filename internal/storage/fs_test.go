package storage

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/vault"
)

func tempVault(t *testing.T, opts ...Option) *FS {
	t.Helper()
	g, err := vault.New(t.TempDir())
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}
	fs, err := NewFS(g, opts...)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestReadAbsolutePath(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("abs.md", []byte("abs"))
	got, err := s.Read(filepath.Join(s.Root(), "abs.md"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "abs" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestReadMissing(t *testing.T) {
	s := tempVault(t)
	_, err := s.Read("missing.md")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
	if !errors.Is(err, apperr.ErrIO) {
		t.Errorf("expected io kind, got %v", err)
	}
}

func TestCreateNeverOverwrites(t *testing.T) {
	s := tempVault(t)
	if err := s.Create("new.md", []byte("first")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := s.Create("new.md", []byte("second"))
	if !errors.Is(err, ErrFileExists) || !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("second Create err = %v, want already exists", err)
	}
	got, _ := s.Read("new.md")
	if string(got) != "first" {
		t.Errorf("content = %q, want first", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.Root(), ".quire-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestCreateFileMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	s := tempVault(t)
	if err := s.Create("new.md", []byte("x")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	info, err := os.Stat(filepath.Join(s.Root(), "new.md"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, want -rw-r--r--", info.Mode().Perm())
	}
}

func TestMkdirAll(t *testing.T) {
	s := tempVault(t)
	if err := s.MkdirAll("projects/work"); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	info, err := os.Stat(filepath.Join(s.Root(), "projects", "work"))
	if err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}
	if err := s.MkdirAll("../elsewhere"); !errors.Is(err, apperr.ErrPathOutsideVault) {
		t.Errorf("MkdirAll outside vault err = %v", err)
	}
}

func TestList(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.md", []byte("b"))
	_ = s.Write("readme.txt", []byte("not md"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Path != "a.md" || items[1].Path != "sub/b.md" {
		t.Errorf("paths = %q, %q", items[0].Path, items[1].Path)
	}
	if items[1].AbsPath != filepath.Join(s.Root(), "sub", "b.md") {
		t.Errorf("abs path = %q", items[1].AbsPath)
	}
	if items[0].UpdatedAt.IsZero() {
		t.Error("expected modification time")
	}
}

func TestListSymlinks(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("real.md", []byte("inside content"))

	outside := filepath.Join(t.TempDir(), "secret.md")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(s.Root(), "escape.md")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(filepath.Join(s.Root(), "real.md"), filepath.Join(s.Root(), "alias.md")); err != nil {
		t.Fatal(err)
	}

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var paths []string
	for _, it := range items {
		paths = append(paths, it.Path)
		if it.Path == "alias.md" && it.Size != int64(len("inside content")) {
			t.Errorf("alias size = %d, want target size", it.Size)
		}
	}
	if len(paths) != 2 || paths[0] != "alias.md" || paths[1] != "real.md" {
		t.Errorf("paths = %v, want [alias.md real.md]", paths)
	}
}

func TestListIgnore(t *testing.T) {
	s := tempVault(t, WithIgnore(".obsidian/**", "**/drafts/**"))
	_ = s.Write("keep.md", []byte("k"))
	_ = s.Write(".obsidian/workspace.md", []byte("x"))
	_ = s.Write("projects/drafts/wip.md", []byte("x"))
	_ = s.Write("projects/final.md", []byte("f"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v, want keep.md and projects/final.md", items)
	}
}

func TestIgnored(t *testing.T) {
	s := tempVault(t, WithIgnore(".obsidian/**", "**/drafts/**"))
	cases := map[string]bool{
		".obsidian/workspace.md": true,
		"projects/drafts/wip.md": true,
		"projects/final.md":      false,
		"keep.md":                false,
	}
	for rel, want := range cases {
		if got := s.Ignored(rel); got != want {
			t.Errorf("Ignored(%q) = %v, want %v", rel, got, want)
		}
	}
}

func TestStat(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("s.md", []byte("12345"))
	before := time.Now().Add(-time.Minute)

	meta, err := s.Stat("s.md")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if meta.Path != "s.md" || meta.Size != 5 {
		t.Errorf("meta = %+v", meta)
	}
	if meta.UpdatedAt.Before(before) {
		t.Errorf("mod time too old: %v", meta.UpdatedAt)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); !errors.Is(err, apperr.ErrPathOutsideVault) {
			t.Errorf("read %q err = %v", p, err)
		}
		if err := s.Write(p, []byte("x")); !errors.Is(err, apperr.ErrPathOutsideVault) {
			t.Errorf("write %q err = %v", p, err)
		}
		if err := s.Create(p, []byte("x")); !errors.Is(err, apperr.ErrPathOutsideVault) {
			t.Errorf("create %q err = %v", p, err)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("atomic.md", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	entries, _ := os.ReadDir(s.Root())
	if len(entries) != 1 {
		t.Errorf("leftover files: %v", entries)
	}
}
