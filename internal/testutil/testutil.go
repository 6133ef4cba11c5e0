// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/vault"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "quire-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage provider confined to it.
func TestVault(t *testing.T, opts ...storage.Option) (string, *storage.FS) {
	t.Helper()
	g, err := vault.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewFS(g, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return g.Root(), store
}

// WriteNote writes content to rel inside dir, creating parent directories.
func WriteNote(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
