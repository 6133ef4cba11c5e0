// Package vault confines every caller-supplied path to the configured vault root.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/quire/internal/apperr"
)

// Conditions reported by the guard.
var (
	ErrEmptyPath    = apperr.New(apperr.ErrInvalidInput, "path cannot be empty")
	ErrOutsideVault = apperr.New(apperr.ErrPathOutsideVault, "path is outside the vault directory")
)

// Guard resolves paths against an immutable vault root and rejects anything that
// canonicalises to a location outside it.
type Guard struct {
	root string // canonical absolute path, symlinks evaluated
}

// New creates a guard rooted at dir. The directory must already exist.
func New(dir string) (*Guard, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("vault: root cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault: root is not a directory: %s", abs)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: evaluate root symlinks: %w", err)
	}
	return &Guard{root: canonical}, nil
}

// Root returns the canonical vault root.
func (g *Guard) Root() string {
	return g.root
}

// Resolve joins a relative candidate to the root (absolute candidates are taken as-is),
// canonicalises it and verifies it lies under the root. The returned path is absolute and
// canonical; it need not exist.
func (g *Guard) Resolve(candidate string) (string, error) {
	if strings.TrimSpace(candidate) == "" {
		return "", ErrEmptyPath
	}
	p := filepath.FromSlash(candidate)
	if !filepath.IsAbs(p) {
		p = filepath.Join(g.root, p)
	}
	canonical := canonicalize(filepath.Clean(p))
	if !g.Contains(canonical) {
		return "", fmt.Errorf("%w: %s", ErrOutsideVault, candidate)
	}
	return canonical, nil
}

// Contains reports whether a canonical absolute path is the root or one of its descendants.
// The comparison ignores case so vaults on case-insensitive filesystems behave.
func (g *Guard) Contains(abs string) bool {
	return hasPathPrefixFold(abs, g.root)
}

// Rel returns the slash-separated vault-relative form of a contained absolute path.
func (g *Guard) Rel(abs string) (string, error) {
	if !g.Contains(abs) {
		return "", fmt.Errorf("%w: %s", ErrOutsideVault, abs)
	}
	// The prefix may differ in case from the root, so slice instead of filepath.Rel.
	rel := strings.TrimLeft(abs[len(g.root):], string(filepath.Separator))
	if rel == "" {
		rel = "."
	}
	return filepath.ToSlash(rel), nil
}

func hasPathPrefixFold(p, root string) bool {
	if len(p) < len(root) || !strings.EqualFold(p[:len(root)], root) {
		return false
	}
	if len(p) == len(root) || strings.HasSuffix(root, string(filepath.Separator)) {
		return true
	}
	return p[len(root)] == filepath.Separator
}

// canonicalize evaluates symlinks in p. When p (or some of its tail) does not exist yet,
// the deepest existing ancestor is evaluated and the missing components are re-appended,
// so a link to an outside directory is still caught before the target is created.
func canonicalize(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}

	var missing []string
	current := p
	for {
		parent := filepath.Dir(current)
		if parent == current {
			return p
		}
		missing = append(missing, filepath.Base(current))
		current = parent

		if resolved, err := filepath.EvalSymlinks(current); err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved
		}
	}
}
