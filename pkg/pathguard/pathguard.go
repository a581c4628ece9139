// Package pathguard confines filesystem access to a Run's root directory.
// Every artifact path, wordlist path, and resolved tool override passes
// through a Guard before it touches disk.
package pathguard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reconforge/pkg/models"
)

// Guard canonicalizes paths against a fixed root and rejects escapes.
type Guard struct {
	root string
}

// New returns a Guard rooted at root. root is made absolute and cleaned
// immediately so later comparisons are cheap string prefix checks; its
// longest existing prefix is also symlink-resolved, so that resolveExisting
// Prefix's later per-call resolution compares against the same form (if any
// ancestor of root — e.g. a symlinked /tmp — is itself a symlink, the
// prefix check below would otherwise never agree with it).
func New(root string) (*Guard, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("pathguard: resolve root %s: %w", root, err)
	}
	cleaned := filepath.Clean(abs)
	return &Guard{root: resolveExistingPrefix(cleaned)}, nil
}

// Root returns the guard's canonical root.
func (g *Guard) Root() string { return g.root }

// containsControlBytes reports whether s carries a NUL or embedded newline —
// both are illegal in a filesystem path and a common smuggling vector for
// tool output that feeds straight into a path (a finding title, a crawled
// URL) without going through a shell that would otherwise choke on them.
func containsControlBytes(s string) bool {
	return strings.ContainsRune(s, '\x00') || strings.ContainsRune(s, '\n')
}

// Resolve joins rel onto the root and verifies the result does not escape
// it, catching "../../etc/passwd"-style traversal from tool output or
// configuration before any write or read happens. Also resolves symlinks so
// a link planted inside the root that points outside it can't be used to
// escape the containment check.
func (g *Guard) Resolve(rel string) (string, error) {
	if containsControlBytes(rel) {
		return "", &models.PathEscapeError{Requested: rel, Root: g.root}
	}
	joined := filepath.Join(g.root, rel)
	cleaned := filepath.Clean(joined)
	return g.containViaSymlinks(rel, cleaned)
}

// ResolveAbs verifies an already-absolute path is contained in the root,
// used for config-supplied absolute paths (wordlists, tool overrides) that
// must still be confined to something the operator controls.
func (g *Guard) ResolveAbs(abs string) (string, error) {
	if containsControlBytes(abs) {
		return "", &models.PathEscapeError{Requested: abs, Root: g.root}
	}
	cleaned := filepath.Clean(abs)
	return g.containViaSymlinks(abs, cleaned)
}

// containViaSymlinks checks cleaned's containment under root using the
// symlink-resolved form of its longest existing prefix — most artifact
// paths don't exist yet when Resolve is called (the file is about to be
// created), so resolving only once the whole path exists would let a
// symlink planted inside the root but pointing outside it slip through on
// every write of a not-yet-created file, which is the common case.
func (g *Guard) containViaSymlinks(requested, cleaned string) (string, error) {
	resolved := resolveExistingPrefix(cleaned)
	if resolved != g.root && !strings.HasPrefix(resolved, g.root+string(filepath.Separator)) {
		return "", &models.PathEscapeError{Requested: requested, Root: g.root}
	}
	if cleaned != g.root && !strings.HasPrefix(cleaned, g.root+string(filepath.Separator)) {
		return "", &models.PathEscapeError{Requested: requested, Root: g.root}
	}
	return cleaned, nil
}

// resolveExistingPrefix resolves symlinks along p's longest prefix that
// exists on disk, then reattaches whatever suffix doesn't exist yet
// unresolved. Falls back to p unchanged if nothing in it exists or
// resolution fails.
func resolveExistingPrefix(p string) string {
	cur := p
	var suffix []string
	for {
		if _, err := os.Lstat(cur); err == nil {
			break
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p
		}
		suffix = append([]string{filepath.Base(cur)}, suffix...)
		cur = parent
	}
	resolved, err := filepath.EvalSymlinks(cur)
	if err != nil {
		return p
	}
	return filepath.Join(append([]string{resolved}, suffix...)...)
}
