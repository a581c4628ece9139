// Package artifacts writes a Run's output files atomically (temp file +
// rename) and content-addresses them, so a crash mid-write never leaves a
// stage's output looking complete when it isn't, and the reporter can
// verify an artifact wasn't altered between stages.
package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"reconforge/pkg/models"
	"reconforge/pkg/pathguard"
)

// Store writes and reads artifacts confined to one Run's root.
type Store struct {
	guard *pathguard.Guard
}

// New builds a Store rooted at the same directory as guard.
func New(guard *pathguard.Guard) *Store {
	return &Store{guard: guard}
}

// Write atomically writes data to "<stage>/<name>" under the run root and
// returns the resulting Artifact record.
func (s *Store) Write(stage, name string, data []byte, contentType models.ContentType) (models.Artifact, error) {
	rel := filepath.Join(stage, name)
	dest, err := s.guard.Resolve(rel)
	if err != nil {
		return models.Artifact{}, err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return models.Artifact{}, fmt.Errorf("artifacts: mkdir %s: %w", filepath.Dir(dest), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return models.Artifact{}, fmt.Errorf("artifacts: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	sum := sha256.Sum256(data)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return models.Artifact{}, fmt.Errorf("artifacts: write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return models.Artifact{}, fmt.Errorf("artifacts: sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return models.Artifact{}, fmt.Errorf("artifacts: close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return models.Artifact{}, fmt.Errorf("artifacts: rename into place %s: %w", dest, err)
	}

	return models.Artifact{
		ID:          stage + "." + name,
		Path:        rel,
		ContentType: contentType,
		Size:        int64(len(data)),
		SHA256:      hex.EncodeToString(sum[:]),
	}, nil
}

// WriteRoot atomically writes data to "<name>" directly under the run root,
// for the handful of artifacts the catalog places outside any stage
// subdirectory (summary.json).
func (s *Store) WriteRoot(name string, data []byte, contentType models.ContentType) (models.Artifact, error) {
	art, err := s.Write(".", name, data, contentType)
	if err != nil {
		return models.Artifact{}, err
	}
	art.ID = name
	art.Path = name
	return art, nil
}

// Read returns the content of an Artifact previously written by Write.
func (s *Store) Read(a models.Artifact) ([]byte, error) {
	abs, err := s.guard.Resolve(a.Path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

// Verify re-hashes an artifact's current on-disk content and reports
// whether it still matches the recorded checksum.
func (s *Store) Verify(a models.Artifact) (bool, error) {
	abs, err := s.guard.Resolve(a.Path)
	if err != nil {
		return false, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return false, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, err
	}
	return hex.EncodeToString(h.Sum(nil)) == a.SHA256, nil
}

// Exists reports whether an artifact at the given stage/name already exists
// on disk, used by resume to skip re-running a stage whose output survived.
func (s *Store) Exists(stage, name string) bool {
	abs, err := s.guard.Resolve(filepath.Join(stage, name))
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// ExistsID reports whether the artifact an ID ("<stage>.<name>", or bare
// "<name>" for a run-root artifact written via WriteRoot) refers to still
// exists on disk and passes Path Guard containment. Stage directory
// components never contain a literal ".", so splitting on the first one
// recovers stage and name unambiguously.
func (s *Store) ExistsID(id string) bool {
	if idx := strings.Index(id, "."); idx > 0 {
		stage, name := id[:idx], id[idx+1:]
		if s.Exists(stage, name) {
			return true
		}
	}
	return s.Exists(".", id)
}
