// Package state persists and reloads a Run's resumable progress: which
// stages finished, which are pending, and the circuit breaker positions
// they left behind. Every write is atomic so a crash mid-save never leaves
// a corrupt journal that --resume can't parse.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"reconforge/pkg/artifacts"
	"reconforge/pkg/models"
)

const journalName = ".state.json"

// Journal is the on-disk resume record for one Run, guarded against
// concurrent writers by an in-process mutex (only one pipeline owns a
// journal file at a time).
type Journal struct {
	path string
	mu   sync.Mutex
}

// Open returns a Journal rooted at runDir/.state.json. It does not read or
// create the file; use Load to read an existing one.
func Open(runDir string) *Journal {
	return &Journal{path: filepath.Join(runDir, journalName)}
}

// Exists reports whether a journal file is already present for this run.
func (j *Journal) Exists() bool {
	_, err := os.Stat(j.path)
	return err == nil
}

// Load reads and parses the journal file.
func (j *Journal) Load() (models.JournalRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var rec models.JournalRecord
	b, err := os.ReadFile(j.path)
	if err != nil {
		return rec, fmt.Errorf("state: read journal: %w", err)
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, fmt.Errorf("state: parse journal: %w", err)
	}
	return rec, nil
}

// Save atomically overwrites the journal with rec.
func (j *Journal) Save(rec models.JournalRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal journal: %w", err)
	}

	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("state: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".journal-*.tmp")
	if err != nil {
		return fmt.Errorf("state: create temp journal: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("state: write temp journal: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("state: sync temp journal: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, j.path); err != nil {
		return fmt.Errorf("state: rename journal into place: %w", err)
	}
	return nil
}

// BuildRecord snapshots run into a JournalRecord ready for Save.
func BuildRecord(run *models.Run, breakers map[string]models.BreakerSnapshot) models.JournalRecord {
	stages := make(map[string]models.StageRecord)
	for _, s := range run.Stages() {
		stages[s.Name] = s.Snapshot()
	}
	return models.JournalRecord{
		RunID:      run.ID,
		Target:     run.Target,
		ConfigHash: run.ConfigHash,
		StartedAt:  run.StartedAt,
		Stages:     stages,
		Breakers:   breakers,
	}
}

// Reconcile applies a loaded JournalRecord onto a freshly-registered Run:
// stages the journal marked OK or SKIPPED are preserved only if every
// output artifact they recorded still exists on disk and passes Path Guard
// (spec.md §4.8); otherwise, like RUNNING, they reset to PENDING and rerun.
// A config-hash mismatch invalidates the entire journal — the caller should
// treat that as "start fresh" per the resume policy.
func Reconcile(run *models.Run, rec models.JournalRecord, store *artifacts.Store) (stale bool) {
	if rec.ConfigHash != run.ConfigHash {
		return true
	}
	for name, snap := range rec.Stages {
		s := run.Stage(name)
		if s == nil {
			continue
		}
		switch snap.State {
		case models.StageOK, models.StageSkipped:
			if !outputsSurvive(store, snap.Outputs) {
				s.ResetPending()
				continue
			}
			for _, out := range snap.Outputs {
				s.AddOutput(out)
			}
			s.Transition(snap.State, snap.Reason)
		case models.StageRunning, models.StageFailed:
			s.ResetPending()
		}
	}
	return false
}

// outputsSurvive reports whether every artifact ID in outputs still exists
// on disk under store's guard. A SKIPPED stage with no outputs trivially
// survives (it never produced any).
func outputsSurvive(store *artifacts.Store, outputs []string) bool {
	for _, id := range outputs {
		if !store.ExistsID(id) {
			return false
		}
	}
	return true
}
