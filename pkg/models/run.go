// Package models holds the Recon Engine's core data model: Run, Target,
// Stage, ToolInvocation, InvocationResult, Artifact, Finding, and the
// CircuitBreaker/StateJournal records that travel between packages.
package models

import (
	"fmt"
	"sync"
	"time"
)

// StageState is a Stage's position in its state machine (spec.md §3/§4.6).
type StageState string

const (
	StagePending   StageState = "PENDING"
	StageRunning   StageState = "RUNNING"
	StageOK        StageState = "OK"
	StageFailed    StageState = "FAILED"
	StageSkipped   StageState = "SKIPPED"
)

// Severity is a Finding's severity band.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// ContentType classifies an Artifact's payload shape.
type ContentType string

const (
	ContentTextLines ContentType = "text-lines"
	ContentJSON      ContentType = "json"
	ContentBinary    ContentType = "binary"
)

// Target is the validated, canonicalized scan target.
type Target struct {
	FQDN             string   `json:"fqdn"`
	IncludePatterns  []string `json:"include_patterns,omitempty"`
	ExcludePatterns  []string `json:"exclude_patterns,omitempty"`
}

// Run is one complete pipeline execution against one Target.
type Run struct {
	ID          string    `json:"id"` // "<target>_<UTC-timestamp>"
	Target      Target    `json:"target"`
	Authorized  bool      `json:"authorized"`
	RootDir     string    `json:"root_dir"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at,omitempty"`
	ConfigHash  string    `json:"config_hash"`

	mu     sync.Mutex
	stages map[string]*StageRecord
	order  []string
}

// NewRun allocates a Run with an empty stage table.
func NewRun(id string, target Target, rootDir string, configHash string) *Run {
	return &Run{
		ID:         id,
		Target:     target,
		RootDir:    rootDir,
		ConfigHash: configHash,
		StartedAt:  time.Now(),
		stages:     make(map[string]*StageRecord),
	}
}

// RegisterStage adds a stage to the Run's tracking table in plan order.
// Safe to call before the pipeline starts; not safe concurrently with Stage.
func (r *Run) RegisterStage(rec *StageRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stages[rec.Name]; exists {
		return
	}
	r.order = append(r.order, rec.Name)
	r.stages[rec.Name] = rec
}

// Stage returns the StageRecord for name, or nil if not registered.
func (r *Run) Stage(name string) *StageRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stages[name]
}

// Stages returns all StageRecords in registration order.
func (r *Run) Stages() []*StageRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*StageRecord, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.stages[name])
	}
	return out
}

// StageRecord tracks one Stage's plan and runtime state.
type StageRecord struct {
	Name          string        `json:"name"`
	DependsOn     []string      `json:"depends_on,omitempty"`
	RequiredTools []string      `json:"required_tools,omitempty"`

	mu         sync.Mutex
	State      StageState    `json:"state"`
	Reason     string        `json:"reason,omitempty"`
	StartedAt  time.Time     `json:"started_at,omitempty"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
	Outputs    []string      `json:"outputs,omitempty"`
	done       chan struct{}
}

// NewStageRecord constructs a PENDING StageRecord with its done-channel ready.
func NewStageRecord(name string, dependsOn, requiredTools []string) *StageRecord {
	return &StageRecord{
		Name:          name,
		DependsOn:     dependsOn,
		RequiredTools: requiredTools,
		State:         StagePending,
		done:          make(chan struct{}),
	}
}

// Done returns a channel closed when this Stage reaches a terminal state.
func (s *StageRecord) Done() <-chan struct{} { return s.done }

// Transition moves the Stage to a terminal or running state. Terminal
// transitions close Done(); it is a programmer error to transition twice.
func (s *StageRecord) Transition(state StageState, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = state
	s.Reason = reason
	switch state {
	case StageRunning:
		s.StartedAt = time.Now()
	case StageOK, StageFailed, StageSkipped:
		s.FinishedAt = time.Now()
		select {
		case <-s.done:
			// already closed (resume replay) — no-op
		default:
			close(s.done)
		}
	}
}

// ResetPending reverts a RUNNING record (found at journal load time) back
// to PENDING with a fresh done-channel, per the resume policy in spec.md §4.8.
func (s *StageRecord) ResetPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = StagePending
	s.StartedAt = time.Time{}
	s.FinishedAt = time.Time{}
	s.done = make(chan struct{})
}

// Snapshot returns a read-only copy safe to serialize.
func (s *StageRecord) Snapshot() StageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s
	cp.Outputs = append([]string(nil), s.Outputs...)
	return cp
}

// AddOutput records an artifact ID produced by this stage.
func (s *StageRecord) AddOutput(artifactID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Outputs = append(s.Outputs, artifactID)
}

// Duration returns how long the stage ran, zero if not yet finished.
func (s *StageRecord) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FinishedAt.IsZero() || s.StartedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// ErrStageFailed wraps the terminal error recorded for a FAILED stage.
type ErrStageFailed struct {
	Stage string
	Err   error
}

func (e *ErrStageFailed) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *ErrStageFailed) Unwrap() error { return e.Err }
