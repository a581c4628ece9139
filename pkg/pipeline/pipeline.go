// Package pipeline runs a Run's stages as a dependency DAG: each stage
// waits on its declared dependencies' done-channels, then runs concurrently
// with every other stage whose dependencies are already satisfied. A
// context cancellation (operator Ctrl-C, or --strict seeing a FAILED stage)
// stops stages that haven't started yet without killing ones in flight.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"reconforge/pkg/models"
)

// StageFunc is one stage's executable body. It must respect ctx
// cancellation and return promptly once ctx is done.
type StageFunc func(ctx context.Context, run *models.Run) error

// Stage couples a StageRecord's static plan metadata with the function that
// carries it out.
type Stage struct {
	Name      string
	DependsOn []string
	// SoftDependsOn lists dependencies that a self-skip doesn't cascade
	// through: OK or SKIPPED satisfies them, only FAILED blocks the stage
	// (unlike DependsOn, where only OK satisfies). Use this for upstream
	// stages that legitimately skip themselves when there is nothing to do
	// (e.g. wordlist_enum under --passive-only) but whose output, if any,
	// should still feed the dependent stage.
	SoftDependsOn []string
	Run           StageFunc
}

// Engine executes a set of Stages against one models.Run.
type Engine struct {
	stages map[string]Stage
	order  []string
	strict bool
}

// New builds an Engine. strict controls whether a FAILED stage cancels
// stages that have not yet started (spec.md §4.6's --strict flag).
func New(strict bool) *Engine {
	return &Engine{stages: make(map[string]Stage), strict: strict}
}

// Add registers a stage. Stages must be added before Run is called, and
// every name in DependsOn must itself be added (in any order).
func (e *Engine) Add(s Stage) {
	if _, exists := e.stages[s.Name]; !exists {
		e.order = append(e.order, s.Name)
	}
	e.stages[s.Name] = s
}

// Plan registers every added stage onto run as a PENDING StageRecord,
// without starting any of them. Calling it before Run lets a caller
// reconcile a resumed journal's OK/SKIPPED state onto the Run before
// execution begins; Run also calls it, so a caller that never resumes can
// skip this step. RegisterStage no-ops on a name already present, so
// calling Plan twice (once here, once implicitly from Run) is safe.
func (e *Engine) Plan(run *models.Run) error {
	if err := e.validate(); err != nil {
		return err
	}
	for _, name := range e.order {
		s := e.stages[name]
		deps := append(append([]string(nil), s.DependsOn...), s.SoftDependsOn...)
		run.RegisterStage(models.NewStageRecord(s.Name, deps, nil))
	}
	return nil
}

// Run executes every registered stage against run, respecting the
// dependency graph, and returns the first stage error if any occurred
// (later errors are still recorded on their StageRecords but only the
// first is returned, matching the teacher's single-errCh pattern).
func (e *Engine) Run(ctx context.Context, run *models.Run) error {
	if err := e.Plan(run); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errOnce := sync.Once{}
	var firstErr error

	for _, name := range e.order {
		s := e.stages[name]
		wg.Add(1)
		go func(s Stage) {
			defer wg.Done()
			rec := run.Stage(s.Name)

			if !e.waitForDeps(runCtx, run, s.DependsOn) {
				rec.Transition(models.StageSkipped, "a dependency did not complete successfully")
				return
			}
			if !e.waitForSoftDeps(runCtx, run, s.SoftDependsOn) {
				rec.Transition(models.StageSkipped, "a dependency did not complete successfully")
				return
			}

			select {
			case <-runCtx.Done():
				rec.Transition(models.StageSkipped, "run cancelled before stage started")
				return
			default:
			}

			if rec.Snapshot().State == models.StageOK || rec.Snapshot().State == models.StageSkipped {
				return // already satisfied by a resumed journal
			}

			rec.Transition(models.StageRunning, "")
			err := s.Run(runCtx, run)
			if err != nil {
				rec.Transition(models.StageFailed, err.Error())
				errOnce.Do(func() { firstErr = &models.ErrStageFailed{Stage: s.Name, Err: err} })
				if e.strict {
					cancel()
				}
				return
			}
			// A stage body that already finalized itself (e.g. self-skipped
			// for lack of input or a missing tool) owns its own terminal
			// state and reason; only stamp OK if it left the record RUNNING.
			if rec.Snapshot().State == models.StageRunning {
				rec.Transition(models.StageOK, "")
			}
		}(s)
	}

	wg.Wait()
	return firstErr
}

// waitForDeps blocks until every dependency stage is terminal, returning
// false if any dependency did not reach OK (or SKIPPED, which propagates
// skip down the chain) or if ctx is cancelled first.
func (e *Engine) waitForDeps(ctx context.Context, run *models.Run, deps []string) bool {
	for _, dep := range deps {
		depRec := run.Stage(dep)
		if depRec == nil {
			continue
		}
		select {
		case <-depRec.Done():
		case <-ctx.Done():
			return false
		}
		if depRec.Snapshot().State != models.StageOK {
			return false
		}
	}
	return true
}

// waitForSoftDeps blocks until every soft dependency stage is terminal,
// returning false if any reached FAILED (OK and SKIPPED both satisfy) or if
// ctx is cancelled first.
func (e *Engine) waitForSoftDeps(ctx context.Context, run *models.Run, deps []string) bool {
	for _, dep := range deps {
		depRec := run.Stage(dep)
		if depRec == nil {
			continue
		}
		select {
		case <-depRec.Done():
		case <-ctx.Done():
			return false
		}
		state := depRec.Snapshot().State
		if state != models.StageOK && state != models.StageSkipped {
			return false
		}
	}
	return true
}

// validate checks that every dependency name refers to a registered stage
// and that the graph has no cycles, using a simple DFS coloring.
func (e *Engine) validate() error {
	for _, s := range e.stages {
		for _, dep := range append(append([]string(nil), s.DependsOn...), s.SoftDependsOn...) {
			if _, ok := e.stages[dep]; !ok {
				return fmt.Errorf("pipeline: stage %s depends on unregistered stage %s", s.Name, dep)
			}
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(e.stages))
	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case gray:
			return fmt.Errorf("pipeline: dependency cycle detected at stage %s", name)
		case black:
			return nil
		}
		color[name] = gray
		for _, dep := range append(append([]string(nil), e.stages[name].DependsOn...), e.stages[name].SoftDependsOn...) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[name] = black
		return nil
	}
	for _, name := range e.order {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}
