package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"reconforge/pkg/models"
)

func newTestRun(t *testing.T) *models.Run {
	t.Helper()
	return models.NewRun("test-run", models.Target{FQDN: "example.com"}, t.TempDir(), "hash")
}

func TestRunExecutesStagesInDependencyOrder(t *testing.T) {
	run := newTestRun(t)
	e := New(false)

	var order []string
	var mu sync.Mutex
	record := func(name string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, name)
	}

	e.Add(Stage{Name: "passive_enum", Run: func(ctx context.Context, r *models.Run) error {
		record("passive_enum")
		return nil
	}})
	e.Add(Stage{Name: "dns_resolve", DependsOn: []string{"passive_enum"}, Run: func(ctx context.Context, r *models.Run) error {
		record("dns_resolve")
		return nil
	}})

	if err := e.Run(context.Background(), run); err != nil {
		t.Fatal(err)
	}

	if len(order) != 2 || order[0] != "passive_enum" || order[1] != "dns_resolve" {
		t.Fatalf("order = %v, want [passive_enum dns_resolve]", order)
	}
	if run.Stage("dns_resolve").Snapshot().State != models.StageOK {
		t.Fatalf("expected dns_resolve OK")
	}
}

func TestRunSkipsStageWhoseDependencyFails(t *testing.T) {
	run := newTestRun(t)
	e := New(false)

	e.Add(Stage{Name: "passive_enum", Run: func(ctx context.Context, r *models.Run) error {
		return errors.New("subfinder not installed")
	}})
	e.Add(Stage{Name: "dns_resolve", DependsOn: []string{"passive_enum"}, Run: func(ctx context.Context, r *models.Run) error {
		return nil
	}})

	err := e.Run(context.Background(), run)
	if err == nil {
		t.Fatal("expected an error from the failed stage")
	}
	if run.Stage("passive_enum").Snapshot().State != models.StageFailed {
		t.Fatalf("expected passive_enum FAILED")
	}
	if run.Stage("dns_resolve").Snapshot().State != models.StageSkipped {
		t.Fatalf("expected dns_resolve SKIPPED, got %v", run.Stage("dns_resolve").Snapshot().State)
	}
}

func TestRunPreservesStageSelfSkip(t *testing.T) {
	run := newTestRun(t)
	e := New(false)

	e.Add(Stage{Name: "wordlist_enum", Run: func(ctx context.Context, r *models.Run) error {
		r.Stage("wordlist_enum").Transition(models.StageSkipped, "no wordlist configured")
		return nil
	}})

	if err := e.Run(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	snap := run.Stage("wordlist_enum").Snapshot()
	if snap.State != models.StageSkipped {
		t.Fatalf("expected wordlist_enum to stay SKIPPED, got %v", snap.State)
	}
	if snap.Reason != "no wordlist configured" {
		t.Fatalf("expected self-skip reason preserved, got %q", snap.Reason)
	}
}

func TestRunSoftDependencyToleratesSkip(t *testing.T) {
	run := newTestRun(t)
	e := New(false)

	e.Add(Stage{Name: "passive_enum", Run: func(ctx context.Context, r *models.Run) error {
		return nil
	}})
	e.Add(Stage{Name: "wordlist_enum", Run: func(ctx context.Context, r *models.Run) error {
		r.Stage("wordlist_enum").Transition(models.StageSkipped, "--passive-only excludes active stages")
		return nil
	}})
	e.Add(Stage{
		Name:          "merge_subdomains",
		DependsOn:     []string{"passive_enum"},
		SoftDependsOn: []string{"wordlist_enum"},
		Run: func(ctx context.Context, r *models.Run) error {
			return nil
		},
	})

	if err := e.Run(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	if state := run.Stage("merge_subdomains").Snapshot().State; state != models.StageOK {
		t.Fatalf("expected merge_subdomains OK despite wordlist_enum SKIPPED, got %v", state)
	}
}

func TestRunSoftDependencyStillCascadesOnFailure(t *testing.T) {
	run := newTestRun(t)
	e := New(false)

	e.Add(Stage{Name: "passive_enum", Run: func(ctx context.Context, r *models.Run) error {
		return nil
	}})
	e.Add(Stage{Name: "wordlist_enum", Run: func(ctx context.Context, r *models.Run) error {
		return errors.New("ffuf crashed")
	}})
	e.Add(Stage{
		Name:          "merge_subdomains",
		DependsOn:     []string{"passive_enum"},
		SoftDependsOn: []string{"wordlist_enum"},
		Run: func(ctx context.Context, r *models.Run) error {
			return nil
		},
	})

	e.Run(context.Background(), run)
	if state := run.Stage("merge_subdomains").Snapshot().State; state != models.StageSkipped {
		t.Fatalf("expected merge_subdomains SKIPPED when soft dep FAILED, got %v", state)
	}
}

func TestRunDetectsDependencyCycle(t *testing.T) {
	run := newTestRun(t)
	e := New(false)
	e.Add(Stage{Name: "a", DependsOn: []string{"b"}, Run: func(ctx context.Context, r *models.Run) error { return nil }})
	e.Add(Stage{Name: "b", DependsOn: []string{"a"}, Run: func(ctx context.Context, r *models.Run) error { return nil }})

	if err := e.Run(context.Background(), run); err == nil {
		t.Fatal("expected cycle detection error")
	}
}

func TestStrictModeCancelsUnstartedStagesOnFailure(t *testing.T) {
	run := newTestRun(t)
	e := New(true)

	started := make(chan struct{})
	e.Add(Stage{Name: "passive_enum", Run: func(ctx context.Context, r *models.Run) error {
		close(started)
		return errors.New("boom")
	}})
	e.Add(Stage{Name: "unrelated", Run: func(ctx context.Context, r *models.Run) error {
		<-started
		time.Sleep(20 * time.Millisecond)
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}})

	e.Run(context.Background(), run)
	state := run.Stage("unrelated").Snapshot().State
	if state != models.StageFailed && state != models.StageSkipped {
		t.Fatalf("expected unrelated stage cancelled (FAILED or SKIPPED), got %v", state)
	}
}
