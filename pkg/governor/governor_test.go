package governor

import (
	"context"
	"testing"
	"time"

	"reconforge/pkg/models"
)

func TestBreakerTripsAfterThreshold(t *testing.T) {
	g := New(4, 3, 50*time.Millisecond, time.Second)
	target := "example.com"

	for i := 0; i < 3; i++ {
		release, err := g.Acquire(context.Background(), target)
		if err != nil {
			t.Fatalf("unexpected error on attempt %d: %v", i, err)
		}
		release()
		g.RecordFailure(target)
	}

	_, err := g.Acquire(context.Background(), target)
	if err != models.ErrCircuitOpen {
		t.Fatalf("expected ErrCircuitOpen after threshold, got %v", err)
	}
}

func TestBreakerHalfOpensAfterCooldown(t *testing.T) {
	g := New(4, 1, 20*time.Millisecond, time.Second)
	target := "example.com"

	release, _ := g.Acquire(context.Background(), target)
	release()
	g.RecordFailure(target)

	if _, err := g.Acquire(context.Background(), target); err != models.ErrCircuitOpen {
		t.Fatalf("expected open immediately after trip, got %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	release, err := g.Acquire(context.Background(), target)
	if err != nil {
		t.Fatalf("expected half-open probe to admit, got %v", err)
	}
	release()
}

func TestRecordSuccessClosesBreaker(t *testing.T) {
	g := New(4, 2, 20*time.Millisecond, time.Second)
	target := "example.com"

	release, _ := g.Acquire(context.Background(), target)
	release()
	g.RecordFailure(target)
	g.RecordSuccess(target)

	snap := g.Snapshot()[target]
	if snap.State != models.BreakerClosed {
		t.Fatalf("expected CLOSED after success, got %v", snap.State)
	}
	if snap.FailureCount != 0 {
		t.Fatalf("expected failure count reset, got %d", snap.FailureCount)
	}
}

func TestAcquireRespectsGlobalConcurrencyCap(t *testing.T) {
	g := New(1, 10, time.Second, time.Second)
	release1, err := g.Acquire(context.Background(), "a.example.com")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Acquire(ctx, "b.example.com")
	if err == nil {
		t.Fatal("expected context deadline exceeded while slot held")
	}
	release1()
}
