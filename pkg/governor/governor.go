// Package governor bounds overall concurrency and protects individual
// targets from being hammered by a misbehaving stage: a global semaphore
// caps total in-flight invocations, and a per-target circuit breaker opens
// after repeated failures, then probes back open on a capped exponential
// cooldown.
package governor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"reconforge/pkg/models"
)

// Governor is the concurrency front door every stage invocation passes
// through: Acquire blocks for a global slot, then consults the target's
// circuit breaker before letting the caller proceed.
type Governor struct {
	sem *semaphore.Weighted

	threshold   int
	cooldown    time.Duration
	cooldownCap time.Duration

	mu       sync.Mutex
	breakers map[string]*breakerState
}

type breakerState struct {
	state         models.BreakerState
	failureCount  int
	tripCount     int
	openedAt      time.Time
	cooldownUntil time.Time
	limiter       *rate.Limiter // paces admission while HALF_OPEN
}

// New builds a Governor with maxConcurrent total in-flight invocations and
// per-target breaker thresholds.
func New(maxConcurrent int64, failureThreshold int, cooldown, cooldownCap time.Duration) *Governor {
	return &Governor{
		sem:         semaphore.NewWeighted(maxConcurrent),
		threshold:   failureThreshold,
		cooldown:    cooldown,
		cooldownCap: cooldownCap,
		breakers:    make(map[string]*breakerState),
	}
}

// Acquire blocks for a global concurrency slot and returns ErrCircuitOpen
// immediately (without consuming a slot) if target's breaker is OPEN and
// its cooldown has not elapsed. The returned release func must be called
// exactly once, whether or not the caller's work succeeds.
func (g *Governor) Acquire(ctx context.Context, target string) (release func(), err error) {
	if !g.admit(target) {
		return nil, models.ErrCircuitOpen
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { g.sem.Release(1) }, nil
}

// admit evaluates and, if needed, transitions target's breaker before
// deciding whether to let a new invocation through.
func (g *Governor) admit(target string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	b := g.breakerFor(target)
	switch b.state {
	case models.BreakerClosed:
		return true
	case models.BreakerOpen:
		if time.Now().Before(b.cooldownUntil) {
			return false
		}
		b.state = models.BreakerHalfOpen
		b.limiter = rate.NewLimiter(rate.Limit(1), 1)
		return b.limiter.Allow()
	case models.BreakerHalfOpen:
		return b.limiter.Allow()
	}
	return true
}

// RecordSuccess closes target's breaker and resets its failure count.
func (g *Governor) RecordSuccess(target string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b := g.breakerFor(target)
	b.state = models.BreakerClosed
	b.failureCount = 0
}

// RecordFailure increments target's failure count, tripping the breaker
// open once threshold is reached. Cooldown doubles on each successive trip,
// capped at cooldownCap.
func (g *Governor) RecordFailure(target string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b := g.breakerFor(target)
	b.failureCount++

	if b.state == models.BreakerHalfOpen {
		g.trip(b)
		return
	}
	if b.state == models.BreakerClosed && b.failureCount >= g.threshold {
		g.trip(b)
	}
}

func (g *Governor) trip(b *breakerState) {
	b.state = models.BreakerOpen
	b.failureCount = 0
	b.tripCount++
	b.openedAt = time.Now()

	backoff := g.cooldown * time.Duration(1<<uint(min(b.tripCount-1, 10)))
	if backoff > g.cooldownCap {
		backoff = g.cooldownCap
	}
	b.cooldownUntil = b.openedAt.Add(backoff)
}

func (g *Governor) breakerFor(target string) *breakerState {
	b, ok := g.breakers[target]
	if !ok {
		b = &breakerState{state: models.BreakerClosed}
		g.breakers[target] = b
	}
	return b
}

// Snapshot returns the current state of every breaker the Governor has
// tracked, for the state journal and the final report.
func (g *Governor) Snapshot() map[string]models.BreakerSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]models.BreakerSnapshot, len(g.breakers))
	for target, b := range g.breakers {
		out[target] = models.BreakerSnapshot{
			Target:        target,
			State:         b.state,
			FailureCount:  b.failureCount,
			OpenedAt:      b.openedAt,
			CooldownUntil: b.cooldownUntil,
			TripCount:     b.tripCount,
		}
	}
	return out
}
