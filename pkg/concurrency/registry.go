// Package concurrency provides the small set of shared, thread-safe
// bookkeeping used while a multi-domain invocation fans out across
// goroutines.
package concurrency

import "sync"

// CompletedTargets tracks which target domains have finished a full
// pipeline run, deduplicating repeats and letting main() log a final
// targets_completed count once every batch has drained.
type CompletedTargets struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewCompletedTargets returns an empty tracker.
func NewCompletedTargets() *CompletedTargets {
	return &CompletedTargets{seen: make(map[string]struct{})}
}

// Add records target as completed. Safe to call from multiple goroutines;
// a target already recorded is a no-op.
func (c *CompletedTargets) Add(target string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[target] = struct{}{}
}

// Len returns how many distinct targets have completed so far.
func (c *CompletedTargets) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.seen)
}
