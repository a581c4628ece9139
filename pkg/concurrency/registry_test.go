package concurrency

import "testing"

func TestCompletedTargetsDedupesAndCounts(t *testing.T) {
	c := NewCompletedTargets()
	c.Add("example.com")
	c.Add("example.com")
	c.Add("example.org")

	if got := c.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
}
