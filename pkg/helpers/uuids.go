package helpers

import (
	"sync"

	"github.com/google/uuid"
)

// InvocationIDs mints the invocation_id that tags every tool invocation's log
// line, so concurrent invocations against the same target can be told apart
// in scan.log.
type InvocationIDs struct {
	mu sync.Mutex
}

// IDGenerator returns a ready-to-use InvocationIDs.
func IDGenerator() *InvocationIDs {
	return &InvocationIDs{}
}

// Generate returns a fresh, time-ordered invocation ID.
func (g *InvocationIDs) Generate() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return uuid.Must(uuid.NewUUID())
}
