// Package gate bounds how many converter processes run at the same time.
package gate

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Gate admits at most a fixed number of concurrent holders. Callers block in
// Acquire until a slot frees; there is no polling interval and no FIFO
// guarantee, only eventual admission as long as every Acquire is paired with
// a Release.
type Gate struct {
	sem *semaphore.Weighted
	max int64

	mu    sync.Mutex
	inUse int64
}

// New creates a Gate with the given capacity. Non-positive capacities are
// rejected so a misconfigured gate can never silently block forever.
func New(max int64) (*Gate, error) {
	if max <= 0 {
		return nil, fmt.Errorf("gate capacity must be positive, got %d", max)
	}
	return &Gate{sem: semaphore.NewWeighted(max), max: max}, nil
}

// Acquire claims one slot, blocking until one is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.mu.Lock()
	g.inUse++
	g.mu.Unlock()
	return nil
}

// Release frees one slot. Call exactly once per successful Acquire.
func (g *Gate) Release() {
	g.mu.Lock()
	g.inUse--
	g.mu.Unlock()
	g.sem.Release(1)
}

// InUse returns a snapshot of the current holder count.
func (g *Gate) InUse() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inUse
}

// Capacity returns the configured maximum holder count.
func (g *Gate) Capacity() int64 { return g.max }
