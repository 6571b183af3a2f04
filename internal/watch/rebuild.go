package watch

import (
	"context"
	"log/slog"
	"sync"
)

// Rebuilder funnels rebuild triggers from the watcher and the scheduler into
// a single serialized execution, so two pipeline runs never write the output
// tree concurrently. A trigger arriving while a rebuild is in flight is
// dropped: the running build already reflects the latest source tree.
type Rebuilder struct {
	mu sync.Mutex
	fn func(ctx context.Context) error
}

// NewRebuilder wraps fn for use as the callback of both a Watcher and a
// Scheduler.
func NewRebuilder(fn func(ctx context.Context) error) *Rebuilder {
	return &Rebuilder{fn: fn}
}

// Rebuild runs the wrapped callback unless one is already running.
func (r *Rebuilder) Rebuild(ctx context.Context) error {
	if !r.mu.TryLock() {
		slog.Debug("Rebuild already in progress, dropping trigger")
		return nil
	}
	defer r.mu.Unlock()
	return r.fn(ctx)
}
