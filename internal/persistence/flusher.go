package persistence

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/virtualand/landgrid/internal/registry"
)

// Flusher writes registry snapshots to the database in the background.
// Mutations decide in memory first; the flusher only observes. A failed
// flush is retried with backoff and is never rolled back against committed
// in-memory state — memory and disk are allowed to diverge briefly.
type Flusher struct {
	db  *DB
	reg *registry.Registry

	// limiter coalesces mutation bursts into bounded write traffic.
	limiter *rate.Limiter

	maxBackoff time.Duration
	errs       chan error
}

// NewFlusher builds a flusher writing at most flushesPerSec snapshots.
func NewFlusher(db *DB, reg *registry.Registry, flushesPerSec float64) *Flusher {
	if flushesPerSec <= 0 {
		flushesPerSec = 4
	}
	return &Flusher{
		db:         db,
		reg:        reg,
		limiter:    rate.NewLimiter(rate.Limit(flushesPerSec), 1),
		maxBackoff: 30 * time.Second,
		errs:       make(chan error, 16),
	}
}

// Errors exposes flush failures to whoever wants to watch them. Failures
// are also retried internally; consuming this channel is optional.
func (f *Flusher) Errors() <-chan error {
	return f.errs
}

// Run flushes whenever the registry reports dirty, until ctx is canceled.
// Call from its own goroutine.
func (f *Flusher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.reg.Dirty():
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return
		}
		f.flushWithRetry(ctx)
	}
}

// Flush writes one snapshot synchronously. Used for final saves.
func (f *Flusher) Flush() error {
	return f.db.SaveSnapshot(f.reg.Snapshot())
}

func (f *Flusher) flushWithRetry(ctx context.Context) {
	backoff := 250 * time.Millisecond
	for {
		err := f.db.SaveSnapshot(f.reg.Snapshot())
		if err == nil {
			return
		}

		slog.Error("snapshot flush failed, retrying", "error", err, "backoff", backoff)
		select {
		case f.errs <- err:
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > f.maxBackoff {
			backoff = f.maxBackoff
		}
	}
}
