package trie

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// maxReaders bounds concurrent readers; a writer takes the whole capacity.
const maxReaders int64 = 1 << 30

// guard is a reader-writer lock with bounded acquisition.
// The semaphore serves waiters in FIFO order, so a queued writer holds back later readers.
type guard struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

func newGuard(timeout time.Duration) *guard {
	return &guard{
		sem:     semaphore.NewWeighted(maxReaders),
		timeout: timeout,
	}
}

func (g *guard) acquire(ctx context.Context, weight int64) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.sem.Acquire(ctx, weight); err != nil {
		return fmt.Errorf("%w: %w", ErrLockTimeout, err)
	}
	return nil
}

func (g *guard) rlock(ctx context.Context) error { return g.acquire(ctx, 1) }

func (g *guard) runlock() { g.sem.Release(1) }

func (g *guard) lock(ctx context.Context) error { return g.acquire(ctx, maxReaders) }

func (g *guard) unlock() { g.sem.Release(maxReaders) }
