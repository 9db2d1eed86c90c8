package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ablbsk/bookworm-api/internal/store"
)

const (
	// DefaultSweepGrace is how old an unreferenced book must be before the
	// sweeper deletes it. Books are created unreferenced and referenced a
	// moment later, so young rows are left alone.
	DefaultSweepGrace = time.Minute
	sweepBatchSize    = 200
)

// Sweeper deletes cached books whose counters are both zero. Such books are
// left behind when the final delete of RemoveBook or Unlike fails.
type Sweeper struct {
	books  store.BookStore
	grace  time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewSweeper creates a sweeper. A non-positive grace means DefaultSweepGrace.
func NewSweeper(books store.BookStore, grace time.Duration, logger *slog.Logger) *Sweeper {
	if grace <= 0 {
		grace = DefaultSweepGrace
	}
	return &Sweeper{books: books, grace: grace, logger: logger, now: time.Now}
}

// SweepOnce deletes every unreferenced book older than the grace period and
// returns how many were removed. Books referenced again in the meantime are
// skipped by the conditional delete.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.grace)
	deleted := 0
	for {
		ids, err := s.books.ListUnreferenced(ctx, cutoff, sweepBatchSize)
		if err != nil {
			return deleted, err
		}

		removed := 0
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return deleted, err
			}
			ok, err := s.books.DeleteIfUnreferenced(ctx, id)
			if err != nil {
				s.logger.Warn("sweep delete failed", "book_id", id, "error", err)
				continue
			}
			if ok {
				removed++
			}
		}
		deleted += removed

		// A short page is the last one; a page where nothing could be
		// removed would repeat forever.
		if len(ids) < sweepBatchSize || removed == 0 {
			break
		}
	}

	if deleted > 0 {
		s.logger.Info("orphan sweep completed", "deleted", deleted)
	}
	return deleted, nil
}

// Run sweeps every interval until ctx is cancelled, starting immediately.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration, after ...func(context.Context)) {
	sweep := func() {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("orphan sweep failed", "error", err)
		}
		for _, fn := range after {
			fn(ctx)
		}
	}

	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sweep()
		case <-ctx.Done():
			return
		}
	}
}
