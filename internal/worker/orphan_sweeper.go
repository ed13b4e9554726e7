// Package worker runs background maintenance loops.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
	"github.com/aryan0dhankhar/deliveryhub/internal/observability/metrics"
	"github.com/aryan0dhankhar/deliveryhub/internal/reliability/retry"
)

// OrphanSweeper periodically deletes locations that no source or destination
// references. Only rows older than the grace period are touched so a
// location is never removed while the transaction creating its owner is open.
type OrphanSweeper struct {
	locations domain.LocationRepository
	interval  time.Duration
	grace     time.Duration
	retry     retry.Config
	now       func() time.Time
	logger    *slog.Logger
}

// NewOrphanSweeper creates a new sweeper
func NewOrphanSweeper(locations domain.LocationRepository, interval, grace time.Duration, logger *slog.Logger) *OrphanSweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrphanSweeper{
		locations: locations,
		interval:  interval,
		grace:     grace,
		retry:     retry.DefaultConfig(),
		now:       time.Now,
		logger:    logger.With(slog.String("component", "orphan_sweeper")),
	}
}

// Start runs sweeps until ctx is cancelled
func (s *OrphanSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("orphan sweeper started",
		slog.Duration("interval", s.interval),
		slog.Duration("grace", s.grace),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("orphan sweeper stopped")
			return
		case <-ticker.C:
			_, _ = s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns how many locations it deleted
func (s *OrphanSweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.grace)
	deleted, err := retry.Do(ctx, s.retry, s.logger, "delete orphan locations", func(ctx context.Context) (int64, error) {
		return s.locations.DeleteOrphans(ctx, cutoff)
	})
	if err != nil {
		s.logger.Error("orphan sweep failed", slog.String("error", err.Error()))
		metrics.ObserveOrphanSweep("error", 0)
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("orphan locations deleted", slog.Int64("count", deleted))
	}
	metrics.ObserveOrphanSweep("success", deleted)
	return deleted, nil
}
