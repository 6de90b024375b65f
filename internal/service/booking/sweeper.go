// internal/service/booking/sweeper.go
package booking

import (
	"context"
	"time"

	"wellnest-service/internal/domain/booking"
	xerrors "wellnest-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// StaleSource finds pending bookings older than a cutoff.
type StaleSource interface {
	FindStalePending(ctx context.Context, cutoff time.Time) ([]*booking.Booking, error)
}

// Lifecycle is the transition entry point the sweeper cancels through. It
// never creates bookings.
type Lifecycle interface {
	Transition(ctx context.Context, bookingID string, actorID int64, target booking.Status) (*booking.Booking, error)
}

// Sweeper reclaims pending bookings that the expert never responded to.
// A single goroutine consumes the ticker, so runs never overlap; a slow run
// simply delays (or drops) the next tick.
type Sweeper struct {
	store     StaleSource
	lifecycle Lifecycle
	logger    *zap.Logger

	interval time.Duration
	grace    time.Duration
	now      func() time.Time
}

func NewSweeper(store StaleSource, lifecycle Lifecycle, interval, grace time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:     store,
		lifecycle: lifecycle,
		logger:    logger,
		interval:  interval,
		grace:     grace,
		now:       time.Now,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("expiry sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("grace_window", s.grace),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("sweep run failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce cancels every pending booking older than the grace window and
// returns how many were cancelled. Per-record legality failures are expected
// steady-state noise (a human confirmed between the query and the cancel) and
// never abort the run.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.grace)

	stale, err := s.store.FindStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	cancelled := 0
	for _, b := range stale {
		_, err := s.lifecycle.Transition(ctx, b.ID, booking.SystemActorID, booking.StatusCancelled)
		switch {
		case err == nil:
			cancelled++
		case xerrors.Is(err, xerrors.ErrInvalidStateTransition), xerrors.Is(err, xerrors.ErrNotFound):
			// Raced with a human transition; the record is no longer ours
			// to reclaim.
			s.logger.Debug("skipping booking no longer pending",
				zap.String("booking_id", b.ID),
			)
		default:
			s.logger.Warn("failed to cancel stale booking",
				zap.String("booking_id", b.ID),
				zap.Error(err),
			)
		}
	}

	if cancelled > 0 {
		s.logger.Info("reclaimed stale bookings",
			zap.Int("cancelled", cancelled),
			zap.Int("candidates", len(stale)),
		)
	}

	return cancelled, nil
}
