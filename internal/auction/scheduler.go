package auction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultSweepInterval is how often the scheduler scans for expired
// auctions. Auctions may resolve up to one interval late.
const DefaultSweepInterval = time.Minute

// Resolver is the slice of the engine the scheduler drives.
type Resolver interface {
	ResolveAuction(ctx context.Context, auctionID uuid.UUID) (*Settlement, error)
}

// ExpiredLister finds auctions still marked active past their end time.
type ExpiredLister interface {
	ListExpiredActive(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

// Scheduler is the liveness backstop: a fixed-interval sweep that drives
// every expired-but-active auction through resolution, even when no bid
// or admin action ever touches it again.
type Scheduler struct {
	resolver Resolver
	lister   ExpiredLister
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler sweeping at the given interval.
func NewScheduler(resolver Resolver, lister ExpiredLister, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Scheduler{
		resolver: resolver,
		lister:   lister,
		interval: interval,
		logger:   logger,
	}
}

// Run executes sweeps until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("auction sweep failed", "error", err)
			}
		}
	}
}

// Sweep resolves all expired active auctions. Failures are isolated per
// auction: one stuck resolution never blocks the rest of the batch, and
// a failed auction is retried on the next sweep.
func (s *Scheduler) Sweep(ctx context.Context) error {
	expired, err := s.lister.ListExpiredActive(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to list expired auctions: %w", err)
	}

	for _, id := range expired {
		if _, err := s.resolver.ResolveAuction(ctx, id); err != nil {
			s.logger.Error("failed to resolve expired auction", "auction_id", id, "error", err)
			continue
		}
	}
	return nil
}
