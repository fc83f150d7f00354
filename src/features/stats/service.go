package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"playtrace/src/stream"

	"golang.org/x/sync/errgroup"
)

// Service rebuilds and serves the denormalized rollup tables.
type Service struct {
	store stream.Store
}

// NewService creates a new stats service.
func NewService(store stream.Store) *Service {
	return &Service{store: store}
}

// AggregateAll rebuilds the four rollup categories for a profile from the
// fact tables. The rebuilds are independent (disjoint output tables, same
// immutable facts) and run concurrently; each is a single delete-then-insert
// transaction, so an interrupted rebuild leaves at most one category empty,
// never half-old/half-new.
func (s *Service) AggregateAll(ctx context.Context, profileID int64) error {
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.store.RebuildDailyStats(ctx, profileID); err != nil {
			return fmt.Errorf("daily stats: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.store.RebuildYearlyStats(ctx, profileID); err != nil {
			return fmt.Errorf("yearly stats: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.store.RebuildCountryStats(ctx, profileID); err != nil {
			return fmt.Errorf("country stats: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.store.RebuildArtistStats(ctx, profileID); err != nil {
			return fmt.Errorf("artist stats: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("Rollups rebuilt", "profileID", profileID, "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// GetDailyStats returns the profile's per-date rollups.
func (s *Service) GetDailyStats(ctx context.Context, profileID int64) ([]*stream.DailyStats, error) {
	return s.store.GetDailyStats(ctx, profileID)
}

// GetYearlyStats returns the profile's per-year rollups.
func (s *Service) GetYearlyStats(ctx context.Context, profileID int64) ([]*stream.YearlyStats, error) {
	return s.store.GetYearlyStats(ctx, profileID)
}

// GetCountryStats returns the profile's per-country rollups.
func (s *Service) GetCountryStats(ctx context.Context, profileID int64) ([]*stream.CountryStats, error) {
	return s.store.GetCountryStats(ctx, profileID)
}

// GetArtistStats returns the profile's per-artist rollups.
func (s *Service) GetArtistStats(ctx context.Context, profileID int64) ([]*stream.ArtistStats, error) {
	return s.store.GetArtistStats(ctx, profileID)
}
