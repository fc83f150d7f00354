package profiles

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"playtrace/src/stream"

	"github.com/gosimple/unidecode"
)

// Service is the domain service for profile management and the read layer.
type Service struct {
	store stream.Store
}

// NewService creates a new profiles service.
func NewService(store stream.Store) *Service {
	return &Service{store: store}
}

// GetProfiles returns every profile with its statistics blob.
func (s *Service) GetProfiles(ctx context.Context) ([]*stream.Profile, error) {
	return s.store.GetProfiles(ctx)
}

// GetProfile returns one profile by name, nil when absent.
func (s *Service) GetProfile(ctx context.Context, name string) (*stream.Profile, error) {
	return s.store.GetProfileByName(ctx, name)
}

// RefreshStatistics recomputes and persists the profile's summary counters
// outside of a full import. Used for repair/backfill.
func (s *Service) RefreshStatistics(ctx context.Context, name string) (*stream.Profile, error) {
	profile, err := s.store.GetProfileByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, nil
	}
	stats, err := s.store.ComputeProfileStatistics(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute statistics: %w", err)
	}
	if err := s.store.SetProfileStatistics(ctx, profile.ID, stats); err != nil {
		return nil, fmt.Errorf("failed to persist statistics: %w", err)
	}
	profile.Statistics = stats
	return profile, nil
}

// ClearProfile deletes a profile with all its facts and rollups in one
// transaction, then prunes now-orphaned dimension rows. Pruning is an
// ordered list of steps, each with its own error boundary: a failed step is
// reported but never fails the clear.
func (s *Service) ClearProfile(ctx context.Context, profileID int64) ([]string, error) {
	profile, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("profile %d not found", profileID)
	}

	if err := s.store.DeleteProfile(ctx, profileID); err != nil {
		return nil, fmt.Errorf("failed to delete profile: %w", err)
	}
	slog.Info("Profile deleted", "profile", profile.Name, "id", profileID)

	return s.pruneOrphans(ctx), nil
}

// pruneOrphans runs the cleanup steps in dependency order (leaves first so
// parents orphaned by a leaf removal are caught in the same pass). Returns
// the names of the steps that failed.
func (s *Service) pruneOrphans(ctx context.Context) []string {
	steps := []struct {
		name string
		fn   func(context.Context) (int64, error)
	}{
		{"tracks", s.store.PruneOrphanTracks},
		{"albums", s.store.PruneOrphanAlbums},
		{"artists", s.store.PruneOrphanArtists},
		{"episodes", s.store.PruneOrphanEpisodes},
		{"shows", s.store.PruneOrphanShows},
		{"audiobooks", s.store.PruneOrphanAudiobooks},
	}

	var failed []string
	for _, step := range steps {
		removed, err := step.fn(ctx)
		if err != nil {
			slog.Error("Orphan pruning step failed", "step", step.name, "error", err)
			failed = append(failed, step.name)
			continue
		}
		if removed > 0 {
			slog.Info("Pruned orphaned dimension rows", "step", step.name, "removed", removed)
		}
	}
	return failed
}

// SearchArtists returns a page of artists matching the query. The query is
// ASCII-folded so accented input still matches.
func (s *Service) SearchArtists(ctx context.Context, query string, limit, offset int) ([]*stream.Artist, int, error) {
	query = strings.TrimSpace(unidecode.Unidecode(query))
	artists, err := s.store.GetArtistsPaginated(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.GetArtistsCount(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	return artists, total, nil
}

// GetPlays returns a page of the profile's play listing with the total count.
func (s *Service) GetPlays(ctx context.Context, name string, limit, offset int) ([]*stream.PlayListing, int, error) {
	profile, err := s.store.GetProfileByName(ctx, name)
	if err != nil {
		return nil, 0, err
	}
	if profile == nil {
		return nil, 0, fmt.Errorf("profile %q not found", name)
	}
	plays, err := s.store.GetPlaysPaginated(ctx, profile.ID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.GetPlaysCount(ctx, profile.ID)
	if err != nil {
		return nil, 0, err
	}
	return plays, total, nil
}
