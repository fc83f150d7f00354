package profiles

import (
	"context"
	"errors"
	"testing"

	"playtrace/src/stream"
)

type mockProfileStore struct {
	stream.Store

	profiles map[int64]*stream.Profile
	byName   map[string]*stream.Profile

	deleted   []int64
	deleteErr error

	pruned    []string
	pruneErrs map[string]error

	searchedQuery string
	statistics    map[int64]stream.Statistics
}

func newMockProfileStore() *mockProfileStore {
	return &mockProfileStore{
		profiles:   make(map[int64]*stream.Profile),
		byName:     make(map[string]*stream.Profile),
		pruneErrs:  make(map[string]error),
		statistics: make(map[int64]stream.Statistics),
	}
}

func (m *mockProfileStore) add(p *stream.Profile) {
	m.profiles[p.ID] = p
	m.byName[p.Name] = p
}

func (m *mockProfileStore) GetProfile(ctx context.Context, id int64) (*stream.Profile, error) {
	if p, ok := m.profiles[id]; ok {
		return p, nil
	}
	return nil, nil
}

func (m *mockProfileStore) GetProfileByName(ctx context.Context, name string) (*stream.Profile, error) {
	if p, ok := m.byName[name]; ok {
		return p, nil
	}
	return nil, nil
}

func (m *mockProfileStore) DeleteProfile(ctx context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	if p, ok := m.profiles[id]; ok {
		delete(m.byName, p.Name)
		delete(m.profiles, id)
	}
	return nil
}

func (m *mockProfileStore) prune(name string) (int64, error) {
	if err := m.pruneErrs[name]; err != nil {
		return 0, err
	}
	m.pruned = append(m.pruned, name)
	return 1, nil
}

func (m *mockProfileStore) PruneOrphanTracks(ctx context.Context) (int64, error) {
	return m.prune("tracks")
}

func (m *mockProfileStore) PruneOrphanAlbums(ctx context.Context) (int64, error) {
	return m.prune("albums")
}

func (m *mockProfileStore) PruneOrphanArtists(ctx context.Context) (int64, error) {
	return m.prune("artists")
}

func (m *mockProfileStore) PruneOrphanEpisodes(ctx context.Context) (int64, error) {
	return m.prune("episodes")
}

func (m *mockProfileStore) PruneOrphanShows(ctx context.Context) (int64, error) {
	return m.prune("shows")
}

func (m *mockProfileStore) PruneOrphanAudiobooks(ctx context.Context) (int64, error) {
	return m.prune("audiobooks")
}

func (m *mockProfileStore) ComputeProfileStatistics(ctx context.Context, profileID int64) (stream.Statistics, error) {
	return stream.Statistics{TotalPlays: 42}, nil
}

func (m *mockProfileStore) SetProfileStatistics(ctx context.Context, id int64, stats stream.Statistics) error {
	m.statistics[id] = stats
	return nil
}

func (m *mockProfileStore) GetArtistsPaginated(ctx context.Context, query string, limit, offset int) ([]*stream.Artist, error) {
	m.searchedQuery = query
	return []*stream.Artist{{ID: 1, Name: "Artist"}}, nil
}

func (m *mockProfileStore) GetArtistsCount(ctx context.Context, query string) (int, error) {
	return 1, nil
}

func TestClearProfile_DeletesAndPrunes(t *testing.T) {
	store := newMockProfileStore()
	store.add(&stream.Profile{ID: 7, Name: "alice"})
	service := NewService(store)

	failed, err := service.ClearProfile(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 0 {
		t.Errorf("expected no failed steps, got %v", failed)
	}
	if len(store.deleted) != 1 || store.deleted[0] != 7 {
		t.Errorf("expected profile 7 deleted, got %v", store.deleted)
	}
	// Leaves before parents, so rows orphaned in this pass get caught.
	want := []string{"tracks", "albums", "artists", "episodes", "shows", "audiobooks"}
	if len(store.pruned) != len(want) {
		t.Fatalf("expected %d prune steps, got %v", len(want), store.pruned)
	}
	for i, name := range want {
		if store.pruned[i] != name {
			t.Errorf("step %d: expected %q, got %q", i, name, store.pruned[i])
		}
	}
}

func TestClearProfile_NotFound(t *testing.T) {
	service := NewService(newMockProfileStore())
	if _, err := service.ClearProfile(context.Background(), 99); err == nil {
		t.Fatal("expected an error for an unknown profile")
	}
}

func TestClearProfile_DeleteFailureAborts(t *testing.T) {
	store := newMockProfileStore()
	store.add(&stream.Profile{ID: 7, Name: "alice"})
	store.deleteErr = errors.New("locked")
	service := NewService(store)

	if _, err := service.ClearProfile(context.Background(), 7); err == nil {
		t.Fatal("expected the delete failure to surface")
	}
	if len(store.pruned) != 0 {
		t.Errorf("pruning must not run when the delete failed, ran %v", store.pruned)
	}
}

func TestClearProfile_PruneStepFailureContinues(t *testing.T) {
	store := newMockProfileStore()
	store.add(&stream.Profile{ID: 7, Name: "alice"})
	store.pruneErrs["albums"] = errors.New("locked")
	service := NewService(store)

	failed, err := service.ClearProfile(context.Background(), 7)
	if err != nil {
		t.Fatalf("a failed prune step must not fail the clear: %v", err)
	}
	if len(failed) != 1 || failed[0] != "albums" {
		t.Errorf("expected the albums step reported failed, got %v", failed)
	}
	// Later steps still ran.
	wantRan := []string{"tracks", "artists", "episodes", "shows", "audiobooks"}
	if len(store.pruned) != len(wantRan) {
		t.Errorf("expected remaining steps to run, got %v", store.pruned)
	}
}

func TestRefreshStatistics(t *testing.T) {
	store := newMockProfileStore()
	store.add(&stream.Profile{ID: 3, Name: "alice"})
	service := NewService(store)

	profile, err := service.RefreshStatistics(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if profile == nil {
		t.Fatal("expected the profile back")
	}
	if profile.Statistics.TotalPlays != 42 {
		t.Errorf("expected recomputed statistics on the profile, got %+v", profile.Statistics)
	}
	if store.statistics[3].TotalPlays != 42 {
		t.Error("expected recomputed statistics persisted")
	}
}

func TestRefreshStatistics_UnknownProfile(t *testing.T) {
	service := NewService(newMockProfileStore())
	profile, err := service.RefreshStatistics(context.Background(), "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if profile != nil {
		t.Error("expected nil for an unknown profile")
	}
}

func TestSearchArtists_FoldsAccents(t *testing.T) {
	store := newMockProfileStore()
	service := NewService(store)

	_, total, err := service.SearchArtists(context.Background(), "  Björk ", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Errorf("expected total 1, got %d", total)
	}
	if store.searchedQuery != "Bjork" {
		t.Errorf("expected the query ASCII-folded and trimmed, got %q", store.searchedQuery)
	}
}
