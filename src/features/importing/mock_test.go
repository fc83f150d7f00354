package importing

import (
	"context"
	"fmt"
	"sync"

	"playtrace/src/stream"
)

// mockStore is an in-memory stream.Store for tests. Embeds the interface so
// unimplemented methods panic when called.
type mockStore struct {
	stream.Store

	mu     sync.Mutex
	nextID int64

	artists    map[string]*stream.Artist
	albums     map[string]*stream.Album
	tracks     []*stream.Track
	shows      map[string]*stream.Show
	episodes   []*stream.Episode
	audiobooks []*stream.Audiobook
	profiles   map[string]*stream.Profile

	plays          []*stream.Play
	podcastPlays   []*stream.PodcastPlay
	audiobookPlays []*stream.AudiobookPlay

	statistics      map[int64]stream.Statistics
	lastImportCalls int
	factsDeleted    int

	// One-shot conflict triggers simulating a concurrent creator: the row is
	// inserted as if another run won the race, and ErrConflict is returned.
	conflictArtistOnce bool
	conflictTrackOnce  bool
}

func newMockStore() *mockStore {
	return &mockStore{
		artists:    make(map[string]*stream.Artist),
		albums:     make(map[string]*stream.Album),
		shows:      make(map[string]*stream.Show),
		profiles:   make(map[string]*stream.Profile),
		statistics: make(map[int64]stream.Statistics),
	}
}

func (m *mockStore) id() int64 {
	m.nextID++
	return m.nextID
}

func albumKey(name string, artistID int64) string {
	return fmt.Sprintf("%d|%s", artistID, name)
}

func (m *mockStore) AddArtist(ctx context.Context, artist *stream.Artist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflictArtistOnce {
		m.conflictArtistOnce = false
		m.artists[artist.Name] = &stream.Artist{ID: m.id(), Name: artist.Name}
		return fmt.Errorf("insert artists: %w", stream.ErrConflict)
	}
	if _, ok := m.artists[artist.Name]; ok {
		return fmt.Errorf("insert artists: %w", stream.ErrConflict)
	}
	artist.ID = m.id()
	m.artists[artist.Name] = artist
	return nil
}

func (m *mockStore) GetArtistByName(ctx context.Context, name string) (*stream.Artist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.artists[name]; ok {
		return a, nil
	}
	return nil, nil
}

func (m *mockStore) AddAlbum(ctx context.Context, album *stream.Album) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := albumKey(album.Name, album.ArtistID)
	if _, ok := m.albums[key]; ok {
		return fmt.Errorf("insert albums: %w", stream.ErrConflict)
	}
	album.ID = m.id()
	m.albums[key] = album
	return nil
}

func (m *mockStore) GetAlbumByName(ctx context.Context, name string, artistID int64) (*stream.Album, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.albums[albumKey(name, artistID)]; ok {
		return a, nil
	}
	return nil, nil
}

func (m *mockStore) AddTrack(ctx context.Context, track *stream.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflictTrackOnce {
		m.conflictTrackOnce = false
		m.tracks = append(m.tracks, &stream.Track{ID: m.id(), Name: track.Name, AlbumID: track.AlbumID, URI: track.URI})
		return fmt.Errorf("insert tracks: %w", stream.ErrConflict)
	}
	for _, t := range m.tracks {
		if t.Name == track.Name && t.AlbumID == track.AlbumID {
			return fmt.Errorf("insert tracks: %w", stream.ErrConflict)
		}
		if track.URI != "" && t.URI == track.URI {
			return fmt.Errorf("insert tracks: %w", stream.ErrConflict)
		}
	}
	track.ID = m.id()
	m.tracks = append(m.tracks, track)
	return nil
}

func (m *mockStore) GetTrackByURI(ctx context.Context, uri string) (*stream.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tracks {
		if t.URI == uri {
			return t, nil
		}
	}
	return nil, nil
}

func (m *mockStore) GetTrackByName(ctx context.Context, name string, albumID int64) (*stream.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tracks {
		if t.Name == name && t.AlbumID == albumID {
			return t, nil
		}
	}
	return nil, nil
}

func (m *mockStore) SetTrackURI(ctx context.Context, id int64, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tracks {
		if t.ID == id && t.URI == "" {
			t.URI = uri
		}
	}
	return nil
}

func (m *mockStore) AddShow(ctx context.Context, show *stream.Show) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shows[show.Name]; ok {
		return fmt.Errorf("insert shows: %w", stream.ErrConflict)
	}
	show.ID = m.id()
	m.shows[show.Name] = show
	return nil
}

func (m *mockStore) GetShowByName(ctx context.Context, name string) (*stream.Show, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.shows[name]; ok {
		return s, nil
	}
	return nil, nil
}

func (m *mockStore) AddEpisode(ctx context.Context, episode *stream.Episode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.episodes {
		if e.Name == episode.Name && e.ShowID == episode.ShowID {
			return fmt.Errorf("insert episodes: %w", stream.ErrConflict)
		}
	}
	episode.ID = m.id()
	m.episodes = append(m.episodes, episode)
	return nil
}

func (m *mockStore) GetEpisodeByURI(ctx context.Context, uri string) (*stream.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.episodes {
		if e.URI == uri {
			return e, nil
		}
	}
	return nil, nil
}

func (m *mockStore) GetEpisodeByName(ctx context.Context, name string, showID int64) (*stream.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.episodes {
		if e.Name == name && e.ShowID == showID {
			return e, nil
		}
	}
	return nil, nil
}

func (m *mockStore) SetEpisodeURI(ctx context.Context, id int64, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.episodes {
		if e.ID == id && e.URI == "" {
			e.URI = uri
		}
	}
	return nil
}

func (m *mockStore) AddAudiobook(ctx context.Context, audiobook *stream.Audiobook) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.audiobooks {
		if a.Name == audiobook.Name {
			return fmt.Errorf("insert audiobooks: %w", stream.ErrConflict)
		}
	}
	audiobook.ID = m.id()
	m.audiobooks = append(m.audiobooks, audiobook)
	return nil
}

func (m *mockStore) GetAudiobookByURI(ctx context.Context, uri string) (*stream.Audiobook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.audiobooks {
		if a.URI == uri {
			return a, nil
		}
	}
	return nil, nil
}

func (m *mockStore) GetAudiobookByName(ctx context.Context, name string) (*stream.Audiobook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.audiobooks {
		if a.Name == name {
			return a, nil
		}
	}
	return nil, nil
}

func (m *mockStore) SetAudiobookURI(ctx context.Context, id int64, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.audiobooks {
		if a.ID == id && a.URI == "" {
			a.URI = uri
		}
	}
	return nil
}

func (m *mockStore) AddProfile(ctx context.Context, profile *stream.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[profile.Name]; ok {
		return fmt.Errorf("insert profiles: %w", stream.ErrConflict)
	}
	profile.ID = m.id()
	m.profiles[profile.Name] = profile
	return nil
}

func (m *mockStore) GetProfileByName(ctx context.Context, name string) (*stream.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[name]; ok {
		return p, nil
	}
	return nil, nil
}

func (m *mockStore) SetProfileLastImport(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastImportCalls++
	return nil
}

func (m *mockStore) SetProfileStatistics(ctx context.Context, id int64, stats stream.Statistics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statistics[id] = stats
	return nil
}

func (m *mockStore) AddPlay(ctx context.Context, play *stream.Play) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	play.ID = m.id()
	m.plays = append(m.plays, play)
	return nil
}

func (m *mockStore) AddPodcastPlay(ctx context.Context, play *stream.PodcastPlay) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	play.ID = m.id()
	m.podcastPlays = append(m.podcastPlays, play)
	return nil
}

func (m *mockStore) AddAudiobookPlay(ctx context.Context, play *stream.AudiobookPlay) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	play.ID = m.id()
	m.audiobookPlays = append(m.audiobookPlays, play)
	return nil
}

func (m *mockStore) DeleteProfileFacts(ctx context.Context, profileID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factsDeleted++
	kept := m.plays[:0]
	for _, p := range m.plays {
		if p.ProfileID != profileID {
			kept = append(kept, p)
		}
	}
	m.plays = kept
	keptPod := m.podcastPlays[:0]
	for _, p := range m.podcastPlays {
		if p.ProfileID != profileID {
			keptPod = append(keptPod, p)
		}
	}
	m.podcastPlays = keptPod
	keptBook := m.audiobookPlays[:0]
	for _, p := range m.audiobookPlays {
		if p.ProfileID != profileID {
			keptBook = append(keptBook, p)
		}
	}
	m.audiobookPlays = keptBook
	return nil
}

func (m *mockStore) ComputeProfileStatistics(ctx context.Context, profileID int64) (stream.Statistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats stream.Statistics
	tracks := make(map[int64]bool)
	var ms int
	for _, p := range m.plays {
		if p.ProfileID != profileID {
			continue
		}
		stats.TotalPlays++
		ms += p.MsPlayed
		tracks[p.TrackID] = true
	}
	stats.TotalMinutes = ms / 60000
	stats.UniqueTracks = len(tracks)
	for _, p := range m.podcastPlays {
		if p.ProfileID == profileID {
			stats.TotalPodcastPlays++
		}
	}
	for _, p := range m.audiobookPlays {
		if p.ProfileID == profileID {
			stats.TotalAudiobookPlays++
		}
	}
	return stats, nil
}

// mockAggregator records the profiles it rebuilt rollups for.
type mockAggregator struct {
	mu       sync.Mutex
	profiles []int64
	err      error
}

func (a *mockAggregator) AggregateAll(ctx context.Context, profileID int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.profiles = append(a.profiles, profileID)
	return nil
}
