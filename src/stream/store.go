package stream

import (
	"context"
	"errors"
)

// ErrConflict is returned (wrapped) by Add* methods when a row with the same
// natural key was created concurrently. Callers recover by re-reading.
var ErrConflict = errors.New("natural key conflict")

// Store is the repository interface for the streaming-history domain.
// Lookup methods return (nil, nil) when no row matches.
type Store interface {
	// Artist methods
	AddArtist(ctx context.Context, artist *Artist) error
	GetArtist(ctx context.Context, id int64) (*Artist, error)
	GetArtistByName(ctx context.Context, name string) (*Artist, error)
	GetArtistsPaginated(ctx context.Context, query string, limit, offset int) ([]*Artist, error)
	GetArtistsCount(ctx context.Context, query string) (int, error)

	// Album methods
	AddAlbum(ctx context.Context, album *Album) error
	GetAlbumByName(ctx context.Context, name string, artistID int64) (*Album, error)

	// Track methods
	AddTrack(ctx context.Context, track *Track) error
	GetTrackByURI(ctx context.Context, uri string) (*Track, error)
	GetTrackByName(ctx context.Context, name string, albumID int64) (*Track, error)
	SetTrackURI(ctx context.Context, id int64, uri string) error

	// Show methods
	AddShow(ctx context.Context, show *Show) error
	GetShowByName(ctx context.Context, name string) (*Show, error)

	// Episode methods
	AddEpisode(ctx context.Context, episode *Episode) error
	GetEpisodeByURI(ctx context.Context, uri string) (*Episode, error)
	GetEpisodeByName(ctx context.Context, name string, showID int64) (*Episode, error)
	SetEpisodeURI(ctx context.Context, id int64, uri string) error

	// Audiobook methods
	AddAudiobook(ctx context.Context, audiobook *Audiobook) error
	GetAudiobookByURI(ctx context.Context, uri string) (*Audiobook, error)
	GetAudiobookByName(ctx context.Context, name string) (*Audiobook, error)
	SetAudiobookURI(ctx context.Context, id int64, uri string) error

	// Profile methods
	AddProfile(ctx context.Context, profile *Profile) error
	GetProfile(ctx context.Context, id int64) (*Profile, error)
	GetProfileByName(ctx context.Context, name string) (*Profile, error)
	GetProfiles(ctx context.Context) ([]*Profile, error)
	SetProfileLastImport(ctx context.Context, id int64) error
	SetProfileStatistics(ctx context.Context, id int64, stats Statistics) error
	DeleteProfile(ctx context.Context, id int64) error

	// Fact methods
	AddPlay(ctx context.Context, play *Play) error
	AddPodcastPlay(ctx context.Context, play *PodcastPlay) error
	AddAudiobookPlay(ctx context.Context, play *AudiobookPlay) error
	DeleteProfileFacts(ctx context.Context, profileID int64) error
	GetPlaysPaginated(ctx context.Context, profileID int64, limit, offset int) ([]*PlayListing, error)
	GetPlaysCount(ctx context.Context, profileID int64) (int, error)

	// Statistics
	ComputeProfileStatistics(ctx context.Context, profileID int64) (Statistics, error)

	// Rollup methods. Each Rebuild* deletes and reinserts the category's rows
	// for the profile inside a single transaction.
	RebuildDailyStats(ctx context.Context, profileID int64) error
	RebuildYearlyStats(ctx context.Context, profileID int64) error
	RebuildCountryStats(ctx context.Context, profileID int64) error
	RebuildArtistStats(ctx context.Context, profileID int64) error
	GetDailyStats(ctx context.Context, profileID int64) ([]*DailyStats, error)
	GetYearlyStats(ctx context.Context, profileID int64) ([]*YearlyStats, error)
	GetCountryStats(ctx context.Context, profileID int64) ([]*CountryStats, error)
	GetArtistStats(ctx context.Context, profileID int64) ([]*ArtistStats, error)
	DeleteProfileRollups(ctx context.Context, profileID int64) error

	// Orphan pruning: deletes dimension rows no longer referenced by any
	// remaining profile's facts. Each returns the number of rows removed.
	PruneOrphanTracks(ctx context.Context) (int64, error)
	PruneOrphanAlbums(ctx context.Context) (int64, error)
	PruneOrphanArtists(ctx context.Context) (int64, error)
	PruneOrphanEpisodes(ctx context.Context) (int64, error)
	PruneOrphanShows(ctx context.Context) (int64, error)
	PruneOrphanAudiobooks(ctx context.Context) (int64, error)
}
