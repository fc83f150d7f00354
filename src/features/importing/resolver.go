package importing

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"playtrace/src/stream"

	lru "github.com/hashicorp/golang-lru/v2"
)

// resolverCacheSize bounds each per-run entity cache. Exports rarely touch
// more distinct entities than this; evicted entries just cost a re-lookup.
const resolverCacheSize = 65536

// CreatedCounters tracks how many dimension rows this run created. Entities
// merely found are never counted.
type CreatedCounters struct {
	Artists    int
	Albums     int
	Tracks     int
	Shows      int
	Episodes   int
	Audiobooks int
}

// Resolver performs get-or-create resolution of dimension entities for one
// import run. Caches are scoped to the resolver instance, so concurrent
// imports of different profiles never share state; contention on the shared
// dimension tables is absorbed by the conflict-retry path.
type Resolver struct {
	store stream.Store

	artists    *lru.Cache[string, int64]
	albums     *lru.Cache[string, int64]
	tracks     *lru.Cache[string, int64]
	shows      *lru.Cache[string, int64]
	episodes   *lru.Cache[string, int64]
	audiobooks *lru.Cache[string, int64]

	created CreatedCounters
}

// NewResolver creates a resolver with fresh caches.
func NewResolver(store stream.Store) *Resolver {
	artists, _ := lru.New[string, int64](resolverCacheSize)
	albums, _ := lru.New[string, int64](resolverCacheSize)
	tracks, _ := lru.New[string, int64](resolverCacheSize)
	shows, _ := lru.New[string, int64](resolverCacheSize)
	episodes, _ := lru.New[string, int64](resolverCacheSize)
	audiobooks, _ := lru.New[string, int64](resolverCacheSize)
	return &Resolver{
		store:      store,
		artists:    artists,
		albums:     albums,
		tracks:     tracks,
		shows:      shows,
		episodes:   episodes,
		audiobooks: audiobooks,
	}
}

// Created returns the per-run creation counters.
func (r *Resolver) Created() CreatedCounters {
	return r.created
}

func childKey(name string, parentID int64) string {
	return strconv.FormatInt(parentID, 10) + "\x00" + name
}

func uriKey(uri string) string {
	return "uri\x00" + uri
}

// ResolveArtist returns the id for the named artist, creating it on first
// observation.
func (r *Resolver) ResolveArtist(ctx context.Context, name string) (int64, error) {
	if id, ok := r.artists.Get(name); ok {
		return id, nil
	}

	artist, err := r.store.GetArtistByName(ctx, name)
	if err != nil {
		return 0, err
	}
	if artist == nil {
		artist = &stream.Artist{Name: name}
		if err := r.store.AddArtist(ctx, artist); err != nil {
			if !errors.Is(err, stream.ErrConflict) {
				return 0, err
			}
			// Another run created it between our lookup and insert.
			artist, err = r.store.GetArtistByName(ctx, name)
			if err != nil {
				return 0, err
			}
			if artist == nil {
				return 0, fmt.Errorf("artist %q vanished after conflict", name)
			}
		} else {
			r.created.Artists++
		}
	}

	r.artists.Add(name, artist.ID)
	return artist.ID, nil
}

// ResolveAlbum returns the id for (name, artist), creating the album when
// absent.
func (r *Resolver) ResolveAlbum(ctx context.Context, name string, artistID int64) (int64, error) {
	key := childKey(name, artistID)
	if id, ok := r.albums.Get(key); ok {
		return id, nil
	}

	album, err := r.store.GetAlbumByName(ctx, name, artistID)
	if err != nil {
		return 0, err
	}
	if album == nil {
		album = &stream.Album{Name: name, ArtistID: artistID}
		if err := r.store.AddAlbum(ctx, album); err != nil {
			if !errors.Is(err, stream.ErrConflict) {
				return 0, err
			}
			album, err = r.store.GetAlbumByName(ctx, name, artistID)
			if err != nil {
				return 0, err
			}
			if album == nil {
				return 0, fmt.Errorf("album %q vanished after conflict", name)
			}
		} else {
			r.created.Albums++
		}
	}

	r.albums.Add(key, album.ID)
	return album.ID, nil
}

// ResolveTrack returns the id for the track. A URI, when supplied, is looked
// up first since it is a stronger identity than the name; a row found by name
// that lacks a URI gets the supplied one backfilled, never overwritten.
func (r *Resolver) ResolveTrack(ctx context.Context, name string, albumID int64, uri string) (int64, error) {
	if uri != "" {
		if id, ok := r.tracks.Get(uriKey(uri)); ok {
			return id, nil
		}
	}
	key := childKey(name, albumID)
	if id, ok := r.tracks.Get(key); ok {
		return id, nil
	}

	var track *stream.Track
	var err error
	if uri != "" {
		track, err = r.store.GetTrackByURI(ctx, uri)
		if err != nil {
			return 0, err
		}
	}
	if track == nil {
		track, err = r.store.GetTrackByName(ctx, name, albumID)
		if err != nil {
			return 0, err
		}
		if track != nil && track.URI == "" && uri != "" {
			if err := r.store.SetTrackURI(ctx, track.ID, uri); err != nil {
				return 0, err
			}
			track.URI = uri
		}
	}
	if track == nil {
		track = &stream.Track{Name: name, AlbumID: albumID, URI: uri}
		if err := r.store.AddTrack(ctx, track); err != nil {
			if !errors.Is(err, stream.ErrConflict) {
				return 0, err
			}
			track, err = r.relookupTrack(ctx, name, albumID, uri)
			if err != nil {
				return 0, err
			}
		} else {
			r.created.Tracks++
		}
	}

	r.tracks.Add(key, track.ID)
	if track.URI != "" {
		r.tracks.Add(uriKey(track.URI), track.ID)
	}
	return track.ID, nil
}

func (r *Resolver) relookupTrack(ctx context.Context, name string, albumID int64, uri string) (*stream.Track, error) {
	if uri != "" {
		track, err := r.store.GetTrackByURI(ctx, uri)
		if err != nil || track != nil {
			return track, err
		}
	}
	track, err := r.store.GetTrackByName(ctx, name, albumID)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, fmt.Errorf("track %q vanished after conflict", name)
	}
	return track, nil
}

// ResolveShow returns the id for the named show, creating it when absent.
func (r *Resolver) ResolveShow(ctx context.Context, name string) (int64, error) {
	if id, ok := r.shows.Get(name); ok {
		return id, nil
	}

	show, err := r.store.GetShowByName(ctx, name)
	if err != nil {
		return 0, err
	}
	if show == nil {
		show = &stream.Show{Name: name}
		if err := r.store.AddShow(ctx, show); err != nil {
			if !errors.Is(err, stream.ErrConflict) {
				return 0, err
			}
			show, err = r.store.GetShowByName(ctx, name)
			if err != nil {
				return 0, err
			}
			if show == nil {
				return 0, fmt.Errorf("show %q vanished after conflict", name)
			}
		} else {
			r.created.Shows++
		}
	}

	r.shows.Add(name, show.ID)
	return show.ID, nil
}

// ResolveEpisode returns the id for the episode, URI-first like tracks.
func (r *Resolver) ResolveEpisode(ctx context.Context, name string, showID int64, uri string) (int64, error) {
	if uri != "" {
		if id, ok := r.episodes.Get(uriKey(uri)); ok {
			return id, nil
		}
	}
	key := childKey(name, showID)
	if id, ok := r.episodes.Get(key); ok {
		return id, nil
	}

	var episode *stream.Episode
	var err error
	if uri != "" {
		episode, err = r.store.GetEpisodeByURI(ctx, uri)
		if err != nil {
			return 0, err
		}
	}
	if episode == nil {
		episode, err = r.store.GetEpisodeByName(ctx, name, showID)
		if err != nil {
			return 0, err
		}
		if episode != nil && episode.URI == "" && uri != "" {
			if err := r.store.SetEpisodeURI(ctx, episode.ID, uri); err != nil {
				return 0, err
			}
			episode.URI = uri
		}
	}
	if episode == nil {
		episode = &stream.Episode{Name: name, ShowID: showID, URI: uri}
		if err := r.store.AddEpisode(ctx, episode); err != nil {
			if !errors.Is(err, stream.ErrConflict) {
				return 0, err
			}
			episode, err = r.relookupEpisode(ctx, name, showID, uri)
			if err != nil {
				return 0, err
			}
		} else {
			r.created.Episodes++
		}
	}

	r.episodes.Add(key, episode.ID)
	if episode.URI != "" {
		r.episodes.Add(uriKey(episode.URI), episode.ID)
	}
	return episode.ID, nil
}

func (r *Resolver) relookupEpisode(ctx context.Context, name string, showID int64, uri string) (*stream.Episode, error) {
	if uri != "" {
		episode, err := r.store.GetEpisodeByURI(ctx, uri)
		if err != nil || episode != nil {
			return episode, err
		}
	}
	episode, err := r.store.GetEpisodeByName(ctx, name, showID)
	if err != nil {
		return nil, err
	}
	if episode == nil {
		return nil, fmt.Errorf("episode %q vanished after conflict", name)
	}
	return episode, nil
}

// ResolveAudiobook returns the id for the audiobook, URI-first.
func (r *Resolver) ResolveAudiobook(ctx context.Context, name string, uri string) (int64, error) {
	if uri != "" {
		if id, ok := r.audiobooks.Get(uriKey(uri)); ok {
			return id, nil
		}
	}
	if id, ok := r.audiobooks.Get(name); ok {
		return id, nil
	}

	var audiobook *stream.Audiobook
	var err error
	if uri != "" {
		audiobook, err = r.store.GetAudiobookByURI(ctx, uri)
		if err != nil {
			return 0, err
		}
	}
	if audiobook == nil {
		audiobook, err = r.store.GetAudiobookByName(ctx, name)
		if err != nil {
			return 0, err
		}
		if audiobook != nil && audiobook.URI == "" && uri != "" {
			if err := r.store.SetAudiobookURI(ctx, audiobook.ID, uri); err != nil {
				return 0, err
			}
			audiobook.URI = uri
		}
	}
	if audiobook == nil {
		audiobook = &stream.Audiobook{Name: name, URI: uri}
		if err := r.store.AddAudiobook(ctx, audiobook); err != nil {
			if !errors.Is(err, stream.ErrConflict) {
				return 0, err
			}
			audiobook, err = r.relookupAudiobook(ctx, name, uri)
			if err != nil {
				return 0, err
			}
		} else {
			r.created.Audiobooks++
		}
	}

	r.audiobooks.Add(name, audiobook.ID)
	if audiobook.URI != "" {
		r.audiobooks.Add(uriKey(audiobook.URI), audiobook.ID)
	}
	return audiobook.ID, nil
}

func (r *Resolver) relookupAudiobook(ctx context.Context, name string, uri string) (*stream.Audiobook, error) {
	if uri != "" {
		audiobook, err := r.store.GetAudiobookByURI(ctx, uri)
		if err != nil || audiobook != nil {
			return audiobook, err
		}
	}
	audiobook, err := r.store.GetAudiobookByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if audiobook == nil {
		return nil, fmt.Errorf("audiobook %q vanished after conflict", name)
	}
	return audiobook, nil
}
