package importing

import "playtrace/src/stream"

// Domain is the content domain a record belongs to.
type Domain int

const (
	DomainUnknown Domain = iota
	DomainMusic
	DomainPodcast
	DomainAudiobook
)

// String returns the domain name for logging.
func (d Domain) String() string {
	switch d {
	case DomainMusic:
		return "music"
	case DomainPodcast:
		return "podcast"
	case DomainAudiobook:
		return "audiobook"
	default:
		return "unknown"
	}
}

// Classify maps a record to its content domain. Checks run in priority
// order and the first match wins: a record carrying both episode and track
// fields is a podcast. Deterministic and side-effect-free.
func Classify(r *Record) Domain {
	if has(r.EpisodeName) || has(r.ShowName) || has(r.EpisodeURI) {
		return DomainPodcast
	}
	if has(r.TrackName) || has(r.TrackURI) || has(r.LegacyTrackName) {
		return DomainMusic
	}
	if has(r.AudiobookTitle) || has(r.AudiobookURI) {
		return DomainAudiobook
	}
	return DomainUnknown
}

// Display-name fallbacks: when the human-readable name is missing but a
// stable URI exists, the URI stands in so dimension creation never blocks;
// with neither, a literal placeholder is used.

func trackDisplayName(r *Record) string {
	if has(r.TrackName) {
		return deref(r.TrackName)
	}
	if has(r.LegacyTrackName) {
		return deref(r.LegacyTrackName)
	}
	if has(r.TrackURI) {
		return deref(r.TrackURI)
	}
	return "Unknown Track"
}

func artistDisplayName(r *Record) string {
	if has(r.ArtistName) {
		return deref(r.ArtistName)
	}
	if has(r.LegacyArtistName) {
		return deref(r.LegacyArtistName)
	}
	return stream.UnknownArtistName
}

func albumDisplayName(r *Record) string {
	if has(r.AlbumName) {
		return deref(r.AlbumName)
	}
	return stream.UnknownAlbumName
}

func episodeDisplayName(r *Record) string {
	if has(r.EpisodeName) {
		return deref(r.EpisodeName)
	}
	if has(r.EpisodeURI) {
		return deref(r.EpisodeURI)
	}
	return "Unknown Episode"
}

func showDisplayName(r *Record) string {
	if has(r.ShowName) {
		return deref(r.ShowName)
	}
	return "Unknown Show"
}

func audiobookDisplayName(r *Record) string {
	if has(r.AudiobookTitle) {
		return deref(r.AudiobookTitle)
	}
	if has(r.AudiobookURI) {
		return deref(r.AudiobookURI)
	}
	return "Unknown Audiobook"
}
