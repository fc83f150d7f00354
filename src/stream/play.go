package stream

import "time"

// PlayContext carries the per-event fields shared by every fact row kind.
// IP address and user agent are stored raw, as exported.
type PlayContext struct {
	Timestamp        time.Time  `json:"timestamp"`
	MsPlayed         int        `json:"msPlayed"`
	Platform         string     `json:"platform,omitempty"`
	Country          string     `json:"country,omitempty"`
	Username         string     `json:"username,omitempty"`
	IPAddr           string     `json:"ipAddr,omitempty"`
	UserAgent        string     `json:"userAgent,omitempty"`
	ReasonStart      string     `json:"reasonStart,omitempty"`
	ReasonEnd        string     `json:"reasonEnd,omitempty"`
	Shuffle          bool       `json:"shuffle"`
	Skipped          bool       `json:"skipped"`
	Offline          bool       `json:"offline"`
	Incognito        bool       `json:"incognito"`
	OfflineTimestamp *time.Time `json:"offlineTimestamp,omitempty"`
}

// Play is one music play event, scoped to a profile and a track.
type Play struct {
	ID        int64 `json:"id"`
	ProfileID int64 `json:"profileId"`
	TrackID   int64 `json:"trackId"`
	PlayContext
}

// PodcastPlay is one podcast play event, scoped to a profile and an episode.
type PodcastPlay struct {
	ID        int64 `json:"id"`
	ProfileID int64 `json:"profileId"`
	EpisodeID int64 `json:"episodeId"`
	PlayContext
}

// AudiobookPlay is one audiobook play event, scoped to a profile and an
// audiobook, with the chapter that was playing.
type AudiobookPlay struct {
	ID           int64  `json:"id"`
	ProfileID    int64  `json:"profileId"`
	AudiobookID  int64  `json:"audiobookId"`
	ChapterTitle string `json:"chapterTitle,omitempty"`
	ChapterURI   string `json:"chapterUri,omitempty"`
	PlayContext
}

// PlayListing is the read-layer projection of a play joined to its
// track/album/artist names, used by paginated listings.
type PlayListing struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	MsPlayed   int       `json:"msPlayed"`
	TrackName  string    `json:"trackName"`
	AlbumName  string    `json:"albumName"`
	ArtistName string    `json:"artistName"`
	Country    string    `json:"country,omitempty"`
	Platform   string    `json:"platform,omitempty"`
}
