package importing

import (
	"time"
)

// Record is one raw play event as found in a streaming-history export file.
// The extended export format uses the master_metadata/spotify_* fields; older
// account-data exports use endTime/artistName/trackName/msPlayed. Pointer
// fields distinguish absent/null from empty.
type Record struct {
	Timestamp string `json:"ts"`
	Username  string `json:"username"`
	Platform  string `json:"platform"`
	MsPlayed  int    `json:"ms_played"`
	Country   string `json:"conn_country"`
	IPAddr    string `json:"ip_addr_decrypted"`
	UserAgent string `json:"user_agent_decrypted"`

	TrackName  *string `json:"master_metadata_track_name"`
	ArtistName *string `json:"master_metadata_album_artist_name"`
	AlbumName  *string `json:"master_metadata_album_album_name"`
	TrackURI   *string `json:"spotify_track_uri"`

	EpisodeName *string `json:"episode_name"`
	ShowName    *string `json:"episode_show_name"`
	EpisodeURI  *string `json:"spotify_episode_uri"`

	AudiobookTitle *string `json:"audiobook_title"`
	AudiobookURI   *string `json:"audiobook_uri"`
	ChapterTitle   *string `json:"audiobook_chapter_title"`
	ChapterURI     *string `json:"audiobook_chapter_uri"`

	ReasonStart      string `json:"reason_start"`
	ReasonEnd        string `json:"reason_end"`
	Shuffle          bool   `json:"shuffle"`
	Skipped          bool   `json:"skipped"`
	Offline          bool   `json:"offline"`
	OfflineTimestamp int64  `json:"offline_timestamp"`
	Incognito        bool   `json:"incognito_mode"`

	// Legacy account-data export fields.
	EndTime          string  `json:"endTime"`
	LegacyArtistName *string `json:"artistName"`
	LegacyTrackName  *string `json:"trackName"`
	LegacyMsPlayed   int     `json:"msPlayed"`
}

// EventTime parses the record's event timestamp. The extended format carries
// RFC3339 in ts; legacy files carry a minute-precision local form in endTime.
func (r *Record) EventTime() (time.Time, bool) {
	if r.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339, r.Timestamp); err == nil {
			return t.UTC(), true
		}
	}
	if r.EndTime != "" {
		if t, err := time.Parse("2006-01-02 15:04", r.EndTime); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// PlayedMs returns the milliseconds played, whichever format carried it.
func (r *Record) PlayedMs() int {
	if r.MsPlayed > 0 {
		return r.MsPlayed
	}
	return r.LegacyMsPlayed
}

// OfflineTime returns the offline timestamp when present. Exports carry it as
// epoch milliseconds, zero meaning unset.
func (r *Record) OfflineTime() *time.Time {
	if r.OfflineTimestamp <= 0 {
		return nil
	}
	t := time.UnixMilli(r.OfflineTimestamp).UTC()
	return &t
}

func has(p *string) bool {
	return p != nil && *p != ""
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
