package stream

import (
	"fmt"
	"strings"
	"time"
)

// Profile is one imported person/account. It owns its fact rows and carries
// a denormalized statistics blob refreshed during and after import.
type Profile struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastImport *time.Time `json:"lastImport,omitempty"`
	Statistics Statistics `json:"statistics"`
}

// Validate validates the profile fields.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile name cannot be empty")
	}
	if len(p.Name) > 200 {
		return fmt.Errorf("profile name cannot exceed 200 characters")
	}
	return nil
}

// Statistics are the summary counters persisted on a profile. They are
// recomputed from the fact tables, never incremented in place.
type Statistics struct {
	TotalPlays            int `json:"totalPlays"`
	TotalMinutes          int `json:"totalMinutes"`
	UniqueTracks          int `json:"uniqueTracks"`
	UniqueArtists         int `json:"uniqueArtists"`
	UniqueAlbums          int `json:"uniqueAlbums"`
	TotalPodcastPlays     int `json:"totalPodcastPlays"`
	TotalPodcastMinutes   int `json:"totalPodcastMinutes"`
	UniqueShows           int `json:"uniqueShows"`
	UniqueEpisodes        int `json:"uniqueEpisodes"`
	TotalAudiobookPlays   int `json:"totalAudiobookPlays"`
	TotalAudiobookMinutes int `json:"totalAudiobookMinutes"`
	UniqueAudiobooks      int `json:"uniqueAudiobooks"`
}
