package stream

import (
	"fmt"
	"strings"
)

// UnknownArtistName is used when an export record carries no artist metadata.
const UnknownArtistName = "Unknown Artist"

// UnknownAlbumName is used when an export record carries no album metadata.
const UnknownAlbumName = "Unknown Album"

// Artist represents a music artist, unique by name.
type Artist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Validate validates the artist fields.
func (a *Artist) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("artist name cannot be empty")
	}
	if len(a.Name) > 500 {
		return fmt.Errorf("artist name cannot exceed 500 characters")
	}
	return nil
}

// Album represents an album owned by one artist, unique on (name, artist).
type Album struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ArtistID int64  `json:"artistId"`
}

// Validate validates the album fields.
func (a *Album) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("album name cannot be empty")
	}
	if a.ArtistID == 0 {
		return fmt.Errorf("album must reference an artist")
	}
	return nil
}

// Track represents a track on an album, unique on (name, album). The URI is
// an optional stable external identifier and, when present, a stronger
// dedup key than the name.
type Track struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	AlbumID    int64  `json:"albumId"`
	URI        string `json:"uri,omitempty"`
	DurationMs int    `json:"durationMs,omitempty"`
}

// Validate validates the track fields.
func (t *Track) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("track name cannot be empty")
	}
	if len(t.Name) > 500 {
		return fmt.Errorf("track name cannot exceed 500 characters")
	}
	if t.AlbumID == 0 {
		return fmt.Errorf("track must reference an album")
	}
	return nil
}
