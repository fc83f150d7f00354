package stream

import (
	"fmt"
	"strings"
)

// Show represents a podcast show, unique by name.
type Show struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Validate validates the show fields.
func (s *Show) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("show name cannot be empty")
	}
	return nil
}

// Episode represents a podcast episode belonging to a show. The URI, when
// present, is globally unique and preferred over (name, show) for dedup.
type Episode struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	ShowID int64  `json:"showId"`
	URI    string `json:"uri,omitempty"`
}

// Validate validates the episode fields.
func (e *Episode) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("episode name cannot be empty")
	}
	if e.ShowID == 0 {
		return fmt.Errorf("episode must reference a show")
	}
	return nil
}

// Audiobook represents an audiobook title. The URI, when present, is the
// preferred dedup key.
type Audiobook struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri,omitempty"`
}

// Validate validates the audiobook fields.
func (a *Audiobook) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("audiobook name cannot be empty")
	}
	return nil
}
