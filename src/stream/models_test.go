package stream

import (
	"strings"
	"testing"
)

func TestValidate_RejectsEmptyNames(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"artist", (&Artist{Name: "  "}).Validate()},
		{"album", (&Album{Name: "", ArtistID: 1}).Validate()},
		{"track", (&Track{Name: "", AlbumID: 1}).Validate()},
		{"show", (&Show{Name: ""}).Validate()},
		{"episode", (&Episode{Name: "", ShowID: 1}).Validate()},
		{"audiobook", (&Audiobook{Name: ""}).Validate()},
		{"profile", (&Profile{Name: ""}).Validate()},
	}
	for _, tc := range cases {
		if tc.err == nil {
			t.Errorf("%s: expected an empty name to be rejected", tc.name)
		}
	}
}

func TestValidate_RejectsMissingParents(t *testing.T) {
	if err := (&Album{Name: "Album"}).Validate(); err == nil {
		t.Error("album without artist must be rejected")
	}
	if err := (&Track{Name: "Track"}).Validate(); err == nil {
		t.Error("track without album must be rejected")
	}
	if err := (&Episode{Name: "Episode"}).Validate(); err == nil {
		t.Error("episode without show must be rejected")
	}
}

func TestValidate_NameLengthLimits(t *testing.T) {
	long := strings.Repeat("x", 501)
	if err := (&Artist{Name: long}).Validate(); err == nil {
		t.Error("overlong artist name must be rejected")
	}
	if err := (&Track{Name: long, AlbumID: 1}).Validate(); err == nil {
		t.Error("overlong track name must be rejected")
	}
	if err := (&Artist{Name: strings.Repeat("x", 500)}).Validate(); err != nil {
		t.Errorf("500-char artist name should pass, got %v", err)
	}
}
