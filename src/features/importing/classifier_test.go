package importing

import (
	"testing"
	"time"
)

func strptr(s string) *string { return &s }

func TestClassify_PodcastWinsOverMusic(t *testing.T) {
	// A record carrying both episode and track fields is a podcast.
	rec := &Record{
		TrackName:   strptr("Some Track"),
		TrackURI:    strptr("spotify:track:abc"),
		EpisodeName: strptr("Some Episode"),
	}
	if got := Classify(rec); got != DomainPodcast {
		t.Errorf("expected podcast, got %s", got)
	}
}

func TestClassify_MusicWinsOverAudiobook(t *testing.T) {
	rec := &Record{
		TrackName:      strptr("Some Track"),
		AudiobookTitle: strptr("Some Book"),
	}
	if got := Classify(rec); got != DomainMusic {
		t.Errorf("expected music, got %s", got)
	}
}

func TestClassify_ByURIOnly(t *testing.T) {
	cases := []struct {
		name string
		rec  Record
		want Domain
	}{
		{"track uri", Record{TrackURI: strptr("spotify:track:abc")}, DomainMusic},
		{"episode uri", Record{EpisodeURI: strptr("spotify:episode:abc")}, DomainPodcast},
		{"audiobook uri", Record{AudiobookURI: strptr("spotify:audiobook:abc")}, DomainAudiobook},
		{"legacy track name", Record{LegacyTrackName: strptr("Old Track")}, DomainMusic},
	}
	for _, tc := range cases {
		if got := Classify(&tc.rec); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestClassify_EmptyStringsAreAbsent(t *testing.T) {
	rec := &Record{
		TrackName:   strptr(""),
		EpisodeName: strptr(""),
	}
	if got := Classify(rec); got != DomainUnknown {
		t.Errorf("expected unknown, got %s", got)
	}
}

func TestDisplayNames_URIFallback(t *testing.T) {
	rec := &Record{TrackURI: strptr("spotify:track:abc")}
	if got := trackDisplayName(rec); got != "spotify:track:abc" {
		t.Errorf("expected uri fallback, got %q", got)
	}
	if got := artistDisplayName(rec); got != "Unknown Artist" {
		t.Errorf("expected unknown artist placeholder, got %q", got)
	}
	if got := albumDisplayName(rec); got != "Unknown Album" {
		t.Errorf("expected unknown album placeholder, got %q", got)
	}
}

func TestDisplayNames_LegacyFields(t *testing.T) {
	rec := &Record{
		LegacyArtistName: strptr("Old Artist"),
		LegacyTrackName:  strptr("Old Track"),
	}
	if got := artistDisplayName(rec); got != "Old Artist" {
		t.Errorf("expected legacy artist name, got %q", got)
	}
	if got := trackDisplayName(rec); got != "Old Track" {
		t.Errorf("expected legacy track name, got %q", got)
	}
}

func TestEventTime_ExtendedFormat(t *testing.T) {
	rec := &Record{Timestamp: "2024-03-01T10:30:00Z"}
	ts, ok := rec.EventTime()
	if !ok {
		t.Fatal("expected a parsed timestamp")
	}
	want := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("expected %v, got %v", want, ts)
	}
}

func TestEventTime_LegacyFormat(t *testing.T) {
	rec := &Record{EndTime: "2019-07-15 22:45"}
	ts, ok := rec.EventTime()
	if !ok {
		t.Fatal("expected a parsed timestamp")
	}
	if ts.Year() != 2019 || ts.Minute() != 45 {
		t.Errorf("unexpected parsed time %v", ts)
	}
}

func TestEventTime_MissingBoth(t *testing.T) {
	rec := &Record{}
	if _, ok := rec.EventTime(); ok {
		t.Error("expected no timestamp for an empty record")
	}
}

func TestPlayedMs_PrefersExtendedField(t *testing.T) {
	rec := &Record{MsPlayed: 1000, LegacyMsPlayed: 2000}
	if got := rec.PlayedMs(); got != 1000 {
		t.Errorf("expected 1000, got %d", got)
	}
	rec = &Record{LegacyMsPlayed: 2000}
	if got := rec.PlayedMs(); got != 2000 {
		t.Errorf("expected legacy 2000, got %d", got)
	}
}
