package importing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"playtrace/src/features/config"
	"playtrace/src/features/jobs"
	"playtrace/src/stream"
)

const historyFixture = `[
	{"ts": "2024-01-10T08:00:00Z", "ms_played": 4000,
	 "master_metadata_track_name": "A", "master_metadata_album_artist_name": "X",
	 "master_metadata_album_album_name": "Y", "spotify_track_uri": "spotify:track:a1"},
	{"ts": "2024-01-10T09:00:00Z", "ms_played": 200000,
	 "master_metadata_track_name": "A", "master_metadata_album_artist_name": "X",
	 "master_metadata_album_album_name": "Y", "spotify_track_uri": "spotify:track:a1"},
	{"ts": "2024-01-11T10:00:00Z", "ms_played": 1800000,
	 "episode_name": "Ep 1", "episode_show_name": "Some Show",
	 "spotify_episode_uri": "spotify:episode:e1"},
	{"ts": "2024-01-12T11:00:00Z", "ms_played": 900000,
	 "audiobook_title": "Some Book", "audiobook_uri": "spotify:audiobook:b1",
	 "audiobook_chapter_title": "Chapter 1"},
	{"ts": "2024-01-13T12:00:00Z", "ms_played": 60000},
	{"ms_played": 60000, "master_metadata_track_name": "No Timestamp"},
	{"ts": "2024-01-14T13:00:00Z", "ms_played": "not-a-number",
	 "master_metadata_track_name": "Broken"}
]`

func writeHistoryFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func runImport(t *testing.T, store *mockStore, agg *mockAggregator, dir string) (*jobs.Job, error) {
	t.Helper()
	files, err := DiscoverFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	profile, err := store.GetProfileByName(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Import{MinPlayMs: 5000, BatchSize: 2, StatsRefreshSeconds: 60}
	task := NewImportTask(store, cfg, profile, files, agg, nil)

	job := &jobs.Job{Status: jobs.StatusPreparing}
	update := func(mutate func(*jobs.Job)) { mutate(job) }
	return job, task.Execute(context.Background(), job, update)
}

func newProfile(name string) *stream.Profile {
	return &stream.Profile{Name: name}
}

func TestImportTask_FullRun(t *testing.T) {
	dir := t.TempDir()
	writeHistoryFile(t, dir, "Streaming_History_Audio_2024_0.json", historyFixture)

	store := newMockStore()
	store.AddProfile(context.Background(), newProfile("alice"))
	agg := &mockAggregator{}

	job, err := runImport(t, store, agg, dir)
	if err != nil {
		t.Fatalf("expected import to succeed, got %v", err)
	}

	// One play below threshold is skipped; the 200000ms one lands.
	if len(store.plays) != 1 {
		t.Fatalf("expected 1 play, got %d", len(store.plays))
	}
	if len(store.podcastPlays) != 1 {
		t.Fatalf("expected 1 podcast play, got %d", len(store.podcastPlays))
	}
	if len(store.audiobookPlays) != 1 {
		t.Fatalf("expected 1 audiobook play, got %d", len(store.audiobookPlays))
	}
	if len(store.artists) != 1 {
		t.Errorf("expected 1 artist, got %d", len(store.artists))
	}
	if len(store.tracks) != 1 {
		t.Errorf("expected 1 track, got %d", len(store.tracks))
	}

	if job.Stats.PlaysCreated != 1 || job.Stats.PodcastPlaysCreated != 1 || job.Stats.AudiobookPlaysCreated != 1 {
		t.Errorf("unexpected play counters: %+v", job.Stats)
	}
	if job.Stats.SkippedBelowThreshold != 1 {
		t.Errorf("expected 1 below-threshold skip, got %d", job.Stats.SkippedBelowThreshold)
	}
	if job.Stats.SkippedMissingFields != 1 {
		t.Errorf("expected 1 missing-fields skip, got %d", job.Stats.SkippedMissingFields)
	}
	if job.Stats.SkippedUnknown != 1 {
		t.Errorf("expected 1 unknown skip, got %d", job.Stats.SkippedUnknown)
	}
	if job.Stats.Errors != 1 {
		t.Errorf("expected 1 malformed-record error, got %d", job.Stats.Errors)
	}

	if len(agg.profiles) != 1 {
		t.Errorf("expected rollups rebuilt once, got %d", len(agg.profiles))
	}
	if store.lastImportCalls != 1 {
		t.Errorf("expected last-import stamped once, got %d", store.lastImportCalls)
	}
	if job.LiveStatistics == nil || job.LiveStatistics.TotalPlays != 1 {
		t.Errorf("expected final statistics on the job, got %+v", job.LiveStatistics)
	}
}

func TestImportTask_RerunReplacesFacts(t *testing.T) {
	dir := t.TempDir()
	writeHistoryFile(t, dir, "Streaming_History_Audio_2024_0.json", historyFixture)

	store := newMockStore()
	store.AddProfile(context.Background(), newProfile("alice"))
	agg := &mockAggregator{}

	if _, err := runImport(t, store, agg, dir); err != nil {
		t.Fatal(err)
	}
	if _, err := runImport(t, store, agg, dir); err != nil {
		t.Fatal(err)
	}

	// Full replace: the second run wipes the first run's facts first.
	if len(store.plays) != 1 {
		t.Errorf("expected 1 play after rerun, got %d", len(store.plays))
	}
	if store.factsDeleted != 2 {
		t.Errorf("expected facts wiped on each run, got %d wipes", store.factsDeleted)
	}
	// Dimension rows are shared and deduplicated across runs.
	if len(store.tracks) != 1 {
		t.Errorf("expected 1 track after rerun, got %d", len(store.tracks))
	}
}

func TestImportTask_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeHistoryFile(t, dir, "Streaming_History_Audio_2024_0.json", historyFixture)

	store := newMockStore()
	store.AddProfile(context.Background(), newProfile("alice"))

	files, err := DiscoverFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	profile, _ := store.GetProfileByName(context.Background(), "alice")
	cfg := config.Import{MinPlayMs: 5000, BatchSize: 2, StatsRefreshSeconds: 60}
	task := NewImportTask(store, cfg, profile, files, &mockAggregator{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job := &jobs.Job{Status: jobs.StatusPreparing}
	err = task.Execute(ctx, job, func(mutate func(*jobs.Job)) { mutate(job) })
	if err == nil {
		t.Fatal("expected the cancelled context to abort the run")
	}
}

func TestDiscoverFiles_PrefersExportSubfolder(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "Spotify Extended Streaming History")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	writeHistoryFile(t, dir, "Streaming_History_Audio_old.json", `[]`)
	writeHistoryFile(t, sub, "Streaming_History_Audio_2024_1.json", `[{"ts":"2024-01-01T00:00:00Z"}]`)
	writeHistoryFile(t, sub, "Streaming_History_Audio_2024_0.json", `[{"ts":"2024-01-01T00:00:00Z"},{"ts":"2024-01-02T00:00:00Z"}]`)
	writeHistoryFile(t, sub, "Userdata.json", `[]`)

	files, err := DiscoverFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files from the subfolder, got %d", len(files))
	}
	// Sorted by name, with pre-scanned record counts.
	if files[0].Name != "Streaming_History_Audio_2024_0.json" {
		t.Errorf("expected sorted order, got %q first", files[0].Name)
	}
	if files[0].Records != 2 || files[1].Records != 1 {
		t.Errorf("unexpected record counts: %d, %d", files[0].Records, files[1].Records)
	}
}

func TestDiscoverFiles_MissingDirectory(t *testing.T) {
	if _, err := DiscoverFiles(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected an error for a missing profile directory")
	}
}

func TestReadBatches_BatchSizing(t *testing.T) {
	dir := t.TempDir()
	writeHistoryFile(t, dir, "endsong_0.json", `[{"a":1},{"a":2},{"a":3},{"a":4},{"a":5}]`)

	var sizes []int
	err := readBatches(filepath.Join(dir, "endsong_0.json"), 2, func(batch rawBatch) error {
		sizes = append(sizes, len(batch))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(sizes) != 3 || sizes[0] != 2 || sizes[1] != 2 || sizes[2] != 1 {
		t.Errorf("unexpected batch sizes: %v", sizes)
	}
}

func TestReadBatches_NotAnArray(t *testing.T) {
	dir := t.TempDir()
	writeHistoryFile(t, dir, "endsong_0.json", `{"a":1}`)
	err := readBatches(filepath.Join(dir, "endsong_0.json"), 2, func(rawBatch) error { return nil })
	if err == nil {
		t.Fatal("expected an error for a non-array file")
	}
}
