package importing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"playtrace/src/features/config"
	"playtrace/src/features/jobs"
	"playtrace/src/features/metrics"
	"playtrace/src/stream"
)

// Aggregator rebuilds a profile's rollup tables after import.
type Aggregator interface {
	AggregateAll(ctx context.Context, profileID int64) error
}

// ImportTask implements jobs.Task for one profile's full-replace import.
// Record processing is strictly sequential within a run; only different
// profiles import concurrently.
type ImportTask struct {
	store      stream.Store
	cfg        config.Import
	profile    *stream.Profile
	files      []ImportFile
	aggregator Aggregator
	recorder   *metrics.Recorder
}

// NewImportTask builds the task for a profile. The import configuration is
// snapshotted here, once per run, so threshold changes never land mid-run.
func NewImportTask(store stream.Store, cfg config.Import, profile *stream.Profile, files []ImportFile, aggregator Aggregator, recorder *metrics.Recorder) *ImportTask {
	return &ImportTask{
		store:      store,
		cfg:        cfg,
		profile:    profile,
		files:      files,
		aggregator: aggregator,
		recorder:   recorder,
	}
}

// Execute runs the import: wipe the profile's facts, process files in sorted
// order in fixed-size batches, refresh live statistics periodically, then
// recompute final statistics and rebuild rollups.
func (t *ImportTask) Execute(ctx context.Context, job *jobs.Job, update func(mutate func(*jobs.Job))) error {
	start := time.Now()
	logger := job.Logger
	if logger == nil {
		logger = slog.Default()
	}

	estimated := 0
	for _, f := range t.files {
		estimated += f.Records
	}
	update(func(j *jobs.Job) {
		j.TotalFiles = len(t.files)
		j.EstimatedRecords = estimated
	})

	// Import is always a full replace so rollups and counters stay consistent
	// with the presented file set.
	if err := t.store.DeleteProfileFacts(ctx, t.profile.ID); err != nil {
		return fmt.Errorf("failed to clear existing plays: %w", err)
	}
	if err := t.store.SetProfileLastImport(ctx, t.profile.ID); err != nil {
		return fmt.Errorf("failed to record import time: %w", err)
	}

	update(func(j *jobs.Job) { j.Status = jobs.StatusImporting })

	resolver := NewResolver(t.store)
	refreshEvery := time.Duration(t.cfg.StatsRefreshSeconds) * time.Second
	lastRefresh := time.Now()
	var tally jobs.ImportStats

	for i, file := range t.files {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Info("Processing file", "file", file.Name, "records", file.Records)

		fileProcessed := 0
		update(func(j *jobs.Job) {
			j.CurrentFile = file.Name
			j.CurrentFileIndex = i + 1
			j.FileRecordsTotal = file.Records
			j.FileRecordsProcessed = 0
		})

		err := readBatches(file.Path, t.cfg.BatchSize, func(batch rawBatch) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, raw := range batch {
				t.processRecord(ctx, resolver, raw, &tally, logger)
			}
			fileProcessed += len(batch)
			syncCreated(&tally, resolver.Created())
			update(func(j *jobs.Job) {
				j.FileRecordsProcessed = fileProcessed
				j.RecordsProcessed += len(batch)
				j.Stats = tally
			})
			if time.Since(lastRefresh) >= refreshEvery {
				lastRefresh = time.Now()
				t.refreshLiveStatistics(ctx, update, logger)
			}
			return nil
		})
		if err != nil {
			return err
		}

		update(func(j *jobs.Job) {
			j.FilesCompleted = i + 1
			j.CurrentFile = ""
		})
		t.refreshLiveStatistics(ctx, update, logger)
	}

	// Authoritative final recomputation, then the rollup rebuild.
	finalStats, err := t.store.ComputeProfileStatistics(ctx, t.profile.ID)
	if err != nil {
		return fmt.Errorf("failed to compute final statistics: %w", err)
	}
	if err := t.store.SetProfileStatistics(ctx, t.profile.ID, finalStats); err != nil {
		return fmt.Errorf("failed to persist final statistics: %w", err)
	}

	aggStart := time.Now()
	if err := t.aggregator.AggregateAll(ctx, t.profile.ID); err != nil {
		return fmt.Errorf("failed to rebuild rollups: %w", err)
	}
	if t.recorder != nil {
		t.recorder.AggregationDuration.Observe(time.Since(aggStart).Seconds())
		t.recorder.ImportDuration.Observe(time.Since(start).Seconds())
	}

	syncCreated(&tally, resolver.Created())
	t.countCreated(resolver.Created())
	update(func(j *jobs.Job) {
		j.Stats = tally
		j.LiveStatistics = &finalStats
	})

	logger.Info("Import finished",
		"plays", tally.PlaysCreated, "podcastPlays", tally.PodcastPlaysCreated,
		"audiobookPlays", tally.AudiobookPlaysCreated,
		"belowThreshold", tally.SkippedBelowThreshold, "missingFields", tally.SkippedMissingFields,
		"unknown", tally.SkippedUnknown, "errors", tally.Errors,
		"duration", time.Since(start).Round(time.Second))
	return nil
}

// processRecord handles one raw record. Skips and record-level faults are
// absorbed into the tally; they never abort the batch.
func (t *ImportTask) processRecord(ctx context.Context, resolver *Resolver, raw json.RawMessage, tally *jobs.ImportStats, logger *slog.Logger) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		tally.Errors++
		t.count(metrics.OutcomeError)
		logger.Warn("Malformed record", "error", err)
		return
	}

	if rec.PlayedMs() < t.cfg.MinPlayMs {
		tally.SkippedBelowThreshold++
		t.count(metrics.OutcomeBelowThreshold)
		return
	}
	ts, ok := rec.EventTime()
	if !ok {
		tally.SkippedMissingFields++
		t.count(metrics.OutcomeMissingFields)
		return
	}

	var err error
	switch Classify(&rec) {
	case DomainPodcast:
		if err = t.importPodcastPlay(ctx, resolver, &rec, ts); err == nil {
			tally.PodcastPlaysCreated++
			t.count(metrics.OutcomePodcastPlay)
		}
	case DomainMusic:
		if err = t.importPlay(ctx, resolver, &rec, ts); err == nil {
			tally.PlaysCreated++
			t.count(metrics.OutcomePlay)
		}
	case DomainAudiobook:
		if err = t.importAudiobookPlay(ctx, resolver, &rec, ts); err == nil {
			tally.AudiobookPlaysCreated++
			t.count(metrics.OutcomeAudiobookPlay)
		}
	default:
		tally.SkippedUnknown++
		t.count(metrics.OutcomeUnknown)
		return
	}
	if err != nil {
		tally.Errors++
		t.count(metrics.OutcomeError)
		logger.Warn("Failed to process record", "error", err, "ts", rec.Timestamp)
	}
}

func (t *ImportTask) importPlay(ctx context.Context, resolver *Resolver, rec *Record, ts time.Time) error {
	artistID, err := resolver.ResolveArtist(ctx, artistDisplayName(rec))
	if err != nil {
		return fmt.Errorf("resolve artist: %w", err)
	}
	albumID, err := resolver.ResolveAlbum(ctx, albumDisplayName(rec), artistID)
	if err != nil {
		return fmt.Errorf("resolve album: %w", err)
	}
	trackID, err := resolver.ResolveTrack(ctx, trackDisplayName(rec), albumID, deref(rec.TrackURI))
	if err != nil {
		return fmt.Errorf("resolve track: %w", err)
	}
	return t.store.AddPlay(ctx, &stream.Play{
		ProfileID:   t.profile.ID,
		TrackID:     trackID,
		PlayContext: rec.playContext(ts),
	})
}

func (t *ImportTask) importPodcastPlay(ctx context.Context, resolver *Resolver, rec *Record, ts time.Time) error {
	showID, err := resolver.ResolveShow(ctx, showDisplayName(rec))
	if err != nil {
		return fmt.Errorf("resolve show: %w", err)
	}
	episodeID, err := resolver.ResolveEpisode(ctx, episodeDisplayName(rec), showID, deref(rec.EpisodeURI))
	if err != nil {
		return fmt.Errorf("resolve episode: %w", err)
	}
	return t.store.AddPodcastPlay(ctx, &stream.PodcastPlay{
		ProfileID:   t.profile.ID,
		EpisodeID:   episodeID,
		PlayContext: rec.playContext(ts),
	})
}

func (t *ImportTask) importAudiobookPlay(ctx context.Context, resolver *Resolver, rec *Record, ts time.Time) error {
	audiobookID, err := resolver.ResolveAudiobook(ctx, audiobookDisplayName(rec), deref(rec.AudiobookURI))
	if err != nil {
		return fmt.Errorf("resolve audiobook: %w", err)
	}
	return t.store.AddAudiobookPlay(ctx, &stream.AudiobookPlay{
		ProfileID:    t.profile.ID,
		AudiobookID:  audiobookID,
		ChapterTitle: deref(rec.ChapterTitle),
		ChapterURI:   deref(rec.ChapterURI),
		PlayContext:  rec.playContext(ts),
	})
}

// refreshLiveStatistics recomputes and persists the profile's summary
// counters so polling clients get a live view mid-import. Failures are
// logged, not fatal: the end-of-import recomputation is authoritative.
func (t *ImportTask) refreshLiveStatistics(ctx context.Context, update func(mutate func(*jobs.Job)), logger *slog.Logger) {
	stats, err := t.store.ComputeProfileStatistics(ctx, t.profile.ID)
	if err != nil {
		logger.Warn("Failed to refresh live statistics", "error", err)
		return
	}
	if err := t.store.SetProfileStatistics(ctx, t.profile.ID, stats); err != nil {
		logger.Warn("Failed to persist live statistics", "error", err)
		return
	}
	update(func(j *jobs.Job) { j.LiveStatistics = &stats })
}

func syncCreated(tally *jobs.ImportStats, created CreatedCounters) {
	tally.ArtistsCreated = created.Artists
	tally.AlbumsCreated = created.Albums
	tally.TracksCreated = created.Tracks
	tally.ShowsCreated = created.Shows
	tally.EpisodesCreated = created.Episodes
	tally.AudiobooksCreated = created.Audiobooks
}

func (t *ImportTask) count(outcome string) {
	if t.recorder != nil {
		t.recorder.RecordsProcessed.WithLabelValues(outcome).Inc()
	}
}

func (t *ImportTask) countCreated(created CreatedCounters) {
	if t.recorder == nil {
		return
	}
	for kind, n := range map[string]int{
		"artist":    created.Artists,
		"album":     created.Albums,
		"track":     created.Tracks,
		"show":      created.Shows,
		"episode":   created.Episodes,
		"audiobook": created.Audiobooks,
	} {
		t.recorder.EntitiesCreated.WithLabelValues(kind).Add(float64(n))
	}
}

// playContext maps the raw record fields onto the shared fact-row context.
func (r *Record) playContext(ts time.Time) stream.PlayContext {
	return stream.PlayContext{
		Timestamp:        ts,
		MsPlayed:         r.PlayedMs(),
		Platform:         r.Platform,
		Country:          r.Country,
		Username:         r.Username,
		IPAddr:           r.IPAddr,
		UserAgent:        r.UserAgent,
		ReasonStart:      r.ReasonStart,
		ReasonEnd:        r.ReasonEnd,
		Shuffle:          r.Shuffle,
		Skipped:          r.Skipped,
		Offline:          r.Offline,
		Incognito:        r.Incognito,
		OfflineTimestamp: r.OfflineTime(),
	}
}
