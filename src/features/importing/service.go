package importing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"playtrace/src/features/config"
	"playtrace/src/features/jobs"
	"playtrace/src/features/metrics"
	"playtrace/src/stream"
)

// Service is the domain service for the importing feature. It validates
// requests, resolves the profile row, and hands the actual work to the job
// service as a background task.
type Service struct {
	store      stream.Store
	config     *config.Manager
	jobs       *jobs.Service
	aggregator Aggregator
	recorder   *metrics.Recorder
}

// NewService creates a new importing service.
func NewService(store stream.Store, cfg *config.Manager, jobService *jobs.Service, aggregator Aggregator, recorder *metrics.Recorder) *Service {
	return &Service{
		store:      store,
		config:     cfg,
		jobs:       jobService,
		aggregator: aggregator,
		recorder:   recorder,
	}
}

// StartResult is the acknowledgment returned to the caller. The import
// itself runs in the background; completion is observed via progress polling.
type StartResult struct {
	ProfileID        int64 `json:"profileId"`
	ImportStarted    bool  `json:"importStarted"`
	EstimatedRecords int   `json:"estimatedRecords"`
}

// StartImport begins a background import for the named profile. Idempotent
// while a run is active: a second call returns the running job's state
// instead of double-starting.
func (s *Service) StartImport(ctx context.Context, profileName string) (StartResult, error) {
	if strings.TrimSpace(profileName) == "" {
		return StartResult{}, fmt.Errorf("profile name cannot be empty")
	}

	profileDir := filepath.Join(s.config.Get().DataPath, profileName)
	files, err := DiscoverFiles(profileDir)
	if err != nil {
		return StartResult{}, err
	}
	if len(files) == 0 {
		return StartResult{}, fmt.Errorf("no streaming history files found in %s", profileDir)
	}

	profile, err := s.resolveProfile(ctx, profileName)
	if err != nil {
		return StartResult{}, err
	}

	estimated := 0
	for _, f := range files {
		estimated += f.Records
	}

	task := NewImportTask(s.store, s.config.Get().Import, profile, files, s.aggregator, s.recorder)
	job, started, err := s.jobs.Start(profileName, task)
	if err != nil {
		return StartResult{}, fmt.Errorf("failed to start import job: %w", err)
	}
	if !started {
		slog.Info("Import already running, returning existing job", "profile", profileName, "job", job.ID)
		return StartResult{ProfileID: profile.ID, ImportStarted: false, EstimatedRecords: job.EstimatedRecords}, nil
	}

	if s.recorder != nil {
		s.recorder.ImportsStarted.Inc()
	}
	slog.Info("Import started", "profile", profileName, "files", len(files), "estimatedRecords", estimated)
	return StartResult{ProfileID: profile.ID, ImportStarted: true, EstimatedRecords: estimated}, nil
}

// resolveProfile finds or creates the profile row, tolerating a concurrent
// create of the same name.
func (s *Service) resolveProfile(ctx context.Context, name string) (*stream.Profile, error) {
	profile, err := s.store.GetProfileByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		return profile, nil
	}

	profile = &stream.Profile{Name: name}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.AddProfile(ctx, profile); err != nil {
		if !errors.Is(err, stream.ErrConflict) {
			return nil, err
		}
		profile, err = s.store.GetProfileByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			return nil, fmt.Errorf("profile %q vanished after conflict", name)
		}
	}
	return profile, nil
}

// GetProgress returns the progress entry for a profile's import, if any.
func (s *Service) GetProgress(profileName string) (jobs.Job, bool) {
	return s.jobs.Get(profileName)
}

// GetProgressPercentage returns overall progress 0-100 for a profile.
func (s *Service) GetProgressPercentage(profileName string) (int, bool) {
	return s.jobs.Percentage(profileName)
}

// Cancel marks a running import as cancelled; the task stops at the next
// batch boundary, keeping already-committed rows.
func (s *Service) Cancel(profileName string) error {
	return s.jobs.Cancel(profileName)
}
