package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"playtrace/src/features/config"
	"playtrace/src/stream"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an import job.
type Status string

const (
	StatusPreparing Status = "preparing"
	StatusImporting Status = "importing"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// ImportStats holds the per-category creation counters and the skip-reason
// breakdown for one import run.
type ImportStats struct {
	ArtistsCreated        int `json:"artistsCreated"`
	AlbumsCreated         int `json:"albumsCreated"`
	TracksCreated         int `json:"tracksCreated"`
	PlaysCreated          int `json:"playsCreated"`
	ShowsCreated          int `json:"showsCreated"`
	EpisodesCreated       int `json:"episodesCreated"`
	PodcastPlaysCreated   int `json:"podcastPlaysCreated"`
	AudiobooksCreated     int `json:"audiobooksCreated"`
	AudiobookPlaysCreated int `json:"audiobookPlaysCreated"`

	SkippedBelowThreshold int `json:"skippedBelowThreshold"`
	SkippedMissingFields  int `json:"skippedMissingFields"`
	SkippedUnknown        int `json:"skippedUnknown"`
	Errors                int `json:"errors"`
}

// Job is the progress entry for one profile's import. One job per profile
// name at a time; terminal jobs stay queryable until replaced or pruned.
type Job struct {
	ID          string `json:"id"`
	ProfileName string `json:"profileName"`
	Status      Status `json:"status"`

	CurrentFile          string `json:"currentFile,omitempty"`
	CurrentFileIndex     int    `json:"currentFileIndex"`
	TotalFiles           int    `json:"totalFiles"`
	FileRecordsProcessed int    `json:"fileRecordsProcessed"`
	FileRecordsTotal     int    `json:"fileRecordsTotal"`
	FilesCompleted       int    `json:"filesCompleted"`
	RecordsProcessed     int    `json:"recordsProcessed"`
	EstimatedRecords     int    `json:"estimatedRecords"`

	StartedAt time.Time `json:"startedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Error     string    `json:"error,omitempty"`

	Stats          ImportStats        `json:"stats"`
	LiveStatistics *stream.Statistics `json:"liveStatistics,omitempty"`

	Logger  *slog.Logger `json:"-"`
	LogPath string       `json:"-"`

	cancelFunc context.CancelFunc
	cancelled  bool
}

// Running reports whether the job is still in a non-terminal state.
func (j *Job) Running() bool {
	return j.Status == StatusPreparing || j.Status == StatusImporting
}

// Task defines the work executed for one import job.
type Task interface {
	Execute(ctx context.Context, job *Job, update func(mutate func(*Job))) error
}

// Service is the process-wide import-job registry, keyed by profile name.
// It is constructed once at boot and injected; all access goes through its
// mutex.
type Service struct {
	jobs   map[string]*Job
	mu     sync.RWMutex
	config *config.Jobs
}

// NewService creates a new job service.
func NewService(cfg *config.Jobs) *Service {
	return &Service{
		jobs:   make(map[string]*Job),
		config: cfg,
	}
}

// ErrJobNotFound is returned when no job exists for a profile.
var ErrJobNotFound = errors.New("job not found")

// Start registers a job for the profile and runs the task in the background.
// If a job for the profile is already running, the existing job is returned
// with started=false and no second run begins.
func (s *Service) Start(profileName string, task Task) (Job, bool, error) {
	s.mu.Lock()
	if existing, ok := s.jobs[profileName]; ok && existing.Running() {
		snapshot := existing.snapshot()
		s.mu.Unlock()
		return snapshot, false, nil
	}

	job := &Job{
		ID:          uuid.New().String(),
		ProfileName: profileName,
		Status:      StatusPreparing,
		StartedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	logger, logPath, err := s.newJobLogger(job)
	if err != nil {
		s.mu.Unlock()
		return Job{}, false, err
	}
	job.Logger = logger
	job.LogPath = logPath

	ctx, cancel := context.WithCancel(context.Background())
	job.cancelFunc = cancel
	s.jobs[profileName] = job
	snapshot := job.snapshot()
	s.mu.Unlock()

	go s.execute(ctx, job, task)

	return snapshot, true, nil
}

func (s *Service) newJobLogger(job *Job) (*slog.Logger, string, error) {
	if !s.config.Log {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), "", nil
	}
	logDir := s.config.LogPath
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create log directory: %w", err)
	}
	logName := fmt.Sprintf("%s-%s.log", time.Now().Format("2006-01-02"), job.ID)
	logPath := filepath.Join(logDir, logName)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(logFile, nil)), logPath, nil
}

func (s *Service) execute(ctx context.Context, job *Job, task Task) {
	job.Logger.Info("Starting import job", "profile", job.ProfileName, "job", job.ID)

	update := func(mutate func(*Job)) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !job.Running() {
			return
		}
		mutate(job)
		job.UpdatedAt = time.Now()
	}

	err := task.Execute(ctx, job, update)

	s.mu.Lock()
	defer s.mu.Unlock()
	job.UpdatedAt = time.Now()
	switch {
	case job.cancelled || errors.Is(err, context.Canceled):
		job.Status = StatusCancelled
		job.Logger.Info("Import job cancelled", "profile", job.ProfileName)
	case err != nil:
		job.Status = StatusError
		job.Error = err.Error()
		job.Logger.Error("Import job failed", "profile", job.ProfileName, "error", err)
	default:
		job.Status = StatusCompleted
		job.Logger.Info("Import job completed", "profile", job.ProfileName,
			"plays", job.Stats.PlaysCreated, "podcastPlays", job.Stats.PodcastPlaysCreated,
			"audiobookPlays", job.Stats.AudiobookPlaysCreated, "errors", job.Stats.Errors)
	}
}

// Get returns a snapshot of the profile's job.
func (s *Service) Get(profileName string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, exists := s.jobs[profileName]
	if !exists {
		return Job{}, false
	}
	return job.snapshot(), true
}

// Cancel marks the profile's running job as cancelled. The import task
// observes the context between batches and stops early; committed rows stay.
func (s *Service) Cancel(profileName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, exists := s.jobs[profileName]
	if !exists {
		return ErrJobNotFound
	}
	if !job.Running() {
		return fmt.Errorf("job for profile %q is not running", profileName)
	}
	job.cancelled = true
	job.UpdatedAt = time.Now()
	if job.cancelFunc != nil {
		job.cancelFunc()
	}
	return nil
}

// Percentage computes overall progress as processed/estimated, capped at 100.
// A completed job is always 100 regardless of the estimate, since the
// pre-scan estimate may undercount.
func (s *Service) Percentage(profileName string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, exists := s.jobs[profileName]
	if !exists {
		return 0, false
	}
	if job.Status == StatusCompleted {
		return 100, true
	}
	if job.EstimatedRecords <= 0 {
		return 0, true
	}
	pct := int(float64(job.RecordsProcessed)/float64(job.EstimatedRecords)*100 + 0.5)
	if pct > 100 {
		pct = 100
	}
	return pct, true
}

// Jobs returns snapshots of every registered job.
func (s *Service) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.snapshot())
	}
	return out
}

// CleanupOldJobs removes terminal jobs older than maxAge, along with their
// log files.
func (s *Service) CleanupOldJobs(maxAge time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for name, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > maxAge && !job.Running() {
			if job.LogPath != "" {
				os.Remove(job.LogPath)
			}
			delete(s.jobs, name)
		}
	}
}

// snapshot copies the job for handing out without the internal handles.
// Caller must hold at least a read lock.
func (j *Job) snapshot() Job {
	cp := *j
	cp.cancelFunc = nil
	if j.LiveStatistics != nil {
		statsCopy := *j.LiveStatistics
		cp.LiveStatistics = &statsCopy
	}
	return cp
}
