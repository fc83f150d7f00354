package config

// Config holds the application configuration.
type Config struct {
	DataPath  string    `yaml:"dataPath" validate:"required"`
	Logger    Logger    `yaml:"logger"`
	Server    Server    `yaml:"server"`
	Database  Database  `yaml:"database"`
	Import    Import    `yaml:"import"`
	Jobs      Jobs      `yaml:"jobs"`
	RateLimit RateLimit `yaml:"rate_limit"`
}

// Import holds the configuration for the import pipeline.
type Import struct {
	// MinPlayMs is the minimum play duration; records below it are skipped.
	MinPlayMs int `yaml:"min_play_ms"`
	// BatchSize bounds how many records are processed between progress flushes.
	BatchSize int `yaml:"batch_size"`
	// StatsRefreshSeconds is how often live profile statistics are recomputed
	// while a file is being processed.
	StatsRefreshSeconds int  `yaml:"stats_refresh_seconds"`
	AutoStartWatcher    bool `yaml:"auto_start_watcher"`
}

// Jobs holds the configuration for per-job logging.
type Jobs struct {
	Log     bool   `yaml:"log"`
	LogPath string `yaml:"log_path"`
}

// Database holds the configuration for the database.
type Database struct {
	Path string `yaml:"path" validate:"required"`
}

// Server holds the configuration for the Fiber server.
type Server struct {
	PrintRoutes bool   `yaml:"show_routes"`
	Port        uint32 `yaml:"port"`
}

// Logger holds the configuration for the app logging.
type Logger struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
}

// RateLimit holds the per-IP API rate limit configuration.
type RateLimit struct {
	Enabled   bool    `yaml:"enabled"`
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}
