package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML file from the given path and returns a new Manager.
// If the file doesn't exist, creates a default configuration.
func Load(path string) (*Manager, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("Config file not found, creating default configuration", "path", path)
		defaultCfg := createDefaultConfig()

		if err := saveDefaultConfig(path, defaultCfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}

		manager := NewManager(defaultCfg)
		if err := manager.EnsureDirectories(); err != nil {
			return nil, err
		}
		return manager, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	manager := NewManager(&cfg)
	if err := manager.EnsureDirectories(); err != nil {
		return nil, err
	}

	return manager, nil
}

// applyDefaults fills in zero values that the import pipeline depends on.
func applyDefaults(cfg *Config) {
	if cfg.Import.MinPlayMs == 0 {
		cfg.Import.MinPlayMs = 5000
	}
	if cfg.Import.BatchSize == 0 {
		cfg.Import.BatchSize = 1000
	}
	if cfg.Import.StatsRefreshSeconds == 0 {
		cfg.Import.StatsRefreshSeconds = 5
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3636
	}
	if cfg.RateLimit.PerSecond == 0 {
		cfg.RateLimit.PerSecond = 100
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 200
	}
}

// applyEnvOverrides lets deployments override paths without editing the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PLAYTRACE_DATA_PATH"); v != "" {
		cfg.DataPath = v
	}
	if v := os.Getenv("PLAYTRACE_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("PLAYTRACE_MIN_PLAY_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			cfg.Import.MinPlayMs = ms
		} else {
			slog.Warn("Ignoring invalid PLAYTRACE_MIN_PLAY_MS", "value", v)
		}
	}
}

// createDefaultConfig creates a new Config with sensible default values.
func createDefaultConfig() *Config {
	return &Config{
		DataPath: "./data",
		Logger: Logger{
			Enabled: true,
			Level:   "info",
			Format:  "text",
		},
		Server: Server{
			PrintRoutes: false,
			Port:        3636,
		},
		Database: Database{
			Path: "./playtrace.db",
		},
		Import: Import{
			MinPlayMs:           5000,
			BatchSize:           1000,
			StatsRefreshSeconds: 5,
			AutoStartWatcher:    false,
		},
		Jobs: Jobs{
			Log:     true,
			LogPath: "./logs/jobs",
		},
		RateLimit: RateLimit{
			Enabled:   false,
			PerSecond: 100,
			Burst:     200,
		},
	}
}

// saveDefaultConfig saves the default configuration to the specified file path.
func saveDefaultConfig(path string, cfg *Config) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()
	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	slog.Info("Default configuration saved", "path", path)
	return nil
}
