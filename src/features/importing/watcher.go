package importing

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watcherDebounce delays the auto-import after the last file event, since
// exports are usually dropped as several files in quick succession.
const watcherDebounce = 5 * time.Second

// Watcher monitors the data root and auto-starts an import for a profile
// when new history files land in its directory.
type Watcher struct {
	service  *Service
	watcher  *fsnotify.Watcher
	dataPath string

	mu     sync.Mutex
	timers map[string]*time.Timer

	stopChan chan struct{}
}

// NewWatcher creates a watcher over the given data root.
func NewWatcher(service *Service, dataPath string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		service:  service,
		watcher:  fsWatcher,
		dataPath: dataPath,
		timers:   make(map[string]*time.Timer),
		stopChan: make(chan struct{}),
	}, nil
}

// Start watches the data root and every existing profile directory,
// including known export subfolders (fsnotify is not recursive).
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.dataPath); err != nil {
		return err
	}
	entries, err := os.ReadDir(w.dataPath)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			w.watchProfileDir(filepath.Join(w.dataPath, entry.Name()))
		}
	}

	go w.watchLoop(ctx)
	slog.Info("Import watcher started", "path", w.dataPath)
	return nil
}

// watchProfileDir watches a profile directory and any export subfolder
// already present inside it.
func (w *Watcher) watchProfileDir(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		slog.Warn("Failed to watch profile directory", "dir", dir, "error", err)
		return
	}
	for _, sub := range exportSubfolders {
		candidate := filepath.Join(dir, sub)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			if err := w.watcher.Add(candidate); err != nil {
				slog.Warn("Failed to watch export subfolder", "dir", candidate, "error", err)
			}
		}
	}
}

func isExportSubfolder(name string) bool {
	for _, sub := range exportSubfolders {
		if name == sub {
			return true
		}
	}
	return false
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.stopChan)
	w.watcher.Close()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	// New profile directories and export subfolders get added to the watch
	// set as they appear.
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		parent := filepath.Dir(event.Name)
		root := filepath.Clean(w.dataPath)
		switch {
		case parent == root:
			w.watchProfileDir(event.Name)
		case isExportSubfolder(filepath.Base(event.Name)) && filepath.Dir(parent) == root:
			if err := w.watcher.Add(event.Name); err != nil {
				slog.Warn("Failed to watch export subfolder", "dir", event.Name, "error", err)
			}
		}
		return
	}

	if !isHistoryFile(filepath.Base(event.Name)) {
		return
	}
	profile := w.profileFor(event.Name)
	if profile == "" {
		return
	}
	w.scheduleImport(ctx, profile)
}

// profileFor maps a file path back to the profile directory directly under
// the data root.
func (w *Watcher) profileFor(path string) string {
	rel, err := filepath.Rel(w.dataPath, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}

func (w *Watcher) scheduleImport(ctx context.Context, profile string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[profile]; ok {
		timer.Stop()
	}
	w.timers[profile] = time.AfterFunc(watcherDebounce, func() {
		w.mu.Lock()
		delete(w.timers, profile)
		w.mu.Unlock()

		slog.Info("Auto-starting import after file change", "profile", profile)
		if _, err := w.service.StartImport(ctx, profile); err != nil {
			slog.Error("Auto-import failed to start", "profile", profile, "error", err)
		}
	})
}
