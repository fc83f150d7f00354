package importing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Export subfolder conventions, checked before the profile's base directory.
var exportSubfolders = []string{
	"Spotify Extended Streaming History",
	"MyData",
}

// History file name prefixes recognized as audio/video streaming history.
var historyFilePrefixes = []string{
	"Streaming_History_Audio",
	"Streaming_History_Video",
	"StreamingHistory_music",
	"StreamingHistory_podcast",
	"StreamingHistory",
	"endsong",
}

// ImportFile is one eligible input file with its pre-scanned record count.
type ImportFile struct {
	Path    string
	Name    string
	Records int
}

func isHistoryFile(name string) bool {
	if !strings.HasSuffix(strings.ToLower(name), ".json") {
		return false
	}
	for _, prefix := range historyFilePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// DiscoverFiles finds the eligible history files for a profile directory.
// A known export subfolder is preferred over the base directory. Files come
// back sorted by name; record counts are pre-scanned for progress estimates.
func DiscoverFiles(profileDir string) ([]ImportFile, error) {
	if _, err := os.Stat(profileDir); err != nil {
		return nil, fmt.Errorf("profile directory %s: %w", profileDir, err)
	}

	searchDir := profileDir
	for _, sub := range exportSubfolders {
		candidate := filepath.Join(profileDir, sub)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			searchDir = candidate
			break
		}
	}

	entries, err := os.ReadDir(searchDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", searchDir, err)
	}

	var files []ImportFile
	for _, entry := range entries {
		if entry.IsDir() || !isHistoryFile(entry.Name()) {
			continue
		}
		path := filepath.Join(searchDir, entry.Name())
		files = append(files, ImportFile{
			Path:    path,
			Name:    entry.Name(),
			Records: countRecords(path),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// countRecords counts the top-level array elements of a history file without
// keeping them in memory. Used only for progress-percentage math; a file that
// fails to scan counts as zero and is dealt with at processing time.
func countRecords(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	if _, err := dec.Token(); err != nil {
		return 0
	}
	n := 0
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			break
		}
		n++
	}
	return n
}

// rawBatch is a slice of still-undecoded records. Decoding per record happens
// in the processing loop so one malformed record never poisons its batch.
type rawBatch []json.RawMessage

// readBatches streams a history file's top-level array in fixed-size batches.
// The callback's error aborts the file (run-level fault).
func readBatches(path string, batchSize int, fn func(batch rawBatch) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return fmt.Errorf("%s: expected a top-level JSON array", path)
	}

	batch := make(rawBatch, 0, batchSize)
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("failed to read record from %s: %w", path, err)
		}
		batch = append(batch, raw)
		if len(batch) >= batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}
