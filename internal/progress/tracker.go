package progress

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// FileStatus is the outcome recorded for one source file.
type FileStatus string

const (
	StatusSuccess FileStatus = "success"
	StatusError   FileStatus = "error"
)

// FileEntry is one tracked source file.
type FileEntry struct {
	Status    FileStatus `json:"status"`
	Hash      string     `json:"hash"`
	Document  string     `json:"document,omitempty"`
	Error     string     `json:"error,omitempty"`
	Timestamp string     `json:"timestamp"`
}

type trackerData struct {
	Files   map[string]*FileEntry `json:"files"`
	Updated string                `json:"updated"`
	Summary struct {
		Success int `json:"success"`
		Error   int `json:"error"`
		Total   int `json:"total"`
	} `json:"summary"`
}

// Tracker records which source files already have extracted documents,
// so an interrupted run can resume without reprocessing. A file counts
// as done only while its size and mtime hash still match.
type Tracker struct {
	mu           sync.Mutex
	progressFile string
	logger       *slog.Logger
	processed    map[string]*FileEntry
}

// NewTracker creates a tracker, loading prior state from progressFile
// if it exists. An empty progressFile disables persistence.
func NewTracker(progressFile string, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}

	t := &Tracker{
		progressFile: progressFile,
		logger:       logger,
		processed:    make(map[string]*FileEntry),
	}

	if progressFile != "" {
		t.load()
	}

	return t
}

func (t *Tracker) load() {
	data, err := os.ReadFile(t.progressFile)
	if err != nil {
		return // no prior progress, start fresh
	}

	var td trackerData
	if err := json.Unmarshal(data, &td); err != nil {
		t.logger.Warn("could not load progress file", "path", t.progressFile, "error", err)
		return
	}

	if td.Files != nil {
		t.processed = td.Files
	}
	t.logger.Info("loaded progress",
		"succeeded", t.countStatus(StatusSuccess),
		"failed", t.countStatus(StatusError))
}

func (t *Tracker) save() {
	if t.progressFile == "" {
		return
	}

	td := trackerData{
		Files:   t.processed,
		Updated: time.Now().Format(time.RFC3339),
	}
	td.Summary.Success = t.countStatus(StatusSuccess)
	td.Summary.Error = t.countStatus(StatusError)
	td.Summary.Total = len(t.processed)

	data, err := json.MarshalIndent(td, "", "  ")
	if err != nil {
		t.logger.Warn("could not marshal progress data", "error", err)
		return
	}

	if err := os.WriteFile(t.progressFile, data, 0644); err != nil {
		t.logger.Warn("could not save progress", "path", t.progressFile, "error", err)
	}
}

func (t *Tracker) countStatus(status FileStatus) int {
	count := 0
	for _, entry := range t.processed {
		if entry.Status == status {
			count++
		}
	}
	return count
}

// fileHash fingerprints a file by size and modification time. Cheap
// enough to run per file, strong enough to catch re-exports in place.
func fileHash(filePath string) string {
	info, err := os.Stat(filePath)
	if err != nil {
		return ""
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%d_%d", info.Size(), info.ModTime().Unix())))
	return fmt.Sprintf("%x", sum[:4])
}

// IsProcessed reports whether a file was already extracted successfully
// and is unchanged since.
func (t *Tracker) IsProcessed(filePath string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.processed[filePath]
	if !ok || entry.Status != StatusSuccess {
		return false
	}
	return entry.Hash == fileHash(filePath)
}

// MarkSuccess records a successful extraction and its document path.
func (t *Tracker) MarkSuccess(filePath, documentPath string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.processed[filePath] = &FileEntry{
		Status:    StatusSuccess,
		Hash:      fileHash(filePath),
		Document:  documentPath,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	t.save()
}

// MarkError records a failed file.
func (t *Tracker) MarkError(filePath, errorMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.processed[filePath] = &FileEntry{
		Status:    StatusError,
		Hash:      fileHash(filePath),
		Error:     errorMsg,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	t.save()
}

// ClearFailed drops all failed entries so they are retried.
func (t *Tracker) ClearFailed() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for key, entry := range t.processed {
		if entry.Status == StatusError {
			delete(t.processed, key)
			count++
		}
	}

	if count > 0 {
		t.save()
		t.logger.Info("cleared failed entries for retry", "count", count)
	}
	return count
}

// Stats returns success and error counts.
func (t *Tracker) Stats() (success, errors int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.countStatus(StatusSuccess), t.countStatus(StatusError)
}
