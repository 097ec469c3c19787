package progress

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrorLogName is the log file written at the root of the input
// directory.
const ErrorLogName = "log.txt"

// ErrorLog records per-file failures as two-line entries:
//
//	ERROR: <file path>
//	EXCEPTION: <fault description>
//
// The format is the compatibility contract for tooling that scans the
// log; keep it byte-stable.
type ErrorLog struct {
	mu    sync.Mutex
	path  string
	file  *os.File
	count int
}

// NewErrorLog opens (or creates) the error log at path, appending to
// an existing log. An empty path keeps the log in memory only, for
// dry runs.
func NewErrorLog(path string) (*ErrorLog, error) {
	l := &ErrorLog{path: path}

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("could not create log directory: %w", err)
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("could not open error log: %w", err)
		}
		l.file = file
	}

	return l, nil
}

// Record appends one failure entry.
func (l *ErrorLog) Record(filePath, description string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	if l.file != nil {
		fmt.Fprintf(l.file, "ERROR: %s\nEXCEPTION: %s\n", filePath, description)
	}
}

// Count returns the number of recorded failures.
func (l *ErrorLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Path returns the log file location, empty for in-memory logs.
func (l *ErrorLog) Path() string {
	return l.path
}

// Close flushes and closes the underlying file.
func (l *ErrorLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
