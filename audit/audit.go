package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/infodancer/filevault"
)

// Log is an append-only JSON Lines activity log. It implements
// filevault.Recorder.
type Log struct {
	path string
	mu   sync.Mutex
}

// NewLog returns a Log writing to path. The file and its directory are
// created on the first Record.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Record appends one activity as a single JSON line.
func (l *Log) Record(activity filevault.Activity) error {
	data, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
		return fmt.Errorf("create audit directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}

	_, err = f.Write(append(data, '\n'))
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// ReadEntries reads all activities from the log.
// Returns an empty slice if the log doesn't exist.
func (l *Log) ReadEntries() ([]filevault.Activity, error) {
	l.mu.Lock()
	data, err := os.ReadFile(l.path)
	l.mu.Unlock()

	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into activities.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]filevault.Activity, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []filevault.Activity
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry filevault.Activity
			if err := json.Unmarshal(line, &entry); err != nil {
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// Compile-time interface verification.
var _ filevault.Recorder = (*Log)(nil)
