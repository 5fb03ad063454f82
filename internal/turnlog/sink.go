// Package turnlog writes the per-session markdown log: one "## TITLE"
// section per event, appended for the lifetime of the session.
package turnlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// runIDLayout renders a session start time as 20060102_150405_000000.
const runIDLayout = "20060102_150405"

// Sink receives finished sections.
type Sink interface {
	Append(title, body string) error
}

// FileSink appends sections to a single file, creating it and its
// directory on first write.
type FileSink struct {
	mu   sync.Mutex
	path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// SessionPath derives the log file path from the session start time.
func SessionPath(dir, prefix string, started time.Time) string {
	if prefix == "" {
		prefix = "session"
	}
	runID := fmt.Sprintf("%s_%06d", started.Format(runIDLayout), started.Nanosecond()/1000)
	return filepath.Join(dir, prefix+"_"+runID+".md")
}

func (s *FileSink) Path() string { return s.path }

func (s *FileSink) Append(title, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	if _, err := fmt.Fprintf(f, "\n## %s\n\n%s\n", title, body); err != nil {
		_ = f.Close()
		return fmt.Errorf("write log: %w", err)
	}
	return f.Close()
}
