// Package synclog appends human-readable sync progress to per-user, per-day log files.
//
// Files are named download_<username>_<YYYY-MM-DD>.log under the sink directory and every
// line is formatted as "[HH:MM:SS] message". Lines are never read back by the program.
package synclog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/soundsync/internal/shared"
)

// Sink appends timestamped lines to per-user daily log files.
//
// Writers for different users never contend; writes for one user are serialised so lines
// keep call order.
type Sink struct {
	dir string
	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a [Sink] rooted at dir. The directory is created on first append.
func New(dir string) *Sink {
	return &Sink{dir: dir, now: time.Now, locks: make(map[string]*sync.Mutex)}
}

// WithClock replaces the time source; used by tests that need a fixed date.
func (s *Sink) WithClock(now func() time.Time) *Sink {
	s.now = now
	return s
}

// Dir returns the directory holding the log files.
func (s *Sink) Dir() string {
	return s.dir
}

// Path returns the log file for username on the calendar day of t.
func (s *Sink) Path(username string, t time.Time) string {
	name := fmt.Sprintf("download_%s_%s.log", shared.SafeName(username), t.Format("2006-01-02"))
	return filepath.Join(s.dir, name)
}

// Append writes one "[HH:MM:SS] message" line to today's log for username.
//
// Embedded newlines are flattened so one call always produces one line.
func (s *Sink) Append(username, message string) error {
	lock := s.lockFor(username)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	now := s.now()
	f, err := os.OpenFile(s.Path(username, now), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	line := fmt.Sprintf("[%s] %s\n", now.Format("15:04:05"), flatten(message))
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to write log line: %w", err)
	}

	return f.Close()
}

// Appendf formats according to format and appends the result for username.
func (s *Sink) Appendf(username, format string, args ...any) error {
	return s.Append(username, fmt.Sprintf(format, args...))
}

func (s *Sink) lockFor(username string) *sync.Mutex {
	key := shared.SafeName(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

var flattener = strings.NewReplacer("\r\n", " | ", "\n", " | ", "\r", " ")

func flatten(message string) string {
	return flattener.Replace(strings.TrimRight(message, "\r\n"))
}
