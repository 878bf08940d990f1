// Package history persists submitted lines per destination. Persistence
// is best-effort by design: every I/O failure is swallowed here, logged at
// debug level at most, and never reaches the console loop.
package history

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lilsweetcaligula/seneca-repl/internal/target"
)

// Store reads and appends one destination's history file. Lines are
// stored oldest-first on disk and returned most-recent-first for recall.
type Store struct {
	path string
	log  *slog.Logger
}

// Open locates the history file for dest under the user config dir. It
// never fails; a store without a usable path silently drops all I/O.
func Open(dest target.Destination, log *slog.Logger) *Store {
	log = log.With("component", "history")

	dir, err := os.UserConfigDir()
	if err != nil {
		log.Debug("no user config dir", "error", err)
		return &Store{log: log}
	}
	dir = filepath.Join(dir, "seneca-repl", "history")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		log.Debug("cannot create history dir", "error", err)
		return &Store{log: log}
	}
	return &Store{path: filepath.Join(dir, dest.Key()), log: log}
}

// At returns a store bound to an explicit file path.
func At(path string, log *slog.Logger) *Store {
	return &Store{path: path, log: log.With("component", "history")}
}

// Load returns previously submitted lines, most recent first. Any read
// failure yields an empty history.
func (s *Store) Load() []string {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.log.Debug("history load skipped", "error", err)
		return nil
	}

	var lines []string
	for _, ln := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		lines = append(lines, ln)
	}
	slices.Reverse(lines)
	return lines
}

// Append records one submitted line. Failures are dropped.
func (s *Store) Append(line string) {
	if s.path == "" || strings.TrimSpace(line) == "" {
		return
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		s.log.Debug("history append skipped", "error", err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		s.log.Debug("history append failed", "error", err)
	}
}
