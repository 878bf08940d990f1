package repl

import "strings"

// History is the in-memory buffer of submitted lines, most recent first.
// It is shared by reference between the line editor (arrow recall) and the
// search machine. Lines are never deduplicated or reordered; the only
// mutation is appending a newly submitted line.
type History struct {
	lines []string
}

// NewHistory wraps lines already ordered most recent first.
func NewHistory(lines []string) *History {
	return &History{lines: lines}
}

// Add records a submitted line as the new most recent entry.
func (h *History) Add(line string) {
	h.lines = append([]string{line}, h.lines...)
}

// At returns the i-th entry, 0 being the most recent.
func (h *History) At(i int) (string, bool) {
	if i < 0 || i >= len(h.lines) {
		return "", false
	}
	return h.lines[i], true
}

func (h *History) Len() int { return len(h.lines) }

// Search walks entries from most recent to oldest counting those that
// contain query as a substring, and returns the match at position offset
// (0 = first match encountered). An offset past the last match finds
// nothing; there is no wraparound.
func (h *History) Search(query string, offset int) (string, bool) {
	if offset < 0 {
		return "", false
	}
	n := 0
	for _, ln := range h.lines {
		if !strings.Contains(ln, query) {
			continue
		}
		if n == offset {
			return ln, true
		}
		n++
	}
	return "", false
}
