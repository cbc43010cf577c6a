package ui

import "sync"

const defaultHistorySize = 50

// History is the in-session list of submitted instructions, walked with
// Up/Down in the prompt bar like a shell. It is never persisted.
type History struct {
	mu      sync.Mutex
	entries []string
	cursor  int
	draft   string
	max     int
}

func NewHistory(max int) *History {
	if max <= 0 {
		max = defaultHistorySize
	}
	return &History{max: max}
}

// Add records a submitted instruction. Empty strings and immediate repeats are skipped.
func (h *History) Add(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s != "" && (len(h.entries) == 0 || h.entries[len(h.entries)-1] != s) {
		h.entries = append(h.entries, s)
		if len(h.entries) > h.max {
			h.entries = h.entries[len(h.entries)-h.max:]
		}
	}
	h.cursor = len(h.entries)
	h.draft = ""
}

// Prev moves one entry back. current is what the user has typed so far; it is
// restored when Next walks past the newest entry.
func (h *History) Prev(current string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor == 0 {
		return "", false
	}
	if h.cursor == len(h.entries) {
		h.draft = current
	}
	h.cursor--
	return h.entries[h.cursor], true
}

func (h *History) Next() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor >= len(h.entries) {
		return "", false
	}
	h.cursor++
	if h.cursor == len(h.entries) {
		return h.draft, true
	}
	return h.entries[h.cursor], true
}

// Reset puts the cursor after the newest entry, as when the prompt reopens.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cursor = len(h.entries)
	h.draft = ""
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
