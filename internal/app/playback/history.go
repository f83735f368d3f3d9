package playback

import "sync"

// History records completed plays in completion order.
type History struct {
	mu      sync.RWMutex
	entries []string
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Append records one completed play.
func (h *History) Append(summary string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, summary)
}

// ListTop returns a listing of the oldest entries first.
func (h *History) ListTop(n int) Listing {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return newListing(h.entries, n)
}

// Len returns the number of recorded plays.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.entries)
}

// Reset drops every entry. Only used on teardown.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = nil
}
