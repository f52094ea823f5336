package sessions

import "sync"

const defaultHistoryLimit = 20

// History is the bounded conversation ring a session keeps for context.
// Oldest entries are evicted first; insertion order is preserved.
type History struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func NewHistory(max int) *History {
	if max <= 0 {
		max = defaultHistoryLimit
	}
	return &History{max: max}
}

func (h *History) Add(role, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lines = append(h.lines, role+": "+message)
	if len(h.lines) > h.max {
		h.lines = h.lines[len(h.lines)-h.max:]
	}
}

// Lines returns a copy in insertion order.
func (h *History) Lines() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, len(h.lines))
	copy(out, h.lines)
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.lines)
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = nil
}
