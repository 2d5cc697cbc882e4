package application

import (
	"time"

	"voice-assistant/internal/domain"
)

// History is the bounded conversation history. It keeps at most maxTurns
// user/assistant exchanges in chronological order and serves the model a
// context limited to a recent time window. The turn loop is sequential,
// so History is not synchronized.
type History struct {
	entries  []domain.Exchange
	maxTurns int
	window   time.Duration
	now      func() time.Time
}

func NewHistory(maxTurns int, window time.Duration) *History {
	if maxTurns <= 0 {
		maxTurns = 10
	}
	return &History{
		maxTurns: maxTurns,
		window:   window,
		now:      time.Now,
	}
}

// Add appends one exchange, trimming the oldest entries once the cap of
// maxTurns full turns (two entries each) is exceeded.
func (h *History) Add(role domain.Role, text, lang string) {
	h.entries = append(h.entries, domain.Exchange{
		Role:      role,
		Text:      text,
		Lang:      lang,
		Timestamp: h.now(),
	})

	limit := h.maxTurns * 2
	if len(h.entries) > limit {
		h.entries = h.entries[len(h.entries)-limit:]
	}
}

// Context returns the entries that fall inside the context window, oldest
// first. A zero window means no time filtering.
func (h *History) Context() []domain.Exchange {
	if h.window <= 0 {
		out := make([]domain.Exchange, len(h.entries))
		copy(out, h.entries)
		return out
	}

	cutoff := h.now().Add(-h.window)
	var out []domain.Exchange
	for _, e := range h.entries {
		if !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

func (h *History) Len() int {
	return len(h.entries)
}

// All returns every retained entry in chronological order.
func (h *History) All() []domain.Exchange {
	out := make([]domain.Exchange, len(h.entries))
	copy(out, h.entries)
	return out
}
