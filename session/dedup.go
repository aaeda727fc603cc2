package session

import (
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
)

// recentMessages remembers the last few decoded messages. A beacon repeats
// its text until acknowledged, so the same message, possibly with a digit or
// two garbled, arrives several times.
type recentMessages struct {
	mu         sync.Mutex
	texts      []string // normalized, oldest first
	limit      int
	similarity float64
}

func newRecentMessages(limit int, similarity float64) *recentMessages {
	return &recentMessages{
		texts:      make([]string, 0, max(limit, 1)),
		limit:      max(limit, 1),
		similarity: similarity,
	}
}

// seen reports whether text matches a remembered message. Unmatched text is
// remembered, evicting the oldest entry when full.
func (r *recentMessages) seen(text string) bool {
	norm := normalize(text)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, prev := range r.texts {
		if similar(norm, prev, r.similarity) {
			return true
		}
	}
	if len(r.texts) == r.limit {
		r.texts = append(r.texts[:0], r.texts[1:]...)
	}
	r.texts = append(r.texts, norm)
	return false
}

func (r *recentMessages) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.texts)
}

func (r *recentMessages) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = r.texts[:0]
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// similar compares 1 - distance/longest with threshold.
func similar(a, b string, threshold float64) bool {
	if a == b {
		return true
	}
	if a == "" || b == "" {
		return false
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1-float64(d)/float64(max(len(a), len(b))) >= threshold
}
