package services

import (
	"context"
	"log"
	"sync"

	"github.com/nadavlev/hebscribe/internal/core"
)

// History is the session view of previously processed file names. The
// in-memory set is authoritative; the repository is a write-through copy and
// its failures are logged and swallowed, never surfaced to the caller.
type History struct {
	repo core.HistoryRepository

	mu    sync.Mutex
	names []string
	seen  map[string]struct{}
}

// NewHistory loads the persisted names once at startup. A failed load starts
// the session with an empty history rather than failing the app.
func NewHistory(ctx context.Context, repo core.HistoryRepository) *History {
	h := &History{repo: repo, seen: make(map[string]struct{})}

	if repo != nil {
		persisted, err := repo.Load(ctx)
		if err != nil {
			log.Printf("history: load failed, starting empty: %v", err)
		} else {
			for _, name := range persisted {
				h.merge(name)
			}
		}
	}
	return h
}

// Names returns the history in first-seen order.
func (h *History) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}

// RecordProcessed merges the names of a finished batch into the set and
// writes them through to the repository best-effort.
func (h *History) RecordProcessed(ctx context.Context, names []string) {
	if len(names) == 0 {
		return
	}

	h.mu.Lock()
	for _, name := range names {
		h.merge(name)
	}
	h.mu.Unlock()

	if h.repo == nil {
		return
	}
	if err := h.repo.Add(ctx, names); err != nil {
		log.Printf("history: persist failed for %d name(s): %v", len(names), err)
	}
}

// Clear empties the session history and the persisted copy.
func (h *History) Clear(ctx context.Context) {
	h.mu.Lock()
	h.names = nil
	h.seen = make(map[string]struct{})
	h.mu.Unlock()

	if h.repo == nil {
		return
	}
	if err := h.repo.Clear(ctx); err != nil {
		log.Printf("history: clear failed: %v", err)
	}
}

// merge assumes h.mu is held (or exclusive access during construction).
func (h *History) merge(name string) {
	if _, ok := h.seen[name]; ok {
		return
	}
	h.seen[name] = struct{}{}
	h.names = append(h.names, name)
}
