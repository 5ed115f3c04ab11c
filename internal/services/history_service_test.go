package services

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
)

// memoryRepo implements core.HistoryRepository with switchable failures.
type memoryRepo struct {
	mu      sync.Mutex
	names   []string
	failAll bool
}

func (r *memoryRepo) Load(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return nil, errors.New("store unavailable")
	}
	return append([]string(nil), r.names...), nil
}

func (r *memoryRepo) Add(ctx context.Context, names []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errors.New("store unavailable")
	}
	r.names = append(r.names, names...)
	return nil
}

func (r *memoryRepo) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errors.New("store unavailable")
	}
	r.names = nil
	return nil
}

func (r *memoryRepo) Close() error { return nil }

func TestHistoryMergesAndDeduplicates(t *testing.T) {
	h := NewHistory(context.Background(), &memoryRepo{})

	h.RecordProcessed(context.Background(), []string{"a.pdf", "b.pdf"})
	h.RecordProcessed(context.Background(), []string{"b.pdf", "c.pdf"})

	want := []string{"a.pdf", "b.pdf", "c.pdf"}
	if got := h.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected names %v, want %v", got, want)
	}
}

func TestHistoryLoadsPersistedNames(t *testing.T) {
	repo := &memoryRepo{names: []string{"seed.pdf"}}
	h := NewHistory(context.Background(), repo)

	if got := h.Names(); len(got) != 1 || got[0] != "seed.pdf" {
		t.Fatalf("expected seeded history, got %v", got)
	}
}

func TestHistorySurvivesStoreFailures(t *testing.T) {
	repo := &memoryRepo{failAll: true}
	h := NewHistory(context.Background(), repo)

	// Persistence is down; the session view must still work.
	h.RecordProcessed(context.Background(), []string{"a.pdf"})
	if got := h.Names(); len(got) != 1 || got[0] != "a.pdf" {
		t.Fatalf("in-memory view must stay authoritative, got %v", got)
	}

	h.Clear(context.Background())
	if got := h.Names(); len(got) != 0 {
		t.Fatalf("clear must empty the session view, got %v", got)
	}
}

func TestHistoryClearPropagatesToStore(t *testing.T) {
	repo := &memoryRepo{names: []string{"old.pdf"}}
	h := NewHistory(context.Background(), repo)

	h.Clear(context.Background())

	persisted, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(persisted) != 0 {
		t.Fatalf("persisted copy should be cleared, got %v", persisted)
	}
}
