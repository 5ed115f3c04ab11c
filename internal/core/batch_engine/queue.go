package batch_engine

import (
	"context"
	"errors"
	"sync"

	"github.com/nadavlev/hebscribe/internal/core"
	"github.com/nadavlev/hebscribe/internal/models"
)

var (
	ErrBatchRunning = errors.New("a batch is already being processed")
	ErrNoPending    = errors.New("no pending files in the queue")
	ErrNotFound     = errors.New("file not found in the queue")
	ErrNoResult     = errors.New("file has no extracted text")
	ErrNoResults    = errors.New("no successful results to export")
)

// HistoryRecorder receives the names of files that finished successfully.
type HistoryRecorder interface {
	RecordProcessed(ctx context.Context, names []string)
}

// Service owns the upload queue and the batch state. It is the single mutator
// of file records; the API layer reads snapshots and issues the commands
// defined here, each guarded by a batch-state check.
type Service struct {
	obj        core.ObjectClient
	renderer   core.PageRenderer
	recognizer core.Recognizer
	history    HistoryRecorder

	mu      sync.Mutex
	records []*models.FileRecord
	byID    map[string]*models.FileRecord
	state   models.BatchState
}

func NewService(obj core.ObjectClient, renderer core.PageRenderer, recognizer core.Recognizer, history HistoryRecorder) *Service {
	return &Service{
		obj:        obj,
		renderer:   renderer,
		recognizer: recognizer,
		history:    history,
		byID:       make(map[string]*models.FileRecord),
		state:      models.BatchIdle,
	}
}

// AddRecords appends new pending records, dropping any whose id already sits
// in the queue. Accepting at least one file makes a prior "done" result set
// stale, so the batch state falls back to idle; a run in progress is left
// untouched.
func (s *Service) AddRecords(recs []*models.FileRecord) []models.FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added []models.FileRecord
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		if _, exists := s.byID[rec.ID]; exists {
			continue
		}
		rec.Status = models.StatusPending
		rec.Message = "queued"
		s.records = append(s.records, rec)
		s.byID[rec.ID] = rec
		added = append(added, copyRecord(rec))
	}

	if len(added) > 0 && s.state != models.BatchProcessing {
		s.state = models.BatchIdle
	}
	return added
}

// Contains reports whether a record with the given id is already queued.
func (s *Service) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byID[id]
	return ok
}

// Remove deletes one record by id. Removal is forbidden while a batch is
// running. The removed record is returned so the caller can release its
// payload from object storage.
func (s *Service) Remove(id string) (*models.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == models.BatchProcessing {
		return nil, ErrBatchRunning
	}
	rec, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}

	delete(s.byID, id)
	for i, r := range s.records {
		if r.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			break
		}
	}
	removed := copyRecord(rec)
	return &removed, nil
}

// Reset clears the whole queue and returns the dropped records for payload
// cleanup. History is not touched.
func (s *Service) Reset() ([]models.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == models.BatchProcessing {
		return nil, ErrBatchRunning
	}

	dropped := make([]models.FileRecord, 0, len(s.records))
	for _, rec := range s.records {
		dropped = append(dropped, copyRecord(rec))
	}
	s.records = nil
	s.byID = make(map[string]*models.FileRecord)
	s.state = models.BatchIdle
	return dropped, nil
}

// Snapshot returns an immutable copy of the queue in insertion order.
func (s *Service) Snapshot() []models.FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.FileRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, copyRecord(rec))
	}
	return out
}

// State reports the batch state.
func (s *Service) State() models.BatchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the transcript of one successfully processed file.
func (s *Service) Result(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return "", ErrNotFound
	}
	if rec.Status != models.StatusSuccess {
		return "", ErrNoResult
	}
	return rec.Result, nil
}

func copyRecord(rec *models.FileRecord) models.FileRecord {
	out := *rec
	if rec.Progress != nil {
		p := *rec.Progress
		out.Progress = &p
	}
	return out
}
