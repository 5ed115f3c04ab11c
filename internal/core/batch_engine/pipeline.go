package batch_engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nadavlev/hebscribe/internal/models"
)

// pageSeparator joins per-page transcripts. Preserved byte-for-byte: the
// export and copy commands depend on exact output.
const pageSeparator = "\n\n---\n\n"

const (
	msgStarting  = "starting"
	msgCompleted = "completed"
)

// fileTimeout bounds the external render/recognize calls for one file.
const fileTimeout = 5 * time.Minute

// StartBatch begins one pass over all currently pending records, in insertion
// order. The set of eligible records is fixed here, before the run starts;
// files added mid-run wait for the next pass. A second start while a run is
// in progress is rejected. The returned channel closes when the run reaches
// "done".
func (s *Service) StartBatch() (<-chan struct{}, error) {
	s.mu.Lock()
	if s.state == models.BatchProcessing {
		s.mu.Unlock()
		return nil, ErrBatchRunning
	}

	var pending []string
	for _, rec := range s.records {
		if rec.Status == models.StatusPending {
			pending = append(pending, rec.ID)
		}
	}
	if len(pending) == 0 {
		s.mu.Unlock()
		return nil, ErrNoPending
	}

	s.state = models.BatchProcessing
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.runBatch(pending)
	}()
	return done, nil
}

func (s *Service) runBatch(ids []string) {
	runID := uuid.NewString()
	log.Printf("[run %s] starting batch over %d file(s)", runID, len(ids))

	for _, id := range ids {
		rec := s.pendingRecord(id)
		if rec == nil {
			continue
		}
		s.processFile(runID, rec)
	}

	var succeeded []string
	s.mu.Lock()
	for _, rec := range s.records {
		if rec.Status == models.StatusSuccess {
			succeeded = append(succeeded, rec.FileName)
		}
	}
	s.state = models.BatchDone
	s.mu.Unlock()

	if s.history != nil && len(succeeded) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		s.history.RecordProcessed(ctx, succeeded)
		cancel()
	}
	log.Printf("[run %s] batch done, %d file(s) succeeded", runID, len(succeeded))
}

// processFile walks one record through the state machine. Render and
// recognition failures are terminal for this record only; the batch moves on.
func (s *Service) processFile(runID string, rec *models.FileRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), fileTimeout)
	defer cancel()

	s.setProcessing(rec)
	log.Printf("[run %s][file %s] processing", runID, rec.FileName)

	data, err := s.obj.GetFile(ctx, rec.StorageKey)
	if err != nil {
		log.Printf("[run %s][file %s] payload fetch failed: %v", runID, rec.FileName, err)
		s.fail(rec, fmt.Sprintf("could not load file: %v", err))
		return
	}

	seq, err := s.renderer.RenderPages(ctx, data)
	if err != nil {
		log.Printf("[run %s][file %s] render failed: %v", runID, rec.FileName, err)
		s.fail(rec, err.Error())
		return
	}
	defer seq.Close()

	total := seq.Count()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		s.setProgress(rec, i, total)

		page, err := seq.Page(ctx, i)
		if err != nil {
			log.Printf("[run %s][file %s] page %d/%d render failed: %v", runID, rec.FileName, i, total, err)
			s.fail(rec, err.Error())
			return
		}

		text, err := s.recognizer.RecognizeText(ctx, page)
		if err != nil {
			log.Printf("[run %s][file %s] page %d/%d recognition failed: %v", runID, rec.FileName, i, total, err)
			s.fail(rec, err.Error())
			return
		}
		pages = append(pages, strings.TrimSpace(text))
	}

	result := strings.TrimSpace(strings.Join(pages, pageSeparator))
	s.succeed(rec, result)
	log.Printf("[run %s][file %s] completed (%d pages)", runID, rec.FileName, total)
}

func (s *Service) pendingRecord(id string) *models.FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok || rec.Status != models.StatusPending {
		return nil
	}
	return rec
}

func (s *Service) setProcessing(rec *models.FileRecord) {
	s.mu.Lock()
	rec.Status = models.StatusProcessing
	rec.Message = msgStarting
	rec.Progress = nil
	rec.Result = ""
	s.mu.Unlock()
}

func (s *Service) setProgress(rec *models.FileRecord, current, total int) {
	s.mu.Lock()
	rec.Progress = &models.PageProgress{Current: current, Total: total}
	rec.Message = fmt.Sprintf("processing page %d of %d", current, total)
	s.mu.Unlock()
}

func (s *Service) fail(rec *models.FileRecord, message string) {
	s.mu.Lock()
	rec.Status = models.StatusError
	rec.Message = message
	rec.Progress = nil
	rec.Result = ""
	s.mu.Unlock()
}

func (s *Service) succeed(rec *models.FileRecord, result string) {
	s.mu.Lock()
	rec.Status = models.StatusSuccess
	rec.Message = msgCompleted
	rec.Progress = nil
	rec.Result = result
	s.mu.Unlock()
}
