package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/nadavlev/hebscribe/internal/config"
	"github.com/nadavlev/hebscribe/internal/core"
	"github.com/nadavlev/hebscribe/internal/core/batch_engine"
	"github.com/nadavlev/hebscribe/internal/models"
)

const uploadTimeout = 5 * time.Minute

type QueueHandler struct {
	svc *batch_engine.Service
	obj core.ObjectClient
	cfg *config.Config
}

func NewQueueHandler(svc *batch_engine.Service, obj core.ObjectClient, cfg *config.Config) *QueueHandler {
	return &QueueHandler{svc: svc, obj: obj, cfg: cfg}
}

type uploadResponse struct {
	Added   []models.FileRecord `json:"added"`
	Skipped int                 `json:"skipped"`
}

// UploadFiles accepts a multipart selection under "files", keeps only PDFs,
// drops files whose deterministic id is already queued, stores the payloads
// and appends pending records. Clients may send a parallel "last_modified"
// value (ms since epoch) per file.
func (h *QueueHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.cfg.MaxUploadMB << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		http.Error(w, "no files provided", http.StatusBadRequest)
		return
	}
	lastMods := r.MultipartForm.Value["last_modified"]

	type candidate struct {
		rec *models.FileRecord
		fh  *multipart.FileHeader
	}
	var candidates []candidate
	seen := make(map[string]bool)
	skipped := 0

	for i, fh := range files {
		if !isPDF(fh) {
			skipped++
			continue
		}

		var lastMod int64
		if i < len(lastMods) {
			lastMod, _ = strconv.ParseInt(lastMods[i], 10, 64)
		}

		// Sanitize filename to prevent path traversal or invalid characters
		name := filepath.Base(fh.Filename)
		id := models.RecordID(name, lastMod, fh.Size)
		if seen[id] || h.svc.Contains(id) {
			skipped++
			continue
		}
		seen[id] = true

		candidates = append(candidates, candidate{
			rec: &models.FileRecord{
				ID:           id,
				FileName:     name,
				Size:         fh.Size,
				LastModified: lastMod,
				StorageKey:   objectKey(id, name),
				CreatedAt:    time.Now(),
			},
			fh: fh,
		})
	}

	resp := uploadResponse{Added: []models.FileRecord{}, Skipped: skipped}
	if len(candidates) > 0 {
		uploadCtx, cancel := context.WithTimeout(r.Context(), uploadTimeout)
		defer cancel()

		g, gctx := errgroup.WithContext(uploadCtx)
		for _, c := range candidates {
			g.Go(func() error {
				f, err := c.fh.Open()
				if err != nil {
					return fmt.Errorf("open %s: %w", c.rec.FileName, err)
				}
				defer f.Close()

				if _, err := h.obj.UploadFile(gctx, c.rec.StorageKey, f, "application/pdf"); err != nil {
					return fmt.Errorf("store %s: %w", c.rec.FileName, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			http.Error(w, fmt.Sprintf("upload failed: %v", err), http.StatusInternalServerError)
			return
		}

		recs := make([]*models.FileRecord, len(candidates))
		for i, c := range candidates {
			recs[i] = c.rec
		}
		resp.Added = h.svc.AddRecords(recs)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListFiles returns the queue snapshot in insertion order.
func (h *QueueHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.svc.Snapshot())
}

// RemoveFile deletes one record by id; rejected while a batch is running.
func (h *QueueHandler) RemoveFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.svc.Remove(id)
	if err != nil {
		writeQueueError(w, err)
		return
	}

	if err := h.obj.DeleteFile(r.Context(), rec.StorageKey); err != nil {
		log.Printf("remove: payload delete failed for %s: %v", rec.FileName, err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reset clears the whole queue and its stored payloads. History is untouched.
func (h *QueueHandler) Reset(w http.ResponseWriter, r *http.Request) {
	dropped, err := h.svc.Reset()
	if err != nil {
		writeQueueError(w, err)
		return
	}

	for _, rec := range dropped {
		if err := h.obj.DeleteFile(r.Context(), rec.StorageKey); err != nil {
			log.Printf("reset: payload delete failed for %s: %v", rec.FileName, err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetResult serves one file's transcript as plain text, e.g. for the
// clipboard. Repeated calls yield byte-identical output.
func (h *QueueHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	text, err := h.svc.Result(id)
	if err != nil {
		writeQueueError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, text)
}

// Export serves all successful transcripts as one downloadable text file.
func (h *QueueHandler) Export(w http.ResponseWriter, r *http.Request) {
	blob, err := h.svc.Export()
	if err != nil {
		writeQueueError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", batch_engine.ExportFileName))
	fmt.Fprint(w, blob)
}

func writeQueueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, batch_engine.ErrBatchRunning):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, batch_engine.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, batch_engine.ErrNoResult), errors.Is(err, batch_engine.ErrNoResults):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func isPDF(fh *multipart.FileHeader) bool {
	if fh.Header.Get("Content-Type") == "application/pdf" {
		return true
	}
	return strings.EqualFold(filepath.Ext(fh.Filename), ".pdf")
}

// objectKey creates a consistent S3 key layout.
func objectKey(id, filename string) string {
	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, " ", "_")
	return fmt.Sprintf("uploads/%s/%s", id, filename)
}
