package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nadavlev/hebscribe/internal/config"
	"github.com/nadavlev/hebscribe/internal/core"
	"github.com/nadavlev/hebscribe/internal/core/batch_engine"
	"github.com/nadavlev/hebscribe/internal/models"
)

type memObject struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemObject() *memObject {
	return &memObject{files: make(map[string][]byte)}
}

func (m *memObject) UploadFile(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.files[key] = b
	m.mu.Unlock()
	return "mem://" + key, nil
}

func (m *memObject) DeleteFile(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.files, key)
	m.mu.Unlock()
	return nil
}

func (m *memObject) GetFile(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[key]
	if !ok {
		return nil, fmt.Errorf("no such object %s", key)
	}
	return b, nil
}

// echoRenderer yields a single page carrying the payload bytes.
type echoRenderer struct{}

func (echoRenderer) RenderPages(ctx context.Context, data []byte) (core.PageSequence, error) {
	return singlePage{data: data}, nil
}

type singlePage struct{ data []byte }

func (singlePage) Count() int { return 1 }

func (p singlePage) Page(ctx context.Context, n int) (*models.PageImage, error) {
	return &models.PageImage{Number: n, MIMEType: "application/pdf", Data: p.data}, nil
}

func (singlePage) Close() error { return nil }

// echoRecognizer transcribes a page as its own bytes.
type echoRecognizer struct{}

func (echoRecognizer) RecognizeText(ctx context.Context, page *models.PageImage) (string, error) {
	return string(page.Data), nil
}

type noopHistory struct{}

func (noopHistory) RecordProcessed(ctx context.Context, names []string) {}

func newTestRouter(t *testing.T) (*chi.Mux, *batch_engine.Service) {
	t.Helper()

	obj := newMemObject()
	svc := batch_engine.NewService(obj, echoRenderer{}, echoRecognizer{}, noopHistory{})
	cfg := &config.Config{MaxUploadMB: 8}

	qh := NewQueueHandler(svc, obj, cfg)
	bh := NewBatchHandler(svc)

	r := chi.NewRouter()
	r.Post("/api/files", qh.UploadFiles)
	r.Get("/api/files", qh.ListFiles)
	r.Delete("/api/files/{id}", qh.RemoveFile)
	r.Get("/api/files/{id}/result", qh.GetResult)
	r.Post("/api/batch", bh.Start)
	r.Get("/api/batch", bh.Status)
	r.Get("/api/export", qh.Export)
	r.Post("/api/reset", qh.Reset)
	return r, svc
}

func multipartUpload(t *testing.T, files map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, content := range files {
		fw, err := w.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/files", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func uploadFiles(t *testing.T, r http.Handler, files map[string]string) uploadResponse {
	t.Helper()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, multipartUpload(t, files))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status %d: %s", rec.Code, rec.Body.String())
	}

	var resp uploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return resp
}

func waitForDone(t *testing.T, svc *batch_engine.Service) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if svc.State() == models.BatchDone {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("batch never reached done, state %s", svc.State())
}

func TestUploadFiltersNonPDFAndDeduplicates(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := uploadFiles(t, r, map[string]string{
		"scan.pdf":  "hebrew page",
		"notes.txt": "not a pdf",
	})
	if len(resp.Added) != 1 || resp.Skipped != 1 {
		t.Fatalf("expected 1 added / 1 skipped, got %d / %d", len(resp.Added), resp.Skipped)
	}
	if resp.Added[0].FileName != "scan.pdf" {
		t.Fatalf("unexpected file name %s", resp.Added[0].FileName)
	}
	if resp.Added[0].Status != models.StatusPending {
		t.Fatalf("new records must be pending, got %s", resp.Added[0].Status)
	}

	// Same selection again: identical (name, mtime, size) collapses away.
	resp = uploadFiles(t, r, map[string]string{"scan.pdf": "hebrew page"})
	if len(resp.Added) != 0 || resp.Skipped != 1 {
		t.Fatalf("duplicate should be skipped, got %d added / %d skipped", len(resp.Added), resp.Skipped)
	}
}

func TestBatchLifecycleOverHTTP(t *testing.T) {
	r, svc := newTestRouter(t)
	resp := uploadFiles(t, r, map[string]string{"doc.pdf": "extracted text"})
	id := resp.Added[0].ID

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/batch", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status %d: %s", rec.Code, rec.Body.String())
	}

	waitForDone(t, svc)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files/"+id+"/result", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("result status %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "extracted text" {
		t.Fatalf("unexpected transcript %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("export status %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "pdf_extraction_results.txt") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	want := "START: doc.pdf\nextracted text\nEND: doc.pdf"
	if rec.Body.String() != want {
		t.Fatalf("unexpected export body %q, want %q", rec.Body.String(), want)
	}
}

func TestStartWithEmptyQueueIsNoOp(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/batch", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 no-op, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if started, _ := resp["started"].(bool); started {
		t.Fatalf("nothing pending, batch must not start")
	}
}

func TestExportWithoutResultsReturnsNotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without successes, got %d", rec.Code)
	}
}

func TestRemoveUnknownFileReturnsNotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/files/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestResetClearsQueueOverHTTP(t *testing.T) {
	r, svc := newTestRouter(t)
	uploadFiles(t, r, map[string]string{"a.pdf": "one", "b.pdf": "two"})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reset", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reset status %d", rec.Code)
	}
	if got := len(svc.Snapshot()); got != 0 {
		t.Fatalf("queue should be empty after reset, has %d", got)
	}
}
