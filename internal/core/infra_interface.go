package core

import (
	"context"
	"io"

	"github.com/nadavlev/hebscribe/internal/models"
)

// ObjectClient defines interactions with S3 or any object storage holding the
// uploaded payloads. It's abstract so you can replace AWS with MinIO, GCP,
// etc. easily; the implementation owns its bucket.
type ObjectClient interface {
	UploadFile(ctx context.Context, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, key string) error
	GetFile(ctx context.Context, key string) ([]byte, error)
}

// Recognizer turns one rendered page into extracted text. The client is
// stateless; each call is independent and there is no retry logic.
type Recognizer interface {
	RecognizeText(ctx context.Context, page *models.PageImage) (string, error)
}

// PageSequence yields the pages of one document, one at a time and in
// ascending order, so the pipeline never holds more than a single page in
// memory. Close releases whatever backs the sequence.
type PageSequence interface {
	Count() int
	Page(ctx context.Context, n int) (*models.PageImage, error)
	Close() error
}

// PageRenderer converts raw document bytes into an ordered page sequence.
// A sequence belongs to exactly one invocation and is not shared across files.
type PageRenderer interface {
	RenderPages(ctx context.Context, data []byte) (PageSequence, error)
}

// HistoryRepository persists the set of successfully processed file names.
// All operations are best-effort; callers keep an in-memory view that stays
// authoritative for the session when the store fails.
type HistoryRepository interface {
	Load(ctx context.Context) ([]string, error)
	Add(ctx context.Context, names []string) error
	Clear(ctx context.Context) error
	Close() error
}
