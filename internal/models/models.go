package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// FileStatus tracks a queued file through its processing lifecycle.
type FileStatus string

const (
	StatusPending    FileStatus = "pending"
	StatusProcessing FileStatus = "processing"
	StatusSuccess    FileStatus = "success"
	StatusError      FileStatus = "error"
)

// BatchState describes whether a batch run is in progress.
type BatchState string

const (
	BatchIdle       BatchState = "idle"
	BatchProcessing BatchState = "processing"
	BatchDone       BatchState = "done"
)

// PageProgress is present only while a file is processing.
type PageProgress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// FileRecord tracks one uploaded document: its identity, where the payload
// lives in object storage, and the current processing state. The record is
// mutated only by the batch pipeline; the API layer reads snapshots.
type FileRecord struct {
	ID           string        `json:"id"`
	FileName     string        `json:"file_name"`
	Size         int64         `json:"size"`
	LastModified int64         `json:"last_modified"` // ms since epoch, as reported by the client
	StorageKey   string        `json:"storage_key"`
	Status       FileStatus    `json:"status"`
	Message      string        `json:"message"`
	Progress     *PageProgress `json:"progress,omitempty"`
	Result       string        `json:"result,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// PageImage is one rendered page handed to the recognition client.
type PageImage struct {
	Number   int
	MIMEType string
	Data     []byte
}

// RecordID derives the deterministic identity of an uploaded file from its
// name, last-modified timestamp and byte size, so the same physical file
// submitted twice collapses to one record.
func RecordID(fileName string, lastModified, size int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", fileName, lastModified, size)))
	return hex.EncodeToString(sum[:16])
}
