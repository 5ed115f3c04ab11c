package core

import "fmt"

// RenderError means the document bytes could not be read or a page could not
// be produced. It aborts the current file only, never the batch.
type RenderError struct {
	Msg string
	Err error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *RenderError) Unwrap() error { return e.Err }

// RecognitionError means the external recognition call failed (network,
// quota, malformed response). It aborts the current file only.
type RecognitionError struct {
	Msg string
	Err error
}

func (e *RecognitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *RecognitionError) Unwrap() error { return e.Err }
