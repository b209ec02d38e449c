package pipeline

import (
	"errors"
	"fmt"
)

// ErrBatch marks errors that stop a run before any file is processed.
var ErrBatch = errors.New("batch aborted")

// Failure kinds. A *Failure matches its kind with errors.Is.
var (
	ErrExtraction  = errors.New("extraction failed")
	ErrWrite       = errors.New("text write failed")
	ErrPersistence = errors.New("persistence failed")
	ErrMove        = errors.New("move failed")
)

// Failure is a per-file error. The run continues after one.
type Failure struct {
	Kind error
	File string
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v: %v", f.File, f.Kind, f.Err)
}

func (f *Failure) Unwrap() []error {
	return []error{f.Kind, f.Err}
}

// Stage returns a short label for the failure kind.
func (f *Failure) Stage() string {
	switch f.Kind {
	case ErrExtraction:
		return "extraction"
	case ErrWrite:
		return "write"
	case ErrPersistence:
		return "persistence"
	case ErrMove:
		return "move"
	}
	return "unknown"
}
