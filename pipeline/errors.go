package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrConverterRequired is returned when a markdown converter is not provided.
	ErrConverterRequired = errors.New("converter required")
)

// StageError reports a pipeline halt: the stage that failed and every
// error the run accumulated up to that point.
type StageError struct {
	Stage string
	Errs  []error
}

func (e *StageError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("pipeline halted at stage %s: %s", e.Stage, strings.Join(msgs, "; "))
}

// Unwrap exposes the accumulated errors for errors.Is classification.
func (e *StageError) Unwrap() []error {
	return e.Errs
}
