package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/corpus/core"
)

// MockClassifier is a test double for ai.Classifier.
// It allows custom behavior injection via function fields.
type MockClassifier struct {
	// ClassifyTagsFunc is called by ClassifyTags if set.
	// If nil, uses the taxonomy keyword scan as default behavior.
	ClassifyTagsFunc func(ctx context.Context, text string) ([]string, error)

	callCount atomic.Int64
}

// NewMockClassifier creates a mock classifier with default keyword behavior.
// Note: Returns concrete type to allow test assertions via GetMockClassifier().
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{}
}

// ClassifyTags assigns tags using the taxonomy keyword scan.
func (m *MockClassifier) ClassifyTags(ctx context.Context, text string) ([]string, error) {
	m.callCount.Add(1)

	if m.ClassifyTagsFunc != nil {
		return m.ClassifyTagsFunc(ctx, text)
	}

	return core.SuggestTags(text), nil
}

// CallCount returns the number of times ClassifyTags was called.
func (m *MockClassifier) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockClassifier) Reset() {
	m.callCount.Store(0)
	m.ClassifyTagsFunc = nil
}
