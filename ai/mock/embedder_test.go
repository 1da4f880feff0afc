package mock

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	m := NewMockEmbedder()

	first, err := m.EmbedText(context.Background(), "same text")
	require.NoError(t, err)
	second, err := m.EmbedText(context.Background(), "same text")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 384)
	assert.Equal(t, 2, m.CallCount())
}

func TestMockEmbedderConcurrentCallCount(t *testing.T) {
	m := NewMockEmbedder()

	const goroutines = 16
	const callsEach = 25

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < callsEach; i++ {
				_, err := m.EmbedText(context.Background(), "chunk text")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*callsEach, m.CallCount())
}

func TestMockEmbedderReset(t *testing.T) {
	m := NewMockEmbedder()
	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}

	_, err := m.EmbedText(context.Background(), "text")
	require.NoError(t, err)
	require.Equal(t, 1, m.CallCount())

	m.Reset()
	assert.Zero(t, m.CallCount())
	assert.Nil(t, m.EmbedTextFunc)
}
