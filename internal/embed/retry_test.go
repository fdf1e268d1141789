package embed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedBatchWithRetry_SuccessOnFirstTry(t *testing.T) {
	m := newMockEmbedder(4)

	vecs, err := EmbedBatchWithRetry(context.Background(), m, []string{"a", "b"})

	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, int64(1), m.batchCalls.Load())
}

func TestEmbedBatchWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	f := &flakyEmbedder{
		mockEmbedder: newMockEmbedder(4),
		failUntil:    2,
		attempts:     &attempts,
	}

	vecs, err := EmbedBatchWithRetry(context.Background(), f, []string{"a"})

	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Equal(t, 3, attempts)
}

func TestEmbedBatchWithRetry_FailsAfterMaxRetries(t *testing.T) {
	f := &flakyEmbedder{mockEmbedder: newMockEmbedder(4), failUntil: 1000}

	_, err := EmbedBatchWithRetry(context.Background(), f, []string{"a"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after")
}

func TestEmbedBatchWithRetry_ContextCancellation(t *testing.T) {
	f := &flakyEmbedder{mockEmbedder: newMockEmbedder(4), failUntil: 1000}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := EmbedBatchWithRetry(ctx, f, []string{"a"})
	require.Error(t, err)
}

func TestWithRetry_SucceedsWithinBudget(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 3, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_ExhaustsRetries(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 2, func() error {
		calls++
		return errors.New("permanent")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls) // initial + 2 retries
	assert.Contains(t, err.Error(), "permanent")
}

// flakyEmbedder fails EmbedBatch for the first failUntil calls, then delegates.
type flakyEmbedder struct {
	*mockEmbedder
	failUntil int
	attempts  *int
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.attempts != nil {
		*f.attempts++
	}
	calls := f.batchCalls.Load()
	if int(calls) < f.failUntil {
		f.batchCalls.Add(1)
		return nil, errors.New("temporary embedding failure")
	}
	return f.mockEmbedder.EmbedBatch(ctx, texts)
}
