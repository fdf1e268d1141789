package embed

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// IndexingRetryBase, IndexingRetryCap, and IndexingMaxRetries are the
// backoff parameters the indexing path uses when a batch embed call fails:
// base 200ms, cap 30s, max 3 retries, plus jitter. The query path does not
// call EmbedBatchWithRetry, but HTTPEmbedder.EmbedBatch retries transient
// failures on its own (up to HTTPConfig.MaxRetries) on every path, query
// path included.
const (
	IndexingRetryBase  = 200 * time.Millisecond
	IndexingRetryCap   = 30 * time.Second
	IndexingMaxRetries = 3
)

// EmbedBatchWithRetry calls embedder.EmbedBatch, retrying failures with
// exponential backoff plus jitter up to IndexingMaxRetries times, per the
// indexing path's retry contract.
func EmbedBatchWithRetry(ctx context.Context, embedder Embedder, texts []string) ([][]float32, error) {
	delay := IndexingRetryBase
	var lastErr error

	for attempt := 0; attempt <= IndexingMaxRetries; attempt++ {
		vecs, err := embedder.EmbedBatch(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		if attempt == IndexingMaxRetries {
			break
		}

		jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay + jitter):
		}

		delay *= 2
		if delay > IndexingRetryCap {
			delay = IndexingRetryCap
		}
	}
	return nil, fmt.Errorf("embed batch failed after %d retries: %w", IndexingMaxRetries, lastErr)
}

// withRetry runs fn up to maxRetries+1 times with exponential backoff,
// stopping early on context cancellation. It backs the HTTP embedder's
// transient-failure handling.
func withRetry(ctx context.Context, maxRetries int, fn func() error) error {
	delay := IndexingRetryBase
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := fn(); err != nil {
			lastErr = err
			if attempt == maxRetries {
				break
			}
			jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay + jitter):
			}
			delay *= 2
			if delay > IndexingRetryCap {
				delay = IndexingRetryCap
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
