package eval

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Aman-CERP/docvec/internal/docerrors"
)

// SearchFunc runs one query against the system under evaluation and returns
// its ranked results.
type SearchFunc func(ctx context.Context, query string) ([]RankedDoc, error)

// RunDataset scores every example in dataset against search, fanning the
// queries out across maxConcurrency workers bounded by a counting
// semaphore. The returned map is
// keyed by query text for use with Aggregate/CompareSystems.
func RunDataset(ctx context.Context, dataset EvaluationDataset, search SearchFunc, maxConcurrency int) (map[string][]RankedDoc, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = 8
	}

	sem := semaphore.NewWeighted(int64(maxConcurrency))
	g, gctx := errgroup.WithContext(ctx)

	results := make(map[string][]RankedDoc, len(dataset.Examples))
	var mu sync.Mutex

	for _, ex := range dataset.Examples {
		ex := ex
		if err := sem.Acquire(gctx, 1); err != nil {
			return nil, docerrors.Cancelled("evaluation run cancelled while acquiring a worker slot", err)
		}
		g.Go(func() error {
			defer sem.Release(1)
			ranked, err := search(gctx, ex.Query)
			if err != nil {
				return docerrors.Wrap(docerrors.ErrCodeInternal, err)
			}
			mu.Lock()
			results[ex.Query] = ranked
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
