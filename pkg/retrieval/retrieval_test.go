package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docvec/internal/config"
	"github.com/Aman-CERP/docvec/internal/embed"
	"github.com/Aman-CERP/docvec/internal/pipeline"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(dir, "docvec.db")
	cfg.Store.Dimension = embed.StaticDimensions
	cfg.Store.LexicalBackend = "bleve"

	svc, err := Open(cfg, embed.NewStaticEmbedder(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestIndexAndSearchRoundTrip(t *testing.T) {
	docsDir := t.TempDir()
	writeDoc(t, docsDir, "retries.md", "# Retry Policy\n\nThis guide explains how to configure retry backoff for the embedder client.\n")
	writeDoc(t, docsDir, "other.md", "# Unrelated\n\nSomething about widgets and gadgets.\n")

	svc := newTestService(t)

	res, err := svc.Index(context.Background(), docsDir, "", true, IndexFilters{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.DocsProcessed)

	count, err := svc.Count(context.Background())
	require.NoError(t, err)
	assert.Greater(t, count, 0)

	resp, err := svc.Search(context.Background(), pipeline.Request{Query: "retry backoff", Limit: 5, IncludeScores: true})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
}

func TestHealthReportsHealthy(t *testing.T) {
	svc := newTestService(t)
	health := svc.Health(context.Background())
	assert.NotEmpty(t, health.Status)
}

func TestSearchCollectionsMergesAcrossCollections(t *testing.T) {
	// Document IDs hash the absolute path, so each collection gets its own
	// directory; indexing one file twice would upsert the same records.
	runbooksDir := t.TempDir()
	writeDoc(t, runbooksDir, "retries.md", "# Retry Policy\n\nThis guide explains how to configure retry backoff for the embedder client.\n")
	oncallDir := t.TempDir()
	writeDoc(t, oncallDir, "retries.md", "# Retry Policy\n\nThis guide explains how to configure retry backoff for the embedder client.\n")

	svc := newTestService(t)

	_, err := svc.Index(context.Background(), runbooksDir, "runbooks", true, IndexFilters{})
	require.NoError(t, err)
	_, err = svc.Index(context.Background(), oncallDir, "oncall", true, IndexFilters{})
	require.NoError(t, err)

	resp, err := svc.SearchCollections(context.Background(), CollectionSearchRequest{
		Request:      pipeline.Request{Query: "retry backoff", Limit: 5, IncludeScores: true},
		MergeResults: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Merged)
	assert.ElementsMatch(t, []string{"runbooks", "oncall"}, resp.Stats.CollectionsSearched)
}

func TestSearchCollectionsGroupsByCollectionWhenNotMerged(t *testing.T) {
	docsDir := t.TempDir()
	writeDoc(t, docsDir, "retries.md", "# Retry Policy\n\nThis guide explains how to configure retry backoff for the embedder client.\n")

	svc := newTestService(t)
	_, err := svc.Index(context.Background(), docsDir, "runbooks", true, IndexFilters{})
	require.NoError(t, err)

	resp, err := svc.SearchCollections(context.Background(), CollectionSearchRequest{
		Request:     pipeline.Request{Query: "retry backoff", Limit: 5, IncludeScores: true},
		Collections: []string{"runbooks"},
	})
	require.NoError(t, err)
	require.Nil(t, resp.Merged)
	require.NotEmpty(t, resp.ByCollection["runbooks"])
}

func TestBatchSearchReportsPerQueryOutcomes(t *testing.T) {
	docsDir := t.TempDir()
	writeDoc(t, docsDir, "retries.md", "# Retry Policy\n\nThis guide explains how to configure retry backoff for the embedder client.\n")

	svc := newTestService(t)
	_, err := svc.Index(context.Background(), docsDir, "", true, IndexFilters{})
	require.NoError(t, err)

	resp, err := svc.BatchSearch(context.Background(), BatchSearchRequest{
		Requests: []pipeline.Request{
			{Query: "retry backoff", Limit: 5},
			{Query: "widgets", Limit: 5},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, float64(1), resp.SuccessRate)
	for _, r := range resp.Results {
		assert.NoError(t, r.Err)
		assert.NotNil(t, r.Response)
	}
}

func TestBatchSearchRejectsOversizedBatch(t *testing.T) {
	svc := newTestService(t)

	reqs := make([]pipeline.Request, MaxBatchSearchSize+1)
	for i := range reqs {
		reqs[i] = pipeline.Request{Query: "x"}
	}

	_, err := svc.BatchSearch(context.Background(), BatchSearchRequest{Requests: reqs})
	require.Error(t, err)
}

func TestIndexRespectsIgnorePatterns(t *testing.T) {
	docsDir := t.TempDir()
	writeDoc(t, docsDir, "keep.md", "# Keep\n\nKeep this one.\n")
	require.NoError(t, os.Mkdir(filepath.Join(docsDir, "node_modules"), 0o755))
	writeDoc(t, docsDir, "node_modules/skip.md", "# Skip\n\nDo not index this.\n")

	svc := newTestService(t)
	res, err := svc.Index(context.Background(), docsDir, "", true, IndexFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.DocsProcessed)
}

func TestIndexResumesFromCheckpoint(t *testing.T) {
	docsDir := t.TempDir()
	writeDoc(t, docsDir, "a.md", "# A\n\nFirst document body.\n")
	writeDoc(t, docsDir, "b.md", "# B\n\nSecond document body.\n")
	writeDoc(t, docsDir, "c.md", "# C\n\nThird document body.\n")

	svc := newTestService(t)
	ctx := context.Background()

	// Simulate a crashed run that committed a.md before dying.
	svc.saveCheckpoint(ctx, docsDir, "default", indexCheckpoint{RunID: "r1", LastPath: "a.md", Processed: 1})

	res, err := svc.Index(ctx, docsDir, "", true, IndexFilters{})
	require.NoError(t, err)
	// One document is carried over from the checkpoint, two are indexed now.
	assert.Equal(t, 3, res.DocsProcessed)

	// A successful run clears its checkpoint.
	cp := svc.loadCheckpoint(ctx, docsDir, "default")
	assert.Empty(t, cp.LastPath)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Greater(t, count, 0)
}
