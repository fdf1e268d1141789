// Package retrieval is docvec's control surface: a single facade
// (index, search, delete document, count, health) wiring the chunker,
// embedder, vector store, lexical index, enhancer, and reranker into a
// single library entry point that cmd/docvec's CLI and any embedding Go
// program can call directly.
package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/docvec/internal/chunk"
	"github.com/Aman-CERP/docvec/internal/config"
	"github.com/Aman-CERP/docvec/internal/docerrors"
	"github.com/Aman-CERP/docvec/internal/document"
	"github.com/Aman-CERP/docvec/internal/embed"
	"github.com/Aman-CERP/docvec/internal/enhance"
	"github.com/Aman-CERP/docvec/internal/gitignore"
	"github.com/Aman-CERP/docvec/internal/pipeline"
	"github.com/Aman-CERP/docvec/internal/rerank"
	"github.com/Aman-CERP/docvec/internal/store"
	"github.com/Aman-CERP/docvec/internal/telemetry"
)

// maxCollectionFanout and maxBatchFanout bound the number of concurrent
// pipeline searches SearchCollections/BatchSearch run at once, the same
// counting-semaphore idiom internal/eval uses to bound its own fan-out.
const (
	maxCollectionFanout = 8
	maxBatchFanout      = 8

	// MaxBatchSearchSize caps BatchSearchRequest.Requests, so one call can't
	// start an unbounded number of concurrent pipeline searches.
	MaxBatchSearchSize = 50
)

// Service is the assembled retrieval system: the embedded vector store plus
// optional lexical index, wired through a search Pipeline.
type Service struct {
	cfg      *config.Config
	store    store.Store
	state    store.StateStore
	lexical  store.LexicalIndex
	embedder embed.Embedder
	enhancer *enhance.Enhancer
	reranker *rerank.Reranker
	pipeline *pipeline.Pipeline
	metrics  *telemetry.QueryMetrics
	log      *slog.Logger
}

// Open assembles a Service from cfg: it opens the SQLite-backed vector
// store at cfg.Store.Path, optionally builds a lexical index, and wires the
// query enhancer and reranker per cfg.
func Open(cfg *config.Config, embedder embed.Embedder, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}

	st, err := store.OpenSQLiteStore(cfg.Store.Path, cfg.Store.Dimension, cfg.Store.CacheSize)
	if err != nil {
		return nil, docerrors.Storage("failed to open vector store", err)
	}

	lex, err := store.NewLexicalIndex(context.Background(), cfg.Store.LexicalBackend, st)
	if err != nil {
		st.Close()
		return nil, docerrors.Storage("failed to open lexical index", err)
	}
	if lex != nil {
		st.SetLexicalIndex(lex)
	}

	enhancer := enhance.New()

	rerankCfg := rerank.DefaultConfig()
	rerankCfg.Weights = rerank.Weights{
		Vector:   cfg.Rerank.VectorSimilarityWeight,
		Content:  cfg.Rerank.ContentRelevanceWeight,
		Title:    cfg.Rerank.TitleBoostWeight,
		Recency:  cfg.Rerank.RecencyWeight,
		Metadata: cfg.Rerank.MetadataRelevanceWeight,
	}
	reranker, err := rerank.New(rerankCfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	pipe := pipeline.New(embedder, st, enhancer, reranker)
	pipe.Lexical = lex
	pipe.Fusion = pipeline.FusionOptions{
		VectorWeight:  cfg.Fusion.VectorWeight,
		LexicalWeight: cfg.Fusion.LexicalWeight,
		RRFConstant:   cfg.Fusion.RRFConstant,
	}

	if err := telemetry.InitTelemetrySchema(st.DB()); err != nil {
		st.Close()
		return nil, docerrors.Storage("failed to initialize telemetry schema", err)
	}
	metricsStore, err := telemetry.NewSQLiteMetricsStore(st.DB())
	if err != nil {
		st.Close()
		return nil, docerrors.Storage("failed to open query metrics store", err)
	}

	return &Service{
		cfg:      cfg,
		store:    st,
		state:    st,
		lexical:  lex,
		embedder: embedder,
		enhancer: enhancer,
		reranker: reranker,
		pipeline: pipe,
		metrics:  telemetry.NewQueryMetrics(metricsStore),
		log:      log,
	}, nil
}

// Close releases the store's file handles and the lexical index.
func (s *Service) Close() error {
	if s.lexical != nil {
		if err := s.lexical.Close(); err != nil {
			s.log.Warn("failed to close lexical index", "error", err)
		}
	}
	if err := s.metrics.Close(); err != nil {
		s.log.Warn("failed to close query metrics", "error", err)
	}
	return s.store.Close()
}

// Metrics returns a snapshot of this Service's query telemetry: query type
// mix, top terms, zero-result queries, and latency distribution.
func (s *Service) Metrics() *telemetry.QueryMetricsSnapshot {
	return s.metrics.Snapshot()
}

// IndexFilters controls traversal during Index.
type IndexFilters struct {
	SafePatterns        []string
	IgnorePatterns      []string
	ClearDefaultIgnores bool
	FollowSymlinks      bool
	CaseSensitive       bool
}

// IndexResult reports the outcome of an Index call.
type IndexResult struct {
	DocsProcessed int
	ElapsedMS     int64
}

var defaultIgnorePatterns = []string{
	".git/", "node_modules/", "vendor/", ".docvec/",
	"*.lock", "*.log",
}

// Index walks root, chunks and embeds every matching document, and upserts
// the resulting records into collection.
func (s *Service) Index(ctx context.Context, root string, collection string, recursive bool, filters IndexFilters) (IndexResult, error) {
	start := time.Now()
	if collection == "" {
		collection = store.DefaultCollection
	}

	// Every run gets its own ID so log lines from interleaved or resumed
	// runs over the same root stay attributable.
	runID := uuid.NewString()
	runLog := s.log.With(slog.String("index_run", runID), slog.String("root", root))

	matcher := gitignore.New()
	if !filters.ClearDefaultIgnores {
		for _, p := range defaultIgnorePatterns {
			matcher.AddPattern(p)
		}
		if err := matcher.AddFromFile(filepath.Join(root, ".gitignore"), ""); err != nil && !errors.Is(err, os.ErrNotExist) {
			runLog.Warn("failed to read .gitignore", "error", err)
		}
	}
	for _, p := range filters.IgnorePatterns {
		matcher.AddPattern(p)
	}

	processed := 0
	chunkCfg := chunk.DefaultConfig()
	if s.cfg != nil {
		chunkCfg = chunkConfigFrom(s.cfg.Chunk)
	}

	// A crashed or cancelled run leaves a checkpoint behind; since
	// filepath.Walk visits paths in lexical order, resuming means skipping
	// everything at or before the last recorded path.
	cp := s.loadCheckpoint(ctx, root, collection)
	if cp.LastPath != "" {
		runLog.Info("resuming from checkpoint", "last_path", cp.LastPath, "already_processed", cp.Processed)
		processed = cp.Processed
	}

	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			if !recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 && !filters.FollowSymlinks {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		if cp.LastPath != "" && rel <= cp.LastPath {
			return nil
		}
		if isIgnored(rel, matcher, filters.SafePatterns, filters.CaseSensitive) {
			return nil
		}
		if !isIndexableExt(path) {
			return nil
		}

		if err := s.indexFile(ctx, root, path, rel, collection, chunkCfg); err != nil {
			runLog.Warn("failed to index file", "path", path, "error", err)
			return nil
		}
		processed++
		if processed%checkpointEvery == 0 {
			s.saveCheckpoint(ctx, root, collection, indexCheckpoint{RunID: runID, LastPath: rel, Processed: processed})
		}
		return nil
	})
	if walkErr != nil {
		// Keep the checkpoint so the next run resumes instead of
		// re-embedding everything already committed.
		return IndexResult{}, docerrors.Storage("failed to walk index root", walkErr)
	}

	s.clearCheckpoint(ctx, root, collection)
	return IndexResult{DocsProcessed: processed, ElapsedMS: time.Since(start).Milliseconds()}, nil
}

const checkpointEvery = 25

// indexCheckpoint is the resumable-indexing marker persisted in the store's
// state table every checkpointEvery documents.
type indexCheckpoint struct {
	RunID     string `json:"run_id"`
	LastPath  string `json:"last_path"`
	Processed int    `json:"processed"`
}

func checkpointKey(root, collection string) string {
	return "index_checkpoint:" + collection + ":" + root
}

func (s *Service) loadCheckpoint(ctx context.Context, root, collection string) indexCheckpoint {
	var cp indexCheckpoint
	if s.state == nil {
		return cp
	}
	raw, ok, err := s.state.LoadState(ctx, checkpointKey(root, collection))
	if err != nil || !ok {
		return cp
	}
	if err := json.Unmarshal([]byte(raw), &cp); err != nil {
		return indexCheckpoint{}
	}
	return cp
}

func (s *Service) saveCheckpoint(ctx context.Context, root, collection string, cp indexCheckpoint) {
	if s.state == nil {
		return
	}
	raw, err := json.Marshal(cp)
	if err != nil {
		return
	}
	if err := s.state.SaveState(ctx, checkpointKey(root, collection), string(raw)); err != nil {
		s.log.Warn("failed to save indexing checkpoint", "root", root, "error", err)
	}
}

func (s *Service) clearCheckpoint(ctx context.Context, root, collection string) {
	if s.state == nil {
		return
	}
	if err := s.state.ClearState(ctx, checkpointKey(root, collection)); err != nil {
		s.log.Warn("failed to clear indexing checkpoint", "root", root, "error", err)
	}
}

func isIgnored(rel string, matcher *gitignore.Matcher, safePatterns []string, caseSensitive bool) bool {
	checkPath := rel
	if !caseSensitive {
		checkPath = strings.ToLower(rel)
	}
	if gitignore.MatchesAnyPattern(checkPath, safePatterns) {
		return false
	}
	return matcher.Match(rel, false)
}

func isIndexableExt(path string) bool {
	switch document.DetectFileType(path) {
	case document.FileTypeMarkdown, document.FileTypeHTML, document.FileTypeText:
		return true
	default:
		return false
	}
}

// indexFile reads, normalizes, chunks, embeds, and upserts a single file.
func (s *Service) indexFile(ctx context.Context, root, absPath, relPath, collection string, chunkCfg chunk.Config) error {
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return docerrors.Storage("failed to read document", err)
	}
	content := string(raw)

	fileType := document.DetectFileType(absPath)
	if fileType == document.FileTypeHTML {
		normalized, err := chunk.NormalizeHTML(content)
		if err != nil {
			return docerrors.Wrap(docerrors.ErrCodeChunkingFailed, err)
		}
		content = normalized
	}

	docID := document.DocumentID(absPath)
	chunks, err := chunk.Chunk(content, docID, chunkCfg)
	if err != nil {
		return docerrors.Wrap(docerrors.ErrCodeChunkingFailed, err)
	}

	stem := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
	title := document.TitleFromContent(content, stem)
	docType := document.ClassifyDocType(relPath, content)
	section := document.SectionLabel(relPath)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, err := embed.EmbedBatchWithRetry(ctx, s.embedder, texts)
	if err != nil {
		return docerrors.EmbedderErr("failed to embed document chunks", err)
	}

	records := make([]store.VectorRecord, len(chunks))
	now := time.Now().UTC()
	for i, c := range chunks {
		meta := store.Metadata{
			DocumentID:  docID,
			ChunkIndex:  c.ChunkIndex,
			Content:     c.Content,
			Title:       title,
			HeadingPath: c.HeadingPath,
			Collection:  collection,
			Custom: map[string]string{
				"section":    section,
				"doc_type":   string(docType),
				"updated_at": now.Format(time.RFC3339),
				"rel_path":   relPath,
			},
		}
		records[i] = store.VectorRecord{VectorID: c.ID, Embedding: embeddings[i], Metadata: meta, CreatedAt: now}
	}

	// Insert also propagates each record into the lexical index the store
	// was wired with, keeping both halves of hybrid search in step.
	if err := s.store.Insert(ctx, records); err != nil {
		return docerrors.Storage("failed to upsert vector records", err)
	}
	return nil
}

// Search runs a query through the pipeline's Enhance -> Embed -> Retrieve ->
// Rerank -> Filter -> Truncate -> Project stages.
func (s *Service) Search(ctx context.Context, req pipeline.Request) (*pipeline.Response, error) {
	resp, err := s.pipeline.Search(ctx, req)
	if err == nil {
		queryType := telemetry.QueryTypeSemantic
		if s.lexical != nil {
			queryType = telemetry.QueryTypeMixed
		}
		s.metrics.Record(telemetry.QueryEvent{
			Query:       req.Query,
			QueryType:   queryType,
			ResultCount: len(resp.Results),
			Latency:     time.Duration(resp.ProcessingTimeMS) * time.Millisecond,
			Timestamp:   time.Now(),
		})
	}
	return resp, err
}

// DeleteDocument removes every chunk belonging to docID from both the
// vector store and the lexical index.
func (s *Service) DeleteDocument(ctx context.Context, docID string) (int, error) {
	ids, err := s.lookupChunkIDs(ctx, docID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, id := range ids {
		ok, err := s.store.Delete(ctx, id)
		if err != nil {
			return deleted, docerrors.Storage("failed to delete vector record", err)
		}
		if ok {
			deleted++
		}
	}
	return deleted, nil
}

// lookupChunkIDs enumerates every vector ID belonging to docID via the
// store's by-document index.
func (s *Service) lookupChunkIDs(ctx context.Context, docID string) ([]string, error) {
	ids, err := s.store.IDsForDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, docerrors.NotFound(docerrors.ErrCodeDocumentNotFound,
			"no chunks found for document "+docID)
	}
	return ids, nil
}

// Count returns the total number of stored records.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// Health reports the store's health.
func (s *Service) Health(ctx context.Context) store.HealthStatus {
	return s.store.HealthCheck(ctx)
}

// Compact reclaims storage after heavy churn.
func (s *Service) Compact(ctx context.Context) error {
	return s.store.Compact(ctx)
}

// CollectionSearchRequest fans a single query out across multiple
// collections: every collection currently in the store when Collections is
// empty, or the named subset otherwise.
type CollectionSearchRequest struct {
	Request pipeline.Request

	// Collections to search; empty means every collection ListCollections
	// currently reports.
	Collections []string

	// MergeResults re-sorts every collection's hits into one globally
	// ranked, limit-truncated list instead of returning them grouped by
	// collection.
	MergeResults bool

	// PerCollection overrides Request.Limit for each individual collection
	// search, independent of the final merged limit.
	PerCollection int
}

// CollectionSearchStats reports per-collection timing and hit counts
// alongside the overall wall-clock time.
type CollectionSearchStats struct {
	CollectionsSearched           []string
	ResultsPerCollection          map[string]int
	ProcessingTimePerCollectionMS map[string]int64
	TotalProcessingTimeMS         int64
}

// CollectionSearchResponse holds either Merged (MergeResults: true) or
// ByCollection (MergeResults: false), never both.
type CollectionSearchResponse struct {
	Merged       []pipeline.Result
	ByCollection map[string][]pipeline.Result
	Stats        CollectionSearchStats
}

// SearchCollections runs req.Request against every target collection
// concurrently, tags each hit with its source collection, and either merges
// everything into one ranked list or returns results grouped by collection.
// A failing individual collection is logged and contributes no results
// rather than failing the whole call.
func (s *Service) SearchCollections(ctx context.Context, req CollectionSearchRequest) (*CollectionSearchResponse, error) {
	start := time.Now()

	targets := req.Collections
	if len(targets) == 0 {
		names, err := s.store.ListCollections(ctx)
		if err != nil {
			return nil, docerrors.Storage("failed to list collections", err)
		}
		targets = names
	}

	var mu sync.Mutex
	byCollection := make(map[string][]pipeline.Result, len(targets))
	timings := make(map[string]int64, len(targets))
	counts := make(map[string]int, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxCollectionFanout)
	for _, name := range targets {
		name := name
		g.Go(func() error {
			collStart := time.Now()
			perReq := req.Request
			perReq.Collection = name
			if req.PerCollection > 0 {
				perReq.Limit = req.PerCollection
			}

			resp, err := s.Search(gctx, perReq)
			elapsed := time.Since(collStart).Milliseconds()

			mu.Lock()
			defer mu.Unlock()
			timings[name] = elapsed
			if err != nil {
				s.log.Warn("collection search failed", "collection", name, "error", err)
				return nil
			}
			for i := range resp.Results {
				resp.Results[i].Collection = name
			}
			byCollection[name] = resp.Results
			counts[name] = len(resp.Results)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := CollectionSearchStats{
		CollectionsSearched:           targets,
		ResultsPerCollection:          counts,
		ProcessingTimePerCollectionMS: timings,
		TotalProcessingTimeMS:         time.Since(start).Milliseconds(),
	}
	out := &CollectionSearchResponse{Stats: stats}

	if !req.MergeResults {
		out.ByCollection = byCollection
		return out, nil
	}

	var merged []pipeline.Result
	for _, results := range byCollection {
		merged = append(merged, results...)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	limit := req.Request.Limit
	if limit <= 0 {
		limit = pipeline.DefaultLimit
	}
	if len(merged) > limit {
		merged = merged[:limit]
	}
	out.Merged = merged
	return out, nil
}

// BatchSearchRequest is a set of independent query requests to run
// concurrently, bounded by MaxBatchSearchSize.
type BatchSearchRequest struct {
	Requests []pipeline.Request
}

// BatchSearchResult is one request's outcome within a batch: Response is
// nil when Err is set.
type BatchSearchResult struct {
	Index     int
	Response  *pipeline.Response
	Err       error
	ElapsedMS int64
}

// batchSearchResultJSON mirrors BatchSearchResult with Err rendered as a
// string, since error has no exported fields for encoding/json to see.
type batchSearchResultJSON struct {
	Index     int                `json:"index"`
	Response  *pipeline.Response `json:"response,omitempty"`
	Err       string             `json:"error,omitempty"`
	ElapsedMS int64              `json:"elapsed_ms"`
}

func (r BatchSearchResult) MarshalJSON() ([]byte, error) {
	j := batchSearchResultJSON{Index: r.Index, Response: r.Response, ElapsedMS: r.ElapsedMS}
	if r.Err != nil {
		j.Err = r.Err.Error()
	}
	return json.Marshal(j)
}

// BatchSearchResponse reports every request's outcome plus a headline
// success rate.
type BatchSearchResponse struct {
	Results          []BatchSearchResult
	ProcessingTimeMS int64
	SuccessRate      float64
}

// BatchSearch runs every request in req.Requests concurrently, bounded by
// maxBatchFanout, and collects each one's outcome independently — one
// failing or slow query never blocks or fails the rest of the batch.
func (s *Service) BatchSearch(ctx context.Context, req BatchSearchRequest) (*BatchSearchResponse, error) {
	if len(req.Requests) > MaxBatchSearchSize {
		return nil, docerrors.Validation(
			fmt.Sprintf("batch size %d exceeds maximum %d", len(req.Requests), MaxBatchSearchSize), nil)
	}

	start := time.Now()
	results := make([]BatchSearchResult, len(req.Requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBatchFanout)
	for i, r := range req.Requests {
		i, r := i, r
		g.Go(func() error {
			reqStart := time.Now()
			resp, err := s.Search(gctx, r)
			results[i] = BatchSearchResult{
				Index:     i,
				Response:  resp,
				Err:       err,
				ElapsedMS: time.Since(reqStart).Milliseconds(),
			}
			return nil
		})
	}
	_ = g.Wait() // per-request errors are captured above, never propagated

	successful := 0
	for _, r := range results {
		if r.Err == nil {
			successful++
		}
	}
	successRate := 0.0
	if len(results) > 0 {
		successRate = float64(successful) / float64(len(results))
	}

	return &BatchSearchResponse{
		Results:          results,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
		SuccessRate:      successRate,
	}, nil
}

func chunkConfigFrom(c config.ChunkConfig) chunk.Config {
	strategy := chunk.Strategy(c.Strategy)
	switch strategy {
	case chunk.ByHeading, chunk.BySize, chunk.Hybrid, chunk.Semantic:
	default:
		strategy = chunk.Hybrid
	}
	return chunk.Config{
		Strategy:              strategy,
		MaxChunkSize:          c.MaxChunkSize,
		MinChunkSize:          c.MinChunkSize,
		ChunkOverlap:          c.ChunkOverlap,
		MaxHeadingDepth:       c.MaxHeadingDepth,
		IncludeHeadingContext: c.IncludeHeadingContext,
		PreserveCodeBlocks:    c.PreserveCodeBlocks,
		PreserveTables:        c.PreserveTables,
	}
}
