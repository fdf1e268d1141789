package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/Aman-CERP/docvec/internal/docerrors"
	"github.com/Aman-CERP/docvec/internal/embed"
	"github.com/Aman-CERP/docvec/internal/enhance"
	"github.com/Aman-CERP/docvec/internal/rerank"
	"github.com/Aman-CERP/docvec/internal/store"
)

// Pipeline wires the search stages together. Enhancer and Reranker are
// optional: a nil Enhancer or Reranker makes its stage a no-op.
type Pipeline struct {
	Enhancer  *enhance.Enhancer
	Embedder  embed.Embedder
	Store     store.Store
	Reranker  *rerank.Reranker
	OverFetch int

	// Lexical, when set, makes Retrieve a hybrid stage: the vector scan's
	// candidates are fused with BM25 keyword hits by reciprocal rank fusion
	// before reranking. Nil keeps Retrieve vector-only.
	Lexical store.LexicalIndex
	Fusion  FusionOptions
}

// New builds a Pipeline. Embedder and Store are required; Enhancer and
// Reranker may be nil.
func New(embedder embed.Embedder, st store.Store, enhancer *enhance.Enhancer, reranker *rerank.Reranker) *Pipeline {
	return &Pipeline{
		Enhancer:  enhancer,
		Embedder:  embedder,
		Store:     st,
		Reranker:  reranker,
		OverFetch: DefaultOverFetch,
	}
}

// Search runs the seven-stage pipeline against req and returns a Response.
// It checks ctx for cancellation between each stage so a caller can cut a
// slow embed or retrieve short without corrupting partial state.
func (p *Pipeline) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	req = normalizeRequest(req)
	if req.Query == "" {
		return nil, docerrors.Validation("search query must not be empty", nil)
	}

	// Stage 1: Enhance.
	queryText := req.Query
	var enhancedTerms []string
	if p.Enhancer != nil {
		eq := p.Enhancer.Enhance(req.Query)
		queryText = eq.EnhancedText
		enhancedTerms = splitTerms(req.Query, eq.SynonymsAdded)
	}
	if err := ctx.Err(); err != nil {
		return nil, docerrors.Cancelled("search cancelled during enhance stage", err)
	}

	// Stage 2: Embed.
	queryVec, err := p.Embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, docerrors.EmbedderErr("failed to embed query", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, docerrors.Cancelled("search cancelled during embed stage", err)
	}

	// Stage 3: Retrieve.
	overFetch := p.OverFetch
	if overFetch <= 0 {
		overFetch = DefaultOverFetch
	}
	fetchK := req.Limit * overFetch
	scored, err := p.Store.SearchInCollection(ctx, req.Collection, queryVec, fetchK)
	if err != nil {
		return nil, docerrors.Storage("failed to retrieve candidates", err)
	}
	results, err := p.assembleCandidates(ctx, req, queryText, scored, fetchK)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, docerrors.Cancelled("search cancelled during retrieve stage", err)
	}

	// Stage 4: Rerank.
	if p.Reranker != nil {
		terms := enhancedTerms
		if len(terms) == 0 {
			terms = rerank.InferQueryTerms(results)
		}
		results = p.Reranker.Rank(results, terms)
	} else {
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].Score != results[j].Score {
				return results[i].Score > results[j].Score
			}
			return results[i].VectorID < results[j].VectorID
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, docerrors.Cancelled("search cancelled during rerank stage", err)
	}

	// Stage 5: Filter.
	filtered := make([]rerank.Result, 0, len(results))
	for _, r := range results {
		if r.Score < req.MinConfidence {
			continue
		}
		if !matchesAll(r.Metadata, req.MetadataFilters) {
			continue
		}
		filtered = append(filtered, r)
	}

	// Stage 6: Truncate.
	total := len(filtered)
	if len(filtered) > req.Limit {
		filtered = filtered[:req.Limit]
	}

	// Stage 7: Project.
	out := make([]Result, len(filtered))
	for i, r := range filtered {
		out[i] = Result{
			VectorID:    r.VectorID,
			Content:     r.Metadata.Content,
			Title:       r.Metadata.Title,
			HeadingPath: r.Metadata.HeadingPath,
			URL:         r.Metadata.URL,
			Collection:  r.Metadata.EffectiveCollection(),
			Custom:      r.Metadata.Custom,
		}
		if req.IncludeScores {
			out[i].Score = r.Score
		}
		if req.IncludeExplanations {
			out[i].Explanation = r.Explanation
		}
	}

	return &Response{
		Results:          out,
		TotalCount:       total,
		ProcessingTimeMS: elapsedMS(start),
	}, nil
}

// assembleCandidates turns the Retrieve stage's raw hits into reranker
// inputs. With no lexical index the vector scan's candidates pass through
// unchanged; with one, the vector and BM25 lists are RRF-fused, candidates
// surfaced only by the keyword side get their metadata fetched from the
// store, and the fused score becomes the retrieval-stage score. A failing
// lexical search degrades to vector-only rather than failing the request.
func (p *Pipeline) assembleCandidates(ctx context.Context, req Request, queryText string, scored []store.ScoredRecord, fetchK int) ([]rerank.Result, error) {
	var hits []store.LexicalHit
	if p.Lexical != nil {
		hits, _ = p.Lexical.Search(queryText, fetchK)
	}

	if len(hits) == 0 {
		results := make([]rerank.Result, len(scored))
		for i, s := range scored {
			results[i] = rerank.Result{VectorID: s.VectorID, VectorScore: s.Score, Score: s.Score, Metadata: s.Metadata}
		}
		return results, nil
	}

	metaByID := make(map[string]store.Metadata, len(scored))
	for _, s := range scored {
		metaByID[s.VectorID] = s.Metadata
	}

	opts := p.Fusion
	if opts.VectorWeight == 0 && opts.LexicalWeight == 0 {
		opts = DefaultFusionOptions()
	}
	fused := fuseRRF(scored, hits, opts)

	results := make([]rerank.Result, 0, len(fused))
	for _, c := range fused {
		if len(results) == fetchK {
			break
		}
		meta, ok := metaByID[c.VectorID]
		if !ok {
			// Lexical-only candidate: materialize its metadata and keep it
			// only if it belongs to the requested collection.
			rec, found, err := p.Store.Get(ctx, c.VectorID)
			if err != nil || !found {
				continue
			}
			if rec.Metadata.EffectiveCollection() != req.Collection {
				continue
			}
			meta = rec.Metadata
		}
		results = append(results, rerank.Result{
			VectorID:    c.VectorID,
			VectorScore: c.RRFScore,
			Score:       c.RRFScore,
			Metadata:    meta,
		})
	}
	return results, nil
}

// splitTerms combines the original query's own words with any enhancer
// expansions into a flat term list for the reranker's relevance signals.
func splitTerms(query string, expansions []string) []string {
	terms := make([]string, 0, len(expansions)+4)
	terms = append(terms, fieldsLower(query)...)
	terms = append(terms, expansions...)
	return terms
}

func fieldsLower(s string) []string {
	var out []string
	word := make([]byte, 0, 16)
	flush := func() {
		if len(word) > 0 {
			out = append(out, string(word))
			word = word[:0]
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			word = append(word, c+32)
		case c >= 'a' && c <= 'z' || c >= '0' && c <= '9':
			word = append(word, c)
		default:
			flush()
		}
	}
	flush()
	return out
}
