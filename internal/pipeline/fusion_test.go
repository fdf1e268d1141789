package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docvec/internal/store"
)

type fakeLexical struct {
	hits []store.LexicalHit
}

func (f *fakeLexical) Index(vectorID string, meta store.Metadata) error { return nil }
func (f *fakeLexical) Remove(vectorID string) error                     { return nil }
func (f *fakeLexical) Search(query string, k int) ([]store.LexicalHit, error) {
	if len(f.hits) > k {
		return f.hits[:k], nil
	}
	return f.hits, nil
}
func (f *fakeLexical) AllIDs() []string { return nil }
func (f *fakeLexical) Close() error     { return nil }

func TestFuseRRFBothListsOutrankSingleList(t *testing.T) {
	vec := []store.ScoredRecord{
		{VectorID: "both", Score: 0.8},
		{VectorID: "vec-only", Score: 0.9},
	}
	lex := []store.LexicalHit{
		{VectorID: "both", Score: 12.0},
		{VectorID: "lex-only", Score: 11.0},
	}

	fused := fuseRRF(vec, lex, DefaultFusionOptions())
	require.Len(t, fused, 3)
	assert.Equal(t, "both", fused[0].VectorID)
	assert.True(t, fused[0].InBoth)
	assert.InDelta(t, 1.0, fused[0].RRFScore, 1e-9)
	for _, c := range fused[1:] {
		assert.Less(t, c.RRFScore, fused[0].RRFScore)
	}
}

func TestFuseRRFEmptyLists(t *testing.T) {
	assert.Nil(t, fuseRRF(nil, nil, DefaultFusionOptions()))

	vecOnly := fuseRRF([]store.ScoredRecord{{VectorID: "a", Score: 0.5}}, nil, DefaultFusionOptions())
	require.Len(t, vecOnly, 1)
	assert.Equal(t, "a", vecOnly[0].VectorID)
}

func TestFuseRRFDeterministicTieBreak(t *testing.T) {
	vec := []store.ScoredRecord{
		{VectorID: "b", Score: 0.5},
	}
	lex := []store.LexicalHit{
		{VectorID: "a", Score: 3.0},
	}
	// b holds vector rank 1, a holds lexical rank 1 with symmetric weights:
	// identical RRF sums, neither in both lists, so the vector score decides
	// (b has 0.5, a has none) before the ascending-VectorID fallback.
	opts := FusionOptions{VectorWeight: 0.5, LexicalWeight: 0.5, RRFConstant: 60}
	fused := fuseRRF(vec, lex, opts)
	require.Len(t, fused, 2)
	assert.Equal(t, "b", fused[0].VectorID)
	assert.Equal(t, "a", fused[1].VectorID)
}

func TestSearchWithLexicalFusionSurfacesKeywordHits(t *testing.T) {
	st := &fakeStore{records: []store.ScoredRecord{
		{VectorID: "v1", Score: 0.9, Metadata: store.Metadata{DocumentID: "d1", Content: "vector neighbor"}},
		{VectorID: "v2", Score: 0.4, Metadata: store.Metadata{DocumentID: "d2", Content: "keyword match for retry backoff"}},
	}}
	p := New(&fakeEmbedder{dim: 8}, st, nil, nil)
	p.Lexical = &fakeLexical{hits: []store.LexicalHit{
		{VectorID: "v2", Score: 9.5},
	}}

	resp, err := p.Search(context.Background(), Request{Query: "retry backoff", IncludeScores: true})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	// v2 appears in both lists, so fusion ranks it above the vector-only v1.
	assert.Equal(t, "v2", resp.Results[0].VectorID)
}

func TestSearchWithLexicalFusionFiltersForeignCollections(t *testing.T) {
	st := &fakeStore{records: []store.ScoredRecord{
		{VectorID: "v1", Score: 0.9, Metadata: store.Metadata{DocumentID: "d1", Content: "in default"}},
		{VectorID: "other", Score: 0, Metadata: store.Metadata{DocumentID: "d9", Content: "elsewhere", Collection: "archive"}},
	}}
	p := New(&fakeEmbedder{dim: 8}, st, nil, nil)
	// The lexical index surfaces a record from another collection; the
	// assemble step must drop it after the metadata lookup.
	p.Lexical = &fakeLexical{hits: []store.LexicalHit{{VectorID: "other", Score: 5.0}}}

	resp, err := p.Search(context.Background(), Request{Query: "anything", IncludeScores: true})
	require.NoError(t, err)
	for _, r := range resp.Results {
		assert.NotEqual(t, "other", r.VectorID)
	}
}
