package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/Aman-CERP/docvec/internal/docerrors"
)

// LexicalIndex is the optional keyword-matching side of hybrid search,
// kept in sync with SQLiteStore via Index/Remove and queried by the
// pipeline's reciprocal-rank-fusion step.
type LexicalIndex interface {
	Index(vectorID string, meta Metadata) error
	Remove(vectorID string) error
	Search(query string, k int) ([]LexicalHit, error)
	AllIDs() []string
	Close() error
}

// LexicalHit is one BM25-ranked keyword match.
type LexicalHit struct {
	VectorID string
	Score    float64
}

// Lexical backend names accepted by NewLexicalIndex.
const (
	LexicalBackendSQLite = "sqlite"
	LexicalBackendBleve  = "bleve"
)

// NewLexicalIndex builds the lexical index backend named by backend, wired
// against st. "sqlite" persists an FTS5 table inside the vector store's own
// database file; "bleve" builds an in-memory index and rebuilds it from the
// store's current contents, which keeps the on-disk footprint to one file
// at the cost of a startup scan. An empty backend disables lexical search.
func NewLexicalIndex(ctx context.Context, backend string, st *SQLiteStore) (LexicalIndex, error) {
	switch backend {
	case "":
		return nil, nil
	case LexicalBackendSQLite:
		return NewSQLiteLexicalIndex(st.DB())
	case LexicalBackendBleve:
		idx, err := NewBleveLexicalIndex()
		if err != nil {
			return nil, err
		}
		err = st.ScanRecords(ctx, func(rec VectorRecord) error {
			return idx.Index(rec.VectorID, rec.Metadata)
		})
		if err != nil {
			idx.Close()
			return nil, err
		}
		return idx, nil
	default:
		return nil, docerrors.Validation("unknown lexical backend: "+backend, nil)
	}
}

// BleveLexicalIndex backs LexicalIndex with an in-memory Bleve index built
// over the document's own content, title and heading path, using Bleve's
// standard BM25-scoring analyzer since the corpus is prose, not source
// identifiers.
type BleveLexicalIndex struct {
	mu  sync.RWMutex
	idx bleve.Index
}

// docFields is what gets indexed per vector_id; it mirrors the subset of
// Metadata that is meaningfully searchable as free text.
type docFields struct {
	Content     string `json:"content"`
	Title       string `json:"title"`
	HeadingPath string `json:"heading_path"`
}

// NewBleveLexicalIndex builds a fresh in-memory Bleve index. docvec rebuilds
// the lexical index from the vector store on startup rather than persisting
// it, keeping the on-disk footprint to the single SQLite store file.
func NewBleveLexicalIndex() (*BleveLexicalIndex, error) {
	mapping := bleve.NewIndexMapping()

	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, docerrors.Internal("failed to create lexical index", err)
	}
	return &BleveLexicalIndex{idx: idx}, nil
}

func (b *BleveLexicalIndex) Index(vectorID string, meta Metadata) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc := docFields{
		Content:     meta.Content,
		Title:       meta.Title,
		HeadingPath: strings.Join(meta.HeadingPath, " / "),
	}
	if err := b.idx.Index(vectorID, doc); err != nil {
		return docerrors.Storage("failed to index document into lexical index", err)
	}
	return nil
}

func (b *BleveLexicalIndex) Remove(vectorID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.idx.Delete(vectorID); err != nil {
		return docerrors.Storage("failed to remove document from lexical index", err)
	}
	return nil
}

func (b *BleveLexicalIndex) Search(query string, k int) ([]LexicalHit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequestOptions(q, k, 0, false)
	res, err := b.idx.Search(req)
	if err != nil {
		return nil, docerrors.Storage("lexical search failed", err)
	}

	hits := make([]LexicalHit, len(res.Hits))
	for i, h := range res.Hits {
		hits[i] = LexicalHit{VectorID: h.ID, Score: h.Score}
	}
	return hits, nil
}

func (b *BleveLexicalIndex) AllIDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var ids []string
	count, err := b.idx.DocCount()
	if err != nil || count == 0 {
		return ids
	}

	q := bleve.NewMatchAllQuery()
	req := bleve.NewSearchRequestOptions(q, int(count), 0, false)
	res, err := b.idx.Search(req)
	if err != nil {
		return ids
	}
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	sort.Strings(ids)
	return ids
}

func (b *BleveLexicalIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.idx.Close(); err != nil {
		return docerrors.Internal("failed to close lexical index", err)
	}
	return nil
}
