// Package store implements the embedded vector store: persistent,
// collection-scoped, content-addressed vector storage with exact
// k-nearest-neighbor search by cosine similarity and an in-memory LRU of
// decoded embeddings shared across searches.
package store

import (
	"context"
	"strconv"
	"time"

	"github.com/Aman-CERP/docvec/internal/docerrors"
)

// DefaultCollection is the name legacy records with no collection field are
// mapped to, and the collection searched when a caller does not name one.
const DefaultCollection = "default"

// Metadata is the non-vector payload carried alongside an embedding,
// serialized as canonical JSON in the metadata column.
type Metadata struct {
	DocumentID  string            `json:"document_id"`
	ChunkIndex  int               `json:"chunk_index"`
	Content     string            `json:"content"`
	Title       string            `json:"title"`
	HeadingPath []string          `json:"heading_path"`
	URL         string            `json:"url,omitempty"`
	Collection  string            `json:"collection,omitempty"`
	Custom      map[string]string `json:"custom,omitempty"`
}

// EffectiveCollection returns the collection this metadata belongs to,
// mapping a missing field to DefaultCollection so legacy records written
// before collections existed stay reachable.
func (m Metadata) EffectiveCollection() string {
	if m.Collection == "" {
		return DefaultCollection
	}
	return m.Collection
}

// VectorRecord is one stored (vector_id, embedding, metadata) tuple.
type VectorRecord struct {
	VectorID  string
	Embedding []float32
	Metadata  Metadata
	CreatedAt time.Time
}

// ScoredRecord is one search result: a VectorRecord plus the similarity
// score it was ranked by.
type ScoredRecord struct {
	VectorID string
	Score    float64
	Metadata Metadata
}

// Status classifies store health for HealthCheck.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// HealthStatus is returned by Store.HealthCheck.
type HealthStatus struct {
	Status        Status
	Detail        string
	RecordCount   int
	CorruptCount  int
	ConsistentIDs bool
}

// Store is the embedded vector store contract.
type Store interface {
	// Insert upserts records by VectorID. Fails with ErrCodeDimensionMismatch
	// if any embedding's length differs from Dimension().
	Insert(ctx context.Context, records []VectorRecord) error

	// Search returns the top-k records across all collections, ranked by
	// cosine similarity descending, ties broken by ascending VectorID.
	Search(ctx context.Context, queryVec []float32, k int) ([]ScoredRecord, error)

	// SearchInCollection is Search filtered to records whose effective
	// collection equals name.
	SearchInCollection(ctx context.Context, name string, queryVec []float32, k int) ([]ScoredRecord, error)

	// Get fetches a single record by VectorID. The second return is false
	// if no record exists under that ID.
	Get(ctx context.Context, vectorID string) (VectorRecord, bool, error)

	// IDsForDocument returns every VectorID belonging to docID, in chunk
	// order, for replacement and deletion of a whole document.
	IDsForDocument(ctx context.Context, docID string) ([]string, error)

	// Delete removes a record by VectorID. Returns false if it did not exist.
	Delete(ctx context.Context, vectorID string) (bool, error)

	// Update replaces the embedding for an existing VectorID. Returns false
	// if it did not exist.
	Update(ctx context.Context, vectorID string, newVec []float32) (bool, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int, error)

	// ListCollections returns the distinct effective collection names
	// present in the store, for fan-out operations that need to know what
	// "every collection" means without the caller naming one.
	ListCollections(ctx context.Context) ([]string, error)

	// HealthCheck reports store health, including corrupt-record counts and
	// cross-index consistency.
	HealthCheck(ctx context.Context) HealthStatus

	// Compact reclaims storage after heavy churn without changing
	// observable contents.
	Compact(ctx context.Context) error

	// Dimension returns the fixed embedding dimension this store enforces.
	Dimension() int

	// Close releases the store's file handles and locks.
	Close() error
}

// StateStore is the small durable key-value surface the indexing path uses
// for resumable checkpoints. SQLiteStore implements it alongside Store.
type StateStore interface {
	SaveState(ctx context.Context, key, value string) error
	LoadState(ctx context.Context, key string) (string, bool, error)
	ClearState(ctx context.Context, key string) error
}

// rankTopK sorts ids/scores/metas by descending score with ties broken by
// ascending VectorID, per the Store interface's determinism contract, and
// returns the top k as ScoredRecords.
func rankTopK(ids []string, scores []float64, metas []Metadata, k int) []ScoredRecord {
	n := len(ids)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	for i := 0; i < k; i++ {
		best := i
		for j := i + 1; j < n; j++ {
			if scores[idx[j]] > scores[idx[best]] ||
				(scores[idx[j]] == scores[idx[best]] && ids[idx[j]] < ids[idx[best]]) {
				best = j
			}
		}
		idx[i], idx[best] = idx[best], idx[i]
	}
	out := make([]ScoredRecord, k)
	for i := 0; i < k; i++ {
		out[i] = ScoredRecord{VectorID: ids[idx[i]], Score: scores[idx[i]], Metadata: metas[idx[i]]}
	}
	return out
}

func dimensionError(expected, got int) error {
	return docerrors.New(docerrors.ErrCodeDimensionMismatch,
		"embedding dimension does not match store dimension", nil).
		WithDetail("expected", strconv.Itoa(expected)).
		WithDetail("got", strconv.Itoa(got))
}
