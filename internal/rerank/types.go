// Package rerank implements the multi-factor reranker: it
// reorders retrieved candidates by combining a handful of scoring signals
// (vector similarity, content relevance, title boost, recency, metadata
// relevance, exact-match bonus) into a single final score.
package rerank

import "github.com/Aman-CERP/docvec/internal/store"

// Result is one candidate flowing through the reranker. VectorID and
// Metadata come straight from a store.ScoredRecord; VectorScore is the
// score the retrieval stage assigned before reranking, and Score is
// overwritten by Rank with the fused final score.
type Result struct {
	VectorID    string
	VectorScore float64
	Score       float64
	Metadata    store.Metadata
	Explanation *Signals
}

// Signals holds the per-result scoring breakdown Explain exposes. All fields are in [0,1] except TitleBoost, which is a
// multiplicative factor capped at 3.0, and ExactMatchBonus, which is an
// additive term capped at 0.2.
type Signals struct {
	VectorSimilarity  float64
	ContentRelevance  float64
	TitleBoost        float64
	Recency           float64
	MetadataRelevance float64
	ExactMatchBonus   float64
}

// Weights are the five multipliers combined into a result's final score.
// Final = Vector*vector_similarity + Content*content_relevance +
// Title*title_boost + Recency*recency + Metadata*metadata_relevance +
// exact_match_bonus (additive, never reweighted).
type Weights struct {
	Vector   float64
	Content  float64
	Title    float64
	Recency  float64
	Metadata float64
}

// DefaultWeights returns the default weight set (0.4, 0.25, 0.15, 0.1, 0.1).
func DefaultWeights() Weights {
	return Weights{Vector: 0.4, Content: 0.25, Title: 0.15, Recency: 0.1, Metadata: 0.1}
}

// Validate reports an error if any weight is negative; custom weights are
// configurable but must all be >= 0.
func (w Weights) Validate() error {
	if w.Vector < 0 || w.Content < 0 || w.Title < 0 || w.Recency < 0 || w.Metadata < 0 {
		return errNegativeWeight
	}
	return nil
}

// Config controls the reranker's thresholds in addition to its weights.
type Config struct {
	Weights               Weights
	ShortContentThreshold int     // content shorter than this gets TitleBoostFactor, default 200
	TitleBoostFactor      float64 // default 1.5
	HeadingBoostFactor    float64 // default 1.2
}

// DefaultConfig returns the default reranker configuration.
func DefaultConfig() Config {
	return Config{
		Weights:               DefaultWeights(),
		ShortContentThreshold: 200,
		TitleBoostFactor:      1.5,
		HeadingBoostFactor:    1.2,
	}
}
