// Package eval implements the evaluation metrics and regression/A-B
// harness: ranking-quality metrics over labeled datasets, a
// randomization significance test for comparing two systems, and the
// deployment-recommendation cascade a CI gate can act on.
package eval

// Relevance is a ground-truth rating for one (query, doc) pair. The
// metrics treat non-zero as relevant, so any positive rating works;
// callers typically use a 0-2 graded scale.
type Relevance float64

// LabeledExample is one query's ground truth: a query string plus a
// set of doc IDs with their relevance ratings, keyed by doc ID so
// metrics can align a ranked result list against it regardless of the
// result list's doc order.
type LabeledExample struct {
	Query         string
	Ratings       map[string]Relevance
	TotalRelevant int
}

// EvaluationDataset is a named, versioned collection of labeled queries.
type EvaluationDataset struct {
	Name     string
	Version  string
	Examples []LabeledExample
}

// RankedDoc is one entry in a system's ranked output for a query, identified
// by doc ID so it can be looked up against a LabeledExample's Ratings.
type RankedDoc struct {
	DocID string
}

// KValues is the default k-set used for aggregated reporting.
var KValues = []int{1, 3, 5, 10, 20}

// ratingsAt returns the ground-truth rating for each of the first k ranked
// docs, defaulting to 0 for docs absent from ratings. k is clamped to
// min(len(ranked), len(ratings)), the same clamp NDCG@k uses. Every metric
// reads ratings through it except MRR, which scans the whole ranked list.
func ratingsAt(ranked []RankedDoc, ratings map[string]Relevance, k int) []Relevance {
	limit := k
	if limit > len(ranked) {
		limit = len(ranked)
	}
	if limit > len(ratings) {
		limit = len(ratings)
	}
	if limit < 0 {
		limit = 0
	}
	out := make([]Relevance, limit)
	for i := 0; i < limit; i++ {
		out[i] = ratings[ranked[i].DocID]
	}
	return out
}
