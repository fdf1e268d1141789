package eval

import "math"

// NDCG computes normalized discounted cumulative gain at k:
// gain at position 0 is the rating itself, subsequent positions divide by
// log2(i+1), and the result is DCG/IDCG with IDCG from ratings sorted
// descending. Returns 0 for empty input.
func NDCG(ranked []RankedDoc, ex LabeledExample, k int) float64 {
	gains := ratingsAt(ranked, ex.Ratings, k)
	if len(gains) == 0 {
		return 0
	}
	dcg := dcgOf(gains)

	ideal := idealGains(ex.Ratings, len(gains))
	idcg := dcgOf(ideal)
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

func dcgOf(gains []Relevance) float64 {
	var sum float64
	for i, g := range gains {
		if i == 0 {
			sum += float64(g)
			continue
		}
		sum += float64(g) / math.Log2(float64(i+1))
	}
	return sum
}

func idealGains(ratings map[string]Relevance, limit int) []Relevance {
	vals := make([]Relevance, 0, len(ratings))
	for _, r := range ratings {
		vals = append(vals, r)
	}
	// simple descending insertion sort; dataset sizes here are small
	for i := 1; i < len(vals); i++ {
		for j := i; j > 0 && vals[j] > vals[j-1]; j-- {
			vals[j], vals[j-1] = vals[j-1], vals[j]
		}
	}
	if limit > len(vals) {
		limit = len(vals)
	}
	return vals[:limit]
}

// HitAtK is 1.0 if any of the first k ratings is non-zero, else 0.0.
func HitAtK(ranked []RankedDoc, ex LabeledExample, k int) float64 {
	gains := ratingsAt(ranked, ex.Ratings, k)
	for _, g := range gains {
		if g != 0 {
			return 1
		}
	}
	return 0
}

// PrecisionAtK is the fraction of the first k ratings that are non-zero.
func PrecisionAtK(ranked []RankedDoc, ex LabeledExample, k int) float64 {
	gains := ratingsAt(ranked, ex.Ratings, k)
	if len(gains) == 0 {
		return 0
	}
	hits := 0
	for _, g := range gains {
		if g != 0 {
			hits++
		}
	}
	return float64(hits) / float64(len(gains))
}

// RecallAtK is the non-zero ratings in the first k divided by the dataset's
// total_relevant for the query; 0.0 if total_relevant is 0.
func RecallAtK(ranked []RankedDoc, ex LabeledExample, k int) float64 {
	if ex.TotalRelevant == 0 {
		return 0
	}
	gains := ratingsAt(ranked, ex.Ratings, k)
	hits := 0
	for _, g := range gains {
		if g != 0 {
			hits++
		}
	}
	return float64(hits) / float64(ex.TotalRelevant)
}

// MRR is the reciprocal of the 1-based rank of the first non-zero rating
// across the whole ranked list, or 0.0 if none.
func MRR(ranked []RankedDoc, ex LabeledExample) float64 {
	for i, d := range ranked {
		if ex.Ratings[d.DocID] != 0 {
			return 1 / float64(i+1)
		}
	}
	return 0
}

// AP is average precision: the mean of precision measured at each relevant
// position, divided by total relevant.
func AP(ranked []RankedDoc, ex LabeledExample) float64 {
	if ex.TotalRelevant == 0 {
		return 0
	}
	gains := ratingsAt(ranked, ex.Ratings, len(ranked))
	var sum float64
	hits := 0
	for i, g := range gains {
		if g != 0 {
			hits++
			sum += float64(hits) / float64(i+1)
		}
	}
	return sum / float64(ex.TotalRelevant)
}

// Aggregate averages metricFn across every example in the dataset, per
// averaging the metric across every query in the dataset.
func Aggregate(dataset EvaluationDataset, runs map[string][]RankedDoc, metricFn func([]RankedDoc, LabeledExample) float64) float64 {
	if len(dataset.Examples) == 0 {
		return 0
	}
	var sum float64
	for _, ex := range dataset.Examples {
		sum += metricFn(runs[ex.Query], ex)
	}
	return sum / float64(len(dataset.Examples))
}
