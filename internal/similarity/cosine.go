// Package similarity implements the exact similarity kernel shared by the
// vector store's brute-force scan and the reranker's vector_similarity
// signal: L2 normalization and cosine similarity over float32 vectors.
package similarity

import "math"

// Cosine returns the cosine similarity of a and b, in [-1, 1]. It returns 0
// if either vector has zero norm or if a and b have mismatched dimensions.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize returns a unit-length copy of v. Zero vectors are returned
// unchanged rather than dividing by zero.
func Normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Similarities scores every candidate against query in order. Every value
// matches what Cosine(query, candidates[i]) would return for the same pair;
// callers needing a consistent ordering should sort the result themselves.
func Similarities(query []float32, candidates [][]float32) []float64 {
	out := make([]float64, len(candidates))
	for i, c := range candidates {
		out[i] = Cosine(query, c)
	}
	return out
}

// TopK scores every candidate against query and returns the indices of the
// k highest-scoring candidates, sorted by descending score with ties broken
// by ascending index for determinism. k is clamped to len(candidates).
func TopK(query []float32, candidates [][]float32, k int) []int {
	if k > len(candidates) {
		k = len(candidates)
	}
	if k <= 0 {
		return nil
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(candidates))
	for i, c := range candidates {
		scores[i] = scored{idx: i, score: Cosine(query, c)}
	}

	// Partial selection sort is adequate here: result sets are small (k is
	// typically <= a few hundred) relative to a brute-force scan that has
	// already paid O(n*d) for the dot products above.
	for i := 0; i < k; i++ {
		best := i
		for j := i + 1; j < len(scores); j++ {
			if scores[j].score > scores[best].score ||
				(scores[j].score == scores[best].score && scores[j].idx < scores[best].idx) {
				best = j
			}
		}
		scores[i], scores[best] = scores[best], scores[i]
	}

	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = scores[i].idx
	}
	return out
}
