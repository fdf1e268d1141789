package pipeline

import (
	"sort"

	"github.com/Aman-CERP/docvec/internal/store"
)

// DefaultRRFConstant is the standard RRF smoothing parameter; k=60 is the
// value used across mainstream hybrid-search engines.
const DefaultRRFConstant = 60

// FusionOptions weights the vector and lexical candidate lists inside the
// Retrieve stage. Zero-value options fall back to DefaultFusionOptions;
// retrieval is vector-only when the Pipeline has no Lexical index.
type FusionOptions struct {
	VectorWeight  float64
	LexicalWeight float64
	RRFConstant   int
}

// DefaultFusionOptions matches the shipped config defaults.
func DefaultFusionOptions() FusionOptions {
	return FusionOptions{VectorWeight: 0.65, LexicalWeight: 0.35, RRFConstant: DefaultRRFConstant}
}

// fusedCandidate is one candidate after reciprocal-rank fusion of the vector
// and lexical lists. VecScore is preserved from the vector scan (0 when the
// candidate came from the lexical list alone).
type fusedCandidate struct {
	VectorID string
	RRFScore float64
	VecScore float64
	VecRank  int // 1-indexed, 0 if absent from the vector list
	LexRank  int // 1-indexed, 0 if absent from the lexical list
	InBoth   bool
}

// fuseRRF combines the two ranked lists with reciprocal rank fusion:
// score(d) = w_vec/(k + vec_rank) + w_lex/(k + lex_rank), where a document
// missing from one list contributes at rank max(len(vec), len(lex)) + 1 for
// that list. Scores are normalized to [0, 1] against the top fused score,
// and ordering is RRF score desc, then both-lists-first, then vector score
// desc, then ascending VectorID.
func fuseRRF(vec []store.ScoredRecord, lex []store.LexicalHit, opts FusionOptions) []fusedCandidate {
	if len(vec) == 0 && len(lex) == 0 {
		return nil
	}
	k := opts.RRFConstant
	if k <= 0 {
		k = DefaultRRFConstant
	}

	byID := make(map[string]*fusedCandidate, len(vec)+len(lex))
	get := func(id string) *fusedCandidate {
		if c, ok := byID[id]; ok {
			return c
		}
		c := &fusedCandidate{VectorID: id}
		byID[id] = c
		return c
	}

	for rank, r := range vec {
		c := get(r.VectorID)
		c.VecScore = r.Score
		c.VecRank = rank + 1
		c.RRFScore += opts.VectorWeight / float64(k+rank+1)
	}
	for rank, h := range lex {
		c := get(h.VectorID)
		c.LexRank = rank + 1
		c.RRFScore += opts.LexicalWeight / float64(k+rank+1)
		if c.VecRank > 0 {
			c.InBoth = true
		}
	}

	missingRank := len(vec)
	if len(lex) > missingRank {
		missingRank = len(lex)
	}
	missingRank++
	for _, c := range byID {
		if c.VecRank == 0 {
			c.RRFScore += opts.VectorWeight / float64(k+missingRank)
		}
		if c.LexRank == 0 {
			c.RRFScore += opts.LexicalWeight / float64(k+missingRank)
		}
	}

	out := make([]fusedCandidate, 0, len(byID))
	for _, c := range byID {
		out = append(out, *c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.RRFScore != b.RRFScore {
			return a.RRFScore > b.RRFScore
		}
		if a.InBoth != b.InBoth {
			return a.InBoth
		}
		if a.VecScore != b.VecScore {
			return a.VecScore > b.VecScore
		}
		return a.VectorID < b.VectorID
	})

	if top := out[0].RRFScore; top > 0 {
		for i := range out {
			out[i].RRFScore /= top
		}
	}
	return out
}
