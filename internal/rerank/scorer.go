package rerank

import (
	"errors"
	"sort"
	"strings"

	"github.com/Aman-CERP/docvec/internal/store"
)

var errNegativeWeight = errors.New("rerank: weights must be >= 0")

// Reranker scores and reorders retrieved candidates.
type Reranker struct {
	cfg Config
}

// New builds a Reranker from cfg, validating its weights.
func New(cfg Config) (*Reranker, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if cfg.ShortContentThreshold <= 0 {
		cfg.ShortContentThreshold = DefaultConfig().ShortContentThreshold
	}
	if cfg.TitleBoostFactor <= 0 {
		cfg.TitleBoostFactor = DefaultConfig().TitleBoostFactor
	}
	if cfg.HeadingBoostFactor <= 0 {
		cfg.HeadingBoostFactor = DefaultConfig().HeadingBoostFactor
	}
	return &Reranker{cfg: cfg}, nil
}

// Rank scores every result against queryTerms and returns a new slice sorted
// by descending final score, ties broken by ascending VectorID for
// determinism. The input slice is left untouched.
func (r *Reranker) Rank(results []Result, queryTerms []string) []Result {
	out := make([]Result, len(results))
	copy(out, results)

	if len(queryTerms) == 0 {
		queryTerms = InferQueryTerms(out)
	}

	for i := range out {
		sig := r.explain(out[i], queryTerms)
		out[i].Explanation = &sig
		out[i].Score = r.combine(sig)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].VectorID < out[j].VectorID
	})
	return out
}

// Explain computes the scoring signal breakdown for a single result without
// mutating it, for callers that want the explanation without a full Rank.
func (r *Reranker) Explain(result Result, queryTerms []string) Signals {
	return r.explain(result, queryTerms)
}

func (r *Reranker) combine(s Signals) float64 {
	w := r.cfg.Weights
	score := w.Vector*s.VectorSimilarity +
		w.Content*s.ContentRelevance +
		w.Title*s.TitleBoost +
		w.Recency*s.Recency +
		w.Metadata*s.MetadataRelevance +
		s.ExactMatchBonus
	return score
}

func (r *Reranker) explain(res Result, queryTerms []string) Signals {
	content := res.Metadata.Content
	contentLower := strings.ToLower(content)

	return Signals{
		VectorSimilarity:  clamp01(res.VectorScore),
		ContentRelevance:  contentRelevance(contentLower, queryTerms),
		TitleBoost:        titleBoost(content, res.Metadata, r.cfg),
		Recency:           recency(res.Metadata),
		MetadataRelevance: metadataRelevance(res.Metadata, queryTerms),
		ExactMatchBonus:   exactMatchBonus(contentLower, queryTerms),
	}
}

// contentRelevance is `0.7*term_coverage + 0.3*min(keyword_density, 0.3)`,
// with the neutral midpoint 0.5 when there
// are no query terms to score against.
func contentRelevance(contentLower string, queryTerms []string) float64 {
	if len(queryTerms) == 0 {
		return 0.5
	}

	words := tokenize(contentLower)
	wordCount := len(words)
	if wordCount == 0 {
		return 0
	}

	distinct := 0
	totalMatches := 0
	for _, t := range queryTerms {
		tl := strings.ToLower(t)
		if tl == "" {
			continue
		}
		n := strings.Count(contentLower, tl)
		if n > 0 {
			distinct++
			totalMatches += n
		}
	}

	termCoverage := float64(distinct) / float64(len(queryTerms))
	keywordDensity := float64(totalMatches) / float64(wordCount)
	if keywordDensity > 0.3 {
		keywordDensity = 0.3
	}
	return clamp01(0.7*termCoverage + 0.3*keywordDensity)
}

// titleBoost is a multiplicative factor: it starts at
// 1.0 and accumulates boosts for short content, heading-style content,
// shouty (mostly-uppercase) content, and a non-empty heading breadcrumb,
// capped at 3.0.
func titleBoost(content string, meta store.Metadata, cfg Config) float64 {
	boost := 1.0
	if len(content) < cfg.ShortContentThreshold {
		boost *= cfg.TitleBoostFactor
	}
	if strings.HasPrefix(strings.TrimSpace(content), "#") {
		boost *= cfg.HeadingBoostFactor
	}
	if uppercaseRatio(content) > 0.6 {
		boost *= 1.3
	}
	if len(meta.HeadingPath) > 0 {
		boost *= 1.2
	}
	if boost > 3.0 {
		boost = 3.0
	}
	return boost
}

// uppercaseRatio is the fraction of alphabetic characters in s that are
// uppercase; s with no letters at all has ratio 0.
func uppercaseRatio(s string) float64 {
	letters, upper := 0, 0
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			letters++
			upper++
		case r >= 'a' && r <= 'z':
			letters++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}

// recency is a constant 0.5 placeholder: a hook reserved for a future
// modification-time input, not a
// currently computed signal.
func recency(store.Metadata) float64 {
	return 0.5
}

// metadataRelevance is a weighted sum of matches in
// title (0.4), heading path (0.3), document path (0.2), and URL (0.1),
// normalized by the total weight of the fields actually present on meta.
func metadataRelevance(meta store.Metadata, queryTerms []string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}

	docPath := meta.Custom["rel_path"]
	if docPath == "" {
		docPath = meta.DocumentID
	}
	headingJoined := strings.Join(meta.HeadingPath, " ")

	type field struct {
		value  string
		weight float64
	}
	fields := []field{
		{meta.Title, 0.4},
		{headingJoined, 0.3},
		{docPath, 0.2},
		{meta.URL, 0.1},
	}

	var matchedWeight, presentWeight float64
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		presentWeight += f.weight
		haystack := strings.ToLower(f.value)
		for _, t := range queryTerms {
			if strings.Contains(haystack, strings.ToLower(t)) {
				matchedWeight += f.weight
				break
			}
		}
	}
	if presentWeight == 0 {
		return 0
	}
	return clamp01(matchedWeight / presentWeight)
}

// exactMatchBonus is a three-tier additive bonus: 0.2 for
// the full query appearing verbatim, else 0.1 if every term appears as a
// whole word, else a fraction of 0.05 scaled by how many terms matched
// exactly.
func exactMatchBonus(contentLower string, queryTerms []string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}

	phrase := strings.ToLower(strings.Join(queryTerms, " "))
	if phrase != "" && strings.Contains(contentLower, phrase) {
		return 0.2
	}

	contentWords := make(map[string]bool)
	for _, w := range tokenize(contentLower) {
		contentWords[w] = true
	}

	matches := 0
	for _, t := range queryTerms {
		if contentWords[strings.ToLower(t)] {
			matches++
		}
	}
	if matches == len(queryTerms) {
		return 0.1
	}
	return 0.05 * (float64(matches) / float64(len(queryTerms)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
