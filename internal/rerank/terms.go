package rerank

import "strings"

// InferQueryTerms is the fallback used when a caller has no enhanced query
// terms available (e.g. the enhancer is disabled): it infers salient terms
// from the top few results themselves — the intersection of
// frequent short tokens across the top-5 results, requiring at least two
// appearances and a length between 3 and 15 characters.
func InferQueryTerms(results []Result) []string {
	const topN = 5
	if len(results) > topN {
		results = results[:topN]
	}

	counts := make(map[string]int)
	for _, res := range results {
		seen := make(map[string]bool)
		for _, tok := range tokenize(res.Metadata.Content) {
			if seen[tok] {
				continue
			}
			seen[tok] = true
			counts[tok]++
		}
	}

	var terms []string
	for tok, n := range counts {
		if n >= 2 && len(tok) >= 3 && len(tok) <= 15 {
			terms = append(terms, tok)
		}
	}
	return terms
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}
