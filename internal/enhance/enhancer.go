package enhance

import (
	"sort"
	"strings"
)

const maxExpansionTerms = 8

// Enhancer expands and analyzes queries. It holds no mutable
// state beyond its dictionaries, so a fixed Enhancer is safe for concurrent
// use and, for a fixed dictionary, Enhance/Analyze are pure functions of
// their input.
type Enhancer struct {
	contextRules []ContextRule
	technical    map[string][]string
	patterns     []Pattern
}

// New builds an Enhancer from the default dictionaries.
func New() *Enhancer {
	return &Enhancer{
		contextRules: DefaultContextRules,
		technical:    DefaultTechnicalTerms,
		patterns:     DefaultPatterns,
	}
}

// WithDictionaries builds an Enhancer from caller-supplied dictionaries in
// place of the defaults above.
func WithDictionaries(rules []ContextRule, technical map[string][]string, patterns []Pattern) *Enhancer {
	return &Enhancer{contextRules: rules, technical: technical, patterns: patterns}
}

// Enhance runs the four-stage expansion pipeline (context rules, technical
// terms, multi-word patterns, then dedup/truncate) and returns the enhanced
// query.
func (e *Enhancer) Enhance(query string) EnhancedQuery {
	lower := strings.ToLower(query)
	tokens := strings.Fields(lower)

	var strategies []string
	seen := make(map[string]bool)
	var expansions []string

	add := func(terms []string) bool {
		added := false
		for _, t := range terms {
			lt := strings.ToLower(t)
			if seen[lt] {
				continue
			}
			seen[lt] = true
			expansions = append(expansions, t)
			added = true
		}
		return added
	}

	// Step 2: context-rule expansion.
	contextFired := false
	for _, rule := range e.contextRules {
		if strings.Contains(lower, rule.Trigger) {
			if add(rule.Terms) {
				contextFired = true
			}
		}
	}
	if contextFired {
		strategies = append(strategies, "context")
	}

	// Step 3: technical-term expansion (whitespace-split tokens only).
	var technicalTerms []string
	technicalFired := false
	for _, tok := range tokens {
		if terms, ok := e.technical[tok]; ok {
			technicalTerms = append(technicalTerms, tok)
			if add(terms) {
				technicalFired = true
			}
		}
	}
	if technicalFired {
		strategies = append(strategies, "technical")
	}

	// Step 4: multi-word pattern expansion.
	patternFired := false
	for _, p := range e.patterns {
		if strings.Contains(lower, p.Phrase) {
			if add(p.Terms) {
				patternFired = true
			}
		}
	}
	if patternFired {
		strategies = append(strategies, "pattern")
	}

	// Step 5: dedup already done via `seen`; stable-sort then truncate.
	sort.SliceStable(expansions, func(i, j int) bool {
		return strings.ToLower(expansions[i]) < strings.ToLower(expansions[j])
	})
	if len(expansions) > maxExpansionTerms {
		expansions = expansions[:maxExpansionTerms]
	}

	enhancedText := query
	if len(expansions) > 0 {
		enhancedText = query + " " + strings.Join(expansions, " ")
	}

	strategy := "none"
	if len(strategies) > 0 {
		strategy = strings.Join(strategies, "+")
	}

	return EnhancedQuery{
		Original:          query,
		EnhancedText:      enhancedText,
		SynonymsAdded:     expansions,
		TechnicalTerms:    dedupeStrings(technicalTerms),
		ExpansionStrategy: strategy,
	}
}

// Analyze computes intent, complexity, recognized entities, and
// suggestions for query.
func (e *Enhancer) Analyze(query string) QueryAnalysis {
	lower := strings.ToLower(query)
	tokens := strings.Fields(lower)

	intent := classifyIntent(lower)
	complexity := classifyComplexity(len(tokens))

	var technicalTerms []string
	var entities []Entity
	for _, tok := range tokens {
		if _, ok := e.technical[tok]; ok {
			technicalTerms = append(technicalTerms, tok)
			entities = append(entities, Entity{Text: tok, Type: EntityConcept, Confidence: 0.8})
		}
	}

	return QueryAnalysis{
		Intent:         intent,
		Complexity:     complexity,
		TechnicalTerms: dedupeStrings(technicalTerms),
		Entities:       entities,
		Suggestions:    suggestionsFor(intent),
	}
}

// contextFlags computes the context booleans and complexity score:
// 0.1·word_count + (0.3 if any technical term else 0), clamped to 1.
func (e *Enhancer) contextFlags(query string) ContextFlags {
	lower := strings.ToLower(query)
	tokens := strings.Fields(lower)

	hasTechnical := false
	for _, tok := range tokens {
		if _, ok := e.technical[tok]; ok {
			hasTechnical = true
			break
		}
	}

	score := 0.1*float64(len(tokens)) + boolBonus(hasTechnical, 0.3)
	if score > 1 {
		score = 1
	}

	return ContextFlags{
		IsQuestion:        containsAny(lower, questionTriggers),
		IsTroubleshooting: containsAny(lower, troubleshootingTriggers),
		IsTutorial:        containsAny(lower, tutorialTriggers),
		IsSetup:           containsAny(lower, setupTriggers),
		ComplexityScore:   score,
	}
}

func boolBonus(b bool, v float64) float64 {
	if b {
		return v
	}
	return 0
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func classifyIntent(lower string) Intent {
	for _, c := range intentCascade {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.intent
			}
		}
	}
	return IntentUnknown
}

func classifyComplexity(wordCount int) Complexity {
	switch {
	case wordCount <= 2:
		return ComplexitySimple
	case wordCount <= 5:
		return ComplexityModerate
	default:
		return ComplexityComplex
	}
}

func suggestionsFor(intent Intent) []string {
	switch intent {
	case IntentTroubleshooting:
		return []string{"check the troubleshooting and error-reference sections"}
	case IntentTutorial:
		return []string{"check the getting-started and tutorial sections"}
	case IntentReference:
		return []string{"check the reference and specification sections"}
	default:
		return nil
	}
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
