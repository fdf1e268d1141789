// Package enhance implements the query enhancer: query
// expansion via context rules, a technical-term dictionary, and multi-word
// pattern matching, plus intent/complexity analysis feeding the reranker and
// the pipeline's Enhance stage.
package enhance

// Intent classifies what a query is trying to accomplish.
type Intent string

const (
	IntentDocumentation   Intent = "Documentation"
	IntentTroubleshooting Intent = "Troubleshooting"
	IntentReference       Intent = "Reference"
	IntentTutorial        Intent = "Tutorial"
	IntentCode            Intent = "Code"
	IntentUnknown         Intent = "Unknown"
)

// Complexity buckets a query by word count.
type Complexity string

const (
	ComplexitySimple   Complexity = "Simple"
	ComplexityModerate Complexity = "Moderate"
	ComplexityComplex  Complexity = "Complex"
)

// EntityType classifies a recognized query entity.
type EntityType string

const (
	EntityConcept EntityType = "Concept"
)

// Entity is a recognized term in the query, tagged with a type and
// confidence.
type Entity struct {
	Text       string
	Type       EntityType
	Confidence float64
}

// EnhancedQuery is the result of Enhance.
type EnhancedQuery struct {
	Original          string
	EnhancedText      string
	SynonymsAdded     []string
	TechnicalTerms    []string
	ExpansionStrategy string
}

// QueryAnalysis is the result of Analyze.
type QueryAnalysis struct {
	Intent         Intent
	Complexity     Complexity
	TechnicalTerms []string
	Entities       []Entity
	Suggestions    []string
}

// ContextFlags are the substring-triggered booleans computed during context
// analysis (expansion pipeline step 1).
type ContextFlags struct {
	IsQuestion        bool
	IsTroubleshooting bool
	IsTutorial        bool
	IsSetup           bool
	ComplexityScore   float64
}
