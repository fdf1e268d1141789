package enhance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnhance_AppendsExpansionsToEnhancedText(t *testing.T) {
	e := New()
	result := e.Enhance("how to configure authentication")

	assert.Equal(t, "how to configure authentication", result.Original)
	assert.True(t, strings.HasPrefix(result.EnhancedText, result.Original+" "))
	assert.NotEmpty(t, result.SynonymsAdded)
	assert.Contains(t, result.TechnicalTerms, "authentication")
	assert.NotEqual(t, "none", result.ExpansionStrategy)
}

func TestEnhance_Determinism(t *testing.T) {
	e := New()
	a := e.Enhance("database migration error")
	b := e.Enhance("database migration error")
	assert.Equal(t, a, b)
}

func TestEnhance_TruncatesToEightTerms(t *testing.T) {
	e := New()
	result := e.Enhance("error fails configure install getting started what is difference between deprecated upgrade")
	assert.LessOrEqual(t, len(result.SynonymsAdded), 8)
}

func TestEnhance_NoMatches_LeavesTextUnchanged(t *testing.T) {
	e := New()
	result := e.Enhance("zzz qqq xyzzy")
	assert.Equal(t, "zzz qqq xyzzy", result.EnhancedText)
	assert.Empty(t, result.SynonymsAdded)
	assert.Equal(t, "none", result.ExpansionStrategy)
}

func TestEnhance_ExpansionsAreStableSortedAndDeduped(t *testing.T) {
	e := New()
	result := e.Enhance("auth token")
	seen := make(map[string]bool)
	for _, term := range result.SynonymsAdded {
		require.False(t, seen[strings.ToLower(term)], "duplicate expansion term %q", term)
		seen[strings.ToLower(term)] = true
	}
	sorted := append([]string(nil), result.SynonymsAdded...)
	for i := 1; i < len(sorted); i++ {
		assert.LessOrEqual(t, strings.ToLower(sorted[i-1]), strings.ToLower(sorted[i]))
	}
}

func TestEnhance_ReEnhancingStaysBounded(t *testing.T) {
	e := New()

	first := e.Enhance("how to setup api auth")
	second := e.Enhance(first.EnhancedText)
	third := e.Enhance(second.EnhancedText)

	// Enhancing already-enhanced text never grows past the truncation cap
	// per pass, so repeated passes stay linearly bounded instead of
	// exploding.
	assert.LessOrEqual(t, len(second.SynonymsAdded), 8)
	assert.LessOrEqual(t, len(third.SynonymsAdded), 8)
	assert.LessOrEqual(t,
		len(strings.Fields(third.EnhancedText)),
		len(strings.Fields(first.Original))+3*8)
}

func TestEnhance_SetupQuery_ExpandsAcrossAllStages(t *testing.T) {
	e := New()
	query := "how to setup api auth"

	eq := e.Enhance(query)
	assert.LessOrEqual(t, len(eq.SynonymsAdded), 8)

	added := make(map[string]bool, len(eq.SynonymsAdded))
	for _, s := range eq.SynonymsAdded {
		added[s] = true
	}
	assert.True(t, added["guide"] || added["tutorial"] || added["example"],
		"expected a tutorial-register expansion from \"how to\", got %v", eq.SynonymsAdded)
	assert.True(t, added["installation"] || added["configure"] || added["initialize"],
		"expected a setup expansion, got %v", eq.SynonymsAdded)

	analysis := e.Analyze(query)
	assert.Equal(t, IntentTutorial, analysis.Intent)
	assert.Equal(t, ComplexityModerate, analysis.Complexity)
	assert.Contains(t, analysis.TechnicalTerms, "api")
	assert.Contains(t, analysis.TechnicalTerms, "auth")
}

func TestAnalyze_IntentCascade(t *testing.T) {
	e := New()
	assert.Equal(t, IntentTroubleshooting, e.Analyze("why does this error occur").Intent)
	assert.Equal(t, IntentTutorial, e.Analyze("getting started guide").Intent)
	assert.Equal(t, IntentCode, e.Analyze("api endpoint reference").Intent)
}

func TestAnalyze_ComplexityBuckets(t *testing.T) {
	e := New()
	assert.Equal(t, ComplexitySimple, e.Analyze("auth").Complexity)
	assert.Equal(t, ComplexitySimple, e.Analyze("auth token").Complexity)
	assert.Equal(t, ComplexityModerate, e.Analyze("how to configure my token").Complexity)
	assert.Equal(t, ComplexityComplex, e.Analyze("how to configure my authentication token for the api gateway").Complexity)
}

func TestAnalyze_RecognizesTechnicalEntities(t *testing.T) {
	e := New()
	analysis := e.Analyze("configure the database schema and api endpoint")
	require.NotEmpty(t, analysis.Entities)
	for _, ent := range analysis.Entities {
		assert.Equal(t, EntityConcept, ent.Type)
		assert.Equal(t, 0.8, ent.Confidence)
	}
}

func TestContextFlags_SubstringTriggers(t *testing.T) {
	e := New()
	flags := e.contextFlags("why does the install fail with an error")
	assert.True(t, flags.IsQuestion)
	assert.True(t, flags.IsTroubleshooting)
	assert.True(t, flags.IsSetup)
	assert.GreaterOrEqual(t, flags.ComplexityScore, 0.0)
	assert.LessOrEqual(t, flags.ComplexityScore, 1.0)
}
