package enhance

// ContextRule is one trigger-substring to expansion-terms mapping applied
// by the context-rule expansion step.
type ContextRule struct {
	Trigger string
	Terms   []string
}

// DefaultContextRules bridges a query's surface phrasing to terms more
// likely to appear in the documents being searched: a user asking "how to"
// wants tutorial-register content even when no document says "how to".
var DefaultContextRules = []ContextRule{
	{Trigger: "how to", Terms: []string{"guide", "steps", "instructions"}},
	{Trigger: "how do i", Terms: []string{"guide", "steps", "instructions"}},
	{Trigger: "error", Terms: []string{"exception", "failure", "troubleshooting"}},
	{Trigger: "fails", Terms: []string{"error", "failure", "troubleshooting"}},
	{Trigger: "install", Terms: []string{"setup", "installation", "configure"}},
	{Trigger: "setup", Terms: []string{"installation", "configure", "initialize"}},
	{Trigger: "configure", Terms: []string{"setup", "configuration", "settings"}},
	{Trigger: "getting started", Terms: []string{"quickstart", "introduction", "tutorial"}},
	{Trigger: "what is", Terms: []string{"overview", "definition", "concept"}},
	{Trigger: "difference between", Terms: []string{"comparison", "versus"}},
	{Trigger: "best practice", Terms: []string{"recommendation", "guideline"}},
	{Trigger: "deprecated", Terms: []string{"legacy", "obsolete", "migration"}},
	{Trigger: "upgrade", Terms: []string{"migration", "version", "changelog"}},
}

// DefaultTechnicalTerms maps single tokens to associated terms for
// expansion pipeline step 3, and is also the dictionary Analyze consults to
// recognize Entity/Concept tokens and to detect "any technical term" for
// the complexity score.
var DefaultTechnicalTerms = map[string][]string{
	"api":            {"endpoint", "interface", "integration"},
	"endpoint":       {"api", "route", "url"},
	"authentication": {"auth", "login", "credentials", "token"},
	"auth":           {"authentication", "login", "credentials"},
	"token":          {"credential", "key", "authentication"},
	"database":       {"db", "storage", "persistence"},
	"schema":         {"structure", "model", "definition"},
	"config":         {"configuration", "settings", "options"},
	"configuration":  {"config", "settings", "options"},
	"deployment":     {"deploy", "release", "rollout"},
	"deploy":         {"deployment", "release", "rollout"},
	"query":          {"search", "lookup", "request"},
	"index":          {"indexing", "catalog"},
	"vector":         {"embedding", "representation"},
	"embedding":      {"vector", "representation"},
	"cache":          {"caching", "store"},
	"pipeline":       {"workflow", "process"},
	"webhook":        {"callback", "event", "notification"},
	"permission":     {"access", "authorization", "role"},
	"role":           {"permission", "access"},
	"migration":      {"upgrade", "schema change"},
	"rate limit":     {"throttle", "quota"},
}

// Pattern is a multi-word phrase recognized in step 4 of the expansion
// pipeline. Patterns are matched against the lowercased query as substrings
// (not tokens), letting a phrase trigger expansion even when split across
// token boundaries differently than the technical-term table.
type Pattern struct {
	Phrase string
	Terms  []string
}

// DefaultPatterns are the multi-word expansions applied after single-token
// technical-term expansion.
var DefaultPatterns = []Pattern{
	{Phrase: "rate limit", Terms: []string{"throttle", "quota", "429"}},
	{Phrase: "single sign on", Terms: []string{"sso", "identity provider"}},
	{Phrase: "access control", Terms: []string{"authorization", "permissions", "rbac"}},
	{Phrase: "breaking change", Terms: []string{"migration", "compatibility"}},
	{Phrase: "service account", Terms: []string{"machine user", "api key"}},
}

// The trigger lists below classify context flags by substring presence over the
// lowercased query. Order doesn't matter; any match sets the flag.
var (
	questionTriggers = []string{"how", "what", "why", "when", "where", "which", "can i", "does", "is it", "?"}

	troubleshootingTriggers = []string{
		"error", "fail", "fails", "failed", "failure", "broken", "bug",
		"issue", "problem", "crash", "not working", "doesn't work",
		"troubleshoot", "debug",
	}

	tutorialTriggers = []string{
		"tutorial", "how to", "guide", "walkthrough", "step by step",
		"getting started", "example", "learn",
	}

	setupTriggers = []string{
		"install", "setup", "configure", "initialize", "getting started",
		"prerequisite", "requirements",
	}
)

// intentCascade is the ordered keyword cascade for intent classification:
// the first matching bucket wins.
var intentCascade = []struct {
	intent   Intent
	keywords []string
}{
	{IntentTroubleshooting, []string{"error", "fail", "broken", "bug", "issue", "crash", "debug", "troubleshoot"}},
	{IntentTutorial, []string{"tutorial", "how to", "guide", "walkthrough", "step by step", "getting started", "learn"}},
	{IntentCode, []string{"function", "api", "endpoint", "method", "class", "struct", "code", "snippet"}},
	{IntentReference, []string{"reference", "spec", "specification", "schema", "parameter", "option", "list of"}},
	{IntentDocumentation, []string{"what is", "overview", "explain", "concept", "documentation", "docs"}},
}
