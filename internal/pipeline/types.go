// Package pipeline implements the search pipeline: the
// ordered Enhance -> Embed -> Retrieve -> Rerank -> Filter -> Truncate ->
// Project stages that turn a query into a ranked, scored result set.
package pipeline

import (
	"time"

	"github.com/Aman-CERP/docvec/internal/rerank"
	"github.com/Aman-CERP/docvec/internal/store"
)

// DefaultLimit and MaxLimit bound Request.Limit.
const (
	DefaultLimit = 10
	MaxLimit     = 100

	// DefaultOverFetch is how many more candidates Retrieve pulls than
	// Limit asks for, to give Rerank headroom before Truncate.
	DefaultOverFetch = 3
)

// FilterOp is the comparison a metadata Filter applies.
type FilterOp string

const (
	FilterEquals    FilterOp = "equals"
	FilterContains  FilterOp = "contains"
	FilterRange     FilterOp = "range"
	FilterSetMember FilterOp = "set_member"
	FilterDateRange FilterOp = "date_range"
)

// Filter is one metadata predicate applied during the Filter stage.
// Field names a Metadata.Custom key (such as "doc_type") or one of the
// first-class fields "title", "content", "url", "collection" and
// "document_id". Value/Low/High's meaning depends on Op: equals/contains
// compare against Value; range/date_range compare against [Low, High];
// set_member checks the field's value against the Values slice.
type Filter struct {
	Field  string
	Op     FilterOp
	Value  string
	Values []string
	Low    string
	High   string
}

// Request is a single search call.
type Request struct {
	Query               string
	Limit               int
	Collection          string
	MetadataFilters     []Filter
	MinConfidence       float64
	IncludeScores       bool
	IncludeExplanations bool
}

// Result is one ranked hit in a Response.
type Result struct {
	VectorID    string
	Content     string
	Title       string
	HeadingPath []string
	URL         string
	Collection  string
	Custom      map[string]string
	Score       float64         `json:"score,omitempty"`
	Explanation *rerank.Signals `json:"explanation,omitempty"`
}

// Response is what Search returns.
type Response struct {
	Results          []Result
	TotalCount       int
	ProcessingTimeMS int64
}

// normalizeRequest fills in defaults and clamps Limit.
func normalizeRequest(req Request) Request {
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	if req.Collection == "" {
		req.Collection = store.DefaultCollection
	}
	return req
}

func elapsedMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
