package pipeline

import (
	"strconv"
	"strings"
	"time"

	"github.com/Aman-CERP/docvec/internal/store"
)

// matchesAll reports whether meta satisfies every filter, covering the
// Filter stage. An empty filter list always matches.
func matchesAll(meta store.Metadata, filters []Filter) bool {
	for _, f := range filters {
		if !matches(meta, f) {
			return false
		}
	}
	return true
}

func matches(meta store.Metadata, f Filter) bool {
	field := fieldValue(meta, f.Field)
	switch f.Op {
	case FilterEquals:
		return field == f.Value
	case FilterContains:
		return strings.Contains(field, f.Value)
	case FilterSetMember:
		for _, v := range f.Values {
			if field == v {
				return true
			}
		}
		return false
	case FilterRange:
		n, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return false
		}
		lo, hiErr := parseFloatOrInf(f.Low, false)
		hi, _ := parseFloatOrInf(f.High, true)
		if hiErr {
			return false
		}
		return n >= lo && n <= hi
	case FilterDateRange:
		t, err := time.Parse(time.RFC3339, field)
		if err != nil {
			return false
		}
		if f.Low != "" {
			lo, err := time.Parse(time.RFC3339, f.Low)
			if err == nil && t.Before(lo) {
				return false
			}
		}
		if f.High != "" {
			hi, err := time.Parse(time.RFC3339, f.High)
			if err == nil && t.After(hi) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// fieldValue resolves a filter's field name against a Metadata, checking
// the first-class fields before falling back to Custom.
func fieldValue(meta store.Metadata, field string) string {
	switch field {
	case "title":
		return meta.Title
	case "content":
		return meta.Content
	case "url":
		return meta.URL
	case "collection":
		return meta.EffectiveCollection()
	case "document_id":
		return meta.DocumentID
	default:
		return meta.Custom[field]
	}
}

func parseFloatOrInf(s string, positive bool) (float64, bool) {
	if s == "" {
		if positive {
			return 1e18, false
		}
		return -1e18, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, true
	}
	return v, false
}
