// Package chunk implements the structural chunker: it parses a document's
// line-level structure (headings, paragraphs, fenced code blocks, tables,
// lists) and groups that structure into document.Chunk values using one of
// four strategies.
package chunk

import (
	"strconv"

	"github.com/Aman-CERP/docvec/internal/docerrors"
)

// Strategy selects how parsed elements are grouped into chunks.
type Strategy string

const (
	// ByHeading emits one chunk per heading-bounded section.
	ByHeading Strategy = "by_heading"
	// BySize accumulates elements until the size budget is exhausted.
	BySize Strategy = "by_size"
	// Hybrid runs ByHeading first, then re-splits oversized sections with BySize.
	Hybrid Strategy = "hybrid"
	// Semantic is reserved for future embedding-driven boundaries; for now
	// it is defined identically to Hybrid.
	Semantic Strategy = "semantic"
)

// Config controls chunking behavior. The zero value is invalid; use
// DefaultConfig and override fields, or construct one directly and call
// Validate.
type Config struct {
	Strategy              Strategy
	MaxChunkSize          int
	MinChunkSize          int
	ChunkOverlap          int
	MaxHeadingDepth       int
	IncludeHeadingContext bool
	PreserveCodeBlocks    bool
	PreserveTables        bool
}

// DefaultConfig returns a Config with the values the pipeline uses when the
// caller supplies none.
func DefaultConfig() Config {
	return Config{
		Strategy:              Hybrid,
		MaxChunkSize:          2000,
		MinChunkSize:          64,
		ChunkOverlap:          200,
		MaxHeadingDepth:       6,
		IncludeHeadingContext: true,
		PreserveCodeBlocks:    true,
		PreserveTables:        true,
	}
}

// Validate checks the configuration constraints:
// 0 < min_chunk_size <= max_chunk_size, 0 <= chunk_overlap < max_chunk_size,
// 1 <= max_heading_depth <= 6.
func (c Config) Validate() error {
	if c.MinChunkSize <= 0 || c.MinChunkSize > c.MaxChunkSize {
		return docerrors.New(docerrors.ErrCodeInvalidConfig,
			"min_chunk_size must be > 0 and <= max_chunk_size", nil).
			WithDetail("min_chunk_size", strconv.Itoa(c.MinChunkSize)).
			WithDetail("max_chunk_size", strconv.Itoa(c.MaxChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.MaxChunkSize {
		return docerrors.New(docerrors.ErrCodeInvalidConfig,
			"chunk_overlap must be >= 0 and < max_chunk_size", nil).
			WithDetail("chunk_overlap", strconv.Itoa(c.ChunkOverlap))
	}
	if c.MaxHeadingDepth < 1 || c.MaxHeadingDepth > 6 {
		return docerrors.New(docerrors.ErrCodeInvalidConfig,
			"max_heading_depth must be between 1 and 6", nil).
			WithDetail("max_heading_depth", strconv.Itoa(c.MaxHeadingDepth))
	}
	switch c.Strategy {
	case ByHeading, BySize, Hybrid, Semantic:
	default:
		return docerrors.New(docerrors.ErrCodeInvalidConfig,
			"unknown chunk strategy", nil).WithDetail("strategy", string(c.Strategy))
	}
	return nil
}
