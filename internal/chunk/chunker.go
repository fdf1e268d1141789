package chunk

import (
	"strings"

	"github.com/Aman-CERP/docvec/internal/docerrors"
	"github.com/Aman-CERP/docvec/internal/document"
)

// Chunk parses content into an ordered sequence of document.Chunk values.
// It fails with ErrCodeInvalidConfig if config violates its
// constraints, and ErrCodeEmptyDocument if no non-empty chunk survives
// post-processing.
//
// For identical (content, config, docID), two calls produce a bit-identical
// result: every strategy below is a deterministic function of the parsed
// element sequence.
func Chunk(content string, docID string, cfg Config) ([]*document.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	elements := parse(content)

	var built []builtChunk
	switch cfg.Strategy {
	case ByHeading:
		built = byHeading(elements, cfg)
	case BySize:
		built = bySize(elements, cfg)
	case Hybrid, Semantic:
		built = reSplitOversized(byHeading(elements, cfg), cfg)
	}

	built = dropUndersized(built, cfg)
	if len(built) == 0 {
		return nil, docerrors.New(docerrors.ErrCodeEmptyDocument,
			"no non-empty chunk could be produced", nil).WithDetail("document_id", docID)
	}

	chunks := make([]*document.Chunk, len(built))
	for i, b := range built {
		chunks[i] = &document.Chunk{
			ID:          document.ChunkID(docID, i),
			DocumentID:  docID,
			Content:     b.content,
			StartByte:   b.startByte,
			EndByte:     b.endByte,
			ChunkIndex:  i,
			ChunkTotal:  len(built),
			Kind:        b.kind,
			HeadingPath: b.headingPath,
		}
	}
	return chunks, nil
}

// builtChunk is the strategy-internal representation before IDs/indices are
// assigned; it becomes a document.Chunk once the final chunk count is known.
type builtChunk struct {
	content     string
	startByte   int
	endByte     int
	kind        document.ChunkKind
	headingPath []string
}

// byHeading emits one chunk per heading-bounded section. The heading
// stack is truncated to the incoming heading's
// level minus one before pushing, so a level-2 heading replaces any
// previously pushed level-2-or-deeper ancestor.
func byHeading(elements []element, cfg Config) []builtChunk {
	var out []builtChunk
	var stack []string // breadcrumb of heading text, index i = level i+1

	var acc []element
	flushAcc := func() {
		if len(acc) == 0 {
			return
		}
		out = append(out, mergeElements(acc, append([]string(nil), stack...), cfg)...)
		acc = nil
	}

	for _, el := range elements {
		switch el.kind {
		case document.ChunkKindHeading:
			flushAcc()
			level := el.headingLvl
			if level > cfg.MaxHeadingDepth {
				level = cfg.MaxHeadingDepth
			}
			if level-1 < len(stack) {
				stack = stack[:level-1]
			}
			for len(stack) < level-1 {
				stack = append(stack, "")
			}
			stack = append(stack, el.headingText)
			if cfg.IncludeHeadingContext {
				acc = append(acc, el)
			}

		case document.ChunkKindCodeBlock:
			if cfg.PreserveCodeBlocks {
				flushAcc()
				out = append(out, builtChunk{
					content:     strings.TrimSpace(el.text),
					startByte:   el.startByte,
					endByte:     el.endByte,
					kind:        document.ChunkKindCodeBlock,
					headingPath: nonEmpty(stack),
				})
				continue
			}
			acc = append(acc, el)
			if accumulatedSize(acc) > cfg.MaxChunkSize {
				flushAcc()
			}

		case document.ChunkKindTable:
			if cfg.PreserveTables {
				flushAcc()
				out = append(out, builtChunk{
					content:     strings.TrimSpace(el.text),
					startByte:   el.startByte,
					endByte:     el.endByte,
					kind:        document.ChunkKindTable,
					headingPath: nonEmpty(stack),
				})
				continue
			}
			acc = append(acc, el)
			if accumulatedSize(acc) > cfg.MaxChunkSize {
				flushAcc()
			}

		default:
			acc = append(acc, el)
			if accumulatedSize(acc) > cfg.MaxChunkSize {
				flushAcc()
			}
		}
	}
	flushAcc()
	return out
}

func accumulatedSize(elements []element) int {
	n := 0
	for _, el := range elements {
		n += len(el.text)
	}
	return n
}

// mergeElements joins a run of elements accumulated under a single heading
// stack into a builtChunk. It returns exactly one chunk for any non-empty
// run; oversized accumulations are flushed earlier, by byHeading itself.
func mergeElements(elements []element, headingPath []string, cfg Config) []builtChunk {
	if len(elements) == 0 {
		return nil
	}
	kind := document.ChunkKindParagraph
	if len(elements) == 1 {
		kind = elements[0].kind
	}
	var sb strings.Builder
	for i, el := range elements {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.TrimSpace(el.text))
	}
	return []builtChunk{{
		content:     sb.String(),
		startByte:   elements[0].startByte,
		endByte:     elements[len(elements)-1].endByte,
		kind:        kind,
		headingPath: nonEmpty(headingPath),
	}}
}

// bySize accumulates elements until adding the next one would exceed
// max_chunk_size, then flushes. Each new chunk after the first starts with
// the last chunk_overlap bytes of the previous chunk, measured at element
// boundaries.
func bySize(elements []element, cfg Config) []builtChunk {
	var out []builtChunk
	var acc []element
	accLen := 0

	flush := func() {
		if len(acc) == 0 {
			return
		}
		var sb strings.Builder
		for i, el := range acc {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(strings.TrimSpace(el.text))
		}
		kind := document.ChunkKindParagraph
		if len(acc) == 1 {
			kind = acc[0].kind
		}
		out = append(out, builtChunk{
			content:   sb.String(),
			startByte: acc[0].startByte,
			endByte:   acc[len(acc)-1].endByte,
			kind:      kind,
		})
	}

	for _, el := range elements {
		elLen := len(el.text)
		if len(acc) > 0 && accLen+elLen > cfg.MaxChunkSize {
			flush()
			acc = overlapTail(acc, cfg.ChunkOverlap)
			accLen = accumulatedSize(acc)
		}
		acc = append(acc, el)
		accLen += elLen
	}
	flush()
	return out
}

// overlapTail returns the trailing run of elements from prev whose combined
// size is closest to, without exceeding, overlapBytes; measured at element
// boundaries when possible.
func overlapTail(prev []element, overlapBytes int) []element {
	if overlapBytes <= 0 || len(prev) == 0 {
		return nil
	}
	size := 0
	start := len(prev)
	for i := len(prev) - 1; i >= 0; i-- {
		next := size + len(prev[i].text)
		if next > overlapBytes && size > 0 {
			break
		}
		size = next
		start = i
	}
	return append([]element(nil), prev[start:]...)
}

// reSplitOversized implements the Hybrid strategy's second pass: any
// ByHeading chunk whose content exceeds max_chunk_size is re-split with
// BySize, preserving the original heading path and kind.
func reSplitOversized(sections []builtChunk, cfg Config) []builtChunk {
	var out []builtChunk
	for _, sec := range sections {
		if len(sec.content) <= cfg.MaxChunkSize || sec.kind == document.ChunkKindCodeBlock || sec.kind == document.ChunkKindTable {
			out = append(out, sec)
			continue
		}
		subElements := parse(sec.content)
		for i := range subElements {
			subElements[i].startByte += sec.startByte
			subElements[i].endByte += sec.startByte
		}
		for _, sub := range bySize(subElements, cfg) {
			sub.headingPath = sec.headingPath
			if sub.kind == document.ChunkKindParagraph {
				sub.kind = sec.kind
			}
			out = append(out, sub)
		}
	}
	return out
}

// dropUndersized removes chunks shorter than min_chunk_size, unless doing
// so would leave none (a single, necessarily-short chunk is always kept).
func dropUndersized(built []builtChunk, cfg Config) []builtChunk {
	if len(built) <= 1 {
		return built
	}
	out := make([]builtChunk, 0, len(built))
	for _, b := range built {
		if len(b.content) >= cfg.MinChunkSize {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return built[:1]
	}
	return out
}

func nonEmpty(path []string) []string {
	out := make([]string, 0, len(path))
	for _, p := range path {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
