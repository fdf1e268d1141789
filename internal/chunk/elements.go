package chunk

import (
	"strings"

	"github.com/Aman-CERP/docvec/internal/document"
)

// kind mirrors document.ChunkKind plus an internal-only "blank" marker used
// to close the current element during the parse phase; blank elements are
// never emitted as chunks.
type kind = document.ChunkKind

const kindBlank kind = "blank"

// element is one structural unit recognized by the line-level parser,
// before any strategy groups elements into chunks.
type element struct {
	kind        kind
	text        string // raw text, newline-joined, as it appeared in the source
	startByte   int
	endByte     int
	headingText string // set only when kind == ChunkKindHeading
	headingLvl  int    // set only when kind == ChunkKindHeading
}

// parse scans content line by line and groups lines into structural
// elements: fenced code blocks, headings,
// tables, lists, paragraphs, with blank lines closing the current element.
func parse(content string) []element {
	var elements []element
	var cur *element
	inCodeBlock := false

	flush := func() {
		if cur != nil {
			cur.text = strings.TrimRight(cur.text, "\n")
			cur.endByte = cur.startByte + len(cur.text)
			elements = append(elements, *cur)
			cur = nil
		}
	}

	lines := splitLinesKeepOffsets(content)
	for _, ln := range lines {
		line := ln.text
		trimmed := strings.TrimSpace(line)

		if inCodeBlock {
			cur.text += line + "\n"
			if isFenceLine(trimmed) {
				inCodeBlock = false
				flush()
			}
			continue
		}

		switch {
		case trimmed == "":
			flush()

		case isFenceLine(trimmed):
			flush()
			inCodeBlock = true
			cur = &element{kind: document.ChunkKindCodeBlock, startByte: ln.start, text: line + "\n"}

		case isHeadingLine(trimmed):
			flush()
			level, text := parseHeading(trimmed)
			elements = append(elements, element{
				kind:        document.ChunkKindHeading,
				startByte:   ln.start,
				endByte:     ln.end,
				text:        line,
				headingText: text,
				headingLvl:  level,
			})

		case isTableLine(trimmed):
			if cur == nil || cur.kind != document.ChunkKindTable {
				flush()
				cur = &element{kind: document.ChunkKindTable, startByte: ln.start}
			}
			cur.text += line + "\n"

		case isListLine(trimmed):
			if cur == nil || cur.kind != document.ChunkKindList {
				flush()
				cur = &element{kind: document.ChunkKindList, startByte: ln.start}
			}
			cur.text += line + "\n"

		default:
			if cur == nil || cur.kind != document.ChunkKindParagraph {
				flush()
				cur = &element{kind: document.ChunkKindParagraph, startByte: ln.start}
			}
			cur.text += line + "\n"
		}
	}
	flush()

	return elements
}

type lineSpan struct {
	text       string
	start, end int
}

// splitLinesKeepOffsets splits content into lines while tracking each
// line's byte offsets (excluding the trailing newline) in the original
// content, so elements can carry accurate [start, end) byte ranges.
func splitLinesKeepOffsets(content string) []lineSpan {
	var spans []lineSpan
	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			spans = append(spans, lineSpan{text: content[start:i], start: start, end: i})
			start = i + 1
		}
	}
	if start < len(content) {
		spans = append(spans, lineSpan{text: content[start:], start: start, end: len(content)})
	}
	return spans
}

func isFenceLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "```")
}

func isHeadingLine(trimmed string) bool {
	if strings.HasPrefix(trimmed, "#[") {
		return false
	}
	i := 0
	for i < len(trimmed) && trimmed[i] == '#' {
		i++
	}
	return i > 0 && i < len(trimmed) && trimmed[i] == ' '
}

func parseHeading(trimmed string) (level int, text string) {
	i := 0
	for i < len(trimmed) && trimmed[i] == '#' {
		i++
	}
	level = i
	if level > 6 {
		level = 6
	}
	text = strings.TrimSpace(trimmed[i:])
	return level, text
}

func isTableLine(trimmed string) bool {
	return strings.Contains(trimmed, "|") && len(trimmed) > 2
}

func isListLine(trimmed string) bool {
	if trimmed == "" {
		return false
	}
	switch trimmed[0] {
	case '-', '*', '+':
		return len(trimmed) > 1 && trimmed[1] == ' '
	}
	if trimmed[0] >= '0' && trimmed[0] <= '9' {
		i := 0
		for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
			i++
		}
		return i < len(trimmed)-1 && trimmed[i] == '.' && trimmed[i+1] == ' '
	}
	return false
}
