// Package document defines the core data model shared by the chunker, the
// store, and the search pipeline: Document, Chunk, and the stable
// identifiers derived from file content and position.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// FileType identifies the source format of a document.
type FileType string

const (
	FileTypeMarkdown FileType = "markdown"
	FileTypeHTML     FileType = "html"
	FileTypeText     FileType = "text"
)

// DocType is a coarse classification of a document's purpose, inferred from
// its path and content, used as a reranker signal and as filterable metadata.
type DocType string

const (
	DocTypeGuide     DocType = "guide"
	DocTypeReference DocType = "reference"
	DocTypeAPI       DocType = "api"
	DocTypeTutorial  DocType = "tutorial"
	DocTypeChangelog DocType = "changelog"
	DocTypeGeneral   DocType = "general"
)

// ChunkKind is the structural role of a chunk within its document.
type ChunkKind string

const (
	ChunkKindHeading   ChunkKind = "heading"
	ChunkKindParagraph ChunkKind = "paragraph"
	ChunkKindCodeBlock ChunkKind = "code_block"
	ChunkKindList      ChunkKind = "list"
	ChunkKindTable     ChunkKind = "table"
)

// Document is one indexed source file and its derived chunks.
type Document struct {
	ID        string // stable identifier derived from AbsPath
	Revision  string // content-hash of the most recently indexed content
	Title     string // derived from the first heading, or the file stem
	AbsPath   string // absolute filesystem path
	RelPath   string // path relative to the indexed root
	FileType  FileType
	Size      int64
	CreatedAt time.Time
	UpdatedAt time.Time
	Section   string // derived from the first path component under the root
	DocType   DocType
	Tags      []string
	Chunks    []*Chunk
}

// Chunk is one retrievable unit of a Document's content.
type Chunk struct {
	ID          string // DocumentID + zero-padded chunk index
	DocumentID  string
	Content     string
	StartByte   int // inclusive, offset into the document's raw content
	EndByte     int // exclusive
	ChunkIndex  int
	ChunkTotal  int
	Kind        ChunkKind
	HeadingPath []string // breadcrumb of enclosing heading text, outermost first
}

// DocumentID derives a stable identifier for a document from its absolute
// path. The same path always yields the same ID across index() calls,
// which is what lets re-indexing a changed file update rather than
// duplicate its chunks.
func DocumentID(absPath string) string {
	sum := sha256.Sum256([]byte(absPath))
	return hex.EncodeToString(sum[:])[:16]
}

// RevisionID derives a content hash used to detect whether a document's
// content changed since the last index() call.
func RevisionID(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ChunkID derives a stable, ordering-preserving chunk identifier.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s:%05d", documentID, index)
}

// DetectFileType classifies a document by its file extension.
func DetectFileType(path string) FileType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdx":
		return FileTypeMarkdown
	case ".html", ".htm":
		return FileTypeHTML
	default:
		return FileTypeText
	}
}

// SectionLabel derives a coarse section label from a document's path
// relative to the indexed root: its first path component, or "root" for
// top-level files.
func SectionLabel(relPath string) string {
	relPath = filepath.ToSlash(relPath)
	relPath = strings.TrimPrefix(relPath, "/")
	if idx := strings.IndexByte(relPath, '/'); idx >= 0 {
		return relPath[:idx]
	}
	return "root"
}

var (
	changelogStems = []string{"changelog", "changes", "history", "release"}
	tutorialStems  = []string{"tutorial", "getting-started", "getting_started", "quickstart", "walkthrough"}
	apiStems       = []string{"api", "reference/api"}
	referenceStems = []string{"reference", "spec", "specification"}
)

// ClassifyDocType infers a DocType from a document's path and, where the
// path is ambiguous, its leading content.
func ClassifyDocType(relPath string, content string) DocType {
	lower := strings.ToLower(filepath.ToSlash(relPath))

	for _, stem := range changelogStems {
		if strings.Contains(lower, stem) {
			return DocTypeChangelog
		}
	}
	for _, stem := range tutorialStems {
		if strings.Contains(lower, stem) {
			return DocTypeTutorial
		}
	}
	for _, stem := range apiStems {
		if strings.Contains(lower, stem) {
			return DocTypeAPI
		}
	}
	for _, stem := range referenceStems {
		if strings.Contains(lower, stem) {
			return DocTypeReference
		}
	}

	firstLine := strings.ToLower(firstNonEmptyLine(content))
	switch {
	case strings.HasPrefix(firstLine, "# api"), strings.Contains(firstLine, "api reference"):
		return DocTypeAPI
	case strings.Contains(firstLine, "tutorial"), strings.Contains(firstLine, "guide"):
		return DocTypeGuide
	}

	return DocTypeGeneral
}

// TitleFromContent extracts a title from a document's first Markdown/HTML
// heading, falling back to the given stem (typically the file's base name
// without extension) when no heading is present.
func TitleFromContent(content string, fallbackStem string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			title := strings.TrimLeft(trimmed, "#")
			title = strings.TrimSpace(title)
			if title != "" {
				return title
			}
		}
	}
	return fallbackStem
}

func firstNonEmptyLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
