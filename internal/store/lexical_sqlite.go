package store

import (
	"database/sql"
	"strings"
	"sync"

	"github.com/Aman-CERP/docvec/internal/docerrors"
)

// SQLiteLexicalIndex backs LexicalIndex with an FTS5 virtual table living in
// the same database file as the vector table, so one store file carries both
// halves of hybrid search and Compact moves them together.
//
// Content is pre-tokenized with Tokenize before indexing, so camelCase and
// snake_case identifiers embedded in technical prose match their split
// forms, and the query side applies the identical tokenization.
type SQLiteLexicalIndex struct {
	mu        sync.RWMutex
	db        *sql.DB
	stopWords map[string]struct{}
}

var _ LexicalIndex = (*SQLiteLexicalIndex)(nil)

const lexicalSchemaDDL = `
CREATE VIRTUAL TABLE IF NOT EXISTS fts_content USING fts5(
	vector_id UNINDEXED,
	content,
	tokenize = 'unicode61'
);
CREATE TABLE IF NOT EXISTS fts_ids (
	vector_id TEXT PRIMARY KEY
);
`

// NewSQLiteLexicalIndex initializes the FTS5 schema on db and returns an
// index backed by it. db stays owned by the caller; Close is a no-op.
func NewSQLiteLexicalIndex(db *sql.DB) (*SQLiteLexicalIndex, error) {
	if _, err := db.Exec(lexicalSchemaDDL); err != nil {
		return nil, docerrors.Storage("failed to initialize lexical index schema", err)
	}
	return &SQLiteLexicalIndex{
		db:        db,
		stopWords: BuildStopWordMap(DefaultStopWords),
	}, nil
}

// indexable flattens the searchable subset of meta into one token stream.
func (s *SQLiteLexicalIndex) indexable(meta Metadata) string {
	parts := []string{meta.Content, meta.Title, strings.Join(meta.HeadingPath, " ")}
	tokens := FilterStopWords(Tokenize(strings.Join(parts, " ")), s.stopWords)
	return strings.Join(tokens, " ")
}

func (s *SQLiteLexicalIndex) Index(vectorID string, meta Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return docerrors.Storage("failed to begin lexical index transaction", err)
	}
	defer tx.Rollback()

	// FTS5 virtual tables do not support upsert; delete then insert.
	if _, err := tx.Exec(`DELETE FROM fts_content WHERE vector_id = ?`, vectorID); err != nil {
		return docerrors.Storage("failed to clear existing lexical entry", err)
	}
	if _, err := tx.Exec(`INSERT INTO fts_content(vector_id, content) VALUES (?, ?)`,
		vectorID, s.indexable(meta)); err != nil {
		return docerrors.Storage("failed to index document into lexical index", err)
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO fts_ids(vector_id) VALUES (?)`, vectorID); err != nil {
		return docerrors.Storage("failed to track lexical index ID", err)
	}
	return tx.Commit()
}

func (s *SQLiteLexicalIndex) Remove(vectorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return docerrors.Storage("failed to begin lexical index transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM fts_content WHERE vector_id = ?`, vectorID); err != nil {
		return docerrors.Storage("failed to remove document from lexical index", err)
	}
	if _, err := tx.Exec(`DELETE FROM fts_ids WHERE vector_id = ?`, vectorID); err != nil {
		return docerrors.Storage("failed to remove lexical index ID", err)
	}
	return tx.Commit()
}

func (s *SQLiteLexicalIndex) Search(query string, k int) ([]LexicalHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := FilterStopWords(Tokenize(query), s.stopWords)
	if len(tokens) == 0 {
		return nil, nil
	}
	// OR-join the tokens: a prose query should match documents containing
	// any of its terms, ranked by bm25, not require every term.
	match := strings.Join(tokens, " OR ")

	// FTS5's bm25() is negative with lower = better; ORDER BY score ascending
	// puts the best matches first, and negating restores higher-is-better.
	rows, err := s.db.Query(`
		SELECT vector_id, bm25(fts_content) AS score
		FROM fts_content
		WHERE fts_content MATCH ?
		ORDER BY score
		LIMIT ?`, match, k)
	if err != nil {
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return nil, nil
		}
		return nil, docerrors.Storage("lexical search failed", err)
	}
	defer rows.Close()

	var hits []LexicalHit
	for rows.Next() {
		var id string
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, docerrors.Storage("failed to scan lexical hit", err)
		}
		hits = append(hits, LexicalHit{VectorID: id, Score: -score})
	}
	if err := rows.Err(); err != nil {
		return nil, docerrors.Storage("failed reading lexical hits", err)
	}
	return hits, nil
}

func (s *SQLiteLexicalIndex) AllIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT vector_id FROM fts_ids ORDER BY vector_id`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return ids
		}
		ids = append(ids, id)
	}
	return ids
}

// Close is a no-op: the database handle belongs to the vector store that
// shares it.
func (s *SQLiteLexicalIndex) Close() error { return nil }
