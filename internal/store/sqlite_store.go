package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Aman-CERP/docvec/internal/docerrors"
	"github.com/Aman-CERP/docvec/internal/similarity"
)

// SQLiteStore is the persistent, embedded vector store: a
// vectors(id, embedding, metadata, created_at) table plus a small state
// key-value table, one file per index, no external services.
type SQLiteStore struct {
	path string
	db   *sql.DB
	dim  int

	mu    sync.RWMutex
	cache *vectorCache

	lex LexicalIndex
}

var _ Store = (*SQLiteStore)(nil)

// sqlDriverName selects the registered database/sql driver used to open the
// store. It defaults to modernc.org/sqlite's pure-Go "sqlite" driver; the
// cgo_sqlite build tag (see cgo_driver.go) swaps it for mattn/go-sqlite3's
// "sqlite3" driver, which some deployments prefer for its more mature
// extension-loading support at the cost of requiring a C toolchain.
var sqlDriverName = "sqlite"

// OpenSQLiteStore opens (creating if absent) a SQLite-backed vector store
// at path, enforcing embeddings of exactly dim float32 components.
func OpenSQLiteStore(path string, dim int, cacheSize int) (*SQLiteStore, error) {
	db, err := openStoreDB(path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, docerrors.Storage("failed to initialize vector store schema", err)
	}

	cache, err := newVectorCache(cacheSize)
	if err != nil {
		db.Close()
		return nil, docerrors.Internal("failed to initialize vector cache", err)
	}

	return &SQLiteStore{path: path, db: db, dim: dim, cache: cache}, nil
}

// openStoreDB opens the database with a single connection and applies the
// WAL pragmas explicitly, since modernc.org/sqlite ignores the mattn-style
// DSN query parameters.
func openStoreDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	db, err := sql.Open(sqlDriverName, dsn)
	if err != nil {
		return nil, docerrors.Storage("failed to open vector store database", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, docerrors.Storage("failed to configure vector store database", err)
		}
	}
	return db, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS vectors (
	id TEXT PRIMARY KEY,
	embedding BLOB NOT NULL,
	metadata TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_vectors_created_at ON vectors(created_at);
CREATE TABLE IF NOT EXISTS state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// SetLexicalIndex attaches a LexicalIndex that Insert/Delete/Update keep in
// sync for the hybrid search pipeline's lexical fusion stage.
func (s *SQLiteStore) SetLexicalIndex(lex LexicalIndex) {
	s.lex = lex
}

func (s *SQLiteStore) Dimension() int { return s.dim }

// DB returns the underlying connection so other subsystems that persist into
// the same on-disk file, such as query telemetry, can share it rather than
// opening a second handle on the same SQLite file.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float32 {
	n := len(buf) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

func (s *SQLiteStore) Insert(ctx context.Context, records []VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if len(r.Embedding) != s.dim {
			return dimensionError(s.dim, len(r.Embedding))
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return docerrors.Storage("failed to begin insert transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (id, embedding, metadata, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET embedding = excluded.embedding, metadata = excluded.metadata
	`)
	if err != nil {
		return docerrors.Storage("failed to prepare insert statement", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return docerrors.Validation("failed to marshal vector metadata", err)
		}
		created := r.CreatedAt
		if created.IsZero() {
			created = now
		}
		if _, err := stmt.ExecContext(ctx, r.VectorID, encodeEmbedding(r.Embedding), string(meta), created); err != nil {
			return docerrors.Storage("failed to insert vector record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return docerrors.Storage("failed to commit insert transaction", err)
	}

	for _, r := range records {
		s.cache.put(r.VectorID, r.Embedding)
		if s.lex != nil {
			s.lex.Index(r.VectorID, r.Metadata)
		}
	}
	return nil
}

func (s *SQLiteStore) Search(ctx context.Context, queryVec []float32, k int) ([]ScoredRecord, error) {
	return s.search(ctx, queryVec, k, "")
}

func (s *SQLiteStore) SearchInCollection(ctx context.Context, name string, queryVec []float32, k int) ([]ScoredRecord, error) {
	return s.search(ctx, queryVec, k, name)
}

func (s *SQLiteStore) search(ctx context.Context, queryVec []float32, k int, collection string) ([]ScoredRecord, error) {
	if len(queryVec) != s.dim {
		return nil, dimensionError(s.dim, len(queryVec))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding, metadata FROM vectors`)
	if err != nil {
		return nil, docerrors.Storage("failed to query vectors", err)
	}
	defer rows.Close()

	var ids []string
	var vecs [][]float32
	var metas []Metadata

	scanned := 0
	for rows.Next() {
		// A brute-force scan can cover a large store; honor cancellation at
		// least every 1024 candidates.
		scanned++
		if scanned%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, docerrors.Cancelled("search cancelled during vector scan", err)
			}
		}
		var id, metaJSON string
		var blob []byte
		if err := rows.Scan(&id, &blob, &metaJSON); err != nil {
			return nil, docerrors.Storage("failed to scan vector row", err)
		}
		var meta Metadata
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			continue // corrupt record, skipped; surfaced via HealthCheck
		}
		if collection != "" && meta.EffectiveCollection() != collection {
			continue
		}

		if cached, ok := s.cache.get(id); ok {
			vecs = append(vecs, cached)
		} else {
			v := decodeEmbedding(blob)
			s.cache.put(id, v)
			vecs = append(vecs, v)
		}
		ids = append(ids, id)
		metas = append(metas, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, docerrors.Storage("failed reading vector rows", err)
	}

	scores := similarity.Similarities(queryVec, vecs)
	return rankTopK(ids, scores, metas, k), nil
}

// Get fetches a single record by VectorID, going through the embedding
// cache for the vector bytes but always reading metadata from the table.
func (s *SQLiteStore) Get(ctx context.Context, vectorID string) (VectorRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var metaJSON string
	var blob []byte
	var created time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT embedding, metadata, created_at FROM vectors WHERE id = ?`, vectorID).
		Scan(&blob, &metaJSON, &created)
	if err == sql.ErrNoRows {
		return VectorRecord{}, false, nil
	}
	if err != nil {
		return VectorRecord{}, false, docerrors.Storage("failed to read vector record", err)
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
		return VectorRecord{}, false, docerrors.New(docerrors.ErrCodeCorruptRecord,
			"vector record metadata is not valid JSON", err).WithDetail("vector_id", vectorID)
	}

	emb, ok := s.cache.get(vectorID)
	if !ok {
		emb = decodeEmbedding(blob)
		s.cache.put(vectorID, emb)
	}
	return VectorRecord{VectorID: vectorID, Embedding: emb, Metadata: meta, CreatedAt: created}, true, nil
}

// IDsForDocument returns every vector ID whose record belongs to docID, in
// chunk order. Chunk IDs are "<doc_id>:<zero-padded-index>", so a prefix
// match plus an ordered scan is exact.
func (s *SQLiteStore) IDsForDocument(ctx context.Context, docID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM vectors WHERE id >= ? AND id < ? ORDER BY id`, docID+":", docID+";")
	if err != nil {
		return nil, docerrors.Storage("failed to query document chunk IDs", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, docerrors.Storage("failed to scan chunk ID row", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, docerrors.Storage("failed reading chunk ID rows", err)
	}
	return ids, nil
}

// ScanRecords calls fn for every stored record, skipping records whose
// metadata fails to decode. It exists for startup work that has to visit
// the whole store, such as rebuilding an in-memory lexical index.
func (s *SQLiteStore) ScanRecords(ctx context.Context, fn func(VectorRecord) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding, metadata, created_at FROM vectors ORDER BY id`)
	if err != nil {
		return docerrors.Storage("failed to query vectors", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, metaJSON string
		var blob []byte
		var created time.Time
		if err := rows.Scan(&id, &blob, &metaJSON, &created); err != nil {
			return docerrors.Storage("failed to scan vector row", err)
		}
		var meta Metadata
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			continue
		}
		rec := VectorRecord{VectorID: id, Embedding: decodeEmbedding(blob), Metadata: meta, CreatedAt: created}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ListCollections returns the distinct effective collection names present
// in the store, scanning metadata rather than relying on a JSON1 index
// since the metadata column is a plain serialized blob, not a JSON1 column.
func (s *SQLiteStore) ListCollections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT metadata FROM vectors`)
	if err != nil {
		return nil, docerrors.Storage("failed to query vectors", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var collections []string
	for rows.Next() {
		var metaJSON string
		if err := rows.Scan(&metaJSON); err != nil {
			return nil, docerrors.Storage("failed to scan vector row", err)
		}
		var meta Metadata
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			continue
		}
		name := meta.EffectiveCollection()
		if !seen[name] {
			seen[name] = true
			collections = append(collections, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, docerrors.Storage("failed reading vector rows", err)
	}
	return collections, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, vectorID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM vectors WHERE id = ?`, vectorID)
	if err != nil {
		return false, docerrors.Storage("failed to delete vector record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, docerrors.Storage("failed to read delete result", err)
	}
	if n > 0 {
		s.cache.remove(vectorID)
		if s.lex != nil {
			s.lex.Remove(vectorID)
		}
	}
	return n > 0, nil
}

func (s *SQLiteStore) Update(ctx context.Context, vectorID string, newVec []float32) (bool, error) {
	if len(newVec) != s.dim {
		return false, dimensionError(s.dim, len(newVec))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE vectors SET embedding = ? WHERE id = ?`, encodeEmbedding(newVec), vectorID)
	if err != nil {
		return false, docerrors.Storage("failed to update vector record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, docerrors.Storage("failed to read update result", err)
	}
	if n > 0 {
		s.cache.put(vectorID, newVec)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors`).Scan(&n); err != nil {
		return 0, docerrors.Storage("failed to count vector records", err)
	}
	return n, nil
}

func (s *SQLiteStore) HealthCheck(ctx context.Context) HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding, metadata FROM vectors`)
	if err != nil {
		return HealthStatus{Status: StatusUnhealthy, Detail: err.Error()}
	}
	defer rows.Close()

	total, corrupt := 0, 0
	var vectorIDs []string
	for rows.Next() {
		var id, metaJSON string
		var blob []byte
		if err := rows.Scan(&id, &blob, &metaJSON); err != nil {
			corrupt++
			continue
		}
		total++
		var meta Metadata
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			corrupt++
			continue
		}
		if len(blob)%4 != 0 || len(blob)/4 != s.dim {
			corrupt++
			continue
		}
		vectorIDs = append(vectorIDs, id)
	}

	consistent := true
	if s.lex != nil {
		consistent = consistencyCheck(vectorIDs, s.lex.AllIDs())
	}

	status := StatusHealthy
	detail := "ok"
	switch {
	case corrupt > 0 && !consistent:
		status, detail = StatusUnhealthy, "corrupt records and lexical index divergence detected"
	case corrupt > 0:
		status, detail = StatusDegraded, "corrupt records detected"
	case !consistent:
		status, detail = StatusDegraded, "lexical index out of sync with vector store"
	}

	return HealthStatus{
		Status:        status,
		Detail:        detail,
		RecordCount:   total,
		CorruptCount:  corrupt,
		ConsistentIDs: consistent,
	}
}

// Compact reclaims storage after heavy churn without changing observable
// contents. It vacuums in place rather than rewriting into a fresh file, so
// subsystems sharing this store's connection (lexical index, telemetry)
// keep a valid handle, and takes an exclusive file lock so compaction
// attempts from different processes cannot interleave.
func (s *SQLiteStore) Compact(ctx context.Context) error {
	lock, err := acquireCompactionLock(s.path)
	if err != nil {
		return err
	}
	defer lock.unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return docerrors.Storage("failed to vacuum vector store", err)
	}
	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return docerrors.Storage("failed to checkpoint vector store WAL", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Close(); err != nil {
		return docerrors.Storage("failed to close vector store", err)
	}
	return nil
}

// SaveState upserts a key-value pair in the store's state table, used for
// indexing checkpoints and other small durable markers.
func (s *SQLiteStore) SaveState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return docerrors.Storage("failed to save state", err)
	}
	return nil
}

// LoadState reads a state value; the second return is false when the key
// has never been saved.
func (s *SQLiteStore) LoadState(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, docerrors.Storage("failed to load state", err)
	}
	return value, true, nil
}

// ClearState deletes a state key.
func (s *SQLiteStore) ClearState(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM state WHERE key = ?`, key); err != nil {
		return docerrors.Storage("failed to clear state", err)
	}
	return nil
}
