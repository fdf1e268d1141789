package store

import (
	"context"
	"sort"

	"github.com/Aman-CERP/docvec/internal/docerrors"
)

// consistencyCheck reports whether the vector store and lexical index agree
// on the set of stored IDs, so drift after a partial write surfaces in the
// health check: hybrid search is only correct if every vector has a lexical
// entry (and vice versa).
func consistencyCheck(vectorIDs, lexicalIDs []string) bool {
	if len(vectorIDs) != len(lexicalIDs) {
		return false
	}
	a := append([]string(nil), vectorIDs...)
	b := append([]string(nil), lexicalIDs...)
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ConsistencyReport describes a divergence between the vector store and
// the lexical index, naming the IDs present on only one side so a caller
// can decide whether to reindex or repair.
type ConsistencyReport struct {
	Consistent     bool
	MissingInLex   []string
	MissingInStore []string
}

// CheckConsistency compares the full ID sets of s and lex, returning which
// IDs are out of sync. It is a maintenance helper for diagnosing drift
// after a crash mid-write; nothing in docvec calls it automatically.
func CheckConsistency(ctx context.Context, s Store, lex LexicalIndex) (ConsistencyReport, error) {
	sq, ok := s.(*SQLiteStore)
	if !ok {
		return ConsistencyReport{}, docerrors.Internal("consistency check requires a SQLiteStore", nil)
	}

	rows, err := sq.db.QueryContext(ctx, `SELECT id FROM vectors`)
	if err != nil {
		return ConsistencyReport{}, docerrors.Storage("failed to list vector ids", err)
	}
	defer rows.Close()

	storeSet := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return ConsistencyReport{}, docerrors.Storage("failed to scan vector id", err)
		}
		storeSet[id] = struct{}{}
	}

	lexSet := make(map[string]struct{})
	for _, id := range lex.AllIDs() {
		lexSet[id] = struct{}{}
	}

	var report ConsistencyReport
	for id := range storeSet {
		if _, ok := lexSet[id]; !ok {
			report.MissingInLex = append(report.MissingInLex, id)
		}
	}
	for id := range lexSet {
		if _, ok := storeSet[id]; !ok {
			report.MissingInStore = append(report.MissingInStore, id)
		}
	}
	sort.Strings(report.MissingInLex)
	sort.Strings(report.MissingInStore)
	report.Consistent = len(report.MissingInLex) == 0 && len(report.MissingInStore) == 0
	return report, nil
}
