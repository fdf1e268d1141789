//go:build cgo_sqlite

package store

import (
	_ "github.com/mattn/go-sqlite3"
)

// Building with -tags cgo_sqlite links mattn/go-sqlite3 instead of the
// default pure-Go modernc.org/sqlite driver.
func init() {
	sqlDriverName = "sqlite3"
}
