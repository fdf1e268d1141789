package store

import (
	"github.com/gofrs/flock"

	"github.com/Aman-CERP/docvec/internal/docerrors"
)

// compactionLock is an exclusive, cross-process file lock guarding
// SQLiteStore.Compact so two processes (or two Store handles in the same
// process pointed at the same file) never VACUUM the same database
// concurrently.
type compactionLock struct {
	fl *flock.Flock
}

func acquireCompactionLock(dbPath string) (*compactionLock, error) {
	fl := flock.New(dbPath + ".compact.lock")
	locked, err := fl.TryLock()
	if err != nil {
		return nil, docerrors.Storage("failed to acquire compaction lock", err)
	}
	if !locked {
		return nil, docerrors.New(docerrors.ErrCodeStorageLocked,
			"another process is already compacting this store", nil)
	}
	return &compactionLock{fl: fl}, nil
}

func (l *compactionLock) unlock() {
	_ = l.fl.Unlock()
}
