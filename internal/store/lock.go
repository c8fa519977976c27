package store

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// dirLock is an advisory, per-process exclusive lock on a data directory,
// guarding against two processes independently opening (and migrating) the
// same database file concurrently. WAL mode tolerates one writer connection
// within a process; it does not arbitrate between two separate processes.
type dirLock struct {
	fl *flock.Flock
}

// acquireDirLock takes a non-blocking exclusive lock on dir/.cortex.lock.
func acquireDirLock(dir string) (*dirLock, error) {
	fl := flock.New(filepath.Join(dir, ".cortex.lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("store directory %s is already open by another process", dir)
	}
	return &dirLock{fl: fl}, nil
}

// Release unlocks the directory lock.
func (l *dirLock) Release() error {
	return l.fl.Unlock()
}
