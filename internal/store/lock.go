package store

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const defaultLockRetryInterval = 50 * time.Millisecond

// migrationFileLock is a process-wide advisory lock over the migrations
// directory, acquired before a migration run starts so that two processes
// racing to apply migrations against the same directory serialize instead
// of both deciding a file is unapplied. Modeled on the teacher's
// Registry.withFileLock (internal/daemon/registry.go), swapping its ad hoc
// os.OpenFile+syscall flock for gofrs/flock's cross-platform wrapper.
type migrationFileLock struct {
	fl *flock.Flock
}

func newMigrationFileLock(migrationsDir string) *migrationFileLock {
	path := filepath.Join(migrationsDir, ".rdf.lock")
	return &migrationFileLock{fl: flock.New(path)}
}

func (l *migrationFileLock) lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.fl.Path()), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	locked, err := l.fl.TryLockContext(ctx, defaultLockRetryInterval)
	if err != nil {
		return fmt.Errorf("acquire migration file lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire migration file lock: %w", ctx.Err())
	}
	return nil
}

func (l *migrationFileLock) unlock() error {
	return l.fl.Unlock()
}

// advisoryLockKey derives a deterministic bigint key for pg_advisory_lock
// from a string name, the same way a distributed job might key a lock off
// a table or tenant name.
func advisoryLockKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}
