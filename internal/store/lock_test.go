package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestAdvisoryLockKeyIsStableAndDistinct(t *testing.T) {
	a := advisoryLockKey("rdf.migrate")
	b := advisoryLockKey("rdf.migrate")
	if a != b {
		t.Fatalf("expected stable key, got %d and %d", a, b)
	}
	c := advisoryLockKey("rdf.exclusive")
	if a == c {
		t.Fatal("expected distinct names to hash to distinct keys")
	}
}

func TestMigrationFileLockSerializesAgainstItself(t *testing.T) {
	dir := t.TempDir()

	first := newMigrationFileLock(dir)
	if err := first.lock(context.Background()); err != nil {
		t.Fatalf("first lock: %v", err)
	}

	second := newMigrationFileLock(dir)
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	if err := second.lock(ctx); err == nil {
		t.Fatal("expected second lock attempt to fail while first is held")
	}

	if err := first.unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	if err := second.lock(ctx2); err != nil {
		t.Fatalf("expected lock to succeed after release, got: %v", err)
	}
	_ = second.unlock()
}

func TestNewMigrationFileLockPathIsInsideMigrationsDir(t *testing.T) {
	dir := t.TempDir()
	l := newMigrationFileLock(dir)
	want := filepath.Join(dir, ".rdf.lock")
	if l.fl.Path() != want {
		t.Fatalf("lock path = %q, want %q", l.fl.Path(), want)
	}
}
