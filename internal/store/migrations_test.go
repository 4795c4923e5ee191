package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiscoverMigrationsOrdersByNumericPrefix(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"002.add_hooks.yaml",
		"001.bootstrap.sql",
		"010.later.yaml",
		"README.md",
		".rdf.lock",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write fixture %s: %v", name, err)
		}
	}

	files, err := discoverMigrations(dir)
	if err != nil {
		t.Fatalf("discoverMigrations: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 recognised migration files, got %d: %+v", len(files), files)
	}
	want := []int{1, 2, 10}
	for i, f := range files {
		if f.number != want[i] {
			t.Fatalf("position %d: expected number %d, got %d", i, want[i], f.number)
		}
	}
}

func TestDiscoverMigrationsOnMissingDirectoryReturnsEmpty(t *testing.T) {
	files, err := discoverMigrations(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("expected no error for missing directory, got %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected no files, got %d", len(files))
	}
}

func TestChecksumIsStableForIdenticalContent(t *testing.T) {
	a := checksum([]byte("create table foo();"))
	b := checksum([]byte("create table foo();"))
	if a != b {
		t.Fatalf("expected identical checksums, got %q and %q", a, b)
	}
	c := checksum([]byte("create table bar();"))
	if a == c {
		t.Fatal("expected different content to produce different checksums")
	}
}
