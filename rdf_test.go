package rdf_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/acuminous/rdf"
)

// TestFrameworkLifecycle exercises Init/Start/Subscribe/Stop end to end
// against a real Postgres instance. It requires RDF_TEST_DATABASE_HOST to
// point at a throwaway database host (copied into RDF_DATABASE_HOST; the
// other connection settings come from the usual RDF_DATABASE_* variables
// or defaults), is skipped when it is unset, and is skipped in short mode, the same gate the teacher applies to its own
// integration tests.
func TestFrameworkLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv("RDF_TEST_DATABASE_HOST") == "" {
		t.Skip("RDF_TEST_DATABASE_HOST not set, skipping database integration test")
	}
	t.Setenv("RDF_DATABASE_HOST", os.Getenv("RDF_TEST_DATABASE_HOST"))

	dir := t.TempDir()
	migrationsDir := filepath.Join(dir, "migrations")
	if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
		t.Fatalf("create migrations dir: %v", err)
	}

	doc := `
- define entities:
    - name: currency
      version: 1
      identified_by: [code]
      fields:
        - name: code
          type: text
        - name: symbol
          type: text
- add projections:
    - name: currencies
      version: 1
      dependencies:
        - entity: currency
          version: 1
- add hooks:
    - event: projection.updated
      projection: currencies
      version: 1
`
	if err := os.WriteFile(filepath.Join(migrationsDir, "001.bootstrap_currency.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write fixture migration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fw, err := rdf.Init(ctx, dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer fw.Stop()

	fw.Start(ctx)

	fired := make(chan rdf.Payload, 1)
	fw.Subscribe("projection.updated", func(ctx context.Context, p rdf.Payload) error {
		fired <- p
		return nil
	})

	projection, err := fw.GetProjection(ctx, "currencies", 1)
	if err != nil {
		t.Fatalf("GetProjection: %v", err)
	}

	changeLog, err := fw.GetChangeLog(ctx, projection.ID)
	if err != nil {
		t.Fatalf("GetChangeLog: %v", err)
	}
	if len(changeLog) != 0 {
		t.Fatalf("expected empty change log before any change set is inserted, got %d entries", len(changeLog))
	}

	select {
	case <-fired:
		t.Fatal("no notification should have fired with no change sets applied")
	case <-time.After(200 * time.Millisecond):
	}
}
