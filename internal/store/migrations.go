package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acuminous/rdf/internal/dsl"
	"github.com/acuminous/rdf/internal/rdferrors"
)

var migrationFilePattern = regexp.MustCompile(`^(\d+)\.(.+)\.(sql|yaml)$`)

type migrationFile struct {
	number int
	name   string
	ext    string
	path   string
}

// discoverMigrations lists migrationsDir's numbered files in ascending
// order. A file that doesn't match the NNN.<slug>.{sql,yaml} shape is
// ignored, the same tolerance the teacher's numbered-migration directory
// affords test fixtures and READMEs living alongside real migrations. Two
// files sharing a number are a MigrationError.
func discoverMigrations(migrationsDir string) ([]migrationFile, error) {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var files []migrationFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := migrationFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		number, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		files = append(files, migrationFile{
			number: number,
			name:   m[2],
			ext:    m[3],
			path:   filepath.Join(migrationsDir, e.Name()),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].number < files[j].number })
	for i := 1; i < len(files); i++ {
		if files[i].number == files[i-1].number {
			return nil, &rdferrors.MigrationError{
				File: files[i].path,
				Err:  fmt.Errorf("duplicate migration number %d (also used by %s)", files[i].number, filepath.Base(files[i-1].path)),
			}
		}
	}
	return files, nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Migrate brings the schema up to date: bootstraps the fby_ tables if
// missing, then applies every unapplied numbered migration file in one
// transaction each. Re-running Migrate against an already-current schema
// is a no-op — every file's checksum is verified against the bookkeeping
// table rather than re-executed.
func (s *Store) Migrate(ctx context.Context) error {
	lock := newMigrationFileLock(s.migrations)
	if err := lock.lock(ctx); err != nil {
		return err
	}
	defer func() { _ = lock.unlock() }()

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, advisoryLockKey("rdf.migrate")); err != nil {
		return fmt.Errorf("acquire database migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, advisoryLockKey("rdf.migrate"))
	}()

	if _, err := conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply bootstrap schema: %w", err)
	}

	files, err := discoverMigrations(s.migrations)
	if err != nil {
		return err
	}

	applied, err := appliedMigrations(ctx, conn)
	if err != nil {
		return err
	}

	for _, f := range files {
		data, err := os.ReadFile(f.path)
		if err != nil {
			return &rdferrors.MigrationError{File: f.path, Err: err}
		}
		sum := checksum(data)

		if prev, ok := applied[f.number]; ok {
			if prev.checksum != sum {
				return &rdferrors.MigrationError{
					File: f.path,
					Err:  fmt.Errorf("checksum mismatch: applied migration %d has been edited since it ran", f.number),
				}
			}
			continue
		}

		if err := applyMigration(ctx, conn, f, data, sum); err != nil {
			return err
		}
	}

	return nil
}

// PendingMigrations lists the numbered migration files not yet recorded in
// fby_schema_migration, for dry-run reporting. It neither locks nor
// mutates anything.
func (s *Store) PendingMigrations(ctx context.Context) ([]string, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	files, err := discoverMigrations(s.migrations)
	if err != nil {
		return nil, err
	}

	applied, err := appliedMigrations(ctx, conn)
	if err != nil {
		// Bootstrap schema (and therefore fby_schema_migration) may not
		// exist yet; every discovered file is then pending.
		applied = map[int]appliedMigration{}
	}

	var pending []string
	for _, f := range files {
		if _, ok := applied[f.number]; !ok {
			pending = append(pending, filepath.Base(f.path))
		}
	}
	return pending, nil
}

type appliedMigration struct {
	name     string
	checksum string
}

func appliedMigrations(ctx context.Context, conn *pgxpool.Conn) (map[int]appliedMigration, error) {
	rows, err := conn.Query(ctx, `SELECT number, name, checksum FROM fby_schema_migration`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migration: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]appliedMigration)
	for rows.Next() {
		var number int
		var m appliedMigration
		if err := rows.Scan(&number, &m.name, &m.checksum); err != nil {
			return nil, fmt.Errorf("scan schema_migration row: %w", err)
		}
		applied[number] = m
	}
	return applied, rows.Err()
}

func applyMigration(ctx context.Context, conn *pgxpool.Conn, f migrationFile, data []byte, sum string) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return &rdferrors.MigrationError{File: f.path, Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	switch f.ext {
	case "sql":
		if _, err := tx.Exec(ctx, string(data)); err != nil {
			return &rdferrors.MigrationError{File: f.path, Err: err}
		}
	case "yaml":
		compiled, err := dsl.Compile(data)
		if err != nil {
			return &rdferrors.MigrationError{File: f.path, Err: err}
		}
		if _, err := tx.Exec(ctx, compiled); err != nil {
			return &rdferrors.MigrationError{File: f.path, Err: err}
		}
	default:
		return &rdferrors.MigrationError{File: f.path, Err: fmt.Errorf("unsupported migration extension %q", f.ext)}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO fby_schema_migration (number, name, checksum) VALUES ($1, $2, $3)`,
		f.number, f.name, sum,
	); err != nil {
		return &rdferrors.MigrationError{File: f.path, Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return &rdferrors.MigrationError{File: f.path, Err: err}
	}
	return nil
}

// Reset drops every framework-managed object and custom object the caller
// knows about, then re-applies every migration from scratch. nuke is
// supplied by the caller (spec §4.2) rather than being config-driven,
// since only the embedding application knows what its DSL migrations
// created beyond the fby_ tables.
func (s *Store) Reset(ctx context.Context, nukeCustomObjects func(ctx context.Context, tx pgx.Tx) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reset transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if nukeCustomObjects != nil {
		if err := nukeCustomObjects(ctx, tx); err != nil {
			return fmt.Errorf("nuke custom objects: %w", err)
		}
	}

	for _, stmt := range []string{
		`DROP TABLE IF EXISTS fby_notification CASCADE`,
		`DROP TABLE IF EXISTS fby_hook CASCADE`,
		`DROP TABLE IF EXISTS fby_data_frame CASCADE`,
		`DROP TABLE IF EXISTS fby_change_set CASCADE`,
		`DROP TABLE IF EXISTS fby_projection_entity CASCADE`,
		`DROP TABLE IF EXISTS fby_entity CASCADE`,
		`DROP TABLE IF EXISTS fby_projection CASCADE`,
		`DROP TABLE IF EXISTS fby_schema_migration CASCADE`,
		`DROP FUNCTION IF EXISTS fby_fail_notification(BIGINT, TIMESTAMPTZ, TEXT)`,
		`DROP FUNCTION IF EXISTS fby_pass_notification(BIGINT)`,
		`DROP FUNCTION IF EXISTS fby_get_next_notification(INTEGER)`,
		`DROP FUNCTION IF EXISTS fby_data_frame_notify()`,
		`DROP FUNCTION IF EXISTS fby_notify(TEXT, INTEGER)`,
		`DROP FUNCTION IF EXISTS fby_schedule_notification(BIGINT, BIGINT)`,
		`DROP FUNCTION IF EXISTS fby_touch_change_set()`,
	} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("reset: %s: %w", stmt, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}

	return s.Migrate(ctx)
}
