package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/acuminous/rdf/internal/rdferrors"
)

// TxOptions controls how WithTransaction opens its transaction.
type TxOptions struct {
	// Exclusive serializes every other exclusive transaction behind a
	// Postgres transaction-scoped advisory lock (pg_advisory_xact_lock),
	// released automatically at commit or rollback. Non-exclusive
	// transactions never contend with each other.
	Exclusive bool
}

// WithTransaction runs fn inside a single database transaction, modeled on
// the teacher's RunInTransaction: begin, run fn, commit on success, roll
// back on error or panic. A panic inside fn is re-raised after rollback.
func (s *Store) WithTransaction(ctx context.Context, opts TxOptions, fn func(ctx context.Context, tx pgx.Tx) error) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if opts.Exclusive {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryLockKey("rdf.exclusive")); err != nil {
			return fmt.Errorf("acquire exclusive transaction lock: %w", err)
		}
	}

	if err := fn(ctx, tx); err != nil {
		return translateErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return translateErr(err)
	}
	committed = true
	return nil
}

// translateErr wraps Postgres constraint violations as IntegrityError so
// callers can branch on the taxonomy rather than driver-specific codes.
func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 && pgErr.Code[:2] == "23" {
		return &rdferrors.IntegrityError{Constraint: pgErr.ConstraintName, Err: err}
	}
	return err
}

// GetProjection looks up a projection by name and version.
func (s *Store) GetProjection(ctx context.Context, name string, version int) (Projection, error) {
	var p Projection
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, version FROM fby_projection WHERE name = $1 AND version = $2`,
		name, version,
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Projection{}, fmt.Errorf("projection %s v%d: %w", name, version, err)
		}
		return Projection{}, fmt.Errorf("get projection: %w", err)
	}
	return p, nil
}

// GetProjections lists every registered projection, ordered by name and
// then version.
func (s *Store) GetProjections(ctx context.Context) ([]Projection, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, version FROM fby_projection ORDER BY name, version`)
	if err != nil {
		return nil, fmt.Errorf("list projections: %w", err)
	}
	defer rows.Close()

	var out []Projection
	for rows.Next() {
		var p Projection
		if err := rows.Scan(&p.ID, &p.Name, &p.Version); err != nil {
			return nil, fmt.Errorf("scan projection: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetChangeLog returns every change set containing at least one data frame
// for any entity projectionID depends on, de-duplicated by change-set id,
// in application order (effective ASC, id ASC) — the order the aggregation
// algorithm folds frames in.
func (s *Store) GetChangeLog(ctx context.Context, projectionID int64) ([]ChangeSet, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT cs.id, cs.description, cs.effective, cs.last_modified, cs.entity_tag
		FROM fby_change_set cs
		JOIN fby_data_frame df ON df.change_set_id = cs.id
		JOIN fby_projection_entity pe ON pe.entity_id = df.entity_id
		WHERE pe.projection_id = $1
		ORDER BY cs.effective ASC, cs.id ASC`,
		projectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("get change log: %w", err)
	}
	defer rows.Close()

	var out []ChangeSet
	for rows.Next() {
		var cs ChangeSet
		if err := rows.Scan(&cs.ID, &cs.Description, &cs.Effective, &cs.LastModified, &cs.EntityTag); err != nil {
			return nil, fmt.Errorf("scan change set: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// GetChangeSet fetches a single change set by id.
func (s *Store) GetChangeSet(ctx context.Context, id int64) (ChangeSet, error) {
	var cs ChangeSet
	row := s.pool.QueryRow(ctx,
		`SELECT id, description, effective, last_modified, entity_tag FROM fby_change_set WHERE id = $1`, id)
	if err := row.Scan(&cs.ID, &cs.Description, &cs.Effective, &cs.LastModified, &cs.EntityTag); err != nil {
		return ChangeSet{}, fmt.Errorf("get change set %d: %w", id, err)
	}
	return cs, nil
}

// GetCurrentChangeSet returns the last entry of projectionID's change log
// whose effective timestamp is not in the future.
func (s *Store) GetCurrentChangeSet(ctx context.Context, projectionID int64) (ChangeSet, error) {
	var cs ChangeSet
	row := s.pool.QueryRow(ctx, `
		SELECT DISTINCT cs.id, cs.description, cs.effective, cs.last_modified, cs.entity_tag
		FROM fby_change_set cs
		JOIN fby_data_frame df ON df.change_set_id = cs.id
		JOIN fby_projection_entity pe ON pe.entity_id = df.entity_id
		WHERE pe.projection_id = $1 AND cs.effective <= now()
		ORDER BY cs.effective DESC, cs.id DESC
		LIMIT 1`, projectionID)
	if err := row.Scan(&cs.ID, &cs.Description, &cs.Effective, &cs.LastModified, &cs.EntityTag); err != nil {
		return ChangeSet{}, fmt.Errorf("get current change set for projection %d: %w", projectionID, err)
	}
	return cs, nil
}
