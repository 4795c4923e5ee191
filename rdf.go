// Package rdf provides a minimal public API over the Reference Data
// Framework's internal packages: a temporal reference-data store, its
// migration pipeline, and a notification dispatcher that fires hooks when
// a projection's underlying data changes.
//
// Most applications only need Framework: Init to bring the schema up to
// date, Start to begin dispatching notifications, Subscribe to register
// handlers, and the read methods to query projections and change sets.
package rdf

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/acuminous/rdf/internal/config"
	"github.com/acuminous/rdf/internal/dispatch"
	"github.com/acuminous/rdf/internal/events"
	"github.com/acuminous/rdf/internal/rdferrors"
	"github.com/acuminous/rdf/internal/store"
)

// Core types re-exported from internal/store.
type (
	Projection   = store.Projection
	Entity       = store.Entity
	Field        = store.Field
	ChangeSet    = store.ChangeSet
	DataFrame    = store.DataFrame
	Hook         = store.Hook
	Notification = store.Notification
	Action       = store.Action
	TxOptions    = store.TxOptions
)

const (
	ActionPost   = store.ActionPost
	ActionDelete = store.ActionDelete
)

const (
	NotificationPending = store.NotificationPending
	NotificationOK      = store.NotificationOK
)

// Handler and Payload are re-exported from internal/events for callers of
// Subscribe.
type (
	Handler = events.Handler
	Payload = events.Payload
)

// NukeCustomObjects is invoked by Reset, inside the reset transaction,
// before framework tables are dropped — it's the embedding application's
// chance to drop whatever DSL migrations created beyond fby_ tables.
type NukeCustomObjects = func(ctx context.Context, tx pgx.Tx) error

// Framework is one configured instance of the reference data system: a
// store, an event bus, and a notification dispatcher. Each Framework has
// its own event bus — subscribers registered on one instance are invisible
// to another, matching the in-process, instance-scoped pub/sub design.
type Framework struct {
	store      *store.Store
	bus        *events.Bus
	dispatcher *dispatch.Dispatcher
	cfg        *config.Config
}

// Init loads configuration rooted at baseDir, opens the connection pool,
// and runs the migration runner. It does not start the dispatcher — call
// Start separately, since read-only consumers never need one running.
func Init(ctx context.Context, baseDir string) (*Framework, error) {
	cfg, err := config.Load(baseDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, &rdferrors.FatalError{Err: fmt.Errorf("open store: %w", err)}
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	bus := events.New()
	return &Framework{
		store:      st,
		bus:        bus,
		dispatcher: dispatch.New(st.Pool(), bus, cfg.Notifications),
		cfg:        cfg,
	}, nil
}

// Start launches the notification dispatcher's poll loop.
func (f *Framework) Start(ctx context.Context) {
	f.dispatcher.Start(ctx)
}

// Stop signals the dispatcher, waits for its current poll to finish, and
// closes the connection pool.
func (f *Framework) Stop() {
	f.dispatcher.Stop()
	f.store.Close()
}

// Reset drops every framework-managed and caller-declared object, then
// re-applies every migration from scratch. Test-only per spec.
func (f *Framework) Reset(ctx context.Context, nuke NukeCustomObjects) error {
	return f.store.Reset(ctx, nuke)
}

// Subscribe registers handler for event on this Framework's event bus.
func (f *Framework) Subscribe(eventName string, handler Handler) {
	f.bus.Subscribe(eventName, handler)
}

// WithTransaction runs fn inside a single database transaction. See
// store.Store.WithTransaction for the rollback/commit contract.
func (f *Framework) WithTransaction(ctx context.Context, opts TxOptions, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return f.store.WithTransaction(ctx, opts, fn)
}

// GetProjections lists every registered projection.
func (f *Framework) GetProjections(ctx context.Context) ([]Projection, error) {
	return f.store.GetProjections(ctx)
}

// GetProjection looks up a single projection by name and version.
func (f *Framework) GetProjection(ctx context.Context, name string, version int) (Projection, error) {
	return f.store.GetProjection(ctx, name, version)
}

// GetChangeLog returns every change set affecting projectionID, in
// (effective ASC, id ASC) order.
func (f *Framework) GetChangeLog(ctx context.Context, projectionID int64) ([]ChangeSet, error) {
	return f.store.GetChangeLog(ctx, projectionID)
}

// GetChangeSet fetches a single change set by id.
func (f *Framework) GetChangeSet(ctx context.Context, id int64) (ChangeSet, error) {
	return f.store.GetChangeSet(ctx, id)
}

// GetCurrentChangeSet returns the latest change set in projectionID's
// change log whose effective timestamp is not in the future.
func (f *Framework) GetCurrentChangeSet(ctx context.Context, projectionID int64) (ChangeSet, error) {
	return f.store.GetCurrentChangeSet(ctx, projectionID)
}

// Watch starts a development-mode watcher that re-applies migrations
// whenever a file changes under the configured migrations directory.
func (f *Framework) Watch(ctx context.Context) (*store.Watcher, error) {
	return f.store.Watch(ctx)
}
