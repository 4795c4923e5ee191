// Package dispatch runs the notification poll loop: claim one pending
// notification, invoke its hook's subscribers through the event bus, and
// either mark it passed or reschedule it with jittered backoff. Loop shape
// is modeled on the teacher's FileWatcher.Start/startPolling
// (cmd/bd/daemon_watcher.go) — a ticker driven goroutine torn down via
// context cancellation and a WaitGroup drain — and the backoff formula on
// linear.Client.Execute's retry loop (internal/linear/client.go).
package dispatch

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/acuminous/rdf/internal/config"
	"github.com/acuminous/rdf/internal/events"
)

// Pool is the subset of *pgxpool.Pool the dispatcher needs, narrowed so
// tests can supply a fake.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Dispatcher polls fby_notification for pending work and drives the event
// bus. One instance is one logical worker; the uniqueness constraint on
// (hook_id, projection_id, status) plus FOR UPDATE SKIP LOCKED makes
// several instances, in several processes, safe to run concurrently.
type Dispatcher struct {
	pool   Pool
	bus    *events.Bus
	cfg    config.Notifications
	base   time.Duration
	log    *slog.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Dispatcher. base is the backoff unit multiplied by
// 2^attempts in the full-jitter formula; spec §4.5 names it without
// fixing a value, so it defaults to the configured interval.
func New(pool Pool, bus *events.Bus, cfg config.Notifications) *Dispatcher {
	base := cfg.Interval
	if base <= 0 {
		base = time.Second
	}
	return &Dispatcher{pool: pool, bus: bus, cfg: cfg, base: base, log: configureLogging(cfg)}
}

// Start launches the poll loop in a background goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		select {
		case <-time.After(d.cfg.InitialDelay):
		case <-ctx.Done():
			return
		}

		ticker := time.NewTicker(d.cfg.Interval)
		defer ticker.Stop()

		for {
			worked, err := d.pollOnce(ctx)
			if err != nil {
				d.log.Warn("dispatcher poll failed", "error", err)
			}
			if worked {
				continue // drain the queue before sleeping again
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the loop and waits for the current poll to finish.
func (d *Dispatcher) Stop() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	d.wg.Wait()
}

// pollOnce claims at most one notification and processes it. It returns
// worked=true when a row was found, so Start can keep draining without
// waiting out the poll interval.
func (d *Dispatcher) pollOnce(ctx context.Context) (worked bool, err error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin poll transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	var n notificationRow
	row := tx.QueryRow(ctx, `SELECT id, hook_id, projection_id, attempts FROM fby_get_next_notification($1)`, d.cfg.MaxAttempts)
	if err := row.Scan(&n.id, &n.hookID, &n.projectionID, &n.attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, tx.Commit(ctx)
		}
		return false, fmt.Errorf("get next notification: %w", err)
	}

	var hookEvent, projectionName string
	var projectionVer int
	if err := tx.QueryRow(ctx, `SELECT event FROM fby_hook WHERE id = $1`, n.hookID).Scan(&hookEvent); err != nil {
		return false, fmt.Errorf("load hook: %w", err)
	}
	if err := tx.QueryRow(ctx, `SELECT name, version FROM fby_projection WHERE id = $1`, n.projectionID).Scan(&projectionName, &projectionVer); err != nil {
		return false, fmt.Errorf("load projection: %w", err)
	}

	payload := events.Payload{
		Event:          hookEvent,
		ProjectionName: projectionName,
		ProjectionVer:  projectionVer,
		NotificationID: n.id,
		Attempts:       n.attempts,
	}

	dispatchErr := d.bus.Emit(ctx, payload)
	if dispatchErr == nil {
		if _, err := tx.Exec(ctx, `SELECT fby_pass_notification($1)`, n.id); err != nil {
			return false, fmt.Errorf("pass notification: %w", err)
		}
	} else {
		delay := backoff(n.attempts+1, d.base, d.cfg.MaxRescheduleDelay)
		if _, err := tx.Exec(ctx, `SELECT fby_fail_notification($1, now() + $2, $3)`,
			n.id, delay, dispatchErr.Error()); err != nil {
			return false, fmt.Errorf("fail notification: %w", err)
		}
		d.log.Warn("hook dispatch failed, rescheduled", "event", hookEvent, "attempts", n.attempts+1, "delay", delay)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit poll: %w", err)
	}
	committed = true
	return true, nil
}

type notificationRow struct {
	id           int64
	hookID       int64
	projectionID int64
	attempts     int
}

// backoffCeiling computes 2^attempts * base, clamped to maxDelay.
func backoffCeiling(attempts int, base, maxDelay time.Duration) time.Duration {
	ceiling := base * time.Duration(math.Pow(2, float64(attempts)))
	if ceiling <= 0 || ceiling > maxDelay {
		ceiling = maxDelay
	}
	return ceiling
}

// backoff computes exponential backoff with full jitter:
// min(maxDelay, random(0, 2^attempts * base)).
func backoff(attempts int, base, maxDelay time.Duration) time.Duration {
	ceiling := backoffCeiling(attempts, base, maxDelay)
	if ceiling <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(ceiling)))
	if err != nil {
		return ceiling
	}
	d := time.Duration(n.Int64())
	if d > maxDelay {
		return maxDelay
	}
	return d
}
