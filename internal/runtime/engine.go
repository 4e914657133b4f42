// Package runtime is the furrow instruction engine.
//
// Every mutating operation runs as one ports.LedgerStore.Update: it reads the
// records it needs, re-validates status and balances, and writes the new
// records plus a journal event. Stores that detect a concurrent commit re-run
// the whole function, so no operation ever acts on a stale read.
package runtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/furrow-ag/furrow/pkg/ports"
	"github.com/rs/xid"
)

// Engine executes ledger instructions against a LedgerStore.
type Engine struct {
	store    ports.LedgerStore
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	now      func() time.Time
	currency string
	roles    *RoleCache
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithCurrency sets the settlement currency recorded by InitializeVault.
func WithCurrency(currency string) EngineOption {
	return func(e *Engine) {
		if currency != "" {
			e.currency = currency
		}
	}
}

// WithRoleCache replaces the default role cache. Pass nil to disable caching.
func WithRoleCache(c *RoleCache) EngineOption {
	return func(e *Engine) {
		e.roles = c
	}
}

// NewEngine creates a new engine bound to store.
func NewEngine(store ports.LedgerStore, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
		currency: domain.DefaultCurrency,
		roles:    NewRoleCache(DefaultRoleTTL, DefaultRoleCleanup),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the underlying store, e.g. for listing keys.
func (e *Engine) Store() ports.LedgerStore {
	return e.store
}

// committedKey carries a slot that commit fills with the journaled event.
type committedKey struct{}

// mutation is the body of a mutating operation. It returns the event
// describing what it did; the engine stamps and journals it.
type mutation func(ctx context.Context, tx *ledgerTx) (*domain.Event, error)

// commit runs fn atomically, journals its event in the same transaction and
// fires the lifecycle hooks once the outcome is final.
func (e *Engine) commit(ctx context.Context, op domain.Op, signer domain.Identity, fn mutation) (*domain.Event, error) {
	var ev *domain.Event

	err := e.store.Update(ctx, func(ctx context.Context, tx ports.Tx) error {
		ltx := &ledgerTx{tx: tx, engine: e}
		out, err := fn(ctx, ltx)
		if err != nil {
			return err
		}

		out.ID = xid.New().String()
		out.Timestamp = e.now().UTC()
		out.Op = op
		out.Signer = signer
		if err := ltx.save(ctx, domain.EventKey(out.ID), out); err != nil {
			return err
		}
		ev = out
		return nil
	})

	if err != nil {
		e.reject(ctx, op, signer, err)
		return nil, err
	}

	e.logger.Debug("instruction committed", "op", op, "key", ev.Key, "signer", signer, "event", ev.ID)
	if slot, ok := ctx.Value(committedKey{}).(*domain.Event); ok {
		*slot = *ev
	}
	if e.hooks.OnCommit != nil {
		e.hooks.OnCommit(ctx, ev)
	}
	return ev, nil
}

func (e *Engine) reject(ctx context.Context, op domain.Op, signer domain.Identity, err error) {
	var lerr *domain.Error
	if errors.As(err, &lerr) {
		e.logger.Info("instruction rejected", "op", op, "signer", signer, "code", lerr.Code, "kind", lerr.Kind, "err", err)
	} else {
		e.logger.Error("instruction failed", "op", op, "signer", signer, "err", err)
	}
	if e.hooks.OnReject != nil {
		e.hooks.OnReject(ctx, &domain.RejectEvent{
			Timestamp: e.now().UTC(),
			Op:        op,
			Signer:    signer,
			Err:       err,
		})
	}
}

// view runs a read-only function against a consistent snapshot.
func (e *Engine) view(ctx context.Context, fn func(ctx context.Context, tx *ledgerTx) error) error {
	return e.store.View(ctx, func(ctx context.Context, tx ports.ReadTx) error {
		return fn(ctx, &ledgerTx{tx: readOnly{tx}, engine: e})
	})
}

// readOnly lets a ReadTx be used where ledgerTx expects a Tx.
type readOnly struct {
	ports.ReadTx
}

func (readOnly) Put(context.Context, string, []byte) error {
	return errors.New("write attempted in a read-only view")
}

func u64(v uint64) *uint64 {
	return &v
}
