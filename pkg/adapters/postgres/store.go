// Package postgres stores ledger records in a single Postgres table and runs
// every Update as a SERIALIZABLE transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/furrow-ag/furrow/internal/retry"
	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/furrow-ag/furrow/pkg/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ ports.LedgerStore = (*Store)(nil)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// Store implements ports.LedgerStore using Postgres.
type Store struct {
	pool   *pgxpool.Pool
	table  string
	policy retry.Policy
	logger *slog.Logger
}

type Option func(*Store)

// WithTable overrides the table name (default "ledger_records").
func WithTable(name string) Option {
	return func(s *Store) {
		s.table = name
	}
}

// WithRetryPolicy sets the backoff used after a serialization failure.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Store) {
		s.policy = p
	}
}

// WithLogger sets the logger used to report retries.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New connects and initializes the schema.
func New(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Store{
		pool:   pool,
		table:  "ledger_records",
		policy: retry.DefaultPolicy(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ident() string {
	return pgx.Identifier{s.table}.Sanitize()
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
  key TEXT PRIMARY KEY,
  namespace TEXT NOT NULL,
  value BYTEA NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS %[2]s ON %[1]s (namespace, key);
`, s.ident(), pgx.Identifier{s.table + "_namespace_idx"}.Sanitize())
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("init ledger schema: %w", err)
	}
	return nil
}

// Update runs fn in a SERIALIZABLE transaction, retrying serialization failures.
func (s *Store) Update(ctx context.Context, fn ports.TxFunc) error {
	return s.run(ctx, "postgres.Update", pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		return fn(ctx, &txn{store: s, tx: tx})
	})
}

// View runs fn in a read-only REPEATABLE READ snapshot.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx ports.ReadTx) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	return s.run(ctx, "postgres.View", opts, func(tx pgx.Tx) error {
		return fn(ctx, &txn{store: s, tx: tx})
	})
}

func (s *Store) run(ctx context.Context, op string, opts pgx.TxOptions, body func(tx pgx.Tx) error) error {
	return s.policy.Run(ctx, op, func() error {
		return classify(s.attempt(ctx, opts, body))
	}, func(err error, wait time.Duration) {
		s.logger.Warn("postgres serialization failure, retrying", "op", op, "wait", wait, "err", err)
	})
}

func (s *Store) attempt(ctx context.Context, opts pgx.TxOptions, body func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := body(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// classify marks errors that only mean "try again".
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected) {
		return fmt.Errorf("%w: %v", retry.ErrRetryable, err)
	}
	return err
}

// Keys lists the keys of a namespace.
func (s *Store) Keys(ctx context.Context, ns domain.Namespace) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf("SELECT key FROM %s WHERE namespace=$1 ORDER BY key", s.ident()),
		string(ns))
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan keys: %w", err)
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type txn struct {
	store *Store
	tx    pgx.Tx
}

func (t *txn) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := t.tx.QueryRow(ctx,
		fmt.Sprintf("SELECT value FROM %s WHERE key=$1", t.store.ident()),
		key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (t *txn) Put(ctx context.Context, key string, value []byte) error {
	_, err := t.tx.Exec(ctx, fmt.Sprintf(`
INSERT INTO %s (key, namespace, value, updated_at) VALUES ($1, $2, $3, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, t.store.ident()),
		key, string(domain.NamespaceOf(key)), value)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}
