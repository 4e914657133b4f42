package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/furrow-ag/furrow/internal/retry"
	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/furrow-ag/furrow/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

var _ ports.LedgerStore = (*Store)(nil)

// Store implements ports.LedgerStore using Redis.
//
// Every key read inside a transaction is WATCHed before it is fetched, and the
// buffered writes are committed with MULTI/EXEC. If any watched key changed in
// between, EXEC aborts and the transaction function is re-run from scratch.
// Each namespace has a SET index so Keys never needs SCAN.
type Store struct {
	client *backend.Client
	prefix string
	policy retry.Policy
	logger *slog.Logger
}

type Option func(*Store)

// WithPrefix sets the key prefix for ledger records.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithRetryPolicy sets the backoff used after a lost commit race.
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

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "furrow:",
		policy: retry.DefaultPolicy(),
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) indexKey(ns domain.Namespace) string {
	return s.prefix + "index:" + string(ns)
}

// Update runs fn under optimistic concurrency control.
func (s *Store) Update(ctx context.Context, fn ports.TxFunc) error {
	return s.run(ctx, "redis.Update", func(rtx *backend.Tx) error {
		tx := &txn{store: s, rtx: rtx, writes: make(map[string][]byte)}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.commit(ctx)
	})
}

// View runs fn against watched reads and validates them with an empty
// MULTI/EXEC, so fn never observes a torn state that it then returns.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx ports.ReadTx) error) error {
	return s.run(ctx, "redis.View", func(rtx *backend.Tx) error {
		tx := &txn{store: s, rtx: rtx}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.commit(ctx)
	})
}

func (s *Store) run(ctx context.Context, op string, body func(rtx *backend.Tx) error) error {
	return s.policy.Run(ctx, op, func() error {
		return s.client.Watch(ctx, body)
	}, func(err error, wait time.Duration) {
		s.logger.Warn("redis transaction conflict, retrying", "op", op, "wait", wait, "err", err)
	})
}

// Keys returns the sorted members of the namespace index.
func (s *Store) Keys(ctx context.Context, ns domain.Namespace) ([]string, error) {
	keys, err := s.client.SMembers(ctx, s.indexKey(ns)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list redis index: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

type txn struct {
	store  *Store
	rtx    *backend.Tx
	writes map[string][]byte
}

func (t *txn) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := t.writes[key]; ok {
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	}

	k := t.store.key(key)
	if err := t.rtx.Watch(ctx, k).Err(); err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", key, err)
	}

	val, err := t.rtx.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return val, nil
}

func (t *txn) Put(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	t.writes[key] = v
	return nil
}

// commit executes the buffered writes in MULTI/EXEC. With no writes it still
// runs EXEC so the watched reads are validated.
func (t *txn) commit(ctx context.Context) error {
	_, err := t.rtx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		if len(t.writes) == 0 {
			pipe.Ping(ctx)
			return nil
		}
		for k, v := range t.writes {
			pipe.Set(ctx, t.store.key(k), v, 0)
			pipe.SAdd(ctx, t.store.indexKey(domain.NamespaceOf(k)), k)
		}
		return nil
	})
	if errors.Is(err, backend.TxFailedErr) {
		return fmt.Errorf("%w: %v", retry.ErrRetryable, err)
	}
	if err != nil {
		return fmt.Errorf("failed to commit to redis: %w", err)
	}
	return nil
}
