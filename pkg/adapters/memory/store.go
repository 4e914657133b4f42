package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/furrow-ag/furrow/pkg/ports"
)

var _ ports.LedgerStore = (*Store)(nil)

// Store implements ports.LedgerStore in memory.
// Update holds the write lock for the whole transaction, so transactions are
// trivially serializable and never conflict. Safe for concurrent use.
type Store struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// NewStoreFrom seeds a store with existing records. The map is copied.
func NewStoreFrom(records map[string][]byte) *Store {
	s := NewStore()
	for k, v := range records {
		s.data[k] = clone(v)
	}
	return s
}

// Update runs fn with buffered writes and applies them only if fn succeeds.
func (s *Store) Update(ctx context.Context, fn ports.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txn{data: s.data, writes: make(map[string][]byte)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	for k, v := range tx.writes {
		s.data[k] = v
	}
	return nil
}

// View runs fn under the read lock.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx ports.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(ctx, &txn{data: s.data})
}

// Keys lists the keys of a namespace.
func (s *Store) Keys(ctx context.Context, ns domain.Namespace) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := string(ns) + "/"
	keys := make([]string, 0)
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Snapshot returns a copy of every record.
func (s *Store) Snapshot() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		out[k] = clone(v)
	}
	return out
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

type txn struct {
	data   map[string][]byte
	writes map[string][]byte
}

func (t *txn) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := t.writes[key]; ok {
		return clone(v), nil
	}
	v, ok := t.data[key]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	// Copy on read so callers can't mutate store state through the slice.
	return clone(v), nil
}

func (t *txn) Put(_ context.Context, key string, value []byte) error {
	t.writes[key] = clone(value)
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
