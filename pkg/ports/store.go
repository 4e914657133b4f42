package ports

import (
	"context"

	"github.com/furrow-ag/furrow/pkg/domain"
)

// ReadTx is a consistent view of the ledger.
type ReadTx interface {
	// Get returns the raw record stored under key.
	// Returns domain.ErrRecordNotFound if the key holds nothing.
	Get(ctx context.Context, key string) ([]byte, error)
}

// Tx is a read-write view. Writes are buffered and only become visible if the
// transaction function returns nil and the commit succeeds.
type Tx interface {
	ReadTx

	// Put buffers a write. A later Get in the same transaction observes it.
	Put(ctx context.Context, key string, value []byte) error
}

// TxFunc is the body of a transaction. It may run more than once when the
// store detects a conflicting commit, so it must not have side effects
// outside the Tx.
type TxFunc func(ctx context.Context, tx Tx) error

// LedgerStore persists ledger records with serializable transactions.
type LedgerStore interface {
	// Update runs fn as one atomic unit. If the store cannot commit because a
	// record read by fn changed concurrently, fn is re-run against fresh state.
	// Returns domain.ErrConflict when retries are exhausted.
	Update(ctx context.Context, fn TxFunc) error

	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(ctx context.Context, tx ReadTx) error) error

	// Keys lists the keys stored in a namespace, sorted.
	Keys(ctx context.Context, ns domain.Namespace) ([]string, error)

	// Close releases the underlying resources.
	Close() error
}
