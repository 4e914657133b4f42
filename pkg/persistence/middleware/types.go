package middleware

import (
	"context"

	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/furrow-ag/furrow/pkg/ports"
)

// Middleware allows wrapping a LedgerStore to add behavior.
type Middleware func(ports.LedgerStore) ports.LedgerStore

// Chain applies middlewares so that the first one is the outermost.
func Chain(store ports.LedgerStore, mws ...Middleware) ports.LedgerStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// passthrough forwards the calls a middleware does not intercept.
type passthrough struct {
	next ports.LedgerStore
}

func (p passthrough) Keys(ctx context.Context, ns domain.Namespace) ([]string, error) {
	return p.next.Keys(ctx, ns)
}

func (p passthrough) Close() error {
	return p.next.Close()
}
