package runtime

import (
	"context"
	"fmt"

	"github.com/furrow-ag/furrow/pkg/domain"
)

// Events returns the whole journal, oldest first. Event IDs are xids, which
// sort by creation time, so key order is commit order within a process.
func (e *Engine) Events(ctx context.Context) ([]domain.Event, error) {
	return e.events(ctx, func(*domain.Event) bool { return true })
}

// History returns the journal entries of one produce batch, oldest first.
func (e *Engine) History(ctx context.Context, produceID uint64) ([]domain.Event, error) {
	return e.events(ctx, func(ev *domain.Event) bool {
		return ev.ProduceID != nil && *ev.ProduceID == produceID
	})
}

func (e *Engine) events(ctx context.Context, keep func(*domain.Event) bool) ([]domain.Event, error) {
	keys, err := e.store.Keys(ctx, domain.NSEvent)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}

	out := make([]domain.Event, 0)
	err = e.view(ctx, func(ctx context.Context, tx *ledgerTx) error {
		out = out[:0]
		for _, key := range keys {
			var ev domain.Event
			ok, err := tx.load(ctx, key, &ev)
			if err != nil {
				return err
			}
			if ok && keep(&ev) {
				out = append(out, ev)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
