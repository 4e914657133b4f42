package ports

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunLedgerStoreContract runs a suite of tests to verify that a LedgerStore
// implementation adheres to the defined interface contract.
// The store must be empty when the suite starts.
func RunLedgerStoreContract(t *testing.T, store LedgerStore) {
	ctx := context.Background()
	run := time.Now().Format("20060102150405.000000000")

	t.Run("Put and Get", func(t *testing.T) {
		key := domain.ParticipantKey(domain.Identity("contract-" + run))

		err := store.Update(ctx, func(ctx context.Context, tx Tx) error {
			return tx.Put(ctx, key, []byte(`{"name":"alice"}`))
		})
		require.NoError(t, err, "Update should not return error")

		err = store.View(ctx, func(ctx context.Context, tx ReadTx) error {
			raw, err := tx.Get(ctx, key)
			if err != nil {
				return err
			}
			assert.JSONEq(t, `{"name":"alice"}`, string(raw))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		err := store.View(ctx, func(ctx context.Context, tx ReadTx) error {
			_, err := tx.Get(ctx, domain.ProduceKey(1<<62))
			return err
		})
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("Read Your Writes", func(t *testing.T) {
		key := domain.ProduceKey(1001)

		err := store.Update(ctx, func(ctx context.Context, tx Tx) error {
			if _, err := tx.Get(ctx, key); !errors.Is(err, domain.ErrRecordNotFound) {
				return fmt.Errorf("expected missing record, got %v", err)
			}
			if err := tx.Put(ctx, key, []byte(`{"v":1}`)); err != nil {
				return err
			}
			raw, err := tx.Get(ctx, key)
			if err != nil {
				return err
			}
			assert.JSONEq(t, `{"v":1}`, string(raw))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("Failed Update Leaves No Writes", func(t *testing.T) {
		key := domain.ProduceKey(1002)
		boom := errors.New("boom")

		err := store.Update(ctx, func(ctx context.Context, tx Tx) error {
			if err := tx.Put(ctx, key, []byte(`{"v":1}`)); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		err = store.View(ctx, func(ctx context.Context, tx ReadTx) error {
			_, err := tx.Get(ctx, key)
			return err
		})
		assert.ErrorIs(t, err, domain.ErrRecordNotFound, "rolled back write must not be visible")
	})

	t.Run("Keys By Namespace", func(t *testing.T) {
		a, b := domain.ProposalKey(1), domain.ProposalKey(2)

		err := store.Update(ctx, func(ctx context.Context, tx Tx) error {
			if err := tx.Put(ctx, a, []byte(`{}`)); err != nil {
				return err
			}
			return tx.Put(ctx, b, []byte(`{}`))
		})
		require.NoError(t, err)

		keys, err := store.Keys(ctx, domain.NSProposal)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{a, b}, keys)

		keys, err = store.Keys(ctx, domain.NSStake)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("Concurrent Increments Serialize", func(t *testing.T) {
		key := domain.TokenAccountKey(domain.Identity("counter-" + run))
		const workers = 10

		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- store.Update(ctx, func(ctx context.Context, tx Tx) error {
					var n uint64
					raw, err := tx.Get(ctx, key)
					switch {
					case errors.Is(err, domain.ErrRecordNotFound):
					case err != nil:
						return err
					default:
						n = binary.BigEndian.Uint64(raw)
					}
					out := make([]byte, 8)
					binary.BigEndian.PutUint64(out, n+1)
					return tx.Put(ctx, key, out)
				})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		err := store.View(ctx, func(ctx context.Context, tx ReadTx) error {
			raw, err := tx.Get(ctx, key)
			if err != nil {
				return err
			}
			assert.Equal(t, uint64(workers), binary.BigEndian.Uint64(raw), "no increment may be lost")
			return nil
		})
		require.NoError(t, err)
	})
}
