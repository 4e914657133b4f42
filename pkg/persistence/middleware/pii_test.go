package middleware_test

import (
	"context"
	"testing"

	"github.com/furrow-ag/furrow/pkg/adapters/memory"
	"github.com/furrow-ag/furrow/pkg/persistence/middleware"
	"github.com/furrow-ag/furrow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_MasksReadPathOnly(t *testing.T) {
	store := middleware.NewPIIMiddleware([]string{"contact", "ssn"})(memory.NewStore())
	doc := `{"name":"Ana","contact_info":"ana@example.org","details":{"address":"Rua 1","ssn_number":"999"},"list":[{"ssn":"1"}]}`
	put(t, store, "participant/ana", doc)

	viewed, err := get(store, "participant/ana")
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"name":"Ana","contact_info":"***","details":{"address":"Rua 1","ssn_number":"***"},"list":[{"ssn":"***"}]}`,
		viewed)

	// Transactions see the real record.
	require.NoError(t, store.Update(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		raw, err := tx.Get(ctx, "participant/ana")
		require.NoError(t, err)
		assert.JSONEq(t, doc, string(raw))
		return nil
	}))
}

func TestPIIMiddleware_LeavesNonObjectsAlone(t *testing.T) {
	store := middleware.NewPIIMiddleware([]string{"contact"})(memory.NewStore())
	put(t, store, "event/1", `"contact me"`)

	got, err := get(store, "event/1")
	require.NoError(t, err)
	assert.Equal(t, `"contact me"`, got)
}

func TestChain_OrderIsOutermostFirst(t *testing.T) {
	key := generateKey(t)
	underlying := memory.NewStore()
	store := middleware.Chain(underlying,
		middleware.NewPIIMiddleware([]string{"contact"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
	)

	put(t, store, "participant/ana", `{"contact_info":"ana@example.org"}`)

	got, err := get(store, "participant/ana")
	require.NoError(t, err)
	assert.JSONEq(t, `{"contact_info":"***"}`, got)

	raw, err := get(underlying, "participant/ana")
	require.NoError(t, err)
	assert.NotContains(t, raw, "contact_info")
}
