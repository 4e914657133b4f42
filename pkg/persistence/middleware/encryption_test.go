package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/furrow-ag/furrow/pkg/adapters/memory"
	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/furrow-ag/furrow/pkg/persistence/middleware"
	"github.com/furrow-ag/furrow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func put(t *testing.T, store ports.LedgerStore, key, value string) {
	t.Helper()
	require.NoError(t, store.Update(context.Background(), func(ctx context.Context, tx ports.Tx) error {
		return tx.Put(ctx, key, []byte(value))
	}))
}

func get(store ports.LedgerStore, key string) (string, error) {
	var out []byte
	err := store.View(context.Background(), func(ctx context.Context, tx ports.ReadTx) error {
		v, err := tx.Get(ctx, key)
		out = v
		return err
	})
	return string(out), err
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunLedgerStoreContract(t, mw(memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	key := domain.ParticipantKey("farmer-ana")

	put(t, secure, key, `{"contact_info":"ana@example.org"}`)

	raw, err := get(underlying, key)
	require.NoError(t, err)
	assert.NotContains(t, raw, "ana@example.org")
	assert.Contains(t, raw, "__encrypted__")

	plain, err := get(secure, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"contact_info":"ana@example.org"}`, plain)

	// Keys stay listable.
	keys, err := secure.Keys(context.Background(), domain.NSParticipant)
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	oldStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	newStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)

	put(t, oldStore, "produce/a", `"sealed with old key"`)

	got, err := get(newStore, "produce/a")
	require.NoError(t, err)
	assert.Equal(t, `"sealed with old key"`, got)

	put(t, newStore, "produce/a", `"sealed with new key"`)

	_, err = get(oldStore, "produce/a")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_RejectsPlainRecords(t *testing.T) {
	underlying := memory.NewStore()
	put(t, underlying, "produce/a", `{"status":"Harvested"}`)

	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	_, err := get(secure, "produce/a")
	assert.ErrorContains(t, err, "missing encrypted data envelope")

	_, err = get(secure, "produce/missing")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	})
}
