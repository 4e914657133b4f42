package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/furrow-ag/furrow/pkg/ports"
)

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new records.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are old keys tried when decryption with ActiveKey fails.
	// This enables key rotation without rewriting the ledger.
	FallbackKeys [][]byte
}

// envelope is what the wrapped store actually holds.
type envelope struct {
	Ciphertext []byte `json:"__encrypted__"`
}

type encryptionMiddleware struct {
	passthrough
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals every record value
// with AES-GCM before it reaches the wrapped store. Keys stay in clear so
// namespace listing keeps working.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.LedgerStore) ports.LedgerStore {
		return &encryptionMiddleware{
			passthrough: passthrough{next: next},
			config:      config,
		}
	}
}

func (m *encryptionMiddleware) Update(ctx context.Context, fn ports.TxFunc) error {
	return m.next.Update(ctx, func(ctx context.Context, tx ports.Tx) error {
		return fn(ctx, &sealedTx{Tx: tx, config: m.config})
	})
}

func (m *encryptionMiddleware) View(ctx context.Context, fn func(context.Context, ports.ReadTx) error) error {
	return m.next.View(ctx, func(ctx context.Context, tx ports.ReadTx) error {
		return fn(ctx, &sealedReadTx{ReadTx: tx, config: m.config})
	})
}

type sealedReadTx struct {
	ports.ReadTx
	config EncryptionConfig
}

func (t *sealedReadTx) Get(ctx context.Context, key string) ([]byte, error) {
	return open(ctx, t.ReadTx, key, t.config)
}

type sealedTx struct {
	ports.Tx
	config EncryptionConfig
}

func (t *sealedTx) Get(ctx context.Context, key string) ([]byte, error) {
	return open(ctx, t.Tx, key, t.config)
}

func (t *sealedTx) Put(ctx context.Context, key string, value []byte) error {
	ciphertext, err := encrypt(value, t.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", key, err)
	}
	sealed, err := json.Marshal(envelope{Ciphertext: ciphertext})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return t.Tx.Put(ctx, key, sealed)
}

func open(ctx context.Context, tx ports.ReadTx, key string, config EncryptionConfig) ([]byte, error) {
	raw, err := tx.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Ciphertext) == 0 {
		// Fail secure: a configured key means every record must be sealed.
		return nil, fmt.Errorf("record %s is missing encrypted data envelope", key)
	}

	plain, err := decryptWithRotation(env.Ciphertext, config.ActiveKey, config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt %s: %w", key, err)
	}
	return plain, nil
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}
