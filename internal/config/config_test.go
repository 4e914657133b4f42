package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/furrow-ag/furrow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, ".furrow/ledger.json", cfg.Store.Path)
	assert.Equal(t, "furrow:", cfg.Store.Redis.Prefix)
	assert.Equal(t, 5*time.Millisecond, cfg.Retry.InitialInterval)
	assert.Equal(t, 10*time.Second, cfg.Retry.MaxElapsedTime)
	assert.Equal(t, 10*time.Minute, cfg.Cache.RoleTTL)
	assert.Equal(t, "FRW", cfg.Vault.Currency)
	assert.Empty(t, cfg.Encryption.Key)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "furrow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logLevel: debug
store:
  driver: redis
  redis:
    addr: redis:6379
    db: 2
retry:
  maxInterval: 1s
redaction:
  patterns: [contact, name]
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
	assert.Equal(t, time.Second, cfg.Retry.MaxInterval)
	assert.Equal(t, []string{"contact", "name"}, cfg.Redaction.Patterns)
	// Untouched sections keep their defaults.
	assert.Equal(t, 5*time.Millisecond, cfg.Retry.InitialInterval)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("FURROW_STORE_DRIVER", "memory")
	t.Setenv("FURROW_VAULT_CURRENCY", "USDC")
	t.Setenv("FURROW_CACHE_ROLE_TTL", "30s")
	t.Setenv("FURROW_REDACTION_PATTERNS", "contact,email")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "USDC", cfg.Vault.Currency)
	assert.Equal(t, 30*time.Second, cfg.Cache.RoleTTL)
	assert.Equal(t, []string{"contact", "email"}, cfg.Redaction.Patterns)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("FURROW_STORE_DRIVER", "etcd")
		_, err := config.Load("")
		assert.ErrorContains(t, err, "unknown store driver")
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		t.Setenv("FURROW_STORE_DRIVER", "postgres")
		_, err := config.Load("")
		assert.ErrorContains(t, err, "dsn is required")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
