package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/furrow-ag/furrow"
	"github.com/furrow-ag/furrow/internal/config"
	"github.com/furrow-ag/furrow/internal/retry"
	"github.com/furrow-ag/furrow/pkg/adapters/file"
	"github.com/furrow-ag/furrow/pkg/adapters/memory"
	"github.com/furrow-ag/furrow/pkg/adapters/postgres"
	"github.com/furrow-ag/furrow/pkg/adapters/redis"
	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/furrow-ag/furrow/pkg/persistence/middleware"
	"github.com/furrow-ag/furrow/pkg/ports"
)

// retryPolicy maps the Retry section onto the store retry policy.
func retryPolicy(cfg config.Retry) retry.Policy {
	return retry.Policy{
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		MaxElapsedTime:  cfg.MaxElapsedTime,
		MaxRetries:      cfg.MaxRetries,
	}
}

// OpenStore opens the configured backend and wraps it with the configured
// middlewares.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.LedgerStore, error) {
	var (
		store ports.LedgerStore
		err   error
	)

	switch cfg.Store.Driver {
	case "memory":
		store = memory.NewStore()
	case "file":
		path := cfg.Store.Path
		if path == "" {
			path = file.DefaultPath
		}
		store, err = file.New(path)
	case "redis":
		r := cfg.Store.Redis
		store = redis.New(r.Addr, r.Password, r.DB,
			redis.WithPrefix(r.Prefix),
			redis.WithRetryPolicy(retryPolicy(cfg.Retry)),
			redis.WithLogger(logger),
		)
	case "postgres":
		opts := []postgres.Option{
			postgres.WithRetryPolicy(retryPolicy(cfg.Retry)),
			postgres.WithLogger(logger),
		}
		if cfg.Store.Postgres.Table != "" {
			opts = append(opts, postgres.WithTable(cfg.Store.Postgres.Table))
		}
		store, err = postgres.New(ctx, cfg.Store.Postgres.DSN, opts...)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("error opening %s store: %w", cfg.Store.Driver, err)
	}

	mws, err := middlewares(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return middleware.Chain(store, mws...), nil
}

// middlewares builds redaction (outermost) and encryption (innermost) from config.
func middlewares(cfg *config.Config) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware

	if len(cfg.Redaction.Patterns) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.Redaction.Patterns))
	}

	if cfg.Encryption.Key != "" {
		active, err := decodeKey(cfg.Encryption.Key)
		if err != nil {
			return nil, fmt.Errorf("encryption.key: %w", err)
		}
		enc := middleware.EncryptionConfig{ActiveKey: active}
		for i, k := range cfg.Encryption.FallbackKeys {
			fallback, err := decodeKey(k)
			if err != nil {
				return nil, fmt.Errorf("encryption.fallbackKeys[%d]: %w", i, err)
			}
			enc.FallbackKeys = append(enc.FallbackKeys, fallback)
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(enc))
	}
	return mws, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("key must be hex encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// NewLedger opens the store and builds a ledger with standard CLI conventions.
func NewLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger, hooks domain.LifecycleHooks) (*furrow.Ledger, error) {
	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := []furrow.Option{
		furrow.WithLogger(logger),
		furrow.WithLifecycleHooks(hooks),
	}
	if cfg.Vault.Currency != "" {
		opts = append(opts, furrow.WithCurrency(cfg.Vault.Currency))
	}
	if cfg.Cache.RoleTTL > 0 {
		opts = append(opts, furrow.WithRoleCache(cfg.Cache.RoleTTL, cfg.Cache.CleanupInterval))
	}
	return furrow.New(store, opts...), nil
}

// DebugHooks logs every commit and rejection at Debug.
func DebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommit: func(ctx context.Context, e *domain.Event) {
			logger.Debug("Instruction Committed", "op", e.Op, "event_id", e.ID, "key", e.Key)
		},
		OnReject: func(ctx context.Context, e *domain.RejectEvent) {
			logger.Debug("Instruction Rejected", "op", e.Op, "signer", e.Signer, "err", e.Err)
		},
	}
}

// MergeHooks chains hook sets so both observe every event.
func MergeHooks(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommit: func(ctx context.Context, e *domain.Event) {
			for _, h := range sets {
				if h.OnCommit != nil {
					h.OnCommit(ctx, e)
				}
			}
		},
		OnReject: func(ctx context.Context, e *domain.RejectEvent) {
			for _, h := range sets {
				if h.OnReject != nil {
					h.OnReject(ctx, e)
				}
			}
		},
	}
}
