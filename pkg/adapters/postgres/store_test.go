package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/furrow-ag/furrow/pkg/adapters/postgres"
	"github.com/furrow-ag/furrow/pkg/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// The suite needs a live server: FURROW_TEST_POSTGRES_DSN=postgres://... go test ./...
func TestPostgresStore_Contract(t *testing.T) {
	dsn := os.Getenv("FURROW_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FURROW_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	table := fmt.Sprintf("ledger_contract_%d", time.Now().UnixNano())

	store, err := postgres.New(ctx, dsn, postgres.WithTable(table))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
		pool, err := pgxpool.New(ctx, dsn)
		if err == nil {
			_, _ = pool.Exec(ctx, "DROP TABLE IF EXISTS "+pgx.Identifier{table}.Sanitize())
			pool.Close()
		}
	})

	ports.RunLedgerStoreContract(t, store)
}
