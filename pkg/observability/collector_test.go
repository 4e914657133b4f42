package observability_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/furrow-ag/furrow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerCollector(t *testing.T) {
	c := observability.NewLedgerCollector(func(context.Context) (*domain.Stats, error) {
		return &domain.Stats{
			Participants: map[domain.Role]int{domain.RoleFarmer: 3},
			Produce:      map[domain.ProduceStatus]int{domain.StatusInTransit: 2},
			OpenDisputes: 1,
			VaultBalance: 1200,
		}, nil
	}, 0, nil)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	expected := `
# HELP furrow_produce_batches Produce batches by stored status.
# TYPE furrow_produce_batches gauge
furrow_produce_batches{status="in_transit"} 2
# HELP furrow_vault_balance Balance held by the vault custody accounts.
# TYPE furrow_vault_balance gauge
furrow_vault_balance{account="payment"} 1200
furrow_vault_balance{account="stake"} 0
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"furrow_produce_batches", "furrow_vault_balance"))

	// One series per role, zero included.
	n, err := testutil.GatherAndCount(reg, "furrow_participants")
	require.NoError(t, err)
	assert.Equal(t, len(domain.Roles), n)
}

func TestLedgerCollector_ReportsDown(t *testing.T) {
	c := observability.NewLedgerCollector(func(context.Context) (*domain.Stats, error) {
		return nil, errors.New("connection refused")
	}, 0, nil)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	expected := `
# HELP furrow_ledger_up Whether the last ledger read succeeded.
# TYPE furrow_ledger_up gauge
furrow_ledger_up 0
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "furrow_ledger_up"))
}
