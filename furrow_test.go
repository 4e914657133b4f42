package furrow_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/furrow-ag/furrow"
	"github.com/furrow-ag/furrow/pkg/adapters/file"
	"github.com/furrow-ag/furrow/pkg/adapters/memory"
	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/furrow-ag/furrow/pkg/observability"
	"github.com/furrow-ag/furrow/pkg/persistence/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, l *furrow.Ledger) {
	t.Helper()
	ctx := context.Background()
	for id, role := range map[domain.Identity]domain.Role{
		"farmer-ana": domain.RoleFarmer,
		"truck-carl": domain.RoleTransporter,
		"shop-finn":  domain.RoleRetailer,
		"judge-gus":  domain.RoleArbitrator,
	} {
		_, err := l.Register(ctx, id, role, string(id), "")
		require.NoError(t, err)
	}
	_, err := l.InitializeVault(ctx, "admin")
	require.NoError(t, err)
	_, err = l.Deposit(ctx, "admin", "shop-finn", 5000)
	require.NoError(t, err)
}

func TestLedger_SettlementSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.json")
	key := make([]byte, 32)
	seal := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	store, err := file.New(path)
	require.NoError(t, err)
	l := furrow.New(seal(store), furrow.WithLifecycleHooks(metrics.Hooks()), furrow.WithCurrency("USDC"))
	setup(t, l)

	_, err = l.LogHarvest(ctx, "farmer-ana", furrow.HarvestInput{
		ProduceID: 7, ProduceType: "maize", Quantity: 80, Quality: 70,
		FarmerPrice: 300, TransporterFee: 50,
	})
	require.NoError(t, err)
	_, err = l.RecordPickup(ctx, "truck-carl", 7, 12, 40)
	require.NoError(t, err)
	_, err = l.FundVault(ctx, "shop-finn", 7, 350)
	require.NoError(t, err)
	_, err = l.RecordDelivery(ctx, "truck-carl", 7)
	require.NoError(t, err)
	res, err := l.ConfirmDelivery(ctx, "shop-finn", 7)
	require.NoError(t, err)
	assert.NotEmpty(t, res.EventID)
	require.NoError(t, l.Close())

	assert.Equal(t, 300.0, testutil.ToFloat64(metrics.Settled.WithLabelValues("farmer")))
	assert.Equal(t, 350.0, testutil.ToFloat64(metrics.VaultFunded))

	reopened, err := file.New(path)
	require.NoError(t, err)
	l = furrow.New(seal(reopened))
	defer l.Close()

	p, err := l.GetProduce(ctx, 7)
	require.NoError(t, err)
	assert.True(t, p.DeliveryConfirmed)

	bal, err := l.Balance(ctx, "farmer-ana")
	require.NoError(t, err)
	assert.Equal(t, uint64(300), bal)

	v, err := l.GetVault(ctx)
	require.NoError(t, err)
	assert.Equal(t, "USDC", v.Currency)

	_, err = l.ConfirmDelivery(ctx, "shop-finn", 7)
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)

	history, err := l.History(ctx, 7)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, domain.OpConfirmDelivery, history[4].Op)
}

func TestLedger_ExecuteWireInstructions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l := furrow.New(memory.NewStore(), furrow.WithClock(func() time.Time { return now }))
	setup(t, l)

	receipt, err := l.Execute(ctx, domain.Instruction{
		Op:     domain.OpLogHarvest,
		Signer: "farmer-ana",
		Args:   []any{"9", "beans", "10", "0", "50", "", "100", "10"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ProduceKey(9), receipt.Key)

	_, err = l.Execute(ctx, domain.Instruction{Op: "burn_tokens", Signer: "admin"})
	assert.ErrorIs(t, err, domain.ErrUnknownInstruction)

	params, ok := furrow.Params(domain.OpVerifyQuality)
	require.True(t, ok)
	assert.Equal(t, []string{"produce_id", "score"}, params)
	assert.Len(t, furrow.Ops(), 18)

	p, err := l.GetProduce(ctx, 9)
	require.NoError(t, err)
	assert.True(t, now.Equal(p.LastUpdated))
}
