package runtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/furrow-ag/furrow/internal/runtime"
	"github.com/furrow-ag/furrow/pkg/adapters/memory"
	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/furrow-ag/furrow/pkg/ports"
	"github.com/stretchr/testify/require"
)

const (
	admin       domain.Identity = "admin"
	farmer      domain.Identity = "farmer-ana"
	farmer2     domain.Identity = "farmer-ben"
	transporter domain.Identity = "truck-carl"
	trucker2    domain.Identity = "truck-dora"
	wholesaler  domain.Identity = "depot-eve"
	retailer    domain.Identity = "shop-finn"
	arbitrator  domain.Identity = "judge-gus"
	stranger    domain.Identity = "nobody"
)

var fixedNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newEngine(t *testing.T, opts ...runtime.EngineOption) *runtime.Engine {
	t.Helper()
	return newEngineOn(t, memory.NewStore(), opts...)
}

func newEngineOn(t *testing.T, store ports.LedgerStore, opts ...runtime.EngineOption) *runtime.Engine {
	t.Helper()
	opts = append([]runtime.EngineOption{runtime.WithClock(func() time.Time { return fixedNow })}, opts...)
	return runtime.NewEngine(store, opts...)
}

// seed registers one participant per role, initializes the vault and gives
// the retailer a custody balance.
func seed(t *testing.T, e *runtime.Engine) {
	t.Helper()
	ctx := context.Background()

	for id, role := range map[domain.Identity]domain.Role{
		farmer:      domain.RoleFarmer,
		farmer2:     domain.RoleFarmer,
		transporter: domain.RoleTransporter,
		trucker2:    domain.RoleTransporter,
		wholesaler:  domain.RoleWholesaler,
		retailer:    domain.RoleRetailer,
		arbitrator:  domain.RoleArbitrator,
	} {
		_, err := e.Register(ctx, id, role, string(id), string(id)+"@example.org")
		require.NoError(t, err)
	}

	_, err := e.InitializeVault(ctx, admin)
	require.NoError(t, err)
	_, err = e.Deposit(ctx, admin, retailer, 10_000)
	require.NoError(t, err)
}

func harvest(id uint64) runtime.HarvestInput {
	return runtime.HarvestInput{
		ProduceID:      id,
		ProduceType:    "tomatoes",
		Quantity:       500,
		HarvestDate:    fixedNow.Unix(),
		Quality:        90,
		QrCodeURI:      "ipfs://bafy-tomatoes",
		FarmerPrice:    1000,
		TransporterFee: 200,
	}
}

// delivered walks a fresh batch up to Delivered with the vault funded for it.
func delivered(t *testing.T, e *runtime.Engine, id uint64) {
	t.Helper()
	ctx := context.Background()

	_, err := e.LogHarvest(ctx, farmer, harvest(id))
	require.NoError(t, err)
	_, err = e.RecordPickup(ctx, transporter, id, 4, 60)
	require.NoError(t, err)
	_, err = e.FundVault(ctx, retailer, id, 1200)
	require.NoError(t, err)
	_, err = e.RecordDelivery(ctx, transporter, id)
	require.NoError(t, err)
}

func status(t *testing.T, e *runtime.Engine, id uint64) domain.ProduceStatus {
	t.Helper()
	p, err := e.GetProduce(context.Background(), id)
	require.NoError(t, err)
	return p.Status
}

func balance(t *testing.T, e *runtime.Engine, owner domain.Identity) uint64 {
	t.Helper()
	b, err := e.Balance(context.Background(), owner)
	require.NoError(t, err)
	return b
}

func vaultBalance(t *testing.T, e *runtime.Engine) uint64 {
	t.Helper()
	b, err := e.VaultBalance(context.Background())
	require.NoError(t, err)
	return b
}
