package runtime_test

import (
	"context"
	"testing"

	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	empty, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Produce)
	assert.Zero(t, empty.VaultBalance)

	seed(t, e)
	delivered(t, e, 1)
	_, err = e.LogHarvest(ctx, farmer, harvest(2))
	require.NoError(t, err)
	_, err = e.LogHarvest(ctx, farmer, harvest(3))
	require.NoError(t, err)
	_, err = e.RecordPickup(ctx, transporter, 3, 4, 60)
	require.NoError(t, err)
	_, err = e.RaiseDispute(ctx, farmer, 3, "crates missing")
	require.NoError(t, err)
	_, err = e.CreateProposal(ctx, farmer, 1, "lower fees")
	require.NoError(t, err)

	s, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Participants[domain.RoleFarmer])
	assert.Equal(t, 1, s.Participants[domain.RoleRetailer])
	assert.Equal(t, 1, s.Produce[domain.StatusDelivered])
	assert.Equal(t, 1, s.Produce[domain.StatusHarvested])
	assert.Equal(t, 1, s.Produce[domain.StatusDisputed])
	assert.Equal(t, 1, s.OpenDisputes)
	assert.Equal(t, 1, s.Proposals)
	assert.Equal(t, uint64(1200), s.VaultBalance)
}
