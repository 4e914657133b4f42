package runtime_test

import (
	"context"
	"strings"
	"testing"

	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGovernance_OneIdentityOneVote(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	_, err := e.CreateProposal(ctx, stranger, 1, "lower the quality threshold")
	require.NoError(t, err, "proposing is not role-gated")

	_, err = e.VoteProposal(ctx, farmer, 1, true)
	require.NoError(t, err)
	_, err = e.VoteProposal(ctx, retailer, 1, false)
	require.NoError(t, err)

	_, err = e.VoteProposal(ctx, farmer, 1, false)
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)

	p, err := e.GetProposal(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.VotesFor)
	assert.Equal(t, uint64(1), p.VotesAgainst)
	assert.True(t, p.HasVoted(farmer))
	assert.True(t, p.HasVoted(retailer))
	assert.False(t, p.HasVoted(wholesaler))
	assert.False(t, p.Executed)
}

func TestGovernance_Guards(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	_, err := e.CreateProposal(ctx, farmer, 2, strings.Repeat("p", 129))
	assert.ErrorIs(t, err, domain.ErrDescriptionTooLong)

	_, err = e.CreateProposal(ctx, farmer, 2, "ok")
	require.NoError(t, err)
	_, err = e.CreateProposal(ctx, retailer, 2, "same id")
	assert.ErrorIs(t, err, domain.ErrProposalIDInUse)

	_, err = e.VoteProposal(ctx, farmer, 3, true)
	assert.ErrorIs(t, err, domain.ErrProposalNotFound)
}

func TestGovernance_ExecuteIsNotImplemented(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	err := e.ExecuteProposal(ctx, farmer, 4)
	assert.ErrorIs(t, err, domain.ErrProposalNotFound)

	_, err = e.CreateProposal(ctx, farmer, 4, "fund a cold store")
	require.NoError(t, err)

	err = e.ExecuteProposal(ctx, farmer, 4)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
	assert.Equal(t, domain.KindUnsupported, domain.KindOf(err))

	p, err := e.GetProposal(ctx, 4)
	require.NoError(t, err)
	assert.False(t, p.Executed)

	events, err := e.Events(ctx)
	require.NoError(t, err)
	for _, ev := range events {
		assert.NotEqual(t, domain.OpExecuteProposal, ev.Op)
	}
}
