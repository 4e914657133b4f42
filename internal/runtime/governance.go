package runtime

import (
	"context"
	"math"

	"github.com/furrow-ag/furrow/pkg/domain"
)

// CreateProposal opens a governance proposal. Proposing is not role-gated.
func (e *Engine) CreateProposal(ctx context.Context, proposer domain.Identity, proposalID uint64, description string) (string, error) {
	const op = "CreateProposal"
	key := domain.ProposalKey(proposalID)

	_, err := e.commit(ctx, domain.OpCreateProposal, proposer, func(ctx context.Context, tx *ledgerTx) (*domain.Event, error) {
		if len(description) > domain.MaxDescriptionLen {
			return nil, domain.ErrDescriptionTooLong.With(op, "%d bytes, max %d", len(description), domain.MaxDescriptionLen)
		}
		exists, err := tx.exists(ctx, key)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, domain.ErrProposalIDInUse.With(op, "proposal %d", proposalID)
		}

		p := domain.Proposal{
			ProposalID:  proposalID,
			Proposer:    proposer,
			Description: description,
			CreatedAt:   e.now().UTC(),
			Voters:      make(map[domain.Identity]struct{}),
		}
		if err := tx.save(ctx, key, &p); err != nil {
			return nil, err
		}
		return &domain.Event{Key: key, ProposalID: u64(proposalID)}, nil
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// VoteProposal records one vote per identity. Stakes do not weight votes.
func (e *Engine) VoteProposal(ctx context.Context, voter domain.Identity, proposalID uint64, voteFor bool) (string, error) {
	const op = "VoteProposal"
	key := domain.ProposalKey(proposalID)

	_, err := e.commit(ctx, domain.OpVoteProposal, voter, func(ctx context.Context, tx *ledgerTx) (*domain.Event, error) {
		p, err := tx.proposal(ctx, op, proposalID)
		if err != nil {
			return nil, err
		}
		if p.HasVoted(voter) {
			return nil, domain.ErrAlreadyVoted.With(op, "%s on proposal %d", voter, proposalID)
		}

		tally := &p.VotesAgainst
		if voteFor {
			tally = &p.VotesFor
		}
		if *tally == math.MaxUint64 {
			return nil, domain.ErrOverflow.With(op, "vote tally of proposal %d", proposalID)
		}
		*tally++
		p.Voters[voter] = struct{}{}

		if err := tx.save(ctx, key, p); err != nil {
			return nil, err
		}
		return &domain.Event{Key: key, ProposalID: u64(proposalID), Attributes: map[string]any{"vote_for": voteFor}}, nil
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// ExecuteProposal is declared but has no execution semantics yet: it checks
// the proposal exists and then always fails with NotImplemented. Nothing is
// written and no event is journaled.
func (e *Engine) ExecuteProposal(ctx context.Context, executor domain.Identity, proposalID uint64) error {
	const op = "ExecuteProposal"

	_, err := e.commit(ctx, domain.OpExecuteProposal, executor, func(ctx context.Context, tx *ledgerTx) (*domain.Event, error) {
		if _, err := tx.proposal(ctx, op, proposalID); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotImplemented.With(op, "proposal execution has no defined effects")
	})
	return err
}

// GetProposal returns a proposal with its voter set.
func (e *Engine) GetProposal(ctx context.Context, proposalID uint64) (*domain.Proposal, error) {
	var out *domain.Proposal
	err := e.view(ctx, func(ctx context.Context, tx *ledgerTx) error {
		p, err := tx.proposal(ctx, "GetProposal", proposalID)
		out = p
		return err
	})
	return out, err
}
