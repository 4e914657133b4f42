package runtime

import (
	"context"

	"github.com/furrow-ag/furrow/pkg/domain"
)

// StakeTokens locks amount of the staker's custody balance in the stake vault.
func (e *Engine) StakeTokens(ctx context.Context, staker domain.Identity, amount uint64) (string, error) {
	const op = "StakeTokens"
	key := domain.StakeKey(staker)

	_, err := e.commit(ctx, domain.OpStakeTokens, staker, func(ctx context.Context, tx *ledgerTx) (*domain.Event, error) {
		if amount == 0 {
			return nil, domain.ErrInvalidAmount.With(op, "amount must be positive")
		}
		if err := tx.requireRegistered(ctx, op, staker); err != nil {
			return nil, err
		}
		v, err := tx.vault(ctx, op)
		if err != nil {
			return nil, err
		}

		fromKey := domain.TokenAccountKey(staker)
		from, err := tx.account(ctx, fromKey, staker, v.Currency)
		if err != nil {
			return nil, err
		}
		to, err := tx.account(ctx, v.StakeVaultKey, "stake_vault", v.Currency)
		if err != nil {
			return nil, err
		}
		if err := tx.transfer(ctx, op, from, fromKey, to, v.StakeVaultKey, amount); err != nil {
			return nil, err
		}

		s, err := tx.stake(ctx, staker)
		if err != nil {
			return nil, err
		}
		s.Amount += amount
		s.UpdatedAt = e.now().UTC()
		if err := tx.save(ctx, key, s); err != nil {
			return nil, err
		}
		return &domain.Event{Key: key, Amount: amount}, nil
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// UnstakeTokens returns amount from the stake vault to the staker's custody.
func (e *Engine) UnstakeTokens(ctx context.Context, staker domain.Identity, amount uint64) (string, error) {
	const op = "UnstakeTokens"
	key := domain.StakeKey(staker)

	_, err := e.commit(ctx, domain.OpUnstakeTokens, staker, func(ctx context.Context, tx *ledgerTx) (*domain.Event, error) {
		if amount == 0 {
			return nil, domain.ErrInvalidAmount.With(op, "amount must be positive")
		}
		v, err := tx.vault(ctx, op)
		if err != nil {
			return nil, err
		}
		s, err := tx.stake(ctx, staker)
		if err != nil {
			return nil, err
		}
		if s.Amount < amount {
			return nil, domain.ErrInsufficientStake.With(op, "%s staked %d, asked %d", staker, s.Amount, amount)
		}

		fromKey := v.StakeVaultKey
		from, err := tx.account(ctx, fromKey, "stake_vault", v.Currency)
		if err != nil {
			return nil, err
		}
		toKey := domain.TokenAccountKey(staker)
		to, err := tx.account(ctx, toKey, staker, v.Currency)
		if err != nil {
			return nil, err
		}
		if err := tx.transfer(ctx, op, from, fromKey, to, toKey, amount); err != nil {
			return nil, err
		}

		s.Amount -= amount
		s.UpdatedAt = e.now().UTC()
		if err := tx.save(ctx, key, s); err != nil {
			return nil, err
		}
		return &domain.Event{Key: key, Amount: amount}, nil
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// GetStake returns the stake record of staker; a zero stake if none.
func (e *Engine) GetStake(ctx context.Context, staker domain.Identity) (*domain.Stake, error) {
	var out *domain.Stake
	err := e.view(ctx, func(ctx context.Context, tx *ledgerTx) error {
		s, err := tx.stake(ctx, staker)
		out = s
		return err
	})
	return out, err
}
