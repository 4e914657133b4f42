package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/furrow-ag/furrow/pkg/ports"
)

// ledgerTx adds typed record access on top of a store transaction.
type ledgerTx struct {
	tx     ports.Tx
	engine *Engine
}

// load decodes the record at key into v. It returns found=false, err=nil when
// the key is empty.
func (t *ledgerTx) load(ctx context.Context, key string, v any) (bool, error) {
	raw, err := t.tx.Get(ctx, key)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (t *ledgerTx) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return t.tx.Put(ctx, key, raw)
}

func (t *ledgerTx) exists(ctx context.Context, key string) (bool, error) {
	_, err := t.tx.Get(ctx, key)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (t *ledgerTx) participant(ctx context.Context, id domain.Identity) (*domain.Participant, bool, error) {
	var p domain.Participant
	ok, err := t.load(ctx, domain.ParticipantKey(id), &p)
	if !ok || err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

// produce loads a batch or fails with ProduceNotFound.
func (t *ledgerTx) produce(ctx context.Context, op string, produceID uint64) (*domain.Produce, error) {
	var p domain.Produce
	ok, err := t.load(ctx, domain.ProduceKey(produceID), &p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrProduceNotFound.With(op, "produce %d", produceID)
	}
	return &p, nil
}

func (t *ledgerTx) dispute(ctx context.Context, produceID uint64) (*domain.Dispute, bool, error) {
	var d domain.Dispute
	ok, err := t.load(ctx, domain.DisputeKey(produceID), &d)
	if !ok || err != nil {
		return nil, false, err
	}
	return &d, true, nil
}

func (t *ledgerTx) proposal(ctx context.Context, op string, proposalID uint64) (*domain.Proposal, error) {
	var p domain.Proposal
	ok, err := t.load(ctx, domain.ProposalKey(proposalID), &p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrProposalNotFound.With(op, "proposal %d", proposalID)
	}
	if p.Voters == nil {
		p.Voters = make(map[domain.Identity]struct{})
	}
	return &p, nil
}

// vault loads the singleton vault or fails with VaultNotInitialized.
func (t *ledgerTx) vault(ctx context.Context, op string) (*domain.Vault, error) {
	var v domain.Vault
	ok, err := t.load(ctx, domain.VaultKey(), &v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrVaultNotInitialized.With(op, "")
	}
	return &v, nil
}

// account loads a custody account, returning an empty one if it was never credited.
func (t *ledgerTx) account(ctx context.Context, key string, owner domain.Identity, currency string) (*domain.TokenAccount, error) {
	acct := domain.TokenAccount{Owner: owner, Currency: currency}
	if _, err := t.load(ctx, key, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

func (t *ledgerTx) stake(ctx context.Context, staker domain.Identity) (*domain.Stake, error) {
	s := domain.Stake{Staker: staker}
	if _, err := t.load(ctx, domain.StakeKey(staker), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// transfer moves amount between two custody accounts. Both are saved.
func (t *ledgerTx) transfer(ctx context.Context, op string, from *domain.TokenAccount, fromKey string, to *domain.TokenAccount, toKey string, amount uint64) error {
	if fromKey == toKey {
		return domain.ErrInvalidIdentity.With(op, "transfer from %s to itself", from.Owner)
	}
	if err := from.Debit(amount); err != nil {
		return withOp(err, op)
	}
	if err := to.Credit(amount); err != nil {
		return withOp(err, op)
	}
	if err := t.save(ctx, fromKey, from); err != nil {
		return err
	}
	return t.save(ctx, toKey, to)
}

// withOp rebinds a domain error raised by a record helper to the calling operation.
func withOp(err error, op string) error {
	var lerr *domain.Error
	if errors.As(err, &lerr) {
		out := *lerr
		out.Op = op
		return &out
	}
	return err
}
