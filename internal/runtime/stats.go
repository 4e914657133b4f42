package runtime

import (
	"context"
	"fmt"

	"github.com/furrow-ag/furrow/pkg/domain"
)

// Stats summarizes the ledger. Key listing and record reads are separate
// calls, so the counts may straddle a concurrent commit.
func (e *Engine) Stats(ctx context.Context) (*domain.Stats, error) {
	keys := make(map[domain.Namespace][]string, 4)
	for _, ns := range []domain.Namespace{domain.NSParticipant, domain.NSProduce, domain.NSDispute, domain.NSProposal} {
		k, err := e.store.Keys(ctx, ns)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", ns, err)
		}
		keys[ns] = k
	}

	s := &domain.Stats{
		Participants: make(map[domain.Role]int),
		Produce:      make(map[domain.ProduceStatus]int),
		Proposals:    len(keys[domain.NSProposal]),
	}

	err := e.view(ctx, func(ctx context.Context, tx *ledgerTx) error {
		for _, key := range keys[domain.NSParticipant] {
			var p domain.Participant
			if ok, err := tx.load(ctx, key, &p); err != nil {
				return err
			} else if ok {
				s.Participants[p.Role]++
			}
		}
		for _, key := range keys[domain.NSProduce] {
			var p domain.Produce
			if ok, err := tx.load(ctx, key, &p); err != nil {
				return err
			} else if ok {
				s.Produce[p.Status]++
			}
		}
		for _, key := range keys[domain.NSDispute] {
			var d domain.Dispute
			if ok, err := tx.load(ctx, key, &d); err != nil {
				return err
			} else if ok && !d.Resolved {
				s.OpenDisputes++
			}
		}

		for key, dst := range map[string]*uint64{
			domain.PaymentVaultKey(): &s.VaultBalance,
			domain.StakeVaultKey():   &s.StakeVaultBalance,
		} {
			var acct domain.TokenAccount
			if _, err := tx.load(ctx, key, &acct); err != nil {
				return err
			}
			*dst = acct.Balance
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
