package runtime

import (
	"context"

	"github.com/furrow-ag/furrow/pkg/domain"
)

// vaultBump is the derivation seed recorded on the vault. Keys here are plain
// hashes, so there is no bump search; the field is kept for external tools.
const vaultBump uint8 = 255

// InitializeVault creates the singleton vault and its two custody accounts.
// The signer becomes the vault admin.
func (e *Engine) InitializeVault(ctx context.Context, admin domain.Identity) (string, error) {
	const op = "InitializeVault"
	key := domain.VaultKey()

	ev, err := e.commit(ctx, domain.OpInitializeVault, admin, func(ctx context.Context, tx *ledgerTx) (*domain.Event, error) {
		if admin == "" {
			return nil, domain.ErrInvalidIdentity.With(op, "empty admin")
		}
		exists, err := tx.exists(ctx, key)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, domain.ErrAlreadyInitialized.With(op, "")
		}

		v := domain.Vault{
			Bump:            vaultBump,
			Admin:           admin,
			Currency:        e.currency,
			PaymentVaultKey: domain.PaymentVaultKey(),
			StakeVaultKey:   domain.StakeVaultKey(),
			CreatedAt:       e.now().UTC(),
		}
		if err := tx.save(ctx, key, &v); err != nil {
			return nil, err
		}
		if err := tx.save(ctx, v.PaymentVaultKey, &domain.TokenAccount{Owner: "vault", Currency: e.currency}); err != nil {
			return nil, err
		}
		if err := tx.save(ctx, v.StakeVaultKey, &domain.TokenAccount{Owner: "stake_vault", Currency: e.currency}); err != nil {
			return nil, err
		}
		return &domain.Event{Key: key, Attributes: map[string]any{"currency": e.currency}}, nil
	})
	if err != nil {
		return "", err
	}
	return ev.Key, nil
}

// Deposit credits owner's custody account. Only the vault admin may mint
// into custody; this stands in for wrapping external funds.
func (e *Engine) Deposit(ctx context.Context, admin, owner domain.Identity, amount uint64) (string, error) {
	const op = "Deposit"
	key := domain.TokenAccountKey(owner)

	ev, err := e.commit(ctx, domain.OpDeposit, admin, func(ctx context.Context, tx *ledgerTx) (*domain.Event, error) {
		if amount == 0 {
			return nil, domain.ErrInvalidAmount.With(op, "amount must be positive")
		}
		if owner == "" {
			return nil, domain.ErrInvalidIdentity.With(op, "empty owner")
		}
		v, err := tx.vault(ctx, op)
		if err != nil {
			return nil, err
		}
		if v.Admin != admin {
			return nil, domain.ErrUnauthorized.With(op, "%s is not the vault admin", admin)
		}

		acct, err := tx.account(ctx, key, owner, v.Currency)
		if err != nil {
			return nil, err
		}
		if err := acct.Credit(amount); err != nil {
			return nil, withOp(err, op)
		}
		if err := tx.save(ctx, key, acct); err != nil {
			return nil, err
		}
		return &domain.Event{Key: key, Amount: amount, Attributes: map[string]any{"owner": string(owner)}}, nil
	})
	if err != nil {
		return "", err
	}
	return ev.Key, nil
}

// Withdraw debits the signer's own custody account.
func (e *Engine) Withdraw(ctx context.Context, owner domain.Identity, amount uint64) (string, error) {
	const op = "Withdraw"
	key := domain.TokenAccountKey(owner)

	ev, err := e.commit(ctx, domain.OpWithdraw, owner, func(ctx context.Context, tx *ledgerTx) (*domain.Event, error) {
		if amount == 0 {
			return nil, domain.ErrInvalidAmount.With(op, "amount must be positive")
		}
		v, err := tx.vault(ctx, op)
		if err != nil {
			return nil, err
		}
		acct, err := tx.account(ctx, key, owner, v.Currency)
		if err != nil {
			return nil, err
		}
		if err := acct.Debit(amount); err != nil {
			return nil, withOp(err, op)
		}
		if err := tx.save(ctx, key, acct); err != nil {
			return nil, err
		}
		return &domain.Event{Key: key, Amount: amount}, nil
	})
	if err != nil {
		return "", err
	}
	return ev.Key, nil
}

// FundVault moves amount from the retailer's custody into the payment vault.
// The amount must cover the batch's farmer price plus transporter fee; the
// produce record itself is not touched.
func (e *Engine) FundVault(ctx context.Context, retailer domain.Identity, produceID, amount uint64) (string, error) {
	const op = "FundVault"
	key := domain.PaymentVaultKey()

	ev, err := e.commit(ctx, domain.OpFundVault, retailer, func(ctx context.Context, tx *ledgerTx) (*domain.Event, error) {
		if _, err := tx.requireRole(ctx, op, retailer, domain.RoleRetailer); err != nil {
			return nil, err
		}
		v, err := tx.vault(ctx, op)
		if err != nil {
			return nil, err
		}
		p, err := tx.produce(ctx, op, produceID)
		if err != nil {
			return nil, err
		}
		if required := p.SettlementAmount(); amount < required {
			return nil, domain.ErrInsufficientFundingAmount.With(op, "got %d, batch %d requires %d", amount, produceID, required)
		}

		fromKey := domain.TokenAccountKey(retailer)
		from, err := tx.account(ctx, fromKey, retailer, v.Currency)
		if err != nil {
			return nil, err
		}
		to, err := tx.account(ctx, key, "vault", v.Currency)
		if err != nil {
			return nil, err
		}
		if err := tx.transfer(ctx, op, from, fromKey, to, key, amount); err != nil {
			return nil, err
		}
		return &domain.Event{Key: key, ProduceID: u64(produceID), Amount: amount}, nil
	})
	if err != nil {
		return "", err
	}
	return ev.Key, nil
}

// settle pays the farmer and transporter of p out of the payment vault.
// The balance is checked here, at settlement time, because the vault is
// shared by every batch. Must run inside the transaction that records the
// delivery confirmation.
func (t *ledgerTx) settle(ctx context.Context, op string, p *domain.Produce) (*domain.Settlement, error) {
	v, err := t.vault(ctx, op)
	if err != nil {
		return nil, err
	}
	vaultKey := domain.PaymentVaultKey()
	vault, err := t.account(ctx, vaultKey, "vault", v.Currency)
	if err != nil {
		return nil, err
	}
	if required := p.SettlementAmount(); vault.Balance < required {
		return nil, domain.ErrInsufficientVaultBalance.With(op, "vault holds %d, batch %d requires %d", vault.Balance, p.ProduceID, required)
	}

	farmerKey := domain.TokenAccountKey(p.Farmer)
	farmer, err := t.account(ctx, farmerKey, p.Farmer, v.Currency)
	if err != nil {
		return nil, err
	}
	if err := t.transfer(ctx, op, vault, vaultKey, farmer, farmerKey, p.FarmerPrice); err != nil {
		return nil, err
	}

	transporterKey := domain.TokenAccountKey(p.Transporter)
	transporter, err := t.account(ctx, transporterKey, p.Transporter, v.Currency)
	if err != nil {
		return nil, err
	}
	if err := t.transfer(ctx, op, vault, vaultKey, transporter, transporterKey, p.TransporterFee); err != nil {
		return nil, err
	}

	return &domain.Settlement{
		ProduceID:         p.ProduceID,
		Farmer:            p.Farmer,
		Transporter:       p.Transporter,
		FarmerAmount:      p.FarmerPrice,
		TransporterAmount: p.TransporterFee,
	}, nil
}

// GetVault returns the vault record.
func (e *Engine) GetVault(ctx context.Context) (*domain.Vault, error) {
	var out *domain.Vault
	err := e.view(ctx, func(ctx context.Context, tx *ledgerTx) error {
		v, err := tx.vault(ctx, "GetVault")
		out = v
		return err
	})
	return out, err
}

// Balance returns owner's custody balance. Unknown owners hold zero.
func (e *Engine) Balance(ctx context.Context, owner domain.Identity) (uint64, error) {
	return e.balanceOf(ctx, domain.TokenAccountKey(owner), owner)
}

// VaultBalance returns the payment vault balance.
func (e *Engine) VaultBalance(ctx context.Context) (uint64, error) {
	return e.balanceOf(ctx, domain.PaymentVaultKey(), "vault")
}

// StakeVaultBalance returns the total staked balance.
func (e *Engine) StakeVaultBalance(ctx context.Context) (uint64, error) {
	return e.balanceOf(ctx, domain.StakeVaultKey(), "stake_vault")
}

func (e *Engine) balanceOf(ctx context.Context, key string, owner domain.Identity) (uint64, error) {
	var balance uint64
	err := e.view(ctx, func(ctx context.Context, tx *ledgerTx) error {
		acct, err := tx.account(ctx, key, owner, e.currency)
		if err != nil {
			return err
		}
		balance = acct.Balance
		return nil
	})
	return balance, err
}
