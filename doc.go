/*
Package furrow is the core of an agricultural supply-chain ledger.

It records who may act (farmers, transporters, wholesalers, retailers and
arbitrators), tracks each produce batch from harvest to delivery, holds
retailer funds in escrow and pays the farmer and the transporter exactly once
when the retailer confirms delivery. Disputes and a small governance log sit
beside the lifecycle.

# Architecture

The ledger follows Hexagonal Architecture. The rules live in an internal
engine that only talks to a ports.LedgerStore, a transactional key-value
store. Adapters provide the store:

  - pkg/adapters/memory: in-process, for tests and embedding.
  - pkg/adapters/file: a single JSON file replaced atomically, used by the CLI.
  - pkg/adapters/redis: optimistic WATCH/MULTI/EXEC transactions.
  - pkg/adapters/postgres: SERIALIZABLE transactions.

Every operation runs as one serializable transaction. Either all of its
effects (records, balances and the journal entry) become visible or none do.

# Usage

	store := memory.NewStore()
	ledger := furrow.New(store, furrow.WithLogger(slog.Default()))

	ctx := context.Background()
	_, _ = ledger.Register(ctx, "farmer-ana", domain.RoleFarmer, "Ana", "ana@example.org")
	_, _ = ledger.LogHarvest(ctx, "farmer-ana", furrow.HarvestInput{
		ProduceID:      42,
		ProduceType:    "tomato",
		Quantity:       500,
		Quality:        90,
		FarmerPrice:    1000,
		TransporterFee: 200,
	})

Instructions can also be submitted in their wire form, which is what the
furrow CLI does:

	receipt, err := ledger.Execute(ctx, domain.Instruction{
		Op:     domain.OpConfirmDelivery,
		Signer: "shop-finn",
		Args:   []any{42},
	})

All failures are *domain.Error values. Compare them with errors.Is against the
exported sentinels (domain.ErrAlreadySettled, domain.ErrUnauthorized, ...).
*/
package furrow
