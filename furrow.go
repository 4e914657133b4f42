package furrow

import (
	"context"
	"log/slog"
	"time"

	"github.com/furrow-ag/furrow/internal/runtime"
	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/furrow-ag/furrow/pkg/ports"
)

// Version is overridden at build time with -ldflags "-X github.com/furrow-ag/furrow.Version=...".
var Version = "dev"

// HarvestInput describes a batch being logged by a farmer.
type HarvestInput = runtime.HarvestInput

// ConfirmDeliveryResult carries the settlement made by ConfirmDelivery.
type ConfirmDeliveryResult = runtime.ConfirmDeliveryResult

// Ledger is the high-level entry point for the furrow library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Ledger struct {
	runtime     *runtime.Engine
	store       ports.LedgerStore
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	runtimeOpts []runtime.EngineOption
}

// Option defines a functional option for configuring the Ledger.
type Option func(*Ledger)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(l *Ledger) {
		l.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the ledger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.runtimeOpts = append(l.runtimeOpts, runtime.WithClock(now))
	}
}

// WithCurrency sets the currency recorded when the vault is initialized.
func WithCurrency(currency string) Option {
	return func(l *Ledger) {
		l.runtimeOpts = append(l.runtimeOpts, runtime.WithCurrency(currency))
	}
}

// WithRoleCache tunes how long resolved roles are kept in memory.
func WithRoleCache(ttl, cleanup time.Duration) Option {
	return func(l *Ledger) {
		l.runtimeOpts = append(l.runtimeOpts, runtime.WithRoleCache(runtime.NewRoleCache(ttl, cleanup)))
	}
}

// New initializes a Ledger on top of store. The caller keeps ownership of store
// unless it calls Close.
func New(store ports.LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{store: store}
	for _, opt := range opts {
		opt(l)
	}

	if l.logger == nil {
		l.logger = slog.New(slog.DiscardHandler)
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(l.hooks),
		runtime.WithLogger(l.logger),
	}
	runtimeOpts = append(runtimeOpts, l.runtimeOpts...)

	l.runtime = runtime.NewEngine(store, runtimeOpts...)
	return l
}

// Close releases the underlying store.
func (l *Ledger) Close() error {
	return l.store.Close()
}

// Execute dispatches a wire instruction to its handler.
func (l *Ledger) Execute(ctx context.Context, ins domain.Instruction) (*domain.Receipt, error) {
	return l.runtime.Execute(ctx, ins)
}

// Ops lists the instruction names Execute accepts.
func Ops() []domain.Op {
	return runtime.Ops()
}

// Params returns the positional parameter names of an instruction.
func Params(op domain.Op) ([]string, bool) {
	return runtime.Params(op)
}

// Register adds a participant. The role is fixed forever.
func (l *Ledger) Register(ctx context.Context, identity domain.Identity, role domain.Role, name, contactInfo string) (string, error) {
	return l.runtime.Register(ctx, identity, role, name, contactInfo)
}

func (l *Ledger) GetParticipant(ctx context.Context, identity domain.Identity) (*domain.Participant, error) {
	return l.runtime.GetParticipant(ctx, identity)
}

func (l *Ledger) GetRole(ctx context.Context, identity domain.Identity) (domain.Role, error) {
	return l.runtime.GetRole(ctx, identity)
}

// InitializeVault creates the singleton escrow vault. The signer becomes its admin.
func (l *Ledger) InitializeVault(ctx context.Context, admin domain.Identity) (string, error) {
	return l.runtime.InitializeVault(ctx, admin)
}

// Deposit credits custody funds to owner. Only the vault admin may mint.
func (l *Ledger) Deposit(ctx context.Context, admin, owner domain.Identity, amount uint64) (string, error) {
	return l.runtime.Deposit(ctx, admin, owner, amount)
}

func (l *Ledger) Withdraw(ctx context.Context, owner domain.Identity, amount uint64) (string, error) {
	return l.runtime.Withdraw(ctx, owner, amount)
}

// FundVault moves retailer custody into the payment vault ahead of settlement.
func (l *Ledger) FundVault(ctx context.Context, retailer domain.Identity, produceID, amount uint64) (string, error) {
	return l.runtime.FundVault(ctx, retailer, produceID, amount)
}

func (l *Ledger) GetVault(ctx context.Context) (*domain.Vault, error) {
	return l.runtime.GetVault(ctx)
}

func (l *Ledger) Balance(ctx context.Context, owner domain.Identity) (uint64, error) {
	return l.runtime.Balance(ctx, owner)
}

func (l *Ledger) VaultBalance(ctx context.Context) (uint64, error) {
	return l.runtime.VaultBalance(ctx)
}

func (l *Ledger) StakeVaultBalance(ctx context.Context) (uint64, error) {
	return l.runtime.StakeVaultBalance(ctx)
}

func (l *Ledger) LogHarvest(ctx context.Context, farmer domain.Identity, in HarvestInput) (string, error) {
	return l.runtime.LogHarvest(ctx, farmer, in)
}

func (l *Ledger) RecordPickup(ctx context.Context, transporter domain.Identity, produceID uint64, temp int16, humidity uint8) (string, error) {
	return l.runtime.RecordPickup(ctx, transporter, produceID, temp, humidity)
}

func (l *Ledger) ConfirmPickup(ctx context.Context, farmer domain.Identity, produceID uint64) (string, error) {
	return l.runtime.ConfirmPickup(ctx, farmer, produceID)
}

func (l *Ledger) RecordDelivery(ctx context.Context, transporter domain.Identity, produceID uint64) (string, error) {
	return l.runtime.RecordDelivery(ctx, transporter, produceID)
}

// ConfirmDelivery settles a batch: the farmer price and transporter fee leave
// the payment vault in the same transaction that marks the delivery confirmed.
func (l *Ledger) ConfirmDelivery(ctx context.Context, retailer domain.Identity, produceID uint64) (*ConfirmDeliveryResult, error) {
	return l.runtime.ConfirmDelivery(ctx, retailer, produceID)
}

func (l *Ledger) VerifyQuality(ctx context.Context, inspector domain.Identity, produceID uint64, score uint8) (string, error) {
	return l.runtime.VerifyQuality(ctx, inspector, produceID, score)
}

func (l *Ledger) GetProduce(ctx context.Context, produceID uint64) (*domain.Produce, error) {
	return l.runtime.GetProduce(ctx, produceID)
}

// EffectiveStatus is the status settlement rules act on. It differs from the
// stored status only for a disputed batch whose dispute upheld the original terms.
func (l *Ledger) EffectiveStatus(ctx context.Context, produceID uint64) (domain.ProduceStatus, error) {
	return l.runtime.EffectiveStatus(ctx, produceID)
}

func (l *Ledger) RaiseDispute(ctx context.Context, raiser domain.Identity, produceID uint64, description string) (string, error) {
	return l.runtime.RaiseDispute(ctx, raiser, produceID, description)
}

func (l *Ledger) ResolveDispute(ctx context.Context, arbitrator domain.Identity, produceID uint64, resolution bool) (string, error) {
	return l.runtime.ResolveDispute(ctx, arbitrator, produceID, resolution)
}

func (l *Ledger) GetDispute(ctx context.Context, produceID uint64) (*domain.Dispute, error) {
	return l.runtime.GetDispute(ctx, produceID)
}

func (l *Ledger) CreateProposal(ctx context.Context, proposer domain.Identity, proposalID uint64, description string) (string, error) {
	return l.runtime.CreateProposal(ctx, proposer, proposalID, description)
}

func (l *Ledger) VoteProposal(ctx context.Context, voter domain.Identity, proposalID uint64, voteFor bool) (string, error) {
	return l.runtime.VoteProposal(ctx, voter, proposalID, voteFor)
}

// ExecuteProposal always fails with domain.ErrNotImplemented for an existing proposal.
func (l *Ledger) ExecuteProposal(ctx context.Context, executor domain.Identity, proposalID uint64) error {
	return l.runtime.ExecuteProposal(ctx, executor, proposalID)
}

func (l *Ledger) GetProposal(ctx context.Context, proposalID uint64) (*domain.Proposal, error) {
	return l.runtime.GetProposal(ctx, proposalID)
}

func (l *Ledger) StakeTokens(ctx context.Context, staker domain.Identity, amount uint64) (string, error) {
	return l.runtime.StakeTokens(ctx, staker, amount)
}

func (l *Ledger) UnstakeTokens(ctx context.Context, staker domain.Identity, amount uint64) (string, error) {
	return l.runtime.UnstakeTokens(ctx, staker, amount)
}

func (l *Ledger) GetStake(ctx context.Context, staker domain.Identity) (*domain.Stake, error) {
	return l.runtime.GetStake(ctx, staker)
}

// Events returns the whole journal in commit order.
func (l *Ledger) Events(ctx context.Context) ([]domain.Event, error) {
	return l.runtime.Events(ctx)
}

// History returns the journal entries of one produce batch in commit order.
func (l *Ledger) History(ctx context.Context, produceID uint64) ([]domain.Event, error) {
	return l.runtime.History(ctx, produceID)
}

// Stats summarizes participants, batches, disputes and vault balances.
func (l *Ledger) Stats(ctx context.Context) (*domain.Stats, error) {
	return l.runtime.Stats(ctx)
}
