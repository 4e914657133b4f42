package runtime_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/furrow-ag/furrow/internal/runtime"
	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_StringArgumentsFromTheCommandLine(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	run := func(op domain.Op, signer domain.Identity, args ...any) *domain.Receipt {
		t.Helper()
		r, err := e.Execute(ctx, domain.Instruction{Op: op, Signer: signer, Args: args})
		require.NoError(t, err, "%s", op)
		return r
	}

	r := run(domain.OpRegister, farmer, "farmer", "Ana", "ana@farm.example")
	assert.Equal(t, domain.ParticipantKey(farmer), r.Key)
	assert.NotEmpty(t, r.EventID)
	assert.Equal(t, domain.OpRegister, r.Op)

	run(domain.OpRegister, transporter, "Transporter", "Carl", "")
	run(domain.OpRegister, retailer, 4, "Finn", "")
	run(domain.OpInitializeVault, admin)
	run(domain.OpDeposit, admin, string(retailer), "5000")
	run(domain.OpLogHarvest, farmer, "42", "tomatoes", "500", "1767225600", "90", "ipfs://x", "1000", "200")
	run(domain.OpRecordPickup, transporter, "42", "-2", "60")
	run(domain.OpFundVault, retailer, "42", "1200")
	run(domain.OpRecordDelivery, transporter, 42)

	r = run(domain.OpConfirmDelivery, retailer, uint64(42))
	require.NotNil(t, r.Settlement)
	assert.Equal(t, uint64(1000), r.Settlement.FarmerAmount)
	assert.Equal(t, uint64(200), r.Settlement.TransporterAmount)

	role, err := e.GetRole(ctx, retailer)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleRetailer, role)

	p, err := e.GetProduce(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int16(-2), p.TransportTemp)
}

func TestExecute_NamedArguments(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	_, err := e.Execute(ctx, domain.Instruction{
		Op:     domain.OpCreateProposal,
		Signer: farmer,
		Args:   []any{map[string]any{"proposal_id": 7, "description": "shared cold storage"}},
	})
	require.NoError(t, err)

	_, err = e.Execute(ctx, domain.Instruction{
		Op:     domain.OpVoteProposal,
		Signer: farmer,
		Args:   []any{map[any]any{"proposal_id": "7", "vote_for": "true"}},
	})
	require.NoError(t, err)

	p, err := e.GetProposal(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.VotesFor)
}

func TestExecute_RejectsBadInstructions(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	tests := []struct {
		name string
		ins  domain.Instruction
		want error
	}{
		{"unknown op", domain.Instruction{Op: "mint_money", Signer: farmer}, domain.ErrUnknownInstruction},
		{"missing argument", domain.Instruction{Op: domain.OpVoteProposal, Signer: farmer, Args: []any{1}}, domain.ErrInvalidArguments},
		{"extra argument", domain.Instruction{Op: domain.OpInitializeVault, Signer: farmer, Args: []any{1}}, domain.ErrInvalidArguments},
		{"negative id", domain.Instruction{Op: domain.OpExecuteProposal, Signer: farmer, Args: []any{-1}}, domain.ErrInvalidArguments},
		{"humidity overflow", domain.Instruction{Op: domain.OpRecordPickup, Signer: farmer, Args: []any{1, 4, 300}}, domain.ErrInvalidArguments},
		{"fractional amount", domain.Instruction{Op: domain.OpWithdraw, Signer: farmer, Args: []any{1.5}}, domain.ErrInvalidArguments},
		{"amount of 2^64", domain.Instruction{Op: domain.OpWithdraw, Signer: farmer, Args: []any{1.8446744073709552e19}}, domain.ErrInvalidArguments},
		{"amount past 2^64", domain.Instruction{Op: domain.OpWithdraw, Signer: farmer, Args: []any{3e19}}, domain.ErrInvalidArguments},
		{"not a number", domain.Instruction{Op: domain.OpWithdraw, Signer: farmer, Args: []any{"lots"}}, domain.ErrInvalidArguments},
		{"bad role", domain.Instruction{Op: domain.OpRegister, Signer: farmer, Args: []any{"landlord", "x", "y"}}, domain.ErrInvalidArguments},
		{"named args missing key", domain.Instruction{Op: domain.OpVoteProposal, Signer: farmer, Args: []any{map[string]any{"proposal_id": 1}}}, domain.ErrInvalidArguments},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Execute(ctx, tt.ins)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}
}

func TestExecute_EveryOpHasParams(t *testing.T) {
	ops := runtime.Ops()
	assert.Len(t, ops, 18)
	for _, op := range ops {
		_, ok := runtime.Params(op)
		assert.True(t, ok, op)
	}
	params, _ := runtime.Params(domain.OpLogHarvest)
	assert.Equal(t, []string{"produce_id", "produce_type", "quantity", "harvest_date", "quality", "qr_code_uri", "farmer_price", "transporter_fee"}, params)
}

func TestEngine_LifecycleHooksAndLogging(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	var committed []domain.Op
	var rejected []string
	hooks := domain.LifecycleHooks{
		OnCommit: func(_ context.Context, ev *domain.Event) {
			mu.Lock()
			defer mu.Unlock()
			committed = append(committed, ev.Op)
		},
		OnReject: func(_ context.Context, ev *domain.RejectEvent) {
			mu.Lock()
			defer mu.Unlock()
			rejected = append(rejected, domain.CodeOf(ev.Err))
		},
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := newEngine(t, runtime.WithLifecycleHooks(hooks), runtime.WithLogger(logger))

	_, err := e.Register(ctx, farmer, domain.RoleFarmer, "Ana", "")
	require.NoError(t, err)
	_, err = e.Register(ctx, farmer, domain.RoleFarmer, "Ana", "")
	require.Error(t, err)
	_, err = e.Execute(ctx, domain.Instruction{Op: "bogus", Signer: farmer})
	require.Error(t, err)

	assert.Equal(t, []domain.Op{domain.OpRegister}, committed)
	assert.Equal(t, []string{"AlreadyRegistered", "UnknownInstruction"}, rejected)

	out := buf.String()
	assert.Contains(t, out, "instruction committed")
	assert.Contains(t, out, "instruction rejected")
	assert.Contains(t, out, "code=AlreadyRegistered")
}

func TestHistory_ListsProduceEventsInOrder(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	seed(t, e)
	delivered(t, e, 42)
	_, err := e.LogHarvest(ctx, farmer, harvest(43))
	require.NoError(t, err)
	res, err := e.ConfirmDelivery(ctx, retailer, 42)
	require.NoError(t, err)

	history, err := e.History(ctx, 42)
	require.NoError(t, err)

	ops := make([]domain.Op, 0, len(history))
	for _, ev := range history {
		ops = append(ops, ev.Op)
		assert.Equal(t, uint64(42), *ev.ProduceID)
	}
	assert.Equal(t, []domain.Op{
		domain.OpLogHarvest,
		domain.OpRecordPickup,
		domain.OpFundVault,
		domain.OpRecordDelivery,
		domain.OpConfirmDelivery,
	}, ops)

	last := history[len(history)-1]
	assert.Equal(t, res.EventID, last.ID)
	require.NotNil(t, last.Settlement)
	assert.Equal(t, farmer, last.Settlement.Farmer)
	assert.Equal(t, retailer, last.Signer)
	assert.True(t, fixedNow.Equal(last.Timestamp))
}
