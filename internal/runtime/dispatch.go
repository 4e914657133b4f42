package runtime

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// handler binds an Op to its positional parameter names and its engine call.
type handler struct {
	params []string
	run    func(ctx context.Context, e *Engine, signer domain.Identity, args map[string]any) (*domain.Receipt, error)
}

var handlers = map[domain.Op]handler{
	domain.OpRegister: {
		params: []string{"role", "name", "contact_info"},
		run: func(ctx context.Context, e *Engine, signer domain.Identity, args map[string]any) (*domain.Receipt, error) {
			var in struct {
				Role        domain.Role `mapstructure:"role"`
				Name        string      `mapstructure:"name"`
				ContactInfo string      `mapstructure:"contact_info"`
			}
			if err := decodeArgs(domain.OpRegister, args, &in); err != nil {
				return nil, err
			}
			return keyed(e.Register(ctx, signer, in.Role, in.Name, in.ContactInfo))
		},
	},
	domain.OpInitializeVault: {
		run: func(ctx context.Context, e *Engine, signer domain.Identity, _ map[string]any) (*domain.Receipt, error) {
			return keyed(e.InitializeVault(ctx, signer))
		},
	},
	domain.OpDeposit: {
		params: []string{"owner", "amount"},
		run: func(ctx context.Context, e *Engine, signer domain.Identity, args map[string]any) (*domain.Receipt, error) {
			var in struct {
				Owner  domain.Identity `mapstructure:"owner"`
				Amount uint64          `mapstructure:"amount"`
			}
			if err := decodeArgs(domain.OpDeposit, args, &in); err != nil {
				return nil, err
			}
			return keyed(e.Deposit(ctx, signer, in.Owner, in.Amount))
		},
	},
	domain.OpWithdraw: {
		params: []string{"amount"},
		run: func(ctx context.Context, e *Engine, signer domain.Identity, args map[string]any) (*domain.Receipt, error) {
			var in struct {
				Amount uint64 `mapstructure:"amount"`
			}
			if err := decodeArgs(domain.OpWithdraw, args, &in); err != nil {
				return nil, err
			}
			return keyed(e.Withdraw(ctx, signer, in.Amount))
		},
	},
	domain.OpFundVault: {
		params: []string{"produce_id", "amount"},
		run: func(ctx context.Context, e *Engine, signer domain.Identity, args map[string]any) (*domain.Receipt, error) {
			var in struct {
				ProduceID uint64 `mapstructure:"produce_id"`
				Amount    uint64 `mapstructure:"amount"`
			}
			if err := decodeArgs(domain.OpFundVault, args, &in); err != nil {
				return nil, err
			}
			return keyed(e.FundVault(ctx, signer, in.ProduceID, in.Amount))
		},
	},
	domain.OpLogHarvest: {
		params: []string{"produce_id", "produce_type", "quantity", "harvest_date", "quality", "qr_code_uri", "farmer_price", "transporter_fee"},
		run: func(ctx context.Context, e *Engine, signer domain.Identity, args map[string]any) (*domain.Receipt, error) {
			var in HarvestInput
			if err := decodeArgs(domain.OpLogHarvest, args, &in); err != nil {
				return nil, err
			}
			return keyed(e.LogHarvest(ctx, signer, in))
		},
	},
	domain.OpRecordPickup: {
		params: []string{"produce_id", "temp", "humidity"},
		run: func(ctx context.Context, e *Engine, signer domain.Identity, args map[string]any) (*domain.Receipt, error) {
			var in struct {
				ProduceID uint64 `mapstructure:"produce_id"`
				Temp      int16  `mapstructure:"temp"`
				Humidity  uint8  `mapstructure:"humidity"`
			}
			if err := decodeArgs(domain.OpRecordPickup, args, &in); err != nil {
				return nil, err
			}
			return keyed(e.RecordPickup(ctx, signer, in.ProduceID, in.Temp, in.Humidity))
		},
	},
	domain.OpConfirmPickup: {
		params: []string{"produce_id"},
		run: func(ctx context.Context, e *Engine, signer domain.Identity, args map[string]any) (*domain.Receipt, error) {
			id, err := produceIDArg(domain.OpConfirmPickup, args)
			if err != nil {
				return nil, err
			}
			return keyed(e.ConfirmPickup(ctx, signer, id))
		},
	},
	domain.OpRecordDelivery: {
		params: []string{"produce_id"},
		run: func(ctx context.Context, e *Engine, signer domain.Identity, args map[string]any) (*domain.Receipt, error) {
			id, err := produceIDArg(domain.OpRecordDelivery, args)
			if err != nil {
				return nil, err
			}
			return keyed(e.RecordDelivery(ctx, signer, id))
		},
	},
	domain.OpConfirmDelivery: {
		params: []string{"produce_id"},
		run: func(ctx context.Context, e *Engine, signer domain.Identity, args map[string]any) (*domain.Receipt, error) {
			id, err := produceIDArg(domain.OpConfirmDelivery, args)
			if err != nil {
				return nil, err
			}
			res, err := e.ConfirmDelivery(ctx, signer, id)
			if err != nil {
				return nil, err
			}
			s := res.Settlement
			return &domain.Receipt{Key: res.Key, Settlement: &s}, nil
		},
	},
	domain.OpVerifyQuality: {
		params: []string{"produce_id", "score"},
		run: func(ctx context.Context, e *Engine, signer domain.Identity, args map[string]any) (*domain.Receipt, error) {
			var in struct {
				ProduceID uint64 `mapstructure:"produce_id"`
				Score     uint8  `mapstructure:"score"`
			}
			if err := decodeArgs(domain.OpVerifyQuality, args, &in); err != nil {
				return nil, err
			}
			return keyed(e.VerifyQuality(ctx, signer, in.ProduceID, in.Score))
		},
	},
	domain.OpRaiseDispute: {
		params: []string{"produce_id", "description"},
		run: func(ctx context.Context, e *Engine, signer domain.Identity, args map[string]any) (*domain.Receipt, error) {
			var in struct {
				ProduceID   uint64 `mapstructure:"produce_id"`
				Description string `mapstructure:"description"`
			}
			if err := decodeArgs(domain.OpRaiseDispute, args, &in); err != nil {
				return nil, err
			}
			return keyed(e.RaiseDispute(ctx, signer, in.ProduceID, in.Description))
		},
	},
	domain.OpResolveDispute: {
		params: []string{"produce_id", "resolution"},
		run: func(ctx context.Context, e *Engine, signer domain.Identity, args map[string]any) (*domain.Receipt, error) {
			var in struct {
				ProduceID  uint64 `mapstructure:"produce_id"`
				Resolution bool   `mapstructure:"resolution"`
			}
			if err := decodeArgs(domain.OpResolveDispute, args, &in); err != nil {
				return nil, err
			}
			return keyed(e.ResolveDispute(ctx, signer, in.ProduceID, in.Resolution))
		},
	},
	domain.OpCreateProposal: {
		params: []string{"proposal_id", "description"},
		run: func(ctx context.Context, e *Engine, signer domain.Identity, args map[string]any) (*domain.Receipt, error) {
			var in struct {
				ProposalID  uint64 `mapstructure:"proposal_id"`
				Description string `mapstructure:"description"`
			}
			if err := decodeArgs(domain.OpCreateProposal, args, &in); err != nil {
				return nil, err
			}
			return keyed(e.CreateProposal(ctx, signer, in.ProposalID, in.Description))
		},
	},
	domain.OpVoteProposal: {
		params: []string{"proposal_id", "vote_for"},
		run: func(ctx context.Context, e *Engine, signer domain.Identity, args map[string]any) (*domain.Receipt, error) {
			var in struct {
				ProposalID uint64 `mapstructure:"proposal_id"`
				VoteFor    bool   `mapstructure:"vote_for"`
			}
			if err := decodeArgs(domain.OpVoteProposal, args, &in); err != nil {
				return nil, err
			}
			return keyed(e.VoteProposal(ctx, signer, in.ProposalID, in.VoteFor))
		},
	},
	domain.OpExecuteProposal: {
		params: []string{"proposal_id"},
		run: func(ctx context.Context, e *Engine, signer domain.Identity, args map[string]any) (*domain.Receipt, error) {
			var in struct {
				ProposalID uint64 `mapstructure:"proposal_id"`
			}
			if err := decodeArgs(domain.OpExecuteProposal, args, &in); err != nil {
				return nil, err
			}
			return nil, e.ExecuteProposal(ctx, signer, in.ProposalID)
		},
	},
	domain.OpStakeTokens: {
		params: []string{"amount"},
		run: func(ctx context.Context, e *Engine, signer domain.Identity, args map[string]any) (*domain.Receipt, error) {
			var in struct {
				Amount uint64 `mapstructure:"amount"`
			}
			if err := decodeArgs(domain.OpStakeTokens, args, &in); err != nil {
				return nil, err
			}
			return keyed(e.StakeTokens(ctx, signer, in.Amount))
		},
	},
	domain.OpUnstakeTokens: {
		params: []string{"amount"},
		run: func(ctx context.Context, e *Engine, signer domain.Identity, args map[string]any) (*domain.Receipt, error) {
			var in struct {
				Amount uint64 `mapstructure:"amount"`
			}
			if err := decodeArgs(domain.OpUnstakeTokens, args, &in); err != nil {
				return nil, err
			}
			return keyed(e.UnstakeTokens(ctx, signer, in.Amount))
		},
	},
}

// Ops lists every instruction the engine understands, sorted.
func Ops() []domain.Op {
	ops := make([]domain.Op, 0, len(handlers))
	for op := range handlers {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Params returns the positional parameter names of op.
func Params(op domain.Op) ([]string, bool) {
	h, ok := handlers[op]
	if !ok {
		return nil, false
	}
	return append([]string(nil), h.params...), true
}

// Execute dispatches an instruction by name. Args are positional and follow
// Params(op); a single map argument is accepted as named arguments instead.
// Strings are converted to the parameter types, so CLI input works as is.
func (e *Engine) Execute(ctx context.Context, ins domain.Instruction) (*domain.Receipt, error) {
	h, ok := handlers[ins.Op]
	if !ok {
		err := domain.ErrUnknownInstruction.With("Execute", "%q", ins.Op)
		e.reject(ctx, ins.Op, ins.Signer, err)
		return nil, err
	}

	args, err := bindArgs(ins.Op, h.params, ins.Args)
	if err != nil {
		e.reject(ctx, ins.Op, ins.Signer, err)
		return nil, err
	}

	var committed domain.Event
	ctx = context.WithValue(ctx, committedKey{}, &committed)

	receipt, err := h.run(ctx, e, ins.Signer, args)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		receipt = &domain.Receipt{}
	}
	receipt.Op = ins.Op
	receipt.EventID = committed.ID
	return receipt, nil
}

func keyed(key string, err error) (*domain.Receipt, error) {
	if err != nil {
		return nil, err
	}
	return &domain.Receipt{Key: key}, nil
}

func produceIDArg(op domain.Op, args map[string]any) (uint64, error) {
	var in struct {
		ProduceID uint64 `mapstructure:"produce_id"`
	}
	err := decodeArgs(op, args, &in)
	return in.ProduceID, err
}

// bindArgs names positional arguments after params.
func bindArgs(op domain.Op, params []string, args []any) (map[string]any, error) {
	if len(args) == 1 {
		if named, ok := asNamed(args[0]); ok && len(params) > 0 {
			for _, p := range params {
				if _, ok := named[p]; !ok {
					return nil, domain.ErrInvalidArguments.With(string(op), "missing argument %q", p)
				}
			}
			if len(named) != len(params) {
				return nil, domain.ErrInvalidArguments.With(string(op), "expected arguments %v", params)
			}
			return named, nil
		}
	}

	if len(args) != len(params) {
		return nil, domain.ErrInvalidArguments.With(string(op), "expected %d arguments %v, got %d", len(params), params, len(args))
	}
	named := make(map[string]any, len(params))
	for i, p := range params {
		named[p] = args[i]
	}
	return named, nil
}

func asNamed(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

// decodeArgs converts named arguments into out with weak typing, so "42",
// 42 and 42.0 all decode into a uint64 parameter.
func decodeArgs(op domain.Op, args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			rangeCheckHook,
			mapstructure.TextUnmarshallerHookFunc(),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return domain.ErrInvalidArguments.Wrap(string(op), err)
	}
	return nil
}

// Exclusive float bounds. float64(math.MaxUint64) rounds up to 2^64, so
// comparing against the integer constant would let 2^64 through.
const (
	maxUint64Float = 0x1p64
	maxInt64Float  = 0x1p63
)

// rangeCheckHook rejects numbers that do not fit the target integer type.
// Weak decoding would otherwise wrap -1 into a huge unsigned value.
func rangeCheckHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	v := reflect.ValueOf(data)
	target := reflect.New(to).Elem()

	switch to.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch from.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if v.Int() < 0 || target.OverflowUint(uint64(v.Int())) {
				return nil, fmt.Errorf("%d out of range for %s", v.Int(), to)
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if target.OverflowUint(v.Uint()) {
				return nil, fmt.Errorf("%d out of range for %s", v.Uint(), to)
			}
		case reflect.Float32, reflect.Float64:
			f := v.Float()
			if f < 0 || f != math.Trunc(f) || f >= maxUint64Float || target.OverflowUint(uint64(f)) {
				return nil, fmt.Errorf("%v out of range for %s", f, to)
			}
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch from.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if target.OverflowInt(v.Int()) {
				return nil, fmt.Errorf("%d out of range for %s", v.Int(), to)
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if v.Uint() > math.MaxInt64 || target.OverflowInt(int64(v.Uint())) {
				return nil, fmt.Errorf("%d out of range for %s", v.Uint(), to)
			}
		case reflect.Float32, reflect.Float64:
			f := v.Float()
			if f != math.Trunc(f) || f < math.MinInt64 || f >= maxInt64Float || target.OverflowInt(int64(f)) {
				return nil, fmt.Errorf("%v out of range for %s", f, to)
			}
		}
	}
	return data, nil
}
