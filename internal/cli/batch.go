package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/furrow-ag/furrow"
	"github.com/furrow-ag/furrow/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Batch is a file of instructions applied in order.
//
//	instructions:
//	  - op: register_participant
//	    signer: farmer-ana
//	    args: [Farmer, Ana, ana@example.org]
type Batch struct {
	// ContinueOnError keeps applying after a rejected instruction.
	ContinueOnError bool                 `yaml:"continue_on_error"`
	Instructions    []domain.Instruction `yaml:"instructions"`
}

// Outcome is the result of one batch entry.
type Outcome struct {
	Index   int             `json:"index" yaml:"index"`
	Op      domain.Op       `json:"op" yaml:"op"`
	Receipt *domain.Receipt `json:"receipt,omitempty" yaml:"receipt,omitempty"`
	Error   string          `json:"error,omitempty" yaml:"error,omitempty"`
	Code    string          `json:"code,omitempty" yaml:"code,omitempty"`
}

// LoadBatch reads a YAML (or JSON) batch file.
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch: %w", err)
	}

	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse batch %s: %w", path, err)
	}
	for i, ins := range b.Instructions {
		if ins.Op == "" || ins.Signer == "" {
			return nil, fmt.Errorf("batch entry %d: op and signer are required", i)
		}
	}
	return &b, nil
}

// Apply executes the batch. Each instruction is its own transaction, so a
// rejection never undoes earlier entries. It returns the first error unless
// ContinueOnError is set.
func Apply(ctx context.Context, l *furrow.Ledger, b *Batch) ([]Outcome, error) {
	out := make([]Outcome, 0, len(b.Instructions))
	var first error

	for i, ins := range b.Instructions {
		o := Outcome{Index: i, Op: ins.Op}
		receipt, err := l.Execute(ctx, ins)
		if err != nil {
			o.Error = err.Error()
			o.Code = domain.CodeOf(err)
			out = append(out, o)
			if first == nil {
				first = fmt.Errorf("batch entry %d (%s): %w", i, ins.Op, err)
			}
			if !b.ContinueOnError {
				return out, first
			}
			continue
		}
		o.Receipt = receipt
		out = append(out, o)
	}
	if b.ContinueOnError {
		return out, nil
	}
	return out, first
}
