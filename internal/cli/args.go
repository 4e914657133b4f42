package cli

import (
	"fmt"
	"strings"

	"github.com/furrow-ag/furrow/pkg/domain"
)

// ParseInstruction turns command-line words into an instruction.
// Arguments are positional unless every one of them is name=value.
func ParseInstruction(op string, signer domain.Identity, words []string) (domain.Instruction, error) {
	ins := domain.Instruction{Op: domain.Op(op), Signer: signer}
	if len(words) == 0 {
		return ins, nil
	}

	clean := make([]string, len(words))
	for i, w := range words {
		s, err := SanitizeArg(w)
		if err != nil {
			return ins, fmt.Errorf("argument %d: %w", i+1, err)
		}
		clean[i] = s
	}

	named := make(map[string]any, len(clean))
	for _, w := range clean {
		name, value, ok := strings.Cut(w, "=")
		if !ok || name == "" {
			named = nil
			break
		}
		named[name] = value
	}
	if named != nil {
		ins.Args = []any{named}
		return ins, nil
	}

	ins.Args = make([]any, len(clean))
	for i, w := range clean {
		ins.Args[i] = w
	}
	return ins, nil
}
