package cli

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxArgSize bounds a single command-line argument. Ledger text fields are
// far shorter, so anything larger is a mistake.
const MaxArgSize = 4096

var (
	ErrArgTooLarge = errors.New("argument exceeds maximum allowed size")
	ErrInvalidUTF8 = errors.New("argument contains invalid UTF-8 sequences")
)

// SanitizeArg rejects oversized or invalid UTF-8 input and strips control
// characters, so names and descriptions cannot carry terminal escapes into
// the ledger or the logs.
func SanitizeArg(arg string) (string, error) {
	if len(arg) > MaxArgSize {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrArgTooLarge, len(arg), MaxArgSize)
	}
	if !utf8.ValidString(arg) {
		return "", ErrInvalidUTF8
	}

	// Fast path: nothing to strip.
	if strings.IndexFunc(arg, unicode.IsControl) < 0 {
		return arg, nil
	}

	var b strings.Builder
	b.Grow(len(arg))
	for _, r := range arg {
		if !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}
