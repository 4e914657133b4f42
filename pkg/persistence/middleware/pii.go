package middleware

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/furrow-ag/furrow/pkg/ports"
)

// Mask replaces every redacted value.
const Mask = "***"

type piiMiddleware struct {
	passthrough
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks JSON fields whose name
// matches any of the patterns, on the read path only. Transactions started
// with Update still see the real values, so the ledger rules are unaffected,
// while View callers (queries, the CLI) get redacted records.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.LedgerStore) ports.LedgerStore {
		return &piiMiddleware{passthrough: passthrough{next: next}, patterns: patterns}
	}
}

func (m *piiMiddleware) Update(ctx context.Context, fn ports.TxFunc) error {
	return m.next.Update(ctx, fn)
}

func (m *piiMiddleware) View(ctx context.Context, fn func(context.Context, ports.ReadTx) error) error {
	return m.next.View(ctx, func(ctx context.Context, tx ports.ReadTx) error {
		return fn(ctx, &redactedTx{ReadTx: tx, patterns: m.patterns})
	})
}

type redactedTx struct {
	ports.ReadTx
	patterns []*regexp.Regexp
}

func (t *redactedTx) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := t.ReadTx.Get(ctx, key)
	if err != nil || len(t.patterns) == 0 {
		return raw, err
	}

	var doc map[string]any
	if json.Unmarshal(raw, &doc) != nil {
		// Not an object, nothing to mask.
		return raw, nil
	}
	if !maskMap(doc, t.patterns) {
		return raw, nil
	}
	return json.Marshal(doc)
}

// maskMap masks matching keys in place and reports whether anything changed.
func maskMap(m map[string]any, patterns []*regexp.Regexp) bool {
	changed := false
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked, changed = true, true
				break
			}
		}
		if masked {
			continue
		}
		switch sub := v.(type) {
		case map[string]any:
			changed = maskMap(sub, patterns) || changed
		case []any:
			for _, item := range sub {
				if obj, ok := item.(map[string]any); ok {
					changed = maskMap(obj, patterns) || changed
				}
			}
		}
	}
	return changed
}
