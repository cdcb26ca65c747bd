package serde

import (
	"fmt"
	"strings"

	"dfserde/internal/engine"
)

const flagSep = "|"

// flagTokens is the canonical output order.
var flagTokens = []struct {
	flag  engine.Flags
	token string
}{
	{engine.SortedAsc, "SORTED_ASC"},
	{engine.SortedDesc, "SORTED_DSC"},
	{engine.FastExplodeList, "FAST_EXPLODE_LIST"},
}

// EncodeFlags joins the set flags in canonical order. No flags encode to "".
func EncodeFlags(f engine.Flags) string {
	var parts []string
	for _, t := range flagTokens {
		if f.Has(t.flag) {
			parts = append(parts, t.token)
		}
	}
	return strings.Join(parts, flagSep)
}

// DecodeFlags parses a bit_settings string. Whitespace around tokens and
// empty tokens are ignored, so "" and "SORTED_ASC | FAST_EXPLODE_LIST" are
// both accepted.
func DecodeFlags(s string) (engine.Flags, error) {
	var f engine.Flags
	for _, tok := range strings.Split(s, flagSep) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		found := false
		for _, t := range flagTokens {
			if t.token == tok {
				f |= t.flag
				found = true
				break
			}
		}
		if !found {
			return 0, &Error{Kind: ErrFlagDecode, Msg: fmt.Sprintf("unknown flag %q", tok)}
		}
	}
	if f.Has(engine.SortedAsc | engine.SortedDesc) {
		return 0, &Error{Kind: ErrFlagDecode, Msg: fmt.Sprintf("%q sets both sort orders", s)}
	}
	return f, nil
}
