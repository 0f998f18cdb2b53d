// Package matcher evaluates subscription filter expressions against
// on-chain events.
package matcher

import (
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/vietddude/relay/internal/core/domain"
)

// Matches reports whether an event satisfies a subscription's filter
// expression. A structurally invalid event never matches, regardless of
// filter content; an empty filter expression matches unconditionally.
// Malformed filters are logged and treated as non-matches.
func Matches(e *domain.Event, filters map[string]any) bool {
	if err := e.Validate(); err != nil {
		slog.Debug("Event failed validation, skipping match", "error", err)
		return false
	}
	if len(filters) == 0 {
		return true
	}

	for path, want := range filters {
		got, ok := lookup(e.Args, path)
		if !ok {
			return false
		}
		match, err := evaluate(got, want)
		if err != nil {
			slog.Warn("Filter evaluation failed, treating as non-match",
				"path", path, "error", err)
			return false
		}
		if !match {
			return false
		}
	}
	return true
}

// lookup resolves a possibly dotted path into nested event arguments.
func lookup(args map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = args
	for _, part := range parts {
		m, ok := asStringMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// evaluate applies one filter clause: a literal, an array of accepted
// literals, or an {operator, value} comparison.
func evaluate(got, want any) (bool, error) {
	if m, ok := asStringMap(want); ok {
		op, hasOp := m["operator"]
		val, hasVal := m["value"]
		if !hasOp || !hasVal {
			return false, fmt.Errorf("comparison filter requires operator and value, got %v", m)
		}
		opName, ok := op.(string)
		if !ok {
			return false, fmt.Errorf("operator must be a string, got %T", op)
		}
		return compare(opName, got, val)
	}

	if list, ok := asSlice(want); ok {
		for _, candidate := range list {
			if literalEqual(got, candidate) {
				return true, nil
			}
		}
		return false, nil
	}

	return literalEqual(got, want), nil
}

// compare applies an explicit operator with best-effort numeric coercion.
// Values are compared as arbitrary-precision decimals so wei-scale integers
// compare exactly; non-numeric operands fall back to string ordering.
func compare(op string, got, want any) (bool, error) {
	gn, gok := toBig(got)
	wn, wok := toBig(want)

	var cmp int
	if gok && wok {
		cmp = gn.Cmp(wn)
	} else {
		cmp = strings.Compare(fmt.Sprint(got), fmt.Sprint(want))
	}

	switch op {
	case "gt":
		return cmp > 0, nil
	case "lt":
		return cmp < 0, nil
	case "gte":
		return cmp >= 0, nil
	case "lte":
		return cmp <= 0, nil
	case "eq":
		return cmp == 0, nil
	default:
		return false, fmt.Errorf("unknown filter operator %q", op)
	}
}

// literalEqual compares numerically when both sides coerce, else by string
// rendering (addresses compare case-insensitively).
func literalEqual(got, want any) bool {
	gn, gok := toBig(got)
	wn, wok := toBig(want)
	if gok && wok {
		return gn.Cmp(wn) == 0
	}
	gs, ws := fmt.Sprint(got), fmt.Sprint(want)
	if strings.HasPrefix(gs, "0x") && strings.HasPrefix(ws, "0x") {
		return strings.EqualFold(gs, ws)
	}
	return gs == ws
}

// toBig coerces a filter or argument value to an arbitrary-precision float.
func toBig(v any) (*big.Float, bool) {
	switch val := v.(type) {
	case int:
		return new(big.Float).SetInt64(int64(val)), true
	case int64:
		return new(big.Float).SetInt64(val), true
	case uint64:
		return new(big.Float).SetUint64(val), true
	case float64:
		return big.NewFloat(val), true
	case float32:
		return big.NewFloat(float64(val)), true
	case string:
		f, ok := new(big.Float).SetString(strings.TrimSpace(val))
		if !ok {
			return nil, false
		}
		return f, true
	default:
		return nil, false
	}
}

// asStringMap normalizes the map shapes produced by JSON and yaml.v2
// decoding into map[string]any.
func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func asSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}
