package matcher

import (
	"strings"
	"testing"
	"time"

	"github.com/vietddude/relay/internal/core/domain"
)

func validEvent(args map[string]any) *domain.Event {
	return &domain.Event{
		ContractAddress: "0x" + strings.Repeat("ab", 20),
		EventName:       "Transfer",
		BlockNumber:     100,
		TxHash:          "0x" + strings.Repeat("cd", 32),
		LogIndex:        0,
		Args:            args,
		Timestamp:       time.Now(),
	}
}

func TestInvalidEventNeverMatches(t *testing.T) {
	tests := []struct {
		name  string
		event *domain.Event
	}{
		{"nil event", nil},
		{"bad address", &domain.Event{
			ContractAddress: "0x123",
			EventName:       "Transfer",
			TxHash:          "0x" + strings.Repeat("cd", 32),
		}},
		{"bad tx hash", &domain.Event{
			ContractAddress: "0x" + strings.Repeat("ab", 20),
			EventName:       "Transfer",
			TxHash:          "nothash",
		}},
		{"missing event name", &domain.Event{
			ContractAddress: "0x" + strings.Repeat("ab", 20),
			TxHash:          "0x" + strings.Repeat("cd", 32),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Empty filters would match any valid event, so a false here
			// proves validation gates matching.
			if Matches(tt.event, nil) {
				t.Error("invalid event matched empty filter")
			}
			if Matches(tt.event, map[string]any{"value": "1"}) {
				t.Error("invalid event matched value filter")
			}
		})
	}
}

func TestEmptyFilterMatches(t *testing.T) {
	e := validEvent(map[string]any{"value": "42"})
	if !Matches(e, nil) {
		t.Error("nil filter did not match valid event")
	}
	if !Matches(e, map[string]any{}) {
		t.Error("empty filter did not match valid event")
	}
}

func TestLiteralFilters(t *testing.T) {
	e := validEvent(map[string]any{
		"from":   "0xAbCd" + strings.Repeat("00", 18),
		"amount": float64(5),
		"token":  "USDC",
	})

	tests := []struct {
		name    string
		filters map[string]any
		want    bool
	}{
		{"string literal match", map[string]any{"token": "USDC"}, true},
		{"string literal mismatch", map[string]any{"token": "DAI"}, false},
		{"numeric literal cross-type", map[string]any{"amount": 5}, true},
		{"address case-insensitive", map[string]any{"from": "0xabcd" + strings.Repeat("00", 18)}, true},
		{"missing argument", map[string]any{"absent": "x"}, false},
		{"array membership hit", map[string]any{"token": []any{"DAI", "USDC"}}, true},
		{"array membership miss", map[string]any{"token": []any{"DAI", "WETH"}}, false},
		{"empty array matches nothing", map[string]any{"token": []any{}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(e, tt.filters); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOperatorFilters(t *testing.T) {
	e := validEvent(map[string]any{"value": "1000000000000000000"})

	tests := []struct {
		name string
		op   string
		val  any
		want bool
	}{
		// One ether in wei: boundary must not satisfy strict gt.
		{"gt boundary", "gt", "1000000000000000000", false},
		{"gt below", "gt", "999999999999999999", true},
		{"lt boundary", "lt", "1000000000000000000", false},
		{"lt above", "lt", "1000000000000000001", true},
		{"gte boundary", "gte", "1000000000000000000", true},
		{"lte boundary", "lte", "1000000000000000000", true},
		{"eq exact", "eq", "1000000000000000000", true},
		{"eq mismatch", "eq", "1000000000000000001", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filters := map[string]any{
				"value": map[string]any{"operator": tt.op, "value": tt.val},
			}
			if got := Matches(e, filters); got != tt.want {
				t.Errorf("Matches(%s %v) = %v, want %v", tt.op, tt.val, got, tt.want)
			}
		})
	}
}

func TestWeiPrecisionExceedsFloat64(t *testing.T) {
	// These values collide when squeezed through float64.
	e := validEvent(map[string]any{"value": "1000000000000000001"})
	filters := map[string]any{
		"value": map[string]any{"operator": "gt", "value": "1000000000000000000"},
	}
	if !Matches(e, filters) {
		t.Error("1000000000000000001 gt 1000000000000000000 should match")
	}
}

func TestDottedPathLookup(t *testing.T) {
	e := validEvent(map[string]any{
		"order": map[string]any{
			"maker": map[string]any{"fee": "250"},
		},
	})

	if !Matches(e, map[string]any{"order.maker.fee": "250"}) {
		t.Error("dotted path literal did not match")
	}
	if Matches(e, map[string]any{"order.maker.missing": "250"}) {
		t.Error("missing nested key matched")
	}
	if Matches(e, map[string]any{"order.maker.fee.deeper": "250"}) {
		t.Error("path through scalar matched")
	}

	filters := map[string]any{
		"order.maker.fee": map[string]any{"operator": "lte", "value": 250},
	}
	if !Matches(e, filters) {
		t.Error("dotted path operator filter did not match")
	}
}

func TestMalformedFiltersAreNonMatches(t *testing.T) {
	e := validEvent(map[string]any{"value": "5"})

	tests := []struct {
		name    string
		filters map[string]any
	}{
		{"unknown operator", map[string]any{"value": map[string]any{"operator": "between", "value": 1}}},
		{"missing value key", map[string]any{"value": map[string]any{"operator": "gt"}}},
		{"non-string operator", map[string]any{"value": map[string]any{"operator": 7, "value": 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Matches(e, tt.filters) {
				t.Error("malformed filter matched")
			}
		})
	}
}

func TestYAMLShapedFilters(t *testing.T) {
	// yaml.v2 decodes nested maps as map[any]any.
	e := validEvent(map[string]any{"value": "2000000000000000000"})
	filters := map[string]any{
		"value": map[any]any{"operator": "gt", "value": "1000000000000000000"},
	}
	if !Matches(e, filters) {
		t.Error("yaml-shaped comparison filter did not match")
	}
}
