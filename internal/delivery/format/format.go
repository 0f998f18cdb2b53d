// Package format maps canonical events into destination-specific wire
// payload shapes. Formatters are pure: they never mutate the source event
// and are total over arbitrarily nested argument values.
package format

import (
	"fmt"
	"time"

	"github.com/vietddude/relay/internal/core/domain"
)

// Formatter builds the wire payload for one payload format.
type Formatter interface {
	// Payload builds the wire body from the canonical event.
	Payload(e *domain.Event) map[string]any

	// Kind returns the format this formatter produces.
	Kind() domain.PayloadFormat
}

var registry = map[domain.PayloadFormat]Formatter{
	domain.FormatFlat:   flatFormatter{},
	domain.FormatNested: nestedFormatter{},
	domain.FormatCamel:  camelFormatter{},
	domain.FormatRaw:    rawFormatter{},
}

func init() {
	// Registry keys are static data; verify each one is a declared format
	// constant rather than trusting the table.
	for key := range registry {
		valid := false
		for _, f := range domain.SupportedFormats() {
			if key == f {
				valid = true
				break
			}
		}
		if !valid {
			panic(fmt.Sprintf("format: registry key %q is not a supported format", key))
		}
	}
}

// For returns the formatter for a format, or an error naming the supported
// formats. The error surfaces as a configuration failure before any network
// attempt.
func For(f domain.PayloadFormat) (Formatter, error) {
	fm, ok := registry[f]
	if !ok {
		return nil, fmt.Errorf("unsupported payload format %q, supported formats: %s",
			f, domain.FormatList())
	}
	return fm, nil
}

type flatFormatter struct{}

func (flatFormatter) Kind() domain.PayloadFormat { return domain.FormatFlat }

// Payload produces a single-level object: event fields as snake_case keys and
// every argument flattened under an "arg_" prefix with dotted paths joined
// by underscores.
func (flatFormatter) Payload(e *domain.Event) map[string]any {
	out := map[string]any{
		"event_name":       e.EventName,
		"contract_address": e.ContractAddress,
		"block_number":     e.BlockNumber,
		"transaction_hash": e.TxHash,
		"log_index":        e.LogIndex,
		"timestamp":        e.Timestamp.UTC().Format(time.RFC3339),
	}
	flattenInto(out, "arg", e.Args)
	return out
}

func flattenInto(out map[string]any, prefix string, v any) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 0 {
			out[prefix] = map[string]any{}
			return
		}
		for k, inner := range val {
			flattenInto(out, prefix+"_"+k, inner)
		}
	case []any:
		for i, inner := range val {
			flattenInto(out, fmt.Sprintf("%s_%d", prefix, i), inner)
		}
	default:
		out[prefix] = val
	}
}

type nestedFormatter struct{}

func (nestedFormatter) Kind() domain.PayloadFormat { return domain.FormatNested }

// Payload produces a metadata + data envelope with snake_case metadata keys.
func (nestedFormatter) Payload(e *domain.Event) map[string]any {
	return map[string]any{
		"metadata": map[string]any{
			"event_name":       e.EventName,
			"contract_address": e.ContractAddress,
			"block_number":     e.BlockNumber,
			"transaction_hash": e.TxHash,
			"log_index":        e.LogIndex,
			"timestamp":        e.Timestamp.UTC().Format(time.RFC3339),
		},
		"data": deepCopy(e.Args),
	}
}

type camelFormatter struct{}

func (camelFormatter) Kind() domain.PayloadFormat { return domain.FormatCamel }

// Payload produces a camelCase eventData envelope.
func (camelFormatter) Payload(e *domain.Event) map[string]any {
	return map[string]any{
		"eventData": map[string]any{
			"eventName":       e.EventName,
			"contractAddress": e.ContractAddress,
			"blockNumber":     e.BlockNumber,
			"transactionHash": e.TxHash,
			"logIndex":        e.LogIndex,
			"timestamp":       e.Timestamp.UTC().Format(time.RFC3339),
			"args":            deepCopy(e.Args),
		},
	}
}

type rawFormatter struct{}

func (rawFormatter) Kind() domain.PayloadFormat { return domain.FormatRaw }

// Payload passes the canonical event through unchanged.
func (rawFormatter) Payload(e *domain.Event) map[string]any {
	return map[string]any{
		"contract_address": e.ContractAddress,
		"event_name":       e.EventName,
		"block_number":     e.BlockNumber,
		"tx_hash":          e.TxHash,
		"log_index":        e.LogIndex,
		"args":             deepCopy(e.Args),
		"timestamp":        e.Timestamp,
	}
}

// deepCopy clones nested maps and slices so formatter output never aliases
// the source event's arguments.
func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = deepCopy(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = deepCopy(inner)
		}
		return out
	default:
		return val
	}
}
