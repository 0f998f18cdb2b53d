package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// PayloadFormat selects the wire shape a webhook receives.
type PayloadFormat string

const (
	FormatFlat   PayloadFormat = "flat"
	FormatNested PayloadFormat = "nested"
	FormatCamel  PayloadFormat = "camel"
	FormatRaw    PayloadFormat = "raw"
)

// SupportedFormats lists every payload format the relay can produce.
func SupportedFormats() []PayloadFormat {
	return []PayloadFormat{FormatFlat, FormatNested, FormatCamel, FormatRaw}
}

const (
	// MaxWebhookTimeout bounds per-delivery HTTP timeouts.
	MaxWebhookTimeout = 5 * time.Minute
	// MaxRetryAttempts bounds the per-webhook retry budget.
	MaxRetryAttempts = 10
)

// Subscription is a standing rule matching events from one contract and
// event signature to a filter expression and a set of webhook destinations.
type Subscription struct {
	ID              string          `json:"id"              yaml:"id"`
	ContractAddress string          `json:"contract_address" yaml:"contract_address"`
	EventSignature  string          `json:"event_signature"  yaml:"event_signature"`
	Filters         map[string]any  `json:"filters"          yaml:"filters"`
	Webhooks        []WebhookConfig `json:"webhooks"         yaml:"webhooks"`
}

// Validate checks the fields required for a subscription to be registered.
func (s *Subscription) Validate() error {
	if s == nil {
		return fmt.Errorf("subscription is nil")
	}
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("subscription id is required")
	}
	if !ValidAddress(s.ContractAddress) {
		return fmt.Errorf("subscription %s: invalid contract address %q", s.ID, s.ContractAddress)
	}
	if strings.TrimSpace(s.EventSignature) == "" {
		return fmt.Errorf("subscription %s: event signature is required", s.ID)
	}
	for i := range s.Webhooks {
		if err := s.Webhooks[i].Validate(); err != nil {
			return fmt.Errorf("subscription %s: webhook %d: %w", s.ID, i, err)
		}
	}
	return nil
}

// WebhookConfig describes one webhook destination.
type WebhookConfig struct {
	ID            string            `json:"id"             yaml:"id"`
	URL           string            `json:"url"            yaml:"url"`
	Format        PayloadFormat     `json:"format"         yaml:"format"`
	Headers       map[string]string `json:"headers"        yaml:"headers"`
	Timeout       time.Duration     `json:"timeout"        yaml:"timeout"`
	RetryAttempts int               `json:"retry_attempts" yaml:"retry_attempts"`
}

// Validate checks every field of a webhook config. It runs before each
// delivery attempt; an invalid config never reaches the transport.
func (w *WebhookConfig) Validate() error {
	if w == nil {
		return fmt.Errorf("webhook config is nil")
	}
	if strings.TrimSpace(w.ID) == "" {
		return fmt.Errorf("webhook id is required")
	}
	u, err := url.Parse(w.URL)
	if err != nil {
		return fmt.Errorf("webhook %s: invalid url: %w", w.ID, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("webhook %s: url must be http or https, got %q", w.ID, w.URL)
	}
	if !validFormat(w.Format) {
		return fmt.Errorf("webhook %s: unsupported format %q, supported formats: %s",
			w.ID, w.Format, FormatList())
	}
	if w.Timeout <= 0 || w.Timeout > MaxWebhookTimeout {
		return fmt.Errorf("webhook %s: timeout must be in (0, %s], got %s", w.ID, MaxWebhookTimeout, w.Timeout)
	}
	if w.RetryAttempts < 0 || w.RetryAttempts > MaxRetryAttempts {
		return fmt.Errorf("webhook %s: retry attempts must be in [0, %d], got %d",
			w.ID, MaxRetryAttempts, w.RetryAttempts)
	}
	return nil
}

func validFormat(f PayloadFormat) bool {
	for _, s := range SupportedFormats() {
		if f == s {
			return true
		}
	}
	return false
}

// FormatList renders the supported formats for error messages.
func FormatList() string {
	formats := SupportedFormats()
	parts := make([]string, len(formats))
	for i, f := range formats {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}
