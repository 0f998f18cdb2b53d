package sender

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/relay/internal/core/domain"
	"github.com/vietddude/relay/internal/delivery/breaker"
	"github.com/vietddude/relay/internal/delivery/tracker"
	"github.com/vietddude/relay/internal/infra/storage/memory"
	"github.com/vietddude/relay/internal/infra/transport"
)

// fakeTransport records calls and replays scripted outcomes.
type fakeTransport struct {
	mu      sync.Mutex
	calls   int
	headers map[string]string
	url     string
	result  *transport.Result
	err     error
}

func (f *fakeTransport) Post(ctx context.Context, url string, payload any, headers map[string]string, timeout time.Duration) (*transport.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.url = url
	f.headers = headers
	if f.result == nil && f.err == nil {
		return &transport.Result{Success: true, StatusCode: 200, ResponseTime: time.Millisecond}, nil
	}
	return f.result, f.err
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func validConfig() domain.WebhookConfig {
	return domain.WebhookConfig{
		ID:            "w1",
		URL:           "https://example.com/hook",
		Format:        domain.FormatFlat,
		Timeout:       5 * time.Second,
		RetryAttempts: 2,
	}
}

func validDelivery() *domain.Delivery {
	return &domain.Delivery{
		ID:             "d1",
		SubscriptionID: "s1",
		WebhookID:      "w1",
		MaxAttempts:    2,
		Status:         domain.DeliveryProcessing,
		Event: &domain.Event{
			ContractAddress: "0x" + strings.Repeat("ab", 20),
			EventName:       "Transfer",
			TxHash:          "0x" + strings.Repeat("cd", 32),
			Args:            map[string]any{"value": "1"},
			Timestamp:       time.Now(),
		},
	}
}

func newTestSender(ft *fakeTransport) (*Sender, *memory.DeliveryRepo) {
	repo := memory.NewDeliveryRepo()
	reg := breaker.NewRegistry(breaker.Config{FailureThreshold: 3, ResetTimeout: time.Minute, MonitorWindow: time.Hour})
	return New(ft, reg, tracker.New(repo)), repo
}

func TestSendSuccess(t *testing.T) {
	ft := &fakeTransport{}
	s, repo := newTestSender(ft)

	cfg := validConfig()
	res := s.Send(context.Background(), validDelivery(), &cfg)

	if !res.Success {
		t.Fatalf("Send failed: %s", res.Error)
	}
	if ft.callCount() != 1 {
		t.Errorf("transport calls = %d, want 1", ft.callCount())
	}
	recs, _ := repo.ListByWebhook(context.Background(), "w1", 10)
	if len(recs) != 1 {
		t.Errorf("tracked records = %d, want exactly 1", len(recs))
	}
}

func TestInvalidFormatNeverTouchesTransport(t *testing.T) {
	ft := &fakeTransport{}
	s, _ := newTestSender(ft)

	cfg := validConfig()
	cfg.Format = "carrier_pigeon"
	res := s.Send(context.Background(), validDelivery(), &cfg)

	if res.Success {
		t.Fatal("Send succeeded with invalid format")
	}
	if ft.callCount() != 0 {
		t.Errorf("transport calls = %d, want 0", ft.callCount())
	}
	for _, f := range domain.SupportedFormats() {
		if !strings.Contains(res.Error, string(f)) {
			t.Errorf("error %q does not mention supported format %q", res.Error, f)
		}
	}
}

func TestInvalidConfigFieldsFailFast(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.WebhookConfig)
	}{
		{"bad scheme", func(c *domain.WebhookConfig) { c.URL = "ftp://example.com" }},
		{"no host", func(c *domain.WebhookConfig) { c.URL = "https://" }},
		{"zero timeout", func(c *domain.WebhookConfig) { c.Timeout = 0 }},
		{"excessive timeout", func(c *domain.WebhookConfig) { c.Timeout = 6 * time.Minute }},
		{"negative retries", func(c *domain.WebhookConfig) { c.RetryAttempts = -1 }},
		{"excessive retries", func(c *domain.WebhookConfig) { c.RetryAttempts = 11 }},
		{"empty id", func(c *domain.WebhookConfig) { c.ID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{}
			s, _ := newTestSender(ft)

			cfg := validConfig()
			tt.mutate(&cfg)
			res := s.Send(context.Background(), validDelivery(), &cfg)

			if res.Success {
				t.Error("Send succeeded with invalid config")
			}
			if ft.callCount() != 0 {
				t.Errorf("transport calls = %d, want 0", ft.callCount())
			}
		})
	}
}

func TestOpenBreakerDeniesWithoutNetworkCall(t *testing.T) {
	ft := &fakeTransport{}
	s, repo := newTestSender(ft)

	s.Breakers().Get("w1").ForceOpen()

	cfg := validConfig()
	res := s.Send(context.Background(), validDelivery(), &cfg)

	if res.Success {
		t.Fatal("Send succeeded while breaker open")
	}
	if ft.callCount() != 0 {
		t.Errorf("transport calls = %d, want 0 while open", ft.callCount())
	}
	if res.CircuitState != string(breaker.StateOpen) {
		t.Errorf("CircuitState = %q, want open", res.CircuitState)
	}
	if res.NextAttemptAt.IsZero() {
		t.Error("NextAttemptAt not carried on denied result")
	}

	// Denied attempts are still tracked.
	recs, _ := repo.ListByWebhook(context.Background(), "w1", 10)
	if len(recs) != 1 {
		t.Errorf("tracked records = %d, want 1 for denied attempt", len(recs))
	}
}

func TestHeaderMerge(t *testing.T) {
	ft := &fakeTransport{}
	s, _ := newTestSender(ft)

	cfg := validConfig()
	cfg.Headers = map[string]string{
		"X-Api-Key":    "secret",
		"Content-Type": "application/vnd.custom+json",
	}
	s.Send(context.Background(), validDelivery(), &cfg)

	if ft.headers["X-Api-Key"] != "secret" {
		t.Errorf("custom header missing: %v", ft.headers)
	}
	// Per-webhook headers win over defaults.
	if ft.headers["Content-Type"] != "application/vnd.custom+json" {
		t.Errorf("Content-Type = %q, webhook override should win", ft.headers["Content-Type"])
	}
}

func TestDefaultContentType(t *testing.T) {
	ft := &fakeTransport{}
	s, _ := newTestSender(ft)

	cfg := validConfig()
	s.Send(context.Background(), validDelivery(), &cfg)

	if ft.headers["Content-Type"] != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ft.headers["Content-Type"])
	}
}

func TestTransportErrorTrackedOnce(t *testing.T) {
	ft := &fakeTransport{err: errors.New("connection refused"), result: &transport.Result{ResponseTime: time.Millisecond}}
	s, repo := newTestSender(ft)

	cfg := validConfig()
	res := s.Send(context.Background(), validDelivery(), &cfg)

	if res.Success {
		t.Fatal("Send succeeded despite transport error")
	}
	if !strings.Contains(res.Error, "connection refused") {
		t.Errorf("error = %q, want transport error surfaced", res.Error)
	}
	recs, _ := repo.ListByWebhook(context.Background(), "w1", 10)
	if len(recs) != 1 {
		t.Errorf("tracked records = %d, want exactly 1", len(recs))
	}
}

func TestNon2xxRecordsBreakerFailure(t *testing.T) {
	ft := &fakeTransport{result: &transport.Result{Success: false, StatusCode: 500, ResponseTime: time.Millisecond}}
	s, _ := newTestSender(ft)

	cfg := validConfig()
	for i := 0; i < 3; i++ {
		s.Send(context.Background(), validDelivery(), &cfg)
	}

	if got := s.Breakers().Get("w1").State(); got != breaker.StateOpen {
		t.Errorf("breaker state after 3 failures = %s, want open", got)
	}
}

func TestConfigLookupByWebhookID(t *testing.T) {
	ft := &fakeTransport{}
	s, _ := newTestSender(ft)

	res := s.Send(context.Background(), validDelivery(), nil)
	if res.Success {
		t.Fatal("Send succeeded without registered config")
	}
	if ft.callCount() != 0 {
		t.Error("transport called without config")
	}

	s.RegisterConfig(validConfig())
	res = s.Send(context.Background(), validDelivery(), nil)
	if !res.Success {
		t.Fatalf("Send with registered config failed: %s", res.Error)
	}
	if ft.url != "https://example.com/hook" {
		t.Errorf("posted to %q", ft.url)
	}
}

func TestPayloadBuiltFromCanonicalEvent(t *testing.T) {
	ft := &fakeTransport{}
	s, _ := newTestSender(ft)

	d := validDelivery()
	// Bookkeeping payload must be ignored and rebuilt.
	d.Payload = map[string]any{"stale": true}

	cfg := validConfig()
	s.Send(context.Background(), d, &cfg)

	if _, stale := d.Payload["stale"]; stale {
		t.Error("payload not rebuilt from canonical event")
	}
	if d.Payload["event_name"] != "Transfer" {
		t.Errorf("rebuilt payload = %v", d.Payload)
	}
}
