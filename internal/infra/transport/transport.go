// Package transport performs the outbound HTTP leg of a webhook delivery.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Result is the measured outcome of one POST.
type Result struct {
	Success      bool
	StatusCode   int
	ResponseTime time.Duration
	Body         string
}

// Transport posts a payload and measures the outcome. Implementations must
// treat network-level failures (timeout, DNS, connection refused) as errors;
// a non-2xx response is a Result with Success=false, not an error.
type Transport interface {
	Post(ctx context.Context, url string, payload any, headers map[string]string, timeout time.Duration) (*Result, error)
}

const maxBodyBytes = 64 * 1024

// HTTPTransport sends webhook requests over a shared connection pool.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a transport with pooled connections. Per-request
// timeouts come from the webhook config, not the client.
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Post sends one JSON POST bounded by timeout.
func (t *HTTPTransport) Post(
	ctx context.Context,
	url string,
	payload any,
	headers map[string]string,
	timeout time.Duration,
) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return &Result{ResponseTime: elapsed}, fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

	return &Result{
		Success:      resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode:   resp.StatusCode,
		ResponseTime: elapsed,
		Body:         string(respBody),
	}, nil
}
