package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/relay/internal/delivery/backoff"
	"github.com/vietddude/relay/internal/delivery/breaker"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	for i := range cfg.Subscriptions {
		if err := cfg.Subscriptions[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid subscription in config: %w", err)
		}
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Queue.MaxConcurrent == 0 {
		cfg.Queue.MaxConcurrent = 10
	}
	if cfg.Queue.Backoff.BaseDelay == 0 {
		cfg.Queue.Backoff.BaseDelay = backoff.DefaultConfig.BaseDelay
	}
	if cfg.Queue.Backoff.MaxDelay == 0 {
		cfg.Queue.Backoff.MaxDelay = backoff.DefaultConfig.MaxDelay
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = breaker.DefaultConfig.FailureThreshold
	}
	if cfg.Breaker.ResetTimeout == 0 {
		cfg.Breaker.ResetTimeout = breaker.DefaultConfig.ResetTimeout
	}
	if cfg.Breaker.MonitorWindow == 0 {
		cfg.Breaker.MonitorWindow = breaker.DefaultConfig.MonitorWindow
	}
	for i := range cfg.Subscriptions {
		for j := range cfg.Subscriptions[i].Webhooks {
			if cfg.Subscriptions[i].Webhooks[j].Timeout == 0 {
				cfg.Subscriptions[i].Webhooks[j].Timeout = 30 * time.Second
			}
		}
	}
}
