package config

import (
	"time"

	"github.com/vietddude/relay/internal/core/domain"
	"github.com/vietddude/relay/internal/delivery/breaker"
	"github.com/vietddude/relay/internal/delivery/queue"
	redisclient "github.com/vietddude/relay/internal/infra/redis"
	"github.com/vietddude/relay/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server        ServerConfig          `yaml:"server"`
	Logging       LoggingConfig         `yaml:"logging"`
	Queue         queue.Config          `yaml:"queue"`
	Breaker       breaker.Config        `yaml:"breaker"`
	Retention     time.Duration         `yaml:"retention"`
	Database      postgres.Config       `yaml:"database"`
	Redis         redisclient.Config    `yaml:"redis"`
	Subscriptions []domain.Subscription `yaml:"subscriptions"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
