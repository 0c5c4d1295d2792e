// Package config loads the service configuration from CHAINHEAD_* environment
// variables and validates it before anything is wired up.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/gabapcia/chainhead/internal/pkg/validator"
)

// Config holds every tunable of the chain-head service.
type Config struct {
	// RPCEndpoint is the HTTP JSON-RPC endpoint of the node.
	RPCEndpoint string `envconfig:"RPC_ENDPOINT" validate:"required,url"`

	// WSEndpoint is the WebSocket endpoint used for push subscriptions.
	// When empty the chain-head stream starts directly in polling mode.
	WSEndpoint string `envconfig:"WS_ENDPOINT" validate:"omitempty,url"`

	// RPCTimeout bounds a single HTTP request to the node.
	RPCTimeout time.Duration `envconfig:"RPC_TIMEOUT" default:"5s"`

	// CacheTimeout is how long the block provider serves cached blocks.
	CacheTimeout time.Duration `envconfig:"CACHE_TIMEOUT" default:"1s"`

	// Confirmations switches the finality strategy: 0 uses the node's own
	// finalized selector, any other value treats the block that many
	// confirmations behind latest as final.
	Confirmations uint64 `envconfig:"CONFIRMATIONS"`

	// ResubscribeDelay is the wait between failed subscribe attempts.
	ResubscribeDelay time.Duration `envconfig:"RESUBSCRIBE_DELAY" default:"2s"`

	// PollingInterval is the target cadence of the chain-head polling fallback.
	PollingInterval time.Duration `envconfig:"POLLING_INTERVAL" default:"2s"`

	// MaxErrors is the consecutive-error budget of the chain-head stream.
	MaxErrors int `envconfig:"MAX_ERRORS" default:"10" validate:"gt=0"`

	// LogLevel is the minimum level of the global logger.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error panic fatal"`

	// TelemetryEnabled turns on the OTLP exporters.
	TelemetryEnabled bool `envconfig:"TELEMETRY_ENABLED"`

	// ServiceName identifies this process in the observability backend.
	ServiceName string `envconfig:"SERVICE_NAME" default:"chainhead"`
}

// Load reads and validates the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("chainhead", &cfg); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	if err := validator.Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
