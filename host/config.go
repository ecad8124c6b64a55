// Package host implements the Host Controller: the long-lived process that
// dials the coordinator, performs the INITIALIZE_HOST handshake, dispatches
// START_TRANSACTION to a fresh IO Client per transaction, routes IO_RESPONSE
// by transaction id, and supervises reconnects. It follows the familiar
// shape of a supervised connection wrapping one dispatch table and one
// reconnect loop, here serving a single outbound SDK connection rather
// than a gossip-cluster member.
package host

import (
	"fmt"
	"log"
	"net/url"
	"time"

	playval "github.com/go-playground/validator/v10"

	"github.com/boxcast/actionhost/actions"
	"github.com/boxcast/actionhost/registry"
	"github.com/boxcast/actionhost/telemetry"
)

// DefaultEndpoint is the production coordinator, used when Config.Endpoint
// is nil.
var DefaultEndpoint = &url.URL{Scheme: "wss", Host: "api.actionhost.dev", Path: "/ws"}

// Config is the host's configuration surface: {apiKey, actions, endpoint,
// logLevel} plus the ambient additions (metrics sink, logger/level
// override, dial/RPC timeouts).
type Config struct {
	APIKey  string                 `validate:"required"`
	Actions map[string]actions.Func `validate:"required,min=1"`

	Endpoint *url.URL
	LogLevel telemetry.Level

	Logger   *log.Logger
	Metrics  *telemetry.Metrics
	Registry registry.Registry

	DialTimeout time.Duration
	RPCTimeout  time.Duration
}

var validate = playval.New()

func (c *Config) applyDefaults() {
	if c.Endpoint == nil {
		c.Endpoint = DefaultEndpoint
	}
	if c.LogLevel == "" {
		c.LogLevel = telemetry.LevelProd
	}
	if c.Logger == nil {
		c.Logger = telemetry.NewLogger(telemetry.LoggerConfig{Level: c.LogLevel, Prefix: "actionhost: "})
	}
	if c.Metrics == nil {
		c.Metrics = telemetry.NewMetrics("actionhost")
	}
	if c.Registry == nil {
		c.Registry = registry.Default()
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.RPCTimeout <= 0 {
		c.RPCTimeout = 10 * time.Second
	}
}

func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("host: invalid config: %w", err)
	}
	if c.Endpoint != nil {
		if err := validate.Var(c.Endpoint.String(), "required,url"); err != nil {
			return fmt.Errorf("host: invalid endpoint: %w", err)
		}
	}
	return nil
}

func (c *Config) buildRegistry() *actions.Registry {
	reg := actions.New()
	for name, fn := range c.Actions {
		reg.Register(name, fn)
	}
	return reg
}
