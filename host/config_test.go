package host

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxcast/actionhost/actions"
	"github.com/boxcast/actionhost/ioruntime"
)

func noopAction(ctx *ioruntime.Context) (interface{}, error) { return nil, nil }

func TestValidateRequiresAPIKey(t *testing.T) {
	cfg := Config{Actions: map[string]actions.Func{"a": noopAction}}
	cfg.applyDefaults()
	assert.Error(t, cfg.validate())
}

func TestValidateRequiresAtLeastOneAction(t *testing.T) {
	cfg := Config{APIKey: "key"}
	cfg.applyDefaults()
	assert.Error(t, cfg.validate())
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	cfg := Config{APIKey: "key", Actions: map[string]actions.Func{"a": noopAction}}
	cfg.applyDefaults()
	assert.NoError(t, cfg.validate())
}

func TestApplyDefaultsFillsEverything(t *testing.T) {
	cfg := Config{APIKey: "key", Actions: map[string]actions.Func{"a": noopAction}}
	cfg.applyDefaults()

	assert.Equal(t, DefaultEndpoint, cfg.Endpoint)
	assert.NotNil(t, cfg.Logger)
	assert.NotNil(t, cfg.Metrics)
	assert.NotNil(t, cfg.Registry)
	assert.Equal(t, 10*time.Second, cfg.DialTimeout)
	assert.Equal(t, 10*time.Second, cfg.RPCTimeout)
}

func TestApplyDefaultsRespectsCallerOverrides(t *testing.T) {
	cfg := Config{
		APIKey:      "key",
		Actions:     map[string]actions.Func{"a": noopAction},
		DialTimeout: 5 * time.Second,
	}
	cfg.applyDefaults()
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
}

func TestBuildRegistryRegistersEveryAction(t *testing.T) {
	cfg := Config{Actions: map[string]actions.Func{"one": noopAction, "two": noopAction}}
	reg := cfg.buildRegistry()

	_, ok := reg.Lookup("one")
	require.True(t, ok)
	_, ok = reg.Lookup("two")
	require.True(t, ok)
}
