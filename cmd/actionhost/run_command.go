package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/mitchellh/cli"
	"github.com/posener/complete"

	"github.com/boxcast/actionhost/actions"
	"github.com/boxcast/actionhost/host"
	"github.com/boxcast/actionhost/telemetry"
)

// RunCommand implements `actionhost run`: loads configuration from flags and
// the ACTIONHOST_* environment variables, starts a Host Controller, and
// blocks until SIGINT/SIGTERM.
type RunCommand struct {
	UI       cli.Ui
	Registry *actions.Registry
}

func (c *RunCommand) Help() string {
	return "Usage: actionhost run [-endpoint URL] [-log-level prod|debug]\n\n" +
		"  Starts the Host Controller and blocks until interrupted. The API key\n" +
		"  is read from ACTIONHOST_API_KEY; -endpoint overrides ACTIONHOST_ENDPOINT."
}

func (c *RunCommand) Synopsis() string { return "Connect to the coordinator and serve registered actions" }

func (c *RunCommand) AutocompleteFlags() complete.Flags {
	return complete.Flags{
		"-endpoint":  complete.PredictAnything,
		"-log-level": complete.PredictSet("prod", "debug"),
	}
}

func (c *RunCommand) AutocompleteArgs() complete.Predictor { return complete.PredictNothing }

func (c *RunCommand) Run(args []string) int {
	var endpointFlag, logLevelFlag string

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.StringVar(&endpointFlag, "endpoint", "", "coordinator endpoint (overrides ACTIONHOST_ENDPOINT)")
	fs.StringVar(&logLevelFlag, "log-level", "", "prod or debug (overrides ACTIONHOST_LOG_LEVEL)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	apiKey := os.Getenv("ACTIONHOST_API_KEY")
	if apiKey == "" {
		c.UI.Error("ACTIONHOST_API_KEY is required")
		return 1
	}

	endpointStr := firstNonEmpty(endpointFlag, os.Getenv("ACTIONHOST_ENDPOINT"))
	logLevelStr := firstNonEmpty(logLevelFlag, os.Getenv("ACTIONHOST_LOG_LEVEL"))

	cfg := host.Config{
		APIKey:  apiKey,
		Actions: c.Registry.ActionMap(),
	}
	if endpointStr != "" {
		u, err := url.Parse(endpointStr)
		if err != nil {
			c.UI.Error(fmt.Sprintf("invalid -endpoint: %v", err))
			return 1
		}
		cfg.Endpoint = u
	}
	if logLevelStr != "" {
		cfg.LogLevel = telemetry.Level(logLevelStr)
	}

	controller, err := host.New(cfg)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		c.UI.Info("shutting down")
		cancel()
	}()

	if err := controller.Run(ctx); err != nil && ctx.Err() == nil {
		c.UI.Error(err.Error())
		return 1
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
