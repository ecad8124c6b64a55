// Command actionhost is the SDK's CLI entrypoint: `run` starts a Host
// Controller from environment/flag configuration and blocks until
// interrupted; `actions` lists whatever the embedding program registered.
// This is glue, not itself a distinct component — it
// follows the same mitchellh/cli-based command surface shape common to
// agent-style CLIs in this ecosystem.
package main

import (
	"fmt"
	"os"

	"github.com/mitchellh/cli"

	"github.com/boxcast/actionhost/actions"
)

// Version is the SDK release shown in the CLI's own --version output; it is
// not sent in INITIALIZE_HOST. Overridden at build time via -ldflags.
var Version = "dev"

// Run is the CLI entrypoint, factored out of main so an embedding program
// can call it directly with its own action registry instead of exec'ing a
// separate binary.
func Run(args []string, registry *actions.Registry) int {
	c := cli.NewCLI("actionhost", Version)
	c.Args = args
	c.Commands = map[string]cli.CommandFactory{
		"run": func() (cli.Command, error) {
			return &RunCommand{UI: &cli.BasicUi{Writer: os.Stdout, ErrorWriter: os.Stderr}, Registry: registry}, nil
		},
		"actions": func() (cli.Command, error) {
			return &ActionsCommand{UI: &cli.BasicUi{Writer: os.Stdout, ErrorWriter: os.Stderr}, Registry: registry}, nil
		},
	}

	status, err := c.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return status
}

func main() {
	os.Exit(Run(os.Args[1:], actions.New()))
}
