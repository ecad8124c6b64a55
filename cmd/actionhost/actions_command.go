package main

import (
	"fmt"

	"github.com/mitchellh/cli"
	"github.com/posener/complete"
	"github.com/ryanuber/columnize"

	"github.com/boxcast/actionhost/actions"
)

// ActionsCommand implements `actionhost actions`: lists every registered
// action name, grouped by its "/"-delimited prefix and columnized.
type ActionsCommand struct {
	UI       cli.Ui
	Registry *actions.Registry
}

func (c *ActionsCommand) Help() string {
	return "Usage: actionhost actions\n\n  Lists the callable action names this binary registers."
}

func (c *ActionsCommand) Synopsis() string { return "List registered action names" }

func (c *ActionsCommand) AutocompleteFlags() complete.Flags    { return nil }
func (c *ActionsCommand) AutocompleteArgs() complete.Predictor { return complete.PredictNothing }

func (c *ActionsCommand) Run(args []string) int {
	groups := c.Registry.GroupedByPrefix()
	if len(groups) == 0 {
		c.UI.Output("no actions registered")
		return 0
	}

	lines := []string{"GROUP | ACTION"}
	for group, names := range groups {
		label := group
		if label == "" {
			label = "(ungrouped)"
		}
		for _, name := range names {
			lines = append(lines, fmt.Sprintf("%s | %s", label, name))
		}
	}
	c.UI.Output(columnize.SimpleFormat(lines))
	return 0
}
