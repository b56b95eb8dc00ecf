package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcrud/mcrud/internal/app"
	"github.com/mcrud/mcrud/internal/cli/ui"
	"github.com/mcrud/mcrud/internal/schema"
)

// NewInspectCommand creates the inspect command
func NewInspectCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [collection]",
		Short: "Show collections and their relationships",
		Long: `Without arguments, print the relationship report of every collection.
With a model name or collection key, print its fields and how each
reference resolves.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			a, err := offlineApp(cfg)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				fmt.Fprint(cmd.OutOrStdout(), a.Relationships().Report().String())
				return nil
			}

			return inspectCollection(cmd, a, args[0])
		},
	}
}

func inspectCollection(cmd *cobra.Command, a *app.App, name string) error {
	c, ok := a.Schemas().Get(name)
	if !ok {
		c, ok = a.Schemas().GetByPlural(name)
	}
	if !ok {
		var candidates []string
		for _, model := range a.Schemas().List() {
			m, _ := a.Schemas().Get(model)
			candidates = append(candidates, model, m.Plural)
		}
		return ui.NotFound("collection", name, candidates)
	}

	out := cmd.OutOrStdout()
	ui.Header(out, c.Name)

	info := ui.NewKeyValueTable(out)
	info.AddRow("collection", c.Plural)
	info.AddRow("route prefix", c.RoutePrefix())
	if len(c.DisabledRoutes) > 0 {
		info.AddRow("disabled", strings.Join(c.DisabledRoutes, ", "))
	}
	info.Render()
	fmt.Fprintln(out)

	table := ui.NewTable(out, "FIELD", "TYPE", "REQUIRED", "RELATIONSHIP")
	for _, field := range c.Descriptor.Fields() {
		ft := c.Descriptor[field]
		table.AddRow(field, ft.String(), yesNo(ft.Required), relationshipOf(a, c, field))
	}
	table.Render()

	return nil
}

func relationshipOf(a *app.App, c *schema.Collection, field string) string {
	rel, ok := a.Relationships().Lookup(c.Plural, field)
	if !ok {
		return ""
	}
	t, err := a.ResolveRelationshipType(c.Plural, field)
	if err != nil {
		return "unresolved: " + err.Error()
	}
	return fmt.Sprintf("%s -> %s.%s", t, rel.Target, rel.ForeignKey)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
