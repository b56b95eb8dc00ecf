package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mcrud/mcrud/internal/app"
	"github.com/mcrud/mcrud/internal/cli/ui"
	"github.com/mcrud/mcrud/internal/config"
	"github.com/mcrud/mcrud/internal/store/memstore"
)

// NewRoutesCommand creates the routes command
func NewRoutesCommand(opts *rootOptions) *cobra.Command {
	var collection string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the routes the server would mount",
		Long:  "Load the schema file and print every route without connecting a store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			a, err := offlineApp(cfg)
			if err != nil {
				return err
			}

			r, err := a.Router()
			if err != nil {
				return err
			}

			table := ui.NewTable(cmd.OutOrStdout(), "METHOD", "PATTERN", "COLLECTION", "OPERATION")
			for _, route := range r.GetRoutes() {
				if collection != "" && route.Collection != collection {
					continue
				}
				op := route.Operation.String()
				if route.Guarded {
					op += " (auth)"
				}
				table.AddRow(route.Method, route.Pattern, route.Collection, op)
			}

			if table.Len() == 0 && collection != "" {
				return ui.NotFound("collection", collection, a.Relationships().Collections())
			}

			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "Only list routes of this collection")

	return cmd
}

// offlineApp loads the schema file on top of an in-memory store
func offlineApp(cfg *config.Config) (*app.App, error) {
	a := app.New(cfg, memstore.New(), zap.NewNop())
	if err := a.LoadSchemaFile(cfg.Schema.File); err != nil {
		return nil, err
	}
	return a, nil
}
