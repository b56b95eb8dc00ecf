package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/mcrud/mcrud/internal/filter"
)

// NewFilterCommand creates the filter command
func NewFilterCommand() *cobra.Command {
	var showTree bool

	cmd := &cobra.Command{
		Use:   "filter <expression>",
		Short: "Compile a filter expression and print the store predicate",
		Long: `Parse a filter expression the way the ?filter= query parameter does and
print the predicate sent to the store as extended JSON.

Example:
  mcrud filter "age gte int'18' and name eq 'Ann'"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := filter.Parse(strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if showTree && node != nil {
				fmt.Fprintln(out, node.String())
			}

			raw, err := bson.MarshalExtJSON(filter.Compile(node), false, false)
			if err != nil {
				return fmt.Errorf("failed to encode predicate: %w", err)
			}

			var pretty bytes.Buffer
			if err := json.Indent(&pretty, raw, "", "  "); err != nil {
				return err
			}
			fmt.Fprintln(out, pretty.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&showTree, "tree", false, "Also print the parsed expression")

	return cmd
}
