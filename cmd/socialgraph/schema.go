package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hanpama/socialgraph/internal/graph"
	"github.com/hanpama/socialgraph/internal/introspection"
	"github.com/hanpama/socialgraph/internal/schema"
)

func newSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the executable GraphQL schema as SDL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sch, err := graph.Schema()
			if err != nil {
				return err
			}
			withIntrospection, err := cmd.Flags().GetBool("introspection")
			if err != nil {
				return err
			}
			if withIntrospection {
				sch = introspection.Wrap(nil, sch).Schema
			}
			fmt.Fprint(cmd.OutOrStdout(), schema.Render(sch))
			return nil
		},
	}
	cmd.Flags().Bool("introspection", false, "include the introspection types")
	return cmd
}
