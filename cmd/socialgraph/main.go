// Command socialgraph serves the social graph over GraphQL and manages its
// SQLite datastore.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hanpama/socialgraph/internal/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand wires every subcommand to one viper instance, so settings
// come from flags, SOCIALGRAPH_* variables or config.yaml (in that order).
func newRootCommand() *cobra.Command {
	v := config.NewViper()
	root := &cobra.Command{
		Use:   "socialgraph",
		Short: "GraphQL API over members, groups, friendships, profiles and blogs",
		Long: `socialgraph serves a Relay-style GraphQL API over a community's members,
groups, friendships, extended profiles and blogs. Sibling lookups and
connection pages are batched per request and fetched from SQLite.`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCommand(v),
		newMigrateCommand(v),
		newSeedCommand(v),
		newSchemaCommand(),
	)
	return root
}

func mustBindPFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil {
			panic("failed to bind pflag: " + err.Error())
		}
	})
}

func datastoreFlags(flags *pflag.FlagSet, defaults *config.Config) {
	flags.String("datastore.uri", defaults.Datastore.URI, "SQLite connection uri")
	flags.Int("datastore.maxOpenConns", defaults.Datastore.MaxOpenConns, "maximum open connections to the database")
	flags.Duration("datastore.pingTimeout", defaults.Datastore.PingTimeout, "how long to wait for the database to answer on startup")
}
