package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hanpama/socialgraph/internal/config"
	"github.com/hanpama/socialgraph/internal/logger"
	"github.com/hanpama/socialgraph/internal/store/sqlite"
)

func openDatastore(ctx context.Context, cfg *config.Config) (*sqlite.Datastore, error) {
	ds, err := sqlite.Open(ctx, cfg.Datastore.URI, sqlite.Config{
		MaxOpenConns: cfg.Datastore.MaxOpenConns,
		PingTimeout:  cfg.Datastore.PingTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open datastore: %w", err)
	}
	return ds, nil
}

func newMigrateCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending datastore migrations",
		Args:  cobra.NoArgs,
		PreRun: func(cmd *cobra.Command, _ []string) {
			mustBindPFlags(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Read(v)
			if err != nil {
				return err
			}
			ds, err := openDatastore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer ds.Close()

			version, err := ds.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "datastore at version %d\n", version)
			return nil
		},
	}
	datastoreFlags(cmd.Flags(), config.DefaultConfig())
	return cmd
}

func newSeedCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Migrate the datastore and load the demo community into it",
		Args:  cobra.NoArgs,
		PreRun: func(cmd *cobra.Command, _ []string) {
			mustBindPFlags(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Read(v)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Format, cfg.Log.Level)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ds, err := openDatastore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer ds.Close()

			if _, err := ds.Migrate(cmd.Context()); err != nil {
				return err
			}
			demo := sqlite.Demo()
			if err := ds.Seed(cmd.Context(), demo); err != nil {
				return fmt.Errorf("seed datastore: %w", err)
			}
			log.Info("datastore seeded",
				zap.String("uri", cfg.Datastore.URI),
				zap.Int("members", len(demo.Members)),
				zap.Int("groups", len(demo.Groups)),
			)
			return nil
		},
	}
	datastoreFlags(cmd.Flags(), config.DefaultConfig())
	return cmd
}
