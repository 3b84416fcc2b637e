package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hanpama/socialgraph/internal/config"
	"github.com/hanpama/socialgraph/internal/eventbus"
	"github.com/hanpama/socialgraph/internal/executor"
	"github.com/hanpama/socialgraph/internal/factory"
	"github.com/hanpama/socialgraph/internal/graph"
	"github.com/hanpama/socialgraph/internal/introspection"
	"github.com/hanpama/socialgraph/internal/logger"
	"github.com/hanpama/socialgraph/internal/metrics"
	"github.com/hanpama/socialgraph/internal/otel"
	"github.com/hanpama/socialgraph/internal/server"
	"github.com/hanpama/socialgraph/internal/store/sqlite"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the GraphQL HTTP server",
		Args:  cobra.NoArgs,
		PreRun: func(cmd *cobra.Command, _ []string) {
			mustBindPFlags(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Read(v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	d := config.DefaultConfig()
	flags := cmd.Flags()
	flags.String("server.addr", d.Server.Addr, "HTTP listen address")
	flags.Duration("server.timeout", d.Server.Timeout, "per-request timeout")
	flags.Bool("server.pretty", d.Server.Pretty, "pretty-print JSON responses")
	flags.Int64("server.maxBodyBytes", d.Server.MaxBodyBytes, "maximum request body size, 0 for unlimited")
	flags.StringSlice("server.corsAllowedOrigins", d.Server.CORSAllowedOrigins, "origins allowed to call the API, empty disables CORS")
	flags.Bool("server.graphiql", d.Server.GraphiQL, "serve GraphiQL to browsers")
	flags.String("server.identityHeader", d.Server.IdentityHeader, "request header carrying the authenticated member id")
	flags.Bool("server.introspection", d.Server.Introspection, "answer __schema and __type queries")
	datastoreFlags(flags, d)
	flags.Bool("datastore.migrateOnStart", d.Datastore.MigrateOnStart, "apply pending migrations before serving")
	flags.Int("pagination.defaultPageSize", d.Pagination.DefaultPageSize, "page size when first and last are omitted")
	flags.Int("pagination.maxPageSize", d.Pagination.MaxPageSize, "largest accepted first or last")
	flags.String("log.format", d.Log.Format, "log format: json or text")
	flags.String("log.level", d.Log.Level, "log level: none, debug, info, warn or error")
	flags.String("trace.endpoint", d.Trace.Endpoint, "OTLP/gRPC collector endpoint, empty disables tracing")
	flags.String("trace.serviceName", d.Trace.ServiceName, "service name reported with traces")
	flags.Bool("metrics.enabled", d.Metrics.Enabled, "expose Prometheus metrics on /metrics")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	eventbus.Use(eventbus.New())
	defer logger.Subscribe(log)()

	shutdownTracing, err := otel.Setup(ctx, cfg.Trace.Endpoint, cfg.Trace.ServiceName)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	ds, err := openDatastore(ctx, cfg)
	if err != nil {
		return err
	}
	defer ds.Close()

	if cfg.Datastore.MigrateOnStart {
		version, err := ds.Migrate(ctx)
		if err != nil {
			return err
		}
		log.Info("datastore migrated", zap.Int64("version", version))
	}

	mux, stopMetrics, err := newMux(cfg, ds)
	if err != nil {
		return err
	}
	defer stopMetrics()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("GraphQL server listening", zap.String("addr", cfg.Server.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newMux builds the /graphql endpoint over ds and, when enabled, /metrics.
// The returned func detaches the metrics subscribers.
func newMux(cfg *config.Config, ds *sqlite.Datastore) (*http.ServeMux, func(), error) {
	registry := factory.NewRegistry()
	if err := ds.Register(registry); err != nil {
		return nil, nil, fmt.Errorf("register datastore: %w", err)
	}
	sch, err := graph.Schema()
	if err != nil {
		return nil, nil, fmt.Errorf("build schema: %w", err)
	}
	var runtime executor.Runtime = graph.New(registry, ds, cfg.Limits())
	if cfg.Server.Introspection {
		wrapper := introspection.Wrap(runtime, sch)
		runtime, sch = wrapper.Runtime, wrapper.Schema
	}

	opts := []server.Option{
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithGraphiQL(cfg.Server.GraphiQL),
		server.WithIdentityHeader(cfg.Server.IdentityHeader),
	}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		opts = append(opts, server.WithCORS(cfg.Server.CORSAllowedOrigins...))
	}
	h, err := server.New(runtime, sch, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("server init: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)
	if !cfg.Metrics.Enabled {
		return mux, func() {}, nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ds.StatsCollector("socialgraph"),
	)
	unsubscribe := metrics.New(reg).Subscribe()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux, unsubscribe, nil
}
