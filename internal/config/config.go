// Package config holds the server configuration read from flags, the
// SOCIALGRAPH_* environment and config.yaml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hanpama/socialgraph/internal/connection"
)

const EnvPrefix = "SOCIALGRAPH"

// ConfigPaths are searched in order for config.yaml.
var ConfigPaths = []string{"/etc/socialgraph", "$HOME/.socialgraph", "."}

type ServerConfig struct {
	Addr               string
	Timeout            time.Duration
	Pretty             bool
	MaxBodyBytes       int64
	CORSAllowedOrigins []string
	GraphiQL           bool
	// IdentityHeader names the request header carrying the viewer's member
	// id. Empty means every request is anonymous.
	IdentityHeader string
	Introspection  bool
}

type DatastoreConfig struct {
	URI            string
	MaxOpenConns   int
	PingTimeout    time.Duration
	MigrateOnStart bool
}

type PaginationConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

type LogConfig struct {
	// Format is "json" or "text".
	Format string
	// Level is one of none, debug, info, warn, error.
	Level string
}

type TraceConfig struct {
	// Endpoint is the OTLP/gRPC collector address. Empty disables tracing.
	Endpoint    string
	ServiceName string
}

type MetricsConfig struct {
	// Enabled mounts the Prometheus handler on /metrics.
	Enabled bool
}

type Config struct {
	Server     ServerConfig
	Datastore  DatastoreConfig
	Pagination PaginationConfig
	Log        LogConfig
	Trace      TraceConfig
	Metrics    MetricsConfig
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:               ":8080",
			Timeout:            10 * time.Second,
			MaxBodyBytes:       1 << 20,
			CORSAllowedOrigins: []string{"*"},
			GraphiQL:           true,
			Introspection:      true,
		},
		Datastore: DatastoreConfig{
			URI:          "file:socialgraph.db",
			MaxOpenConns: 4,
			PingTimeout:  10 * time.Second,
		},
		Pagination: PaginationConfig{
			DefaultPageSize: connection.DefaultLimits.DefaultPageSize,
			MaxPageSize:     connection.DefaultLimits.MaxPageSize,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Trace: TraceConfig{
			ServiceName: "socialgraph",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Limits returns the pagination limits for the connection resolvers.
func (c *Config) Limits() connection.Limits {
	return connection.Limits{
		DefaultPageSize: c.Pagination.DefaultPageSize,
		MaxPageSize:     c.Pagination.MaxPageSize,
	}
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must be set"))
	}
	if c.Server.Timeout < 0 {
		errs = append(errs, errors.New("server.timeout must not be negative"))
	}
	if c.Datastore.URI == "" {
		errs = append(errs, errors.New("datastore.uri must be set"))
	}
	if c.Pagination.DefaultPageSize < 1 {
		errs = append(errs, errors.New("pagination.defaultPageSize must be positive"))
	}
	if c.Pagination.MaxPageSize < c.Pagination.DefaultPageSize {
		errs = append(errs, fmt.Errorf("pagination.maxPageSize (%d) must be at least pagination.defaultPageSize (%d)",
			c.Pagination.MaxPageSize, c.Pagination.DefaultPageSize))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or text", c.Log.Format))
	}
	switch c.Log.Level {
	case "none", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not a known level", c.Log.Level))
	}
	if c.Trace.Endpoint != "" && c.Trace.ServiceName == "" {
		errs = append(errs, errors.New("trace.serviceName must be set when trace.endpoint is"))
	}
	return errors.Join(errs...)
}

// NewViper returns a viper instance that reads SOCIALGRAPH_* variables and
// config.yaml from ConfigPaths, seeded with DefaultConfig.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, path := range ConfigPaths {
		v.AddConfigPath(path)
	}
	SetDefaults(v, DefaultConfig())
	return v
}

// SetDefaults registers every key of c with v so that environment
// variables are found by Unmarshal.
func SetDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("server.addr", c.Server.Addr)
	v.SetDefault("server.timeout", c.Server.Timeout)
	v.SetDefault("server.pretty", c.Server.Pretty)
	v.SetDefault("server.maxBodyBytes", c.Server.MaxBodyBytes)
	v.SetDefault("server.corsAllowedOrigins", c.Server.CORSAllowedOrigins)
	v.SetDefault("server.graphiql", c.Server.GraphiQL)
	v.SetDefault("server.identityHeader", c.Server.IdentityHeader)
	v.SetDefault("server.introspection", c.Server.Introspection)
	v.SetDefault("datastore.uri", c.Datastore.URI)
	v.SetDefault("datastore.maxOpenConns", c.Datastore.MaxOpenConns)
	v.SetDefault("datastore.pingTimeout", c.Datastore.PingTimeout)
	v.SetDefault("datastore.migrateOnStart", c.Datastore.MigrateOnStart)
	v.SetDefault("pagination.defaultPageSize", c.Pagination.DefaultPageSize)
	v.SetDefault("pagination.maxPageSize", c.Pagination.MaxPageSize)
	v.SetDefault("log.format", c.Log.Format)
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("trace.endpoint", c.Trace.Endpoint)
	v.SetDefault("trace.serviceName", c.Trace.ServiceName)
	v.SetDefault("metrics.enabled", c.Metrics.Enabled)
}

// Read loads config.yaml if present and decodes v into a validated Config.
func Read(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
