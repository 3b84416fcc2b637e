// Package sqlite is the relational datastore behind the resolution layer. It
// implements the batch fetch of every entity kind and the keyset page query of
// every connection on top of modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/hanpama/socialgraph/internal/failure"
)

var tracer = otel.Tracer("socialgraph/internal/store/sqlite")

func startTrace(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "sqlite."+name)
}

// ErrCollision is returned when an insert hits a uniqueness constraint.
var ErrCollision = errors.New("record already exists")

// Config tunes the connection pool.
type Config struct {
	MaxOpenConns int
	// PingTimeout bounds the retries while waiting for the database.
	PingTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{MaxOpenConns: 4, PingTimeout: 10 * time.Second}
}

// Datastore serves entity and page queries from a SQLite database.
type Datastore struct {
	db   *sql.DB
	stbl sq.StatementBuilderType
}

// PrepareDSN adds the pragmas the datastore relies on unless the uri sets
// them: WAL journal, a busy timeout and enforced foreign keys.
func PrepareDSN(uri string) (string, error) {
	query := url.Values{}
	var err error

	if i := strings.Index(uri, "?"); i != -1 {
		query, err = url.ParseQuery(uri[i+1:])
		if err != nil {
			return uri, fmt.Errorf("error parsing dsn: %w", err)
		}

		uri = uri[:i]
	}

	found := map[string]bool{}
	for _, val := range query["_pragma"] {
		for _, name := range []string{"journal_mode", "busy_timeout", "foreign_keys"} {
			if strings.HasPrefix(val, name) {
				found[name] = true
			}
		}
	}

	if !found["journal_mode"] {
		query.Add("_pragma", "journal_mode(WAL)")
	}
	if !found["busy_timeout"] {
		query.Add("_pragma", "busy_timeout(100)")
	}
	if !found["foreign_keys"] {
		query.Add("_pragma", "foreign_keys(1)")
	}

	if !query.Has("_txlock") {
		query.Set("_txlock", "immediate")
	}

	return uri + "?" + query.Encode(), nil
}

// Open connects to uri and waits until the database answers.
func Open(ctx context.Context, uri string, cfg Config) (*Datastore, error) {
	uri, err := PrepareDSN(uri)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", uri)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite connection: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.PingTimeout
	err = backoff.Retry(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Datastore{
		db:   db,
		stbl: sq.StatementBuilder.RunWith(db),
	}, nil
}

func (s *Datastore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying pool for migrations.
func (s *Datastore) DB() *sql.DB { return s.db }

// IsReady reports whether the database answers a ping.
func (s *Datastore) IsReady(ctx context.Context) error {
	ctx, span := startTrace(ctx, "IsReady")
	defer span.End()
	return s.db.PingContext(ctx)
}

// StatsCollector exports the pool statistics under the given db name.
func (s *Datastore) StatsCollector(name string) prometheus.Collector {
	return collectors.NewDBStatsCollector(s.db, name)
}

// HandleSQLError maps driver errors onto the datastore's errors.
func HandleSQLError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return failure.ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code()&0xFF == sqlite3.SQLITE_CONSTRAINT {
			return ErrCollision
		}
	}

	return fmt.Errorf("sql error: %w", err)
}
