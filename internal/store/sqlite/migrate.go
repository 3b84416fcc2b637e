package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

func newProvider(db *sql.DB) (*goose.Provider, error) {
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to create goose provider: %w", err)
	}
	return provider, nil
}

// Migrate applies every pending migration and returns the resulting version.
func (s *Datastore) Migrate(ctx context.Context) (int64, error) {
	provider, err := newProvider(s.db)
	if err != nil {
		return 0, err
	}
	if _, err := provider.Up(ctx); err != nil {
		return 0, fmt.Errorf("failed to run sqlite migrations: %w", err)
	}
	return provider.GetDBVersion(ctx)
}

// Version returns the applied migration version.
func (s *Datastore) Version(ctx context.Context) (int64, error) {
	provider, err := newProvider(s.db)
	if err != nil {
		return 0, err
	}
	return provider.GetDBVersion(ctx)
}
