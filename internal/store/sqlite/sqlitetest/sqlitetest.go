// Package sqlitetest opens migrated throwaway datastores for tests.
package sqlitetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/socialgraph/internal/store/sqlite"
)

// New returns a migrated, empty datastore in a temporary directory. It is
// closed when the test ends.
func New(t testing.TB) *sqlite.Datastore {
	t.Helper()
	uri := "file:" + filepath.Join(t.TempDir(), "socialgraph.db")
	ds, err := sqlite.Open(context.Background(), uri, sqlite.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })

	_, err = ds.Migrate(context.Background())
	require.NoError(t, err)
	return ds
}

// NewDemo returns a datastore holding sqlite.Demo().
func NewDemo(t testing.TB) *sqlite.Datastore {
	t.Helper()
	ds := New(t)
	require.NoError(t, ds.Seed(context.Background(), sqlite.Demo()))
	return ds
}
