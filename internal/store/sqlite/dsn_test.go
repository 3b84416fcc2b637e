package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/socialgraph/internal/failure"
)

func TestPrepareDSN(t *testing.T) {
	dsn, err := PrepareDSN("file:test.db")
	require.NoError(t, err)
	u, err := url.Parse(dsn)
	require.NoError(t, err)
	q := u.Query()
	require.ElementsMatch(t, []string{"journal_mode(WAL)", "busy_timeout(100)", "foreign_keys(1)"}, q["_pragma"])
	require.Equal(t, "immediate", q.Get("_txlock"))

	dsn, err = PrepareDSN("file:test.db?_pragma=busy_timeout(5000)&_txlock=deferred")
	require.NoError(t, err)
	u, err = url.Parse(dsn)
	require.NoError(t, err)
	q = u.Query()
	require.ElementsMatch(t, []string{"busy_timeout(5000)", "journal_mode(WAL)", "foreign_keys(1)"}, q["_pragma"])
	require.Equal(t, "deferred", q.Get("_txlock"))

	_, err = PrepareDSN("file:test.db?%zz")
	require.Error(t, err)
}

func TestHandleSQLError(t *testing.T) {
	require.ErrorIs(t, HandleSQLError(sql.ErrNoRows), failure.ErrNotFound)
	require.ErrorIs(t, HandleSQLError(fmt.Errorf("query: %w", context.Canceled)), context.Canceled)

	other := errors.New("disk I/O error")
	err := HandleSQLError(other)
	require.ErrorIs(t, err, other)
	require.Equal(t, "sql error: disk I/O error", err.Error())
}
