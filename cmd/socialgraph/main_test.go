package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hanpama/socialgraph/internal/config"
	"github.com/hanpama/socialgraph/internal/eventbus"
	"github.com/hanpama/socialgraph/internal/store/sqlite"
	"github.com/hanpama/socialgraph/internal/store/sqlite/sqlitetest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SOCIALGRAPH_LOG_LEVEL", "none")
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSchemaCommand(t *testing.T) {
	out, err := execute(t, "schema")
	require.NoError(t, err)
	require.Contains(t, out, "type Member")
	require.Contains(t, out, "deleteFriendship")
	require.NotContains(t, out, "__Schema")

	out, err = execute(t, "schema", "--introspection")
	require.NoError(t, err)
	require.Contains(t, out, "__Schema")
}

func TestMigrateThenSeed(t *testing.T) {
	uri := "file:" + filepath.Join(t.TempDir(), "cli.db")

	out, err := execute(t, "migrate", "--datastore.uri", uri)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "datastore at version "), out)

	_, err = execute(t, "seed", "--datastore.uri", uri)
	require.NoError(t, err)

	ds, err := sqlite.Open(context.Background(), uri, sqlite.DefaultConfig())
	require.NoError(t, err)
	defer ds.Close()
	members, err := ds.FetchMembers(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, members, 2)
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "compile")
	require.Error(t, err)
}

func TestInvalidConfigRejected(t *testing.T) {
	_, err := execute(t, "migrate", "--datastore.uri", "")
	require.ErrorContains(t, err, "datastore.uri")
}

func TestMuxServesGraphQLAndMetrics(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	cfg := config.DefaultConfig()
	cfg.Server.IdentityHeader = "X-Member-Id"
	mux, stop, err := newMux(cfg, sqlitetest.NewDemo(t))
	require.NoError(t, err)
	defer stop()

	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(`{"query":"{ viewer { slug } member(id: 2) { name } }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Member-Id", "1")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"viewer":{"slug":"alice"},"member":{"name":"Bob Brown"}}}`, w.Body.String())

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.Contains(t, body, `socialgraph_graphql_operations_total{outcome="ok",type="query"} 1`)
	require.Contains(t, body, `socialgraph_loader_batches_total{kind="member",outcome="ok"}`)
	require.Contains(t, body, "go_sql_open_connections")
}

func TestMuxWithoutMetrics(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Metrics.Enabled = false
	cfg.Server.Introspection = false
	mux, stop, err := newMux(cfg, sqlitetest.NewDemo(t))
	require.NoError(t, err)
	defer stop()

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}
