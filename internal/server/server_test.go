package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"go.uber.org/goleak"

	"github.com/hanpama/socialgraph/internal/connection"
	"github.com/hanpama/socialgraph/internal/eventbus"
	"github.com/hanpama/socialgraph/internal/events"
	"github.com/hanpama/socialgraph/internal/executor"
	"github.com/hanpama/socialgraph/internal/factory"
	"github.com/hanpama/socialgraph/internal/graph"
	"github.com/hanpama/socialgraph/internal/introspection"
	"github.com/hanpama/socialgraph/internal/reqid"
	"github.com/hanpama/socialgraph/internal/schema"
	"github.com/hanpama/socialgraph/internal/store/sqlite/sqlitetest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestHandler(t *testing.T, rt executor.Runtime, opts ...Option) *Handler {
	t.Helper()
	sch, err := schema.BuildFromSDL(&ast.Source{Name: "test.graphql", Input: `type Query { hello: String slow: String @batch }`})
	require.NoError(t, err)
	h, err := New(rt, sch, opts...)
	require.NoError(t, err)
	return h
}

func newDemoHandler(t *testing.T, opts ...Option) *Handler {
	t.Helper()
	ds := sqlitetest.NewDemo(t)
	reg := factory.NewRegistry()
	require.NoError(t, ds.Register(reg))
	sch, err := graph.Schema()
	require.NoError(t, err)
	w := introspection.Wrap(graph.New(reg, ds, connection.DefaultLimits), sch)
	h, err := New(w.Runtime, w.Schema, opts...)
	require.NoError(t, err)
	return h
}

func post(t *testing.T, h http.Handler, body string, header http.Header) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", "/graphql", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var out map[string]any
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" && w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestViewerFromIdentityHeader(t *testing.T) {
	h := newDemoHandler(t, WithIdentityHeader("X-Member-Id"))

	w, out := post(t, h, `{"query":"{ viewer { slug } }"}`, http.Header{"X-Member-Id": {"2"}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, map[string]any{"data": map[string]any{"viewer": map[string]any{"slug": "bob"}}}, out)

	_, out = post(t, h, `{"query":"{ viewer { slug } }"}`, nil)
	require.Equal(t, map[string]any{"data": map[string]any{"viewer": nil}}, out)

	w, _ = post(t, h, `{"query":"{ viewer { slug } }"}`, http.Header{"X-Member-Id": {"bob"}})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidationErrors(t *testing.T) {
	h := newDemoHandler(t)
	w, out := post(t, h, `{"query":"{ member(id: 1) { nope } }"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, out, "data")
	errs := out["errors"].([]any)
	require.Len(t, errs, 1)
	e := errs[0].(map[string]any)
	require.Contains(t, e["message"], "nope")
	require.NotEmpty(t, e["locations"])
}

func TestErrorCodesInResponse(t *testing.T) {
	h := newDemoHandler(t)
	_, out := post(t, h, `{"query":"{ members(first: -1) { nodes { slug } } }"}`, nil)
	errs := out["errors"].([]any)
	require.Len(t, errs, 1)
	e := errs[0].(map[string]any)
	require.Equal(t, []any{"members"}, e["path"])
	require.Equal(t, map[string]any{"code": "INVALID_ARGUMENT"}, e["extensions"])
	require.Equal(t, map[string]any{"members": nil}, out["data"])
}

func TestIntrospectionOverHTTP(t *testing.T) {
	h := newDemoHandler(t)
	_, out := post(t, h, `{"query":"{ __type(name: \"GroupStatus\") { kind enumValues { name } } }"}`, nil)
	require.Equal(t, map[string]any{"data": map[string]any{"__type": map[string]any{
		"kind": "ENUM",
		"enumValues": []any{
			map[string]any{"name": "HIDDEN"},
			map[string]any{"name": "PRIVATE"},
			map[string]any{"name": "PUBLIC"},
		},
	}}}, out)
}

func TestFinishEventReportsFlushes(t *testing.T) {
	bus := eventbus.New()
	eventbus.Use(bus)
	t.Cleanup(func() { eventbus.Use(nil) })
	var finished []events.GraphQLFinish
	var httpDone []events.HTTPFinish
	eventbus.SubscribeTo(bus, func(_ context.Context, e events.GraphQLFinish) { finished = append(finished, e) })
	eventbus.SubscribeTo(bus, func(_ context.Context, e events.HTTPFinish) { httpDone = append(httpDone, e) })

	h := newDemoHandler(t, WithIdentityHeader("X-Member-Id"))
	w, _ := post(t, h, `{"query":"query Q { a: member(id: 1) { name } b: member(id: 2) { name } }","operationName":"Q"}`,
		http.Header{"X-Member-Id": {"1"}})
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, finished, 1)
	require.Equal(t, "Q", finished[0].OperationName)
	require.Equal(t, "query", finished[0].OperationType)
	require.Equal(t, int64(1), finished[0].ViewerID)
	require.Equal(t, 1, finished[0].Flushes)
	require.Empty(t, finished[0].Errors)

	require.Len(t, httpDone, 1)
	require.Equal(t, http.StatusOK, httpDone[0].Status)
	require.Equal(t, w.Header().Get(reqid.Header), httpDone[0].RequestID)
}

func TestGetAndBatch(t *testing.T) {
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.hello": executor.NewMockValueResolver("world"),
		"Query.slow":  executor.NewMockValueResolver("later"),
	})
	h := newTestHandler(t, rt)

	req := httptest.NewRequest("GET", "/graphql?query="+url.QueryEscape("{ hello slow }"), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"hello":"world","slow":"later"}}`, w.Body.String())

	w, _ = post(t, h, `[{"query":"{ hello }"},{"query":"{ slow }"}]`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[{"data":{"hello":"world"}},{"data":{"slow":"later"}}]`, w.Body.String())
}

func TestGraphiQL(t *testing.T) {
	h := newTestHandler(t, executor.NewMockRuntime(nil))
	req := httptest.NewRequest("GET", "/graphql", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "GraphiQL")

	off := newTestHandler(t, executor.NewMockRuntime(nil), WithGraphiQL(false))
	w = httptest.NewRecorder()
	off.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORSAndPreflight(t *testing.T) {
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.hello": executor.NewMockValueResolver("world"),
	})
	h := newTestHandler(t, rt, WithCORS("*"))

	// simple request
	w, _ := post(t, h, `{"query":"{ hello }"}`, http.Header{"Origin": {"http://example.com"}})
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	// preflight
	pre := httptest.NewRequest("OPTIONS", "/", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	require.Equal(t, http.StatusNoContent, pw.Code)
	require.Equal(t, "*", pw.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "X-Test", pw.Header().Get("Access-Control-Allow-Headers"))

	restricted := newTestHandler(t, rt, WithCORS("http://app.example.com"))
	w, _ = post(t, restricted, `{"query":"{ hello }"}`, http.Header{"Origin": {"http://evil.example.com"}})
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMaxBodyBytes(t *testing.T) {
	rt := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.hello": executor.NewMockValueResolver("world"),
	})
	h := newTestHandler(t, rt, WithMaxBodyBytes(10))

	w, _ := post(t, h, `{"query":"1234567890"}`, nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRequestID(t *testing.T) {
	rt := executor.NewMockRuntime(nil)
	var captured string
	rt.SetResolver("Query", "hello", func(ctx context.Context, src any, args map[string]any) (any, error) {
		captured, _ = reqid.FromContext(ctx)
		return "world", nil
	})
	h := newTestHandler(t, rt)

	w, _ := post(t, h, `{"query":"{ hello }"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, captured)
	require.Equal(t, captured, w.Header().Get(reqid.Header))

	const given = "3f2c1b9e-8a6d-4c1e-9b7a-2d5e6f7a8b9c"
	w, _ = post(t, h, `{"query":"{ hello }"}`, http.Header{reqid.Header: {given}})
	require.Equal(t, given, captured)
	require.Equal(t, given, w.Header().Get(reqid.Header))
}
