package otel

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"

	"github.com/hanpama/socialgraph/internal/eventbus"
	"github.com/hanpama/socialgraph/internal/events"
	"github.com/hanpama/socialgraph/internal/reqid"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSpansFollowRequestLifecycle(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	unsubscribe := Subscribe(tp.Tracer("test"))
	defer unsubscribe()

	ctx, _ := reqid.NewContext(context.Background())
	r := httptest.NewRequest("POST", "/graphql", nil)
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	eventbus.Publish(ctx, events.GraphQLStart{OperationName: "Q", OperationType: "query"})
	eventbus.Publish(ctx, events.LoaderFlush{Kind: "member", IDs: []int64{1, 2}, Found: 2, Duration: time.Millisecond})
	eventbus.Publish(ctx, events.ConnectionFetch{Relation: "group.members", SourceID: 1, Limit: 11, Rows: 3, Err: errors.New("boom")})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationName: "Q", Flushes: 2})
	eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: 200})

	spans := sr.Ended()
	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.Name()
	}
	require.Equal(t, []string{"loader.flush", "connection.fetch", "graphql.operation", "http.request"}, names)

	httpSpan, gqlSpan := spans[3], spans[2]
	require.Equal(t, httpSpan.SpanContext().SpanID(), gqlSpan.Parent().SpanID())
	require.Equal(t, gqlSpan.SpanContext().SpanID(), spans[0].Parent().SpanID())
	require.Equal(t, gqlSpan.SpanContext().SpanID(), spans[1].Parent().SpanID())
	require.Equal(t, codes.Error, spans[1].Status().Code)
	require.Equal(t, codes.Unset, spans[0].Status().Code)
	require.False(t, spans[0].StartTime().After(spans[0].EndTime().Add(-time.Millisecond)))
}

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), "", "socialgraph")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
