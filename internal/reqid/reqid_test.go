package reqid

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx, id := NewContext(context.Background())
	got, ok := FromContext(ctx)
	if !ok || got != id {
		t.Fatalf("expected %s from context, got %s ok=%v", id, got, ok)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("unexpected id in empty context")
	}
}

func TestWithID(t *testing.T) {
	const supplied = "0b6f3c7e-4a59-4e7e-9d53-2f4c1d2f9a10"
	_, id := WithID(context.Background(), supplied)
	if id != supplied {
		t.Fatalf("expected supplied id to be kept, got %s", id)
	}
	_, id = WithID(context.Background(), "not-a-uuid")
	if id == "not-a-uuid" || id == "" {
		t.Fatalf("expected a generated id, got %q", id)
	}
}
