package executor

import (
	"context"

	"github.com/hanpama/socialgraph/internal/deferred"
)

// Runtime defines the host integration surface for field resolution, abstract
// type resolution, and leaf-value serialization used by the Executor.
//
// General contract
//   - The Executor performs a breadth-first execution. At each depth it expands
//     synchronous fields immediately via ResolveSync and calls ResolveAsync once
//     per async field collected at that depth. It then drains the request's
//     deferred queue once and completes every async field from its settled
//     value before the next depth begins.
//   - ResolveSync is never invoked for fields marked async, and ResolveAsync is
//     never invoked for sync fields.
//   - Errors are converted into located GraphQL errors. If the field's return
//     type is Non-Null, the Executor propagates the null up to the nearest
//     nullable ancestor.
//   - Implementations must not mutate source or args values.
//
// Object/field identifiers
// - objectType is the GraphQL type name (e.g. "Member").
// - field is the GraphQL field name on that type (e.g. "groups").
// - For root fields, objectType is the root type name (e.g. "Query").
// - source is the parent object value (nil for root).
// - args is the map of argument names to already-coerced Go values.
//
// Deferred values and batching
//   - ResolveAsync must not block on I/O. It returns a deferred value and
//     registers whatever work settles it on the queue found with
//     deferred.FromContext(ctx). Work registered at the same depth is flushed
//     together, which is where batching happens.
//   - A value still pending after the drain completes the field with an error.
//   - The queue and everything reachable from it belong to a single request and
//     are used from one goroutine only.
//
// Abstract types and leaf values
//   - ResolveType must return the concrete type name for interface/union values.
//   - SerializeLeafValue must coerce/serialize scalars and enums into JSON-safe
//     Go values. For enums, return the enum name as string.
//
// Cancellation
//   - The Executor checks ctx before each depth. Once ctx is done no further
//     resolvers are called and the remaining async fields fail with ctx.Err().
type Runtime interface {
	// ResolveSync resolves a synchronous field value immediately.
	// Return (nil, nil) to produce a GraphQL null for nullable fields.
	ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)

	// ResolveAsync starts resolving an async field and returns its deferred
	// raw value. A nil return is treated as a null value.
	ResolveAsync(ctx context.Context, task AsyncResolveTask) *deferred.Value[any]

	// ResolveType determines the concrete runtime type name for a value of an
	// abstract GraphQL type (interface or union).
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue serializes a scalar or enum value to a JSON-safe Go
	// value according to the GraphQL schema and custom scalar mappings.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

// RequestScoper is implemented by runtimes that keep per-request state. The
// Executor calls BeginRequest once per request, after the request's queue is
// in ctx, and resolves every field with the returned context.
type RequestScoper interface {
	BeginRequest(ctx context.Context) context.Context
}

type AsyncResolveTask struct {
	// ObjectType is the parent GraphQL object type name for the field.
	ObjectType string
	// Field is the GraphQL field name to resolve.
	Field string
	// Source is the parent object value (nil for root fields).
	Source any
	// Args are the field arguments, coerced to Go values per the schema.
	Args map[string]any
}
