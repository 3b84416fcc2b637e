// Package executor implements a breadth-first, batch-friendly GraphQL executor
// with explicit runtime hooks for synchronous resolution, deferred resolution
// of asynchronous fields, abstract-type resolution, and leaf serialization.
//
// # Overview
//
// The executor follows a level-by-level (BFS) execution model designed to:
//   - Expand synchronous fields immediately without adding batch depth.
//   - Start every asynchronous field encountered at the current depth through
//     Runtime.ResolveAsync, then drain the request's deferred queue exactly once
//     so that all loads registered at that depth share one flush.
//   - Complete values according to the GraphQL specification (lists, leafs,
//     objects, abstract types), including Non-Null null-propagation rules.
//   - Accumulate located errors while allowing partial success.
//
// # Preparation
//
// Before execution, the executor:
//  1. Chooses the operation (by name or by uniqueness when unnamed). Document
//     validation against the schema is the caller's job.
//  2. Coerces variables against the operation's variable definitions. Errors
//     here stop execution.
//  3. Takes the deferred.Queue from ctx, or creates one, and lets a Runtime
//     that implements RequestScoper attach its request-scoped state.
//  4. Determines the root object type from the operation and collects the root
//     selection set.
//
// # Execution Model
//
// A field is synchronous or asynchronous according to schema.Field.Async,
// which the SDL builder sets from the @batch directive. Synchronous fields are
// projections of their source value and are completed on the spot, including
// their nested selections. Asynchronous fields are queued as tasks carrying
// their response path, return type and AST nodes.
//
// BFS Loop (per depth)
//
//	A. Sync expansion
//	   - Compute argument values, call ResolveSync for sync fields and complete
//	     them recursively. Async fields leave a placeholder and become tasks.
//
//	B. Deferred start
//	   - Drop tasks whose parent was nulled since they were queued. Call
//	     ResolveAsync once per remaining task; each returns a deferred value
//	     and registers its work on the queue.
//
//	C. Drain
//	   - Drain the queue once. Stages flush lowest first, so connection pages
//	     fetched at this depth buffer their node ids before entity loaders run.
//
//	D. Completion
//	   - Read each task's settled value in task order and complete it at its
//	     response path. Nested async fields found during completion form the
//	     next depth.
//
// # Errors
//
// Resolver errors become GraphQL errors located at the field's path. Errors
// classified by the failure package carry extensions.code. If the field is
// Non-Null the null propagates to the nearest nullable ancestor, and async
// fields below that ancestor are dropped before they start.
//
// # Cancellation
//
// ctx is checked before every depth. After cancellation no resolver runs and
// the remaining async fields complete with the context error.
package executor
