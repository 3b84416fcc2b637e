// Package graph serves the community schema on top of the resolution factory.
//
// Plain record fields are projected synchronously. Fields marked @batch
// return deferred values obtained from the request's factory.Session, which
// BeginRequest attaches to the context, so every lookup made at one depth of
// the query is batched into the same drain.
package graph

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/hanpama/socialgraph/internal/connection"
	"github.com/hanpama/socialgraph/internal/deferred"
	"github.com/hanpama/socialgraph/internal/entity"
	"github.com/hanpama/socialgraph/internal/executor"
	"github.com/hanpama/socialgraph/internal/factory"
	"github.com/hanpama/socialgraph/internal/schema"
)

//go:embed schema.graphql
var SDL string

// Schema builds the executable schema from SDL.
func Schema() (*schema.Schema, error) {
	return schema.BuildFromSDL(&ast.Source{Name: "schema.graphql", Input: SDL})
}

// FriendshipStore is the write side used by mutations.
type FriendshipStore interface {
	FriendshipBetween(ctx context.Context, a, b int64) (*entity.FriendshipRecord, error)
	DeleteFriendship(ctx context.Context, id int64) error
}

// Runtime implements executor.Runtime for the community schema.
type Runtime struct {
	registry *factory.Registry
	store    FriendshipStore
	limits   connection.Limits
	async    map[string]asyncResolver
}

var (
	_ executor.Runtime       = (*Runtime)(nil)
	_ executor.RequestScoper = (*Runtime)(nil)
)

func New(registry *factory.Registry, store FriendshipStore, limits connection.Limits) *Runtime {
	r := &Runtime{registry: registry, store: store, limits: limits}
	r.async = r.asyncResolvers()
	return r
}

// BeginRequest starts the request's resolution session on the queue the
// executor placed in ctx.
func (r *Runtime) BeginRequest(ctx context.Context) context.Context {
	q, ok := deferred.FromContext(ctx)
	if !ok {
		q = deferred.NewQueue()
		ctx = deferred.NewContext(ctx, q)
	}
	return factory.NewContext(ctx, r.registry.NewSession(q, r.limits))
}

func (r *Runtime) ResolveAsync(ctx context.Context, task executor.AsyncResolveTask) *deferred.Value[any] {
	s, ok := factory.FromContext(ctx)
	if !ok {
		return deferred.Reject[any](fmt.Errorf("graph: no resolution session for %s.%s", task.ObjectType, task.Field))
	}
	fn, ok := r.async[task.ObjectType+"."+task.Field]
	if !ok {
		return deferred.Reject[any](fmt.Errorf("graph: no resolver for %s.%s", task.ObjectType, task.Field))
	}
	return fn(ctx, s, task.Source, task.Args)
}

var typeNames = map[entity.Kind]string{
	entity.Member:       "Member",
	entity.Group:        "Group",
	entity.Friendship:   "Friendship",
	entity.ProfileGroup: "ProfileGroup",
	entity.ProfileField: "ProfileField",
	entity.Blog:         "Blog",
	entity.Attachment:   "Attachment",
}

func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	e, ok := value.(entity.Entity)
	if !ok {
		return "", fmt.Errorf("graph: cannot resolve %s for %T", abstractType, value)
	}
	name, ok := typeNames[e.Kind()]
	if !ok {
		return "", fmt.Errorf("graph: kind %s has no object type", e.Kind())
	}
	return name, nil
}

func (r *Runtime) SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string, bool, int, int32, int64, float32, float64:
		return v, nil
	case *string:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	default:
		return nil, fmt.Errorf("graph: cannot serialize %T as %s", value, scalarOrEnumTypeName)
	}
}

type viewerKey struct{}

// WithViewer returns a copy of parent authenticated as member id. Zero means
// anonymous.
func WithViewer(parent context.Context, id int64) context.Context {
	return context.WithValue(parent, viewerKey{}, id)
}

// Viewer returns the authenticated member id carried by ctx, or 0.
func Viewer(ctx context.Context) int64 {
	id, _ := ctx.Value(viewerKey{}).(int64)
	return id
}
