// Package factory is the dispatch table from entity kinds and relations to
// their loaders and connection resolvers.
//
// A Registry is built once at startup and shared. A Session is created per
// request from it; the session owns the request's loaders and resolvers,
// creating each lazily the first time a kind or relation is used, so every
// field of one request shares the same caches and batches.
package factory

import (
	"context"
	"fmt"
	"sort"

	"github.com/hanpama/socialgraph/internal/connection"
	"github.com/hanpama/socialgraph/internal/cursor"
	"github.com/hanpama/socialgraph/internal/deferred"
	"github.com/hanpama/socialgraph/internal/entity"
	"github.com/hanpama/socialgraph/internal/failure"
	"github.com/hanpama/socialgraph/internal/loader"
)

// Relationship registers a connection from Relation.From to Target.
type Relationship struct {
	Relation entity.Relation
	Target   entity.Kind
	Filters  connection.FilterSpec
	Fetch    connection.FetchPageFunc
	// SortKind is the kind of sort value the relation's cursors carry.
	SortKind cursor.ValueKind
}

type Registry struct {
	kinds     map[entity.Kind]loader.FetchFunc
	relations map[entity.Relation]Relationship
}

func NewRegistry() *Registry {
	return &Registry{
		kinds:     make(map[entity.Kind]loader.FetchFunc),
		relations: make(map[entity.Relation]Relationship),
	}
}

// RegisterKind sets the batch fetch function for kind.
func (r *Registry) RegisterKind(kind entity.Kind, fetch loader.FetchFunc) error {
	if kind == entity.Root {
		return fmt.Errorf("kind %s cannot be loaded", kind)
	}
	if fetch == nil {
		return fmt.Errorf("kind %s: nil fetch function", kind)
	}
	if _, ok := r.kinds[kind]; ok {
		return fmt.Errorf("kind %s is already registered", kind)
	}
	r.kinds[kind] = fetch
	return nil
}

// RegisterRelation adds a connection. The target kind must be registered
// first.
func (r *Registry) RegisterRelation(rel Relationship) error {
	if rel.Fetch == nil {
		return fmt.Errorf("relation %s: nil fetch function", rel.Relation)
	}
	if _, ok := r.relations[rel.Relation]; ok {
		return fmt.Errorf("relation %s is already registered", rel.Relation)
	}
	if _, ok := r.kinds[rel.Target]; !ok {
		return fmt.Errorf("relation %s: target kind %s has no loader", rel.Relation, rel.Target)
	}
	r.relations[rel.Relation] = rel
	return nil
}

// Relations lists registered relations in a stable order.
func (r *Registry) Relations() []entity.Relation {
	out := make([]entity.Relation, 0, len(r.relations))
	for rel := range r.relations {
		out = append(out, rel)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// NewSession starts a request scope draining through queue.
func (r *Registry) NewSession(queue *deferred.Queue, limits connection.Limits) *Session {
	return &Session{
		registry:  r,
		queue:     queue,
		limits:    limits,
		loaders:   make(map[entity.Kind]*loader.Loader),
		resolvers: make(map[entity.Relation]*connection.Resolver),
	}
}

// Session is the request-scoped resolution context. It is not safe for
// concurrent use.
type Session struct {
	registry  *Registry
	queue     *deferred.Queue
	limits    connection.Limits
	loaders   map[entity.Kind]*loader.Loader
	resolvers map[entity.Relation]*connection.Resolver
}

func (s *Session) Queue() *deferred.Queue { return s.queue }

// Loader returns the request's loader for kind.
func (s *Session) Loader(kind entity.Kind) (*loader.Loader, error) {
	if l, ok := s.loaders[kind]; ok {
		return l, nil
	}
	fetch, ok := s.registry.kinds[kind]
	if !ok {
		return nil, failure.InvalidArgument("no loader registered for kind %s", kind)
	}
	l := loader.New(kind, fetch, s.queue)
	s.loaders[kind] = l
	return l, nil
}

// Resolver returns the request's resolver for rel.
func (s *Session) Resolver(rel entity.Relation) (*connection.Resolver, error) {
	if r, ok := s.resolvers[rel]; ok {
		return r, nil
	}
	def, ok := s.registry.relations[rel]
	if !ok {
		return nil, failure.InvalidArgument("unknown connection %s", rel)
	}
	nodes, err := s.Loader(def.Target)
	if err != nil {
		return nil, err
	}
	r := connection.NewResolver(connection.Config{
		Relation: def.Relation,
		Filters:  def.Filters,
		Fetch:    def.Fetch,
		Limits:   s.limits,
		SortKind: def.SortKind,
	}, nodes, s.queue)
	s.resolvers[rel] = r
	return r, nil
}

// ResolveNode returns the deferred entity of kind with id. Ids below 1 settle
// with nil without a fetch.
func (s *Session) ResolveNode(kind entity.Kind, id int64) *deferred.Value[entity.Entity] {
	if id <= 0 {
		return deferred.Resolve[entity.Entity](nil)
	}
	l, err := s.Loader(kind)
	if err != nil {
		return deferred.Reject[entity.Entity](err)
	}
	return l.Load(id)
}

// ResolveConnection returns the deferred page of rel hanging off sourceID.
func (s *Session) ResolveConnection(rel entity.Relation, sourceID int64, args connection.Args) *deferred.Value[*connection.Page] {
	r, err := s.Resolver(rel)
	if err != nil {
		return deferred.Reject[*connection.Page](err)
	}
	return r.Resolve(sourceID, args)
}

type sessionKey struct{}

// NewContext returns a copy of parent carrying s.
func NewContext(parent context.Context, s *Session) context.Context {
	return context.WithValue(parent, sessionKey{}, s)
}

// FromContext returns the session carried by ctx.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok
}
