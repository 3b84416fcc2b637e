// Package loader implements the request-scoped batching entity loader.
//
// A Loader collects ids requested while a query walks one level of the
// response tree and fetches them in a single call when its queue drains.
// Every id is fetched at most once per request: repeated loads share one
// deferred value.
package loader

import (
	"context"
	"reflect"
	"time"

	"github.com/hanpama/socialgraph/internal/deferred"
	"github.com/hanpama/socialgraph/internal/entity"
	"github.com/hanpama/socialgraph/internal/eventbus"
	"github.com/hanpama/socialgraph/internal/events"
	"github.com/hanpama/socialgraph/internal/failure"
)

// FetchFunc returns the entities found for ids. Ids missing from the result
// are absent, which is not an error.
type FetchFunc func(ctx context.Context, ids []int64) (map[int64]entity.Entity, error)

type pendingLoad struct {
	id    int64
	value *deferred.Value[entity.Entity]
}

// Loader batches lookups of one entity kind. It belongs to one request and is
// not safe for concurrent use.
type Loader struct {
	kind    entity.Kind
	fetch   FetchFunc
	queue   *deferred.Queue
	cache   map[int64]*deferred.Value[entity.Entity]
	pending []pendingLoad
}

func New(kind entity.Kind, fetch FetchFunc, queue *deferred.Queue) *Loader {
	return &Loader{
		kind:  kind,
		fetch: fetch,
		queue: queue,
		cache: make(map[int64]*deferred.Value[entity.Entity]),
	}
}

func (l *Loader) Kind() entity.Kind { return l.kind }

// Buffer registers ids for the next flush. Ids already cached or in flight
// are skipped, as are non-positive ids.
func (l *Loader) Buffer(ids ...int64) {
	added := false
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := l.cache[id]; ok {
			continue
		}
		v := deferred.New[entity.Entity]()
		l.cache[id] = v
		l.pending = append(l.pending, pendingLoad{id: id, value: v})
		added = true
	}
	if added {
		l.queue.Enqueue(deferred.StageLoad, l)
	}
}

// Load returns the deferred entity for id. The value settles with nil when
// the entity does not exist.
func (l *Loader) Load(id int64) *deferred.Value[entity.Entity] {
	if id <= 0 {
		return deferred.Resolve[entity.Entity](nil)
	}
	l.Buffer(id)
	return l.cache[id]
}

// LoadMany loads ids and keeps their order.
func (l *Loader) LoadMany(ids []int64) *deferred.Value[[]entity.Entity] {
	l.Buffer(ids...)
	vs := make([]*deferred.Value[entity.Entity], len(ids))
	for i, id := range ids {
		vs[i] = l.Load(id)
	}
	return deferred.All(vs)
}

// Prime stores e as the result for its id. A load already in flight settles
// with e immediately.
func (l *Loader) Prime(e entity.Entity) {
	if e == nil {
		return
	}
	id := e.EntityID()
	if v, ok := l.cache[id]; ok && !v.Settled() {
		v.Settle(e, nil)
		return
	}
	l.cache[id] = deferred.Resolve(e)
}

// Clear forgets id so the next load fetches it again. Loads already in
// flight still settle.
func (l *Loader) Clear(id int64) {
	delete(l.cache, id)
}

// Flush fetches every pending id in one call and settles their values.
func (l *Loader) Flush(ctx context.Context) {
	batch := l.pending
	l.pending = nil
	var ids []int64
	seen := make(map[int64]bool, len(batch))
	for _, p := range batch {
		// primed while pending, or cleared and loaded again
		if p.value.Settled() || seen[p.id] {
			continue
		}
		seen[p.id] = true
		ids = append(ids, p.id)
	}
	if len(ids) == 0 {
		return
	}

	if err := ctx.Err(); err != nil {
		l.reject(batch, err)
		return
	}

	start := time.Now()
	found, err := l.fetch(ctx, ids)
	if err != nil {
		err = failure.Backend("load "+l.kind.String(), err)
	}
	eventbus.Publish(ctx, events.LoaderFlush{
		Kind:     l.kind.String(),
		IDs:      ids,
		Found:    len(found),
		Err:      err,
		Duration: time.Since(start),
	})
	if err != nil {
		l.reject(batch, err)
		return
	}
	for _, p := range batch {
		e := found[p.id]
		if isNil(e) {
			p.value.Settle(nil, nil)
			continue
		}
		p.value.Settle(e, nil)
	}
}

// isNil also catches a nil pointer stored in the interface, which a fetch
// function may return for a row it could not build.
func isNil(e entity.Entity) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// reject fails the batch and drops it from the cache so later loads retry.
func (l *Loader) reject(batch []pendingLoad, err error) {
	for _, p := range batch {
		if p.value.Settled() {
			continue
		}
		if l.cache[p.id] == p.value {
			delete(l.cache, p.id)
		}
		p.value.Settle(nil, err)
	}
}
