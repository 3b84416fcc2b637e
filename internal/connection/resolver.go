// Package connection resolves Relay-style cursor connections over keyset
// pages.
//
// A Resolver serves one relationship for one request. Resolve validates the
// arguments and hands back a deferred page; identical requests share it.
// When the queue drains, each distinct request costs one page fetch of
// limit+1 rows. The extra row only decides hasNextPage (or hasPreviousPage
// when paginating backward) and is never returned. Edge nodes are buffered
// into the target kind's loader while the page is built, so they load in the
// same drain as every other lookup of that kind.
package connection

import (
	"context"
	"slices"
	"time"

	"github.com/hanpama/socialgraph/internal/cursor"
	"github.com/hanpama/socialgraph/internal/deferred"
	"github.com/hanpama/socialgraph/internal/entity"
	"github.com/hanpama/socialgraph/internal/eventbus"
	"github.com/hanpama/socialgraph/internal/events"
	"github.com/hanpama/socialgraph/internal/failure"
	"github.com/hanpama/socialgraph/internal/loader"
)

// Row is one fetched row: its ordering key and the id of the node it points
// to.
type Row struct {
	Key    cursor.Key
	NodeID int64
}

// FetchPageFunc returns up to req.Limit rows after req.After and before
// req.Before, ascending for Forward and descending for Backward requests.
type FetchPageFunc func(ctx context.Context, req PageRequest) ([]Row, error)

type Edge struct {
	Cursor string
	NodeID int64
	Node   *deferred.Value[entity.Entity]
}

type PageInfo struct {
	HasNextPage     bool
	HasPreviousPage bool
	StartCursor     *string
	EndCursor       *string
}

type Page struct {
	Edges    []Edge
	PageInfo PageInfo
}

// Nodes returns the edge nodes in display order.
func (p *Page) Nodes() []*deferred.Value[entity.Entity] {
	out := make([]*deferred.Value[entity.Entity], len(p.Edges))
	for i := range p.Edges {
		out[i] = p.Edges[i].Node
	}
	return out
}

// Config describes a relationship.
type Config struct {
	Relation entity.Relation
	Filters  FilterSpec
	Fetch    FetchPageFunc
	Limits   Limits
	// SortKind is the kind of the sort value in this relationship's cursors.
	// Cursors of another kind are rejected before any fetch. Zero accepts
	// either kind.
	SortKind cursor.ValueKind
}

type pendingPage struct {
	key   string
	req   PageRequest
	value *deferred.Value[*Page]
}

// Resolver is request scoped and not safe for concurrent use.
type Resolver struct {
	cfg      Config
	nodes    *loader.Loader
	queue    *deferred.Queue
	requests map[string]*deferred.Value[*Page]
	pending  []pendingPage
}

// NewResolver returns a resolver whose edges load nodes through nodes.
func NewResolver(cfg Config, nodes *loader.Loader, queue *deferred.Queue) *Resolver {
	return &Resolver{
		cfg:      cfg,
		nodes:    nodes,
		queue:    queue,
		requests: make(map[string]*deferred.Value[*Page]),
	}
}

func (r *Resolver) Relation() entity.Relation { return r.cfg.Relation }

// Resolve returns the page of the relationship hanging off sourceID. Invalid
// arguments reject the value immediately without a fetch.
func (r *Resolver) Resolve(sourceID int64, args Args) *deferred.Value[*Page] {
	req, err := Validate(sourceID, args, r.cfg.Filters, r.cfg.Limits)
	if err == nil {
		err = req.checkSortKind(r.cfg.SortKind)
	}
	if err != nil {
		return deferred.Reject[*Page](err)
	}
	key := req.key()
	if v, ok := r.requests[key]; ok {
		return v
	}
	v := deferred.New[*Page]()
	r.requests[key] = v
	r.pending = append(r.pending, pendingPage{key: key, req: req, value: v})
	r.queue.Enqueue(deferred.StageResolve, r)
	return v
}

// Flush fetches every pending page. Zero-size pages settle empty without a
// fetch.
func (r *Resolver) Flush(ctx context.Context) {
	batch := r.pending
	r.pending = nil
	for _, p := range batch {
		if err := ctx.Err(); err != nil {
			r.fail(p, err)
			continue
		}
		if p.req.PageSize() == 0 {
			p.value.Settle(r.buildPage(p.req, nil), nil)
			continue
		}
		start := time.Now()
		rows, err := r.cfg.Fetch(ctx, p.req)
		if err != nil {
			err = failure.Backend("fetch "+r.cfg.Relation.String(), err)
		}
		eventbus.Publish(ctx, events.ConnectionFetch{
			Relation: r.cfg.Relation.String(),
			SourceID: p.req.SourceID,
			Backward: p.req.Direction == Backward,
			Limit:    p.req.Limit,
			Rows:     len(rows),
			Err:      err,
			Duration: time.Since(start),
		})
		if err != nil {
			r.fail(p, err)
			continue
		}
		p.value.Settle(r.buildPage(p.req, rows), nil)
	}
}

func (r *Resolver) fail(p pendingPage, err error) {
	if r.requests[p.key] == p.value {
		delete(r.requests, p.key)
	}
	p.value.Settle(nil, err)
}

func (r *Resolver) buildPage(req PageRequest, rows []Row) *Page {
	size := req.PageSize()
	// an empty page says nothing about rows past its bound
	more := size > 0 && len(rows) > size
	if more {
		rows = rows[:size]
	}
	if req.Direction == Backward {
		rows = slices.Clone(rows)
		slices.Reverse(rows)
	}

	page := &Page{Edges: make([]Edge, len(rows))}
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.NodeID
	}
	r.nodes.Buffer(ids...)
	for i, row := range rows {
		page.Edges[i] = Edge{
			Cursor: cursor.Encode(row.Key),
			NodeID: row.NodeID,
			Node:   r.nodes.Load(row.NodeID),
		}
	}

	if req.Direction == Forward {
		page.PageInfo.HasNextPage = more
		page.PageInfo.HasPreviousPage = req.After != nil
	} else {
		page.PageInfo.HasPreviousPage = more
		page.PageInfo.HasNextPage = req.Before != nil
	}
	if n := len(page.Edges); n > 0 {
		start, end := page.Edges[0].Cursor, page.Edges[n-1].Cursor
		page.PageInfo.StartCursor = &start
		page.PageInfo.EndCursor = &end
	}
	return page
}
