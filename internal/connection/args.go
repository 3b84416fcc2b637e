package connection

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/hanpama/socialgraph/internal/cursor"
	"github.com/hanpama/socialgraph/internal/failure"
)

// Args are the pagination and filter arguments of a connection field.
type Args struct {
	First  *int
	Last   *int
	After  *string
	Before *string
	// Filters holds the members of the field's where input.
	Filters map[string]any
}

// Limits bound page sizes.
type Limits struct {
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultLimits match the page sizes served when nothing is configured.
var DefaultLimits = Limits{DefaultPageSize: 10, MaxPageSize: 100}

type Direction uint8

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// FilterType is the accepted shape of a filter value.
type FilterType uint8

const (
	FilterInt FilterType = iota + 1
	FilterIntList
	FilterBool
	FilterString
	FilterStringList
)

func (t FilterType) String() string {
	switch t {
	case FilterInt:
		return "Int"
	case FilterIntList:
		return "[Int]"
	case FilterBool:
		return "Boolean"
	case FilterString:
		return "String"
	case FilterStringList:
		return "[String]"
	default:
		return "unknown"
	}
}

// FilterSpec lists the filters a relationship accepts.
type FilterSpec map[string]FilterType

// PageRequest is a validated page query handed to a FetchPageFunc.
type PageRequest struct {
	SourceID  int64
	Direction Direction
	// After and Before are exclusive bounds. Both may be set.
	After  *cursor.Key
	Before *cursor.Key
	// Limit is the page size plus one extra row that reports whether more remain.
	Limit int
	// Filters are normalized to int64, []int64, bool, string or []string.
	Filters map[string]any
}

// PageSize is the number of edges the page may hold.
func (r PageRequest) PageSize() int { return r.Limit - 1 }

// Validate checks args against spec and limits and builds the page request
// for sourceID.
func Validate(sourceID int64, args Args, spec FilterSpec, limits Limits) (PageRequest, error) {
	if limits.MaxPageSize <= 0 {
		limits.MaxPageSize = DefaultLimits.MaxPageSize
	}
	if limits.DefaultPageSize <= 0 {
		limits.DefaultPageSize = DefaultLimits.DefaultPageSize
	}

	req := PageRequest{SourceID: sourceID, Direction: Forward}
	if args.First != nil && args.Last != nil {
		return PageRequest{}, failure.InvalidArgument("first and last cannot be used together")
	}

	size := min(limits.DefaultPageSize, limits.MaxPageSize)
	switch {
	case args.First != nil:
		n := *args.First
		if n < 0 {
			return PageRequest{}, failure.InvalidArgument("first must be a non-negative integer, got %d", n)
		}
		if n > limits.MaxPageSize {
			return PageRequest{}, failure.InvalidArgument("first must not exceed %d, got %d", limits.MaxPageSize, n)
		}
		size = n
	case args.Last != nil:
		n := *args.Last
		if n < 0 {
			return PageRequest{}, failure.InvalidArgument("last must be a non-negative integer, got %d", n)
		}
		if n > limits.MaxPageSize {
			return PageRequest{}, failure.InvalidArgument("last must not exceed %d, got %d", limits.MaxPageSize, n)
		}
		size = n
		req.Direction = Backward
	}
	req.Limit = size + 1

	if args.After != nil {
		k, err := cursor.Decode(*args.After)
		if err != nil {
			return PageRequest{}, fmt.Errorf("after: %w", err)
		}
		req.After = &k
	}
	if args.Before != nil {
		k, err := cursor.Decode(*args.Before)
		if err != nil {
			return PageRequest{}, fmt.Errorf("before: %w", err)
		}
		req.Before = &k
	}

	filters, err := normalizeFilters(args.Filters, spec)
	if err != nil {
		return PageRequest{}, err
	}
	req.Filters = filters
	return req, nil
}

// checkSortKind rejects bounds whose sort value is not of kind. Zero kind
// accepts any bound.
func (r PageRequest) checkSortKind(kind cursor.ValueKind) error {
	if kind == 0 {
		return nil
	}
	for _, b := range []struct {
		name string
		key  *cursor.Key
	}{{"after", r.After}, {"before", r.Before}} {
		if b.key != nil && b.key.Sort.Kind != kind {
			return failure.InvalidCursor("%s: cursor sort kind %q does not match %q", b.name, b.key.Sort.Kind, kind)
		}
	}
	return nil
}

func normalizeFilters(in map[string]any, spec FilterSpec) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for name, raw := range in {
		typ, ok := spec[name]
		if !ok {
			return nil, failure.InvalidArgument("unknown filter %q", name)
		}
		if raw == nil {
			continue
		}
		v, ok := normalize(typ, raw)
		if !ok {
			return nil, failure.InvalidArgument("filter %q expects %s, got %T", name, typ, raw)
		}
		out[name] = v
	}
	return out, nil
}

func normalize(typ FilterType, raw any) (any, bool) {
	switch typ {
	case FilterInt:
		return toInt64(raw)
	case FilterBool:
		b, ok := raw.(bool)
		return b, ok
	case FilterString:
		s, ok := raw.(string)
		return s, ok
	case FilterIntList:
		items, ok := toList(raw)
		if !ok {
			return nil, false
		}
		out := make([]int64, 0, len(items))
		for _, item := range items {
			n, ok := toInt64(item)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	case FilterStringList:
		if ss, ok := raw.([]string); ok {
			return append([]string(nil), ss...), true
		}
		items, ok := toList(raw)
		if !ok {
			return nil, false
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func toInt64(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

func toList(raw any) ([]any, bool) {
	switch l := raw.(type) {
	case []any:
		return l, true
	case []int:
		out := make([]any, len(l))
		for i, n := range l {
			out[i] = n
		}
		return out, true
	case []int64:
		out := make([]any, len(l))
		for i, n := range l {
			out[i] = n
		}
		return out, true
	default:
		return nil, false
	}
}

// key identifies a page request within one resolver.
func (r PageRequest) key() string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(r.SourceID, 10))
	b.WriteByte('|')
	b.WriteString(r.Direction.String())
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(r.Limit))
	b.WriteByte('|')
	if r.After != nil {
		b.WriteString(cursor.Encode(*r.After))
	}
	b.WriteByte('|')
	if r.Before != nil {
		b.WriteString(cursor.Encode(*r.Before))
	}
	names := make([]string, 0, len(r.Filters))
	for name := range r.Filters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "|%s=%v", name, r.Filters[name])
	}
	return b.String()
}
