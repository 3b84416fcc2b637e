// Package deferred provides a single-threaded placeholder for results that are
// not known yet, and the queue that settles them.
//
// A Value is returned to the caller immediately and settled exactly once by
// whatever batch owns it. Nothing in this package starts goroutines: a Queue
// is drained by the execution pass that owns it, and every callback runs on
// that pass's goroutine. Values are not safe for concurrent use.
package deferred

import "errors"

// ErrPending is returned by Result while a Value is unsettled.
var ErrPending = errors.New("deferred value is not settled")

// Value is a result that becomes known later.
type Value[T any] struct {
	settled bool
	value   T
	err     error
	waiters []func(T, error)
}

// New returns an unsettled Value.
func New[T any]() *Value[T] {
	return &Value[T]{}
}

// Resolve returns a Value already settled with v.
func Resolve[T any](v T) *Value[T] {
	return &Value[T]{settled: true, value: v}
}

// Reject returns a Value already settled with err.
func Reject[T any](err error) *Value[T] {
	return &Value[T]{settled: true, err: err}
}

// Settle records the outcome and runs waiters in registration order. Only the
// first call has an effect; it reports whether this call settled the Value.
func (v *Value[T]) Settle(val T, err error) bool {
	if v.settled {
		return false
	}
	v.settled = true
	v.value = val
	v.err = err
	waiters := v.waiters
	v.waiters = nil
	for _, fn := range waiters {
		fn(val, err)
	}
	return true
}

// Settled reports whether the Value has an outcome.
func (v *Value[T]) Settled() bool { return v.settled }

// Result returns the outcome, or ErrPending while unsettled.
func (v *Value[T]) Result() (T, error) {
	if !v.settled {
		var zero T
		return zero, ErrPending
	}
	return v.value, v.err
}

// OnSettle registers fn to run with the outcome. If the Value is already
// settled fn runs before OnSettle returns.
func (v *Value[T]) OnSettle(fn func(T, error)) {
	if v.settled {
		fn(v.value, v.err)
		return
	}
	v.waiters = append(v.waiters, fn)
}

// Map returns a Value settled with fn applied to v's value. Errors skip fn.
func Map[T, U any](v *Value[T], fn func(T) (U, error)) *Value[U] {
	out := New[U]()
	v.OnSettle(func(val T, err error) {
		if err != nil {
			var zero U
			out.Settle(zero, err)
			return
		}
		out.Settle(fn(val))
	})
	return out
}

// Then chains a computation that itself produces a Value. The returned Value
// settles as soon as the inner one does, without another drain round.
func Then[T, U any](v *Value[T], fn func(T) *Value[U]) *Value[U] {
	out := New[U]()
	v.OnSettle(func(val T, err error) {
		if err != nil {
			var zero U
			out.Settle(zero, err)
			return
		}
		fn(val).OnSettle(func(u U, err error) { out.Settle(u, err) })
	})
	return out
}

// All settles once every input settles, keeping input order. The first error
// in input order wins.
func All[T any](vs []*Value[T]) *Value[[]T] {
	out := New[[]T]()
	results := make([]T, len(vs))
	errs := make([]error, len(vs))
	remaining := len(vs)
	if remaining == 0 {
		out.Settle(results, nil)
		return out
	}
	for i, v := range vs {
		v.OnSettle(func(val T, err error) {
			results[i] = val
			errs[i] = err
			remaining--
			if remaining > 0 {
				return
			}
			for _, e := range errs {
				if e != nil {
					out.Settle(nil, e)
					return
				}
			}
			out.Settle(results, nil)
		})
	}
	return out
}

// Erase converts v into a Value[any] for runtimes that traffic in untyped
// field values.
func Erase[T any](v *Value[T]) *Value[any] {
	return Map(v, func(val T) (any, error) { return val, nil })
}
