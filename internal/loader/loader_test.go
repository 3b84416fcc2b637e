package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hanpama/socialgraph/internal/deferred"
	"github.com/hanpama/socialgraph/internal/entity"
	"github.com/hanpama/socialgraph/internal/eventbus"
	"github.com/hanpama/socialgraph/internal/events"
	"github.com/hanpama/socialgraph/internal/failure"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeStore records each fetch and serves members from a fixed set.
type fakeStore struct {
	members map[int64]*entity.MemberRecord
	calls   [][]int64
	err     error
}

func (s *fakeStore) fetch(ctx context.Context, ids []int64) (map[int64]entity.Entity, error) {
	s.calls = append(s.calls, append([]int64(nil), ids...))
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[int64]entity.Entity, len(ids))
	for _, id := range ids {
		if m, ok := s.members[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func newStore(ids ...int64) *fakeStore {
	s := &fakeStore{members: map[int64]*entity.MemberRecord{}}
	for _, id := range ids {
		s.members[id] = &entity.MemberRecord{ID: id}
	}
	return s
}

func memberID(t *testing.T, v *deferred.Value[entity.Entity]) int64 {
	t.Helper()
	e, err := v.Result()
	require.NoError(t, err)
	if e == nil {
		return 0
	}
	return e.EntityID()
}

func TestLoadCoalescesIntoOneFetch(t *testing.T) {
	store := newStore(1, 2, 3)
	q := deferred.NewQueue()
	l := New(entity.Member, store.fetch, q)

	a := l.Load(1)
	b := l.Load(2)
	again := l.Load(1)
	require.Same(t, a, again)
	require.False(t, a.Settled())

	require.Equal(t, 1, q.Drain(context.Background()))
	require.Equal(t, [][]int64{{1, 2}}, store.calls)
	require.Equal(t, int64(1), memberID(t, a))
	require.Equal(t, int64(2), memberID(t, b))

	// cached across drains
	require.Same(t, a, l.Load(1))
	require.Equal(t, 0, q.Drain(context.Background()))
	require.Len(t, store.calls, 1)
}

func TestBufferThenLoadSharesBatch(t *testing.T) {
	store := newStore(4, 5, 6)
	q := deferred.NewQueue()
	l := New(entity.Member, store.fetch, q)

	l.Buffer(6, 4, 6)
	v := l.Load(5)
	q.Drain(context.Background())

	if diff := cmp.Diff([][]int64{{6, 4, 5}}, store.calls); diff != "" {
		t.Fatalf("fetch calls mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, int64(5), memberID(t, v))
}

func TestMissingIDsSettleWithNil(t *testing.T) {
	store := newStore(1)
	q := deferred.NewQueue()
	l := New(entity.Member, store.fetch, q)

	found := l.Load(1)
	missing := l.Load(99)
	q.Drain(context.Background())

	require.Equal(t, int64(1), memberID(t, found))
	e, err := missing.Result()
	require.NoError(t, err)
	require.Nil(t, e)
}

func TestNonPositiveIDsNeverFetch(t *testing.T) {
	store := newStore()
	q := deferred.NewQueue()
	l := New(entity.Member, store.fetch, q)

	v := l.Load(0)
	l.Buffer(-3)
	require.True(t, v.Settled())
	require.False(t, q.Pending())
	require.Empty(t, store.calls)
}

func TestFetchErrorRejectsBatchAndAllowsRetry(t *testing.T) {
	boom := errors.New("database is locked")
	store := newStore(1)
	store.err = boom
	q := deferred.NewQueue()
	l := New(entity.Member, store.fetch, q)

	v := l.Load(1)
	q.Drain(context.Background())
	_, err := v.Result()
	require.ErrorIs(t, err, failure.ErrBackend)
	require.ErrorIs(t, err, boom)

	store.err = nil
	retry := l.Load(1)
	require.NotSame(t, v, retry)
	q.Drain(context.Background())
	require.Equal(t, int64(1), memberID(t, retry))
	require.Len(t, store.calls, 2)
}

func TestCancelledContextRejectsWithoutFetch(t *testing.T) {
	store := newStore(1)
	q := deferred.NewQueue()
	l := New(entity.Member, store.fetch, q)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v := l.Load(1)
	q.Drain(ctx)

	_, err := v.Result()
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, store.calls)
}

func TestPrimeAndClear(t *testing.T) {
	store := newStore(1, 2)
	q := deferred.NewQueue()
	l := New(entity.Member, store.fetch, q)

	primed := &entity.MemberRecord{ID: 2, Name: "primed"}
	l.Prime(primed)
	v := l.Load(2)
	e, err := v.Result()
	require.NoError(t, err)
	require.Same(t, primed, e)

	// prime while in flight settles the pending value and skips the fetch
	inflight := l.Load(1)
	l.Prime(&entity.MemberRecord{ID: 1, Name: "fresh"})
	q.Drain(context.Background())
	e, err = inflight.Result()
	require.NoError(t, err)
	require.Equal(t, "fresh", e.(*entity.MemberRecord).Name)
	require.Empty(t, store.calls)

	l.Clear(2)
	reloaded := l.Load(2)
	q.Drain(context.Background())
	require.Equal(t, int64(2), memberID(t, reloaded))
	require.Equal(t, [][]int64{{2}}, store.calls)
}

func TestClearWhilePendingFetchesOnce(t *testing.T) {
	store := newStore(7)
	q := deferred.NewQueue()
	l := New(entity.Member, store.fetch, q)

	first := l.Load(7)
	l.Clear(7)
	second := l.Load(7)
	require.NotSame(t, first, second)

	q.Drain(context.Background())
	require.Equal(t, [][]int64{{7}}, store.calls)
	require.Equal(t, int64(7), memberID(t, first))
	require.Equal(t, int64(7), memberID(t, second))
}

func TestTypedNilSettlesAsMissing(t *testing.T) {
	q := deferred.NewQueue()
	l := New(entity.Member, func(ctx context.Context, ids []int64) (map[int64]entity.Entity, error) {
		var m *entity.MemberRecord
		return map[int64]entity.Entity{ids[0]: m}, nil
	}, q)

	v := l.Load(4)
	q.Drain(context.Background())
	e, err := v.Result()
	require.NoError(t, err)
	require.True(t, e == nil, "got %#v", e)
}

func TestLoadMany(t *testing.T) {
	store := newStore(1, 3)
	q := deferred.NewQueue()
	l := New(entity.Member, store.fetch, q)

	all := l.LoadMany([]int64{3, 2, 1})
	q.Drain(context.Background())
	got, err := all.Result()
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, int64(3), got[0].EntityID())
	require.Nil(t, got[1])
	require.Equal(t, int64(1), got[2].EntityID())
	require.Equal(t, [][]int64{{3, 2, 1}}, store.calls)
}

func TestFlushPublishesEvent(t *testing.T) {
	bus := eventbus.New()
	eventbus.Use(bus)
	t.Cleanup(func() { eventbus.Use(nil) })

	var got []events.LoaderFlush
	eventbus.SubscribeTo(bus, func(ctx context.Context, e events.LoaderFlush) { got = append(got, e) })

	store := newStore(7)
	q := deferred.NewQueue()
	l := New(entity.Member, store.fetch, q)
	l.Load(7)
	l.Load(8)
	q.Drain(context.Background())

	require.Len(t, got, 1)
	require.Equal(t, "member", got[0].Kind)
	require.Equal(t, []int64{7, 8}, got[0].IDs)
	require.Equal(t, 1, got[0].Found)
	require.NoError(t, got[0].Err)
}
