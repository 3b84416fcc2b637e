package sqlite_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hanpama/socialgraph/internal/connection"
	"github.com/hanpama/socialgraph/internal/cursor"
	"github.com/hanpama/socialgraph/internal/deferred"
	"github.com/hanpama/socialgraph/internal/entity"
	"github.com/hanpama/socialgraph/internal/factory"
	"github.com/hanpama/socialgraph/internal/failure"
	"github.com/hanpama/socialgraph/internal/store/sqlite"
	"github.com/hanpama/socialgraph/internal/store/sqlite/sqlitetest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func ids(rows []connection.Row) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.NodeID
	}
	return out
}

func fetch(t *testing.T, f connection.FetchPageFunc, req connection.PageRequest) []int64 {
	t.Helper()
	if req.Limit == 0 {
		req.Limit = 11
	}
	rows, err := f(context.Background(), req)
	require.NoError(t, err)
	return ids(rows)
}

func TestMigrateIsIdempotent(t *testing.T) {
	ds := sqlitetest.New(t)
	v, err := ds.Version(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), v)

	v, err = ds.Migrate(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), v)
	require.NoError(t, ds.IsReady(context.Background()))
}

func TestFetchByIDs(t *testing.T) {
	ds := sqlitetest.NewDemo(t)
	ctx := context.Background()

	members, err := ds.FetchMembers(ctx, []int64{1, 2, 99})
	require.NoError(t, err)
	require.Len(t, members, 2)
	alice := members[1].(*entity.MemberRecord)
	require.Equal(t, "Alice Adams", alice.Name)
	require.Equal(t, []string{"student"}, alice.MemberTypes)
	require.Equal(t, int64(1), alice.AvatarID)
	require.Equal(t, int64(2), alice.CoverID)
	require.Equal(t, []string{"staff"}, members[2].(*entity.MemberRecord).MemberTypes)

	groups, err := ds.FetchGroups(ctx, []int64{3})
	require.NoError(t, err)
	require.Equal(t, &entity.GroupRecord{
		ID: 3, CreatorID: 1, ParentID: 1, Name: "Secret Society", Slug: "secret-society",
		Status: "hidden", DateCreated: "2021-03-01 00:00:00",
	}, groups[3])

	fields, err := ds.FetchProfileFields(ctx, []int64{5})
	require.NoError(t, err)
	require.True(t, fields[5].(*entity.ProfileFieldRecord).IsDefaultOption)

	empty, err := ds.FetchBlogs(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestMembersPage(t *testing.T) {
	ds := sqlitetest.NewDemo(t)
	page := ds.MembersPage()

	rows, err := page(context.Background(), connection.PageRequest{Limit: 3})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, ids(rows))
	require.Equal(t, cursor.Key{Sort: cursor.Text("2020-02-01 09:00:00"), ID: 2}, rows[1].Key)

	require.Equal(t, []int64{3, 4, 5}, fetch(t, page, connection.PageRequest{After: &rows[1].Key, Limit: 3}))
	require.Equal(t, []int64{5, 4, 3}, fetch(t, page, connection.PageRequest{Direction: connection.Backward, Limit: 3}))
	require.Equal(t, []int64{1}, fetch(t, page, connection.PageRequest{Direction: connection.Backward, Before: &rows[1].Key}))

	both := fetch(t, page, connection.PageRequest{After: &rows[0].Key, Before: &rows[2].Key})
	require.Equal(t, []int64{2}, both)
}

func TestPageFilters(t *testing.T) {
	ds := sqlitetest.NewDemo(t)

	tests := []struct {
		name    string
		page    connection.FetchPageFunc
		source  int64
		filters map[string]any
		want    []int64
	}{
		{"members include", ds.MembersPage(), 0, map[string]any{"include": []int64{3, 1}}, []int64{1, 3}},
		{"members exclude", ds.MembersPage(), 0, map[string]any{"exclude": []int64{1, 2}}, []int64{3, 4, 5}},
		{"members type", ds.MembersPage(), 0, map[string]any{"memberType": []string{"student"}}, []int64{1, 4}},
		{"members search", ds.MembersPage(), 0, map[string]any{"search": "car"}, []int64{3}},
		{"members search escapes", ds.MembersPage(), 0, map[string]any{"search": "%"}, []int64{}},
		{"groups by name", ds.GroupsPage(), 0, nil, []int64{1, 2, 3}},
		{"groups status", ds.GroupsPage(), 0, map[string]any{"status": []string{"public", "hidden"}}, []int64{1, 3}},
		{"groups parent", ds.GroupsPage(), 0, map[string]any{"parent": int64(1)}, []int64{3}},
		{"member groups", ds.MemberGroupsPage(), 1, nil, []int64{1, 2, 3}},
		{"member groups admin", ds.MemberGroupsPage(), 1, map[string]any{"isAdmin": true}, []int64{1, 3}},
		{"unconfirmed member has no groups", ds.MemberGroupsPage(), 4, nil, []int64{}},
		{"group members", ds.GroupMembersPage(), 1, nil, []int64{1, 2, 3}},
		{"group mods", ds.GroupMembersPage(), 1, map[string]any{"roles": []string{"mod"}}, []int64{2}},
		{"group plain members", ds.GroupMembersPage(), 1, map[string]any{"roles": []string{"member", "admin"}}, []int64{1, 3}},
		{"group unknown role", ds.GroupMembersPage(), 1, map[string]any{"roles": []string{"banned"}}, []int64{}},
		{"group members exclude", ds.GroupMembersPage(), 1, map[string]any{"exclude": []int64{1}}, []int64{2, 3}},
		{"friendships", ds.FriendshipsPage(), 1, nil, []int64{1, 2, 3}},
		{"confirmed friendships", ds.FriendshipsPage(), 1, map[string]any{"isConfirmed": true}, []int64{1, 2}},
		{"profile groups", ds.ProfileGroupsPage(), 0, map[string]any{"exclude": []int64{2}}, []int64{1}},
		{"profile fields by position", ds.ProfileFieldsPage(), 1, nil, []int64{1, 7, 2}},
		{"profile fields exclude", ds.ProfileFieldsPage(), 1, map[string]any{"excludeFields": []int64{1}}, []int64{7, 2}},
		{"hide empty fields", ds.ProfileFieldsPage(), 1, map[string]any{"hideEmptyFields": true, "member": int64(2)}, []int64{1}},
		{"hide empty without member", ds.ProfileFieldsPage(), 1, map[string]any{"hideEmptyFields": true}, []int64{1, 7, 2}},
		{"field options", ds.FieldOptionsPage(), 2, nil, []int64{3, 4, 5}},
		{"blogs", ds.BlogsPage(), 0, nil, []int64{1, 2, 3}},
		{"blogs admin", ds.BlogsPage(), 0, map[string]any{"admin": int64(1)}, []int64{1, 3}},
		{"blogs search", ds.BlogsPage(), 0, map[string]any{"search": "news"}, []int64{3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := fetch(t, tc.page, connection.PageRequest{SourceID: tc.source, Filters: tc.filters})
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestForeignCursorIsRejected(t *testing.T) {
	ds := sqlitetest.NewDemo(t)
	key := cursor.IDKey(1)
	_, err := ds.MembersPage()(context.Background(), connection.PageRequest{After: &key, Limit: 2})
	require.ErrorIs(t, err, failure.ErrInvalidCursor)
}

func TestDeleteFriendship(t *testing.T) {
	ds := sqlitetest.NewDemo(t)
	ctx := context.Background()

	f, err := ds.FriendshipBetween(ctx, 2, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), f.ID)

	_, err = ds.FriendshipBetween(ctx, 1, 5)
	require.ErrorIs(t, err, failure.ErrNotFound)

	require.NoError(t, ds.DeleteFriendship(ctx, f.ID))
	require.ErrorIs(t, ds.DeleteFriendship(ctx, f.ID), failure.ErrNotFound)

	left, err := ds.FetchFriendships(ctx, []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, left, 1)
}

func TestInsertCollision(t *testing.T) {
	ds := sqlitetest.NewDemo(t)
	err := ds.InsertMember(context.Background(), &entity.MemberRecord{ID: 9, Name: "Other", Slug: "alice", Registered: "2024-01-01 00:00:00"})
	require.ErrorIs(t, err, sqlite.ErrCollision)

	members, err := ds.FetchMembers(context.Background(), []int64{9})
	require.NoError(t, err)
	require.Empty(t, members)
}

func TestRegisterServesSessions(t *testing.T) {
	ds := sqlitetest.NewDemo(t)
	r := factory.NewRegistry()
	require.NoError(t, ds.Register(r))
	require.Len(t, r.Relations(), 9)

	q := deferred.NewQueue()
	s := r.NewSession(q, connection.DefaultLimits)
	first := 2
	pv := s.ResolveConnection(entity.GroupMembers, 1, connection.Args{First: &first})
	mv := s.ResolveNode(entity.Member, 5)
	q.Drain(context.Background())

	page, err := pv.Result()
	require.NoError(t, err)
	require.True(t, page.PageInfo.HasNextPage)
	names := []string{}
	for _, n := range page.Nodes() {
		e, err := n.Result()
		require.NoError(t, err)
		names = append(names, e.(*entity.MemberRecord).Name)
	}
	require.Equal(t, []string{"Alice Adams", "Bob Brown"}, names)

	m, err := mv.Result()
	require.NoError(t, err)
	require.Equal(t, "erin", m.(*entity.MemberRecord).Slug)
}
