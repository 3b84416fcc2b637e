package executor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/socialgraph/internal/deferred"
	schema "github.com/hanpama/socialgraph/internal/schema"
)

var (
	alice = map[string]any{"__typename": "Member", "id": 1, "name": "alice"}
	bob   = map[string]any{"__typename": "Member", "id": 2, "name": "bob"}
	carol = map[string]any{"__typename": "Member", "id": 3, "name": "carol"}
	chess = map[string]any{"__typename": "Group", "id": 10, "name": "chess"}

	membersByID = map[int]map[string]any{1: alice, 2: bob, 3: carol}
	friendsOf   = map[int][]any{1: {bob, carol}, 2: {alice}, 3: {}}
)

func communitySchema() *schema.Schema {
	id := func() *schema.Field { return schema.NewField("id", "", schema.NonNullType(schema.NamedType("Int"))) }
	name := func() *schema.Field { return schema.NewField("name", "", schema.NamedType("String")) }
	idArg := func(n string) *schema.InputValue {
		return schema.NewInputValue(n, "", schema.NonNullType(schema.NamedType("Int")))
	}

	member := newObjectType("Member",
		id(),
		name(),
		schema.NewField("friends", "", schema.ListType(schema.NamedType("Member"))).
			SetAsync(true).
			AddArgument(schema.NewInputValue("first", "", schema.NamedType("Int")).SetDefault(2)),
	).AddInterface("Node")
	group := newObjectType("Group", id(), name()).AddInterface("Node")
	node := schema.NewType("Node", schema.TypeKindInterface, "").
		AddField(id()).
		AddPossibleType("Member").
		AddPossibleType("Group")

	query := newObjectType("Query",
		schema.NewField("version", "", schema.NamedType("String")),
		schema.NewField("viewer", "", schema.NamedType("Member")),
		schema.NewField("member", "", schema.NamedType("Member")).SetAsync(true).AddArgument(idArg("id")),
		schema.NewField("node", "", schema.NamedType("Node")).SetAsync(true).AddArgument(idArg("id")),
	)
	mutation := newObjectType("Mutation",
		schema.NewField("joinGroup", "", schema.NamedType("String")).AddArgument(idArg("groupId")),
		schema.NewField("leaveGroup", "", schema.NamedType("String")).AddArgument(idArg("groupId")),
	)

	sch := newSchemaWithQueryType(query, member, group, node, mutation,
		newScalarType("Int"), newScalarType("String"))
	sch.SetMutationType("Mutation")
	return sch
}

func prop(name string) MockResolver {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		return source.(map[string]any)[name], nil
	}
}

func communityResolvers() map[string]MockResolver {
	return map[string]MockResolver{
		"Query.version": NewMockValueResolver("1.0"),
		"Query.viewer":  NewMockValueResolver(carol),
		"Query.member": func(ctx context.Context, source any, args map[string]any) (any, error) {
			return membersByID[args["id"].(int)], nil
		},
		"Query.node": func(ctx context.Context, source any, args map[string]any) (any, error) {
			if args["id"] == 10 {
				return chess, nil
			}
			return membersByID[args["id"].(int)], nil
		},
		"Member.id":   prop("id"),
		"Member.name": prop("name"),
		"Member.friends": func(ctx context.Context, source any, args map[string]any) (any, error) {
			friends := friendsOf[source.(map[string]any)["id"].(int)]
			if first := args["first"].(int); first < len(friends) {
				friends = friends[:first]
			}
			return friends, nil
		},
		"Group.id":   prop("id"),
		"Group.name": prop("name"),
	}
}

// executeWithQueue runs query against rt with a queue the test can inspect.
func executeWithQueue(t *testing.T, rt Runtime, sch *schema.Schema, query string, vars map[string]any) (*ExecutionResult, *deferred.Queue) {
	t.Helper()
	q := deferred.NewQueue()
	ctx := deferred.NewContext(context.Background(), q)
	return NewExecutor(rt, sch).ExecuteRequest(ctx, mustParseQuery(t, query), "", vars, nil), q
}

func asyncCalls(calls []Call) []Call {
	var out []Call
	for _, c := range calls {
		if c.Kind == CallKindAsync {
			out = append(out, c)
		}
	}
	return out
}

func TestSyncFieldsResolveBeforeAsyncBatch(t *testing.T) {
	rt := NewMockRuntime(communityResolvers())
	result, q := executeWithQueue(t, rt, communitySchema(), `{
		version
		member(id: 1) { name }
		viewer { name }
	}`, nil)

	require.Empty(t, result.Errors)
	want := map[string]any{
		"version": "1.0",
		"member":  map[string]any{"name": "alice"},
		"viewer":  map[string]any{"name": "carol"},
	}
	if diff := cmp.Diff(want, result.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}

	wantCalls := []Call{
		{Kind: CallKindSync, ObjectType: "Query", Field: "version", Args: map[string]any{}},
		{Kind: CallKindSync, ObjectType: "Query", Field: "viewer", Args: map[string]any{}},
		{Kind: CallKindSync, ObjectType: "Member", Field: "name", Source: carol, Args: map[string]any{}},
		{Kind: CallKindAsync, ObjectType: "Query", Field: "member", Args: map[string]any{"id": 1}, BatchID: 1},
		{Kind: CallKindSync, ObjectType: "Member", Field: "name", Source: alice, Args: map[string]any{}},
	}
	if diff := cmp.Diff(wantCalls, rt.GetCalls()); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 1, q.Flushes())
}

func TestAsyncFieldsFlushOncePerDepth(t *testing.T) {
	rt := NewMockRuntime(communityResolvers())
	result, q := executeWithQueue(t, rt, communitySchema(), `{
		a: member(id: 1) { friends { name friends(first: 1) { name } } }
		b: member(id: 2) { friends { name } }
	}`, nil)

	require.Empty(t, result.Errors)
	want := map[string]any{
		"a": map[string]any{"friends": []any{
			map[string]any{"name": "bob", "friends": []any{map[string]any{"name": "alice"}}},
			map[string]any{"name": "carol", "friends": []any{}},
		}},
		"b": map[string]any{"friends": []any{
			map[string]any{"name": "alice"},
		}},
	}
	if diff := cmp.Diff(want, result.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}

	wantAsync := []Call{
		{Kind: CallKindAsync, ObjectType: "Query", Field: "member", Args: map[string]any{"id": 1}, BatchID: 1},
		{Kind: CallKindAsync, ObjectType: "Query", Field: "member", Args: map[string]any{"id": 2}, BatchID: 1},
		{Kind: CallKindAsync, ObjectType: "Member", Field: "friends", Source: alice, Args: map[string]any{"first": 2}, BatchID: 2},
		{Kind: CallKindAsync, ObjectType: "Member", Field: "friends", Source: bob, Args: map[string]any{"first": 2}, BatchID: 2},
		{Kind: CallKindAsync, ObjectType: "Member", Field: "friends", Source: bob, Args: map[string]any{"first": 1}, BatchID: 3},
		{Kind: CallKindAsync, ObjectType: "Member", Field: "friends", Source: carol, Args: map[string]any{"first": 1}, BatchID: 3},
	}
	if diff := cmp.Diff(wantAsync, asyncCalls(rt.GetCalls())); diff != "" {
		t.Fatalf("async calls mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 3, q.Flushes())
}

func TestRepeatedFieldResolvesOnce(t *testing.T) {
	rt := NewMockRuntime(communityResolvers())
	result, q := executeWithQueue(t, rt, communitySchema(), `{
		member(id: 2) { name }
		...M
	}
	fragment M on Query { member(id: 2) { id } }`, nil)

	require.Empty(t, result.Errors)
	want := map[string]any{"member": map[string]any{"name": "bob", "id": 2}}
	if diff := cmp.Diff(want, result.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, asyncCalls(rt.GetCalls()), 1)
	require.Equal(t, 1, q.Flushes())
}

func TestVariablesReachAsyncArgs(t *testing.T) {
	rt := NewMockRuntime(communityResolvers())
	result, _ := executeWithQueue(t, rt, communitySchema(),
		`query ($who: Int!, $n: Int) { member(id: $who) { friends(first: $n) { name } } }`,
		map[string]any{"who": 1, "n": 1})

	require.Empty(t, result.Errors)
	want := map[string]any{"member": map[string]any{"friends": []any{map[string]any{"name": "bob"}}}}
	if diff := cmp.Diff(want, result.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	got := asyncCalls(rt.GetCalls())
	require.Len(t, got, 2)
	require.Equal(t, map[string]any{"id": 1}, got[0].Args)
	require.Equal(t, map[string]any{"first": 1}, got[1].Args)
	require.Equal(t, alice, got[1].Source)
}

func TestAbstractFieldResolvesConcreteType(t *testing.T) {
	rt := NewMockRuntime(communityResolvers())
	SetSerializer(rt, func(val any, t schema.TypeRef) (any, error) {
		if s, ok := val.(string); ok && t.Named == "String" {
			return strings.ToUpper(s), nil
		}
		return val, nil
	})
	result, q := executeWithQueue(t, rt, communitySchema(), `{
		m: node(id: 1) { __typename id ... on Member { name } }
		g: node(id: 10) { __typename id ... on Group { name } ... on Member { friends { id } } }
	}`, nil)

	require.Empty(t, result.Errors)
	want := map[string]any{
		"m": map[string]any{"__typename": "Member", "id": 1, "name": "ALICE"},
		"g": map[string]any{"__typename": "Group", "id": 10, "name": "CHESS"},
	}
	if diff := cmp.Diff(want, result.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	// the Member-only friends selection never reaches the runtime for a Group
	require.Len(t, asyncCalls(rt.GetCalls()), 2)
	require.Equal(t, 1, q.Flushes())
}

func TestMutationFieldsRunInOrder(t *testing.T) {
	var log []string
	record := func(action string, fail bool) MockResolver {
		return func(ctx context.Context, source any, args map[string]any) (any, error) {
			log = append(log, action)
			if fail {
				return nil, errors.New(action + " failed")
			}
			return action, nil
		}
	}
	rt := NewMockRuntime(map[string]MockResolver{
		"Mutation.joinGroup":  record("join", false),
		"Mutation.leaveGroup": record("leave", true),
	})
	sch := communitySchema()
	doc := mustParseQuery(t, `mutation {
		first: joinGroup(groupId: 1)
		leaveGroup(groupId: 2)
		again: joinGroup(groupId: 3)
	}`)

	result := NewExecutor(rt, sch).ExecuteRequest(context.Background(), doc, "", nil, nil)

	require.Equal(t, []string{"join", "leave", "join"}, log)
	want := &ExecutionResult{
		Data: map[string]any{"first": "join", "leaveGroup": nil, "again": "join"},
		Errors: []GraphQLError{
			{Message: "leave failed", Path: Path{"leaveGroup"}},
		},
	}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	wantArgs := []map[string]any{{"groupId": 1}, {"groupId": 2}, {"groupId": 3}}
	var gotArgs []map[string]any
	for _, c := range rt.GetCalls() {
		gotArgs = append(gotArgs, c.Args)
	}
	if diff := cmp.Diff(wantArgs, gotArgs); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestCancelledContextRejectsPendingFields(t *testing.T) {
	rt := NewMockRuntime(communityResolvers())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewExecutor(rt, communitySchema()).ExecuteRequest(ctx,
		mustParseQuery(t, `{ version member(id: 1) { name } }`), "", nil, nil)

	want := &ExecutionResult{
		Data: map[string]any{"version": "1.0", "member": nil},
		Errors: []GraphQLError{
			{Message: context.Canceled.Error(), Path: Path{"member"}, Extensions: map[string]any{"code": "CANCELLED"}},
		},
	}
	if diff := cmp.Diff(want, result, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	require.Empty(t, asyncCalls(rt.GetCalls()))
}
