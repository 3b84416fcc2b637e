package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
)

const testSDL = `
interface Node {
  id: ID!
}

type Query {
  node(id: ID!): Node @batch
  members(first: Int, after: String, where: MembersWhere): MemberConnection @batch
}

"""
A registered member.
"""
type Member implements Node {
  id: ID!
  name: String
  slug: String @deprecated(reason: "use name")
}

type MemberConnection {
  nodes: [Member] @batch
  pageInfo: PageInfo!
}

type PageInfo {
  hasNextPage: Boolean!
  endCursor: String
}

input MembersWhere {
  exclude: [Int]
  search: String = ""
  limit: Int = 3
}

enum GroupStatus {
  PUBLIC
  PRIVATE
  HIDDEN
}

scalar DateTime
`

func mustBuild(t *testing.T, sdl string) *Schema {
	t.Helper()
	s, err := BuildFromSDL(&ast.Source{Name: "test.graphql", Input: sdl})
	require.NoError(t, err)
	return s
}

func TestBuildFromSDL(t *testing.T) {
	s := mustBuild(t, testSDL)

	require.Equal(t, "Query", s.QueryType)
	require.Empty(t, s.MutationType)
	require.NotNil(t, s.Document)

	q := s.GetQueryType()
	require.NotNil(t, q)
	require.True(t, q.Field("node").Async)
	require.True(t, q.Field("members").Async)
	require.Nil(t, q.Field("__schema"))

	member := s.Types["Member"]
	require.Equal(t, TypeKindObject, member.Kind)
	require.Equal(t, []string{"Node"}, member.Interfaces)
	require.Equal(t, "A registered member.", member.Description)
	require.False(t, member.Field("name").Async)
	require.True(t, member.Field("slug").IsDeprecated)
	require.Equal(t, "use name", member.Field("slug").DeprecationReason)

	node := s.Types["Node"]
	require.Equal(t, TypeKindInterface, node.Kind)
	require.Equal(t, []string{"Member"}, node.PossibleTypes)

	where := s.Types["MembersWhere"]
	require.Equal(t, TypeKindInputObject, where.Kind)
	require.Len(t, where.InputFields, 3)
	require.Equal(t, "", where.InputFields[1].DefaultValue)
	require.Equal(t, 3, where.InputFields[2].DefaultValue)

	args := q.Field("members").Arguments
	if diff := cmp.Diff([]string{"first", "after", "where"}, []string{args[0].Name, args[1].Name, args[2].Name}); diff != "" {
		t.Fatalf("argument order mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "MembersWhere", GetNamedType(args[2].Type))

	pageInfo := s.Types["PageInfo"]
	require.True(t, IsNonNull(pageInfo.Field("hasNextPage").Type))

	nodes := s.Types["MemberConnection"].Field("nodes")
	require.True(t, IsList(nodes.Type))
	require.Equal(t, "Member", GetNamedType(nodes.Type))

	require.Equal(t, TypeKindEnum, s.Types["GroupStatus"].Kind)
	require.Len(t, s.Types["GroupStatus"].EnumValues, 3)
	require.Equal(t, TypeKindScalar, s.Types["DateTime"].Kind)
	require.True(t, s.Types["String"].BuiltIn)
	require.NotEmpty(t, s.Types["String"].Description)
	require.False(t, s.Types["DateTime"].BuiltIn)
	require.True(t, s.Directives["include"].BuiltIn)
	require.True(t, s.Directives[BatchDirective].BuiltIn)
	require.Nil(t, s.Types["__Schema"])
}

func TestBuildFromSDLRejectsInvalidSchema(t *testing.T) {
	_, err := BuildFromSDL(&ast.Source{Name: "bad.graphql", Input: `type Query { member: Missing }`})
	require.Error(t, err)
}

func TestRenderRoundTrip(t *testing.T) {
	s := mustBuild(t, testSDL)
	rendered := Render(s)
	require.Contains(t, rendered, "node(id: ID!): Node @batch")
	require.Contains(t, rendered, `slug: String @deprecated(reason: "use name")`)
	require.NotContains(t, rendered, "directive @batch")
	require.NotContains(t, rendered, "scalar String")
	require.Contains(t, rendered, "scalar DateTime")
	require.Contains(t, rendered, `search: String = ""`)

	again := Render(mustBuild(t, rendered))
	if diff := cmp.Diff(rendered, again); diff != "" {
		t.Fatalf("render is not stable (-first +second):\n%s", diff)
	}
}

func TestConstructors(t *testing.T) {
	s := NewSchema("")
	q := NewType("Query", TypeKindObject, "").
		AddField(NewField("a", "", NamedType("String")).SetAsync(true).
			AddArgument(NewInputValue("n", "", NamedType("Int")).SetDefault(1)))
	s.SetQueryType("Query").AddType(q)

	require.Same(t, q, s.GetQueryType())
	require.True(t, q.Field("a").Async)
	require.Equal(t, 1, q.Field("a").Arguments[0].DefaultValue)
	require.Nil(t, s.GetMutationType())
	require.Len(t, NewFieldMap(NewField("x", "", NamedType("ID"))), 1)
}

func TestRenderCodeBuiltSchema(t *testing.T) {
	s := NewSchema("").SetQueryType("Root").
		AddType(NewType("Root", TypeKindObject, "").
			AddField(NewField("groups", "", ListType(NamedType("String"))).
				AddArgument(NewInputValue("status", "", NamedType("GroupStatus")).SetDefault("PUBLIC")).
				AddArgument(NewInputValue("exclude", "", ListType(NamedType("Int"))).SetDefault([]any{1, nil})))).
		AddType(NewType("GroupStatus", TypeKindEnum, "").
			AddEnumValue(NewEnumValue("PUBLIC", "")).
			AddEnumValue(NewEnumValue("HIDDEN", "").Deprecate(""))).
		AddDirective(NewDirective("audit", "Logged on use.").AddLocation("FIELD").SetRepeatable(true))

	rendered := Render(s)
	for _, want := range []string{
		"schema {\n  query: Root\n}",
		`directive @audit repeatable on FIELD`,
		"groups(status: GroupStatus = PUBLIC, exclude: [Int] = [1,null]): [String]",
		"HIDDEN @deprecated",
	} {
		require.Contains(t, rendered, want)
	}

	rebuilt := mustBuild(t, rendered)
	require.Equal(t, "Root", rebuilt.QueryType)
	require.Equal(t, "PUBLIC", rebuilt.Types["Root"].Field("groups").Arguments[0].DefaultValue)
	if diff := cmp.Diff(rendered, Render(rebuilt)); diff != "" {
		t.Fatalf("render is not stable (-first +second):\n%s", diff)
	}
}
