package introspection

import (
	"maps"
	"strings"
	"sync"

	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/hanpama/socialgraph/internal/schema"
)

// metaTypes converts the __-prefixed types declared by the gqlparser prelude
// so that the executable schema and query validation agree on their shape.
var metaTypes = sync.OnceValue(func() []*schema.Type {
	doc, err := parser.ParseSchema(validator.Prelude)
	if err != nil {
		panic("introspection: prelude: " + err.Error())
	}
	var types []*schema.Type
	for _, def := range doc.Definitions {
		if strings.HasPrefix(def.Name, "__") {
			types = append(types, schema.BuildType(def))
		}
	}
	return types
})

func metaFields() []*schema.Field {
	return []*schema.Field{
		schema.NewField("__schema", "Access the current type schema of this server.",
			schema.NonNullType(schema.NamedType("__Schema"))),
		schema.NewField("__type", "Request the type information of a single type.", schema.NamedType("__Type")).
			AddArgument(schema.NewInputValue("name", "", schema.NonNullType(schema.NamedType("String")))),
	}
}

// extend returns a copy of sch carrying the meta types, with __schema and
// __type added to a copy of the query type. sch itself is not modified.
func extend(sch *schema.Schema) *schema.Schema {
	out := *sch
	out.Types = maps.Clone(sch.Types)
	if out.Types == nil {
		out.Types = make(map[string]*schema.Type)
	}
	for _, t := range metaTypes() {
		out.Types[t.Name] = t
	}
	if q := sch.GetQueryType(); q != nil {
		root := *q
		root.Fields = append(append([]*schema.Field(nil), q.Fields...), metaFields()...)
		out.Types[root.Name] = &root
	}
	return &out
}
