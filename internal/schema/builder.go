package schema

import (
	"sort"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/hanpama/socialgraph/internal/language"
)

// BatchDirective marks a field definition whose resolver returns a deferred
// value. The executor resolves such fields level by level and drains the
// request's queue once per level.
const BatchDirective = "batch"

const batchDirectiveSDL = `"""
Resolve this field through the request's batch queue.
"""
directive @batch on FIELD_DEFINITION
`

// BuildFromSDL loads and validates SDL sources and builds the executable
// schema. Sources may use @batch without declaring it.
func BuildFromSDL(sources ...*ast.Source) (*Schema, error) {
	all := append([]*ast.Source{{Name: "batch.graphql", Input: batchDirectiveSDL}}, sources...)
	doc, err := language.LoadSchema(all...)
	if err != nil {
		return nil, err
	}
	return BuildFromAST(doc), nil
}

// BuildFromAST converts a validated gqlparser schema. The prelude scalars
// and directives come through marked BuiltIn, as does @batch.
func BuildFromAST(doc *ast.Schema) *Schema {
	s := NewSchema(doc.Description)
	if doc.Query != nil {
		s.SetQueryType(doc.Query.Name)
	}
	if doc.Mutation != nil {
		s.SetMutationType(doc.Mutation.Name)
	}
	if doc.Subscription != nil {
		s.SetSubscriptionType(doc.Subscription.Name)
	}
	s.Document = doc

	for _, name := range sortedKeys(doc.Types) {
		def := doc.Types[name]
		switch {
		case def.Kind == ast.Scalar:
			t := buildScalar(def)
			t.BuiltIn = def.BuiltIn
			s.AddType(t)
		case def.BuiltIn:
			// introspection types are added by the introspection package
		case def.Kind == ast.Object:
			s.AddType(buildObject(def))
		case def.Kind == ast.Interface:
			s.AddType(buildInterface(def, doc.PossibleTypes[def.Name]))
		case def.Kind == ast.Union:
			s.AddType(buildUnion(def))
		case def.Kind == ast.Enum:
			s.AddType(buildEnum(def))
		case def.Kind == ast.InputObject:
			s.AddType(buildInput(def))
		}
	}

	for _, name := range sortedKeys(doc.Directives) {
		def := doc.Directives[name]
		d := buildDirective(def)
		d.BuiltIn = name == BatchDirective || isBuiltinSource(def.Position)
		s.AddDirective(d)
	}
	return s
}

func buildObject(def *ast.Definition) *Type {
	t := NewType(def.Name, TypeKindObject, def.Description)
	for _, name := range def.Interfaces {
		t.AddInterface(name)
	}
	for _, fieldDef := range def.Fields {
		if len(fieldDef.Name) > 1 && fieldDef.Name[:2] == "__" {
			continue
		}
		t.AddField(buildField(fieldDef))
	}
	return t
}

func buildInterface(def *ast.Definition, possible []*ast.Definition) *Type {
	t := buildObject(def)
	t.Kind = TypeKindInterface
	names := make([]string, 0, len(possible))
	for _, p := range possible {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	for _, name := range names {
		t.AddPossibleType(name)
	}
	return t
}

func buildField(def *ast.FieldDefinition) *Field {
	f := NewField(def.Name, def.Description, buildTypeRef(def.Type)).
		SetAsync(def.Directives.ForName(BatchDirective) != nil)
	if reason, ok := deprecation(def.Directives); ok {
		f.Deprecate(reason)
	}
	for _, arg := range def.Arguments {
		f.AddArgument(buildArgument(arg))
	}
	return f
}

func buildArgument(def *ast.ArgumentDefinition) *InputValue {
	in := NewInputValue(def.Name, def.Description, buildTypeRef(def.Type)).
		SetDefault(defaultValue(def.DefaultValue))
	if reason, ok := deprecation(def.Directives); ok {
		in.Deprecate(reason)
	}
	return in
}

func buildEnum(def *ast.Definition) *Type {
	t := NewType(def.Name, TypeKindEnum, def.Description)
	for _, v := range def.EnumValues {
		e := NewEnumValue(v.Name, v.Description)
		if reason, ok := deprecation(v.Directives); ok {
			e.Deprecate(reason)
		}
		t.AddEnumValue(e)
	}
	return t
}

func buildInput(def *ast.Definition) *Type {
	t := NewType(def.Name, TypeKindInputObject, def.Description).
		SetOneOf(def.Directives.ForName("oneOf") != nil)
	for _, f := range def.Fields {
		in := NewInputValue(f.Name, f.Description, buildTypeRef(f.Type)).
			SetDefault(defaultValue(f.DefaultValue))
		if reason, ok := deprecation(f.Directives); ok {
			in.Deprecate(reason)
		}
		t.AddInputField(in)
	}
	return t
}

func buildUnion(def *ast.Definition) *Type {
	t := NewType(def.Name, TypeKindUnion, def.Description)
	names := append([]string(nil), def.Types...)
	sort.Strings(names)
	for _, name := range names {
		t.AddPossibleType(name)
	}
	return t
}

func buildScalar(def *ast.Definition) *Type {
	t := NewType(def.Name, TypeKindScalar, def.Description)
	if d := def.Directives.ForName("specifiedBy"); d != nil {
		if arg := d.Arguments.ForName("url"); arg != nil && arg.Value != nil {
			t.SetSpecifiedByURL(arg.Value.Raw)
		}
	}
	return t
}

func buildDirective(def *ast.DirectiveDefinition) *Directive {
	d := NewDirective(def.Name, def.Description).SetRepeatable(def.IsRepeatable)
	for _, loc := range def.Locations {
		d.AddLocation(string(loc))
	}
	for _, arg := range def.Arguments {
		d.AddArgument(buildArgument(arg))
	}
	return d
}

func buildTypeRef(t *ast.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(buildTypeRef(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		ref = NonNullType(ref)
	}
	return ref
}

func deprecation(dirs ast.DirectiveList) (string, bool) {
	d := dirs.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw, true
	}
	return "", true
}

// defaultValue converts a literal the way the executor coerces arguments:
// Int literals become int.
func defaultValue(v *ast.Value) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case ast.IntValue:
		n, _ := strconv.Atoi(v.Raw)
		return n
	case ast.FloatValue:
		f, _ := strconv.ParseFloat(v.Raw, 64)
		return f
	case ast.BooleanValue:
		return v.Raw == "true"
	case ast.NullValue:
		return nil
	case ast.ListValue:
		out := make([]any, len(v.Children))
		for i, c := range v.Children {
			out[i] = defaultValue(c.Value)
		}
		return out
	case ast.ObjectValue:
		out := make(map[string]any, len(v.Children))
		for _, c := range v.Children {
			out[c.Name] = defaultValue(c.Value)
		}
		return out
	default:
		return v.Raw
	}
}
