package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
)

// Render prints s as SDL with types and directives sorted by name. Built-in
// scalars and directives are omitted, and fields resolved through the batch
// queue carry @batch so the output builds back into the same schema.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	formatter.NewFormatter(&b, formatter.WithIndent("  ")).FormatSchemaDocument(s.document())
	return b.String()
}

// document converts s back into the gqlparser AST that the formatter prints.
func (s *Schema) document() *ast.SchemaDocument {
	doc := &ast.SchemaDocument{}
	if s.needsSchemaDefinition() {
		def := &ast.SchemaDefinition{Description: s.Description}
		for _, root := range []struct {
			op   ast.Operation
			name string
		}{
			{ast.Query, s.QueryType},
			{ast.Mutation, s.MutationType},
			{ast.Subscription, s.SubscriptionType},
		} {
			if root.name != "" {
				def.OperationTypes = append(def.OperationTypes, &ast.OperationTypeDefinition{Operation: root.op, Type: root.name})
			}
		}
		doc.Schema = append(doc.Schema, def)
	}

	for _, name := range sortedKeys(s.Directives) {
		if d := s.Directives[name]; !d.BuiltIn {
			doc.Directives = append(doc.Directives, s.directiveDefinition(d))
		}
	}
	for _, name := range sortedKeys(s.Types) {
		if t := s.Types[name]; !t.BuiltIn {
			doc.Definitions = append(doc.Definitions, s.definition(t))
		}
	}
	return doc
}

func (s *Schema) needsSchemaDefinition() bool {
	return s.Description != "" ||
		(s.QueryType != "" && s.QueryType != "Query") ||
		(s.MutationType != "" && s.MutationType != "Mutation") ||
		(s.SubscriptionType != "" && s.SubscriptionType != "Subscription")
}

func (s *Schema) definition(t *Type) *ast.Definition {
	def := &ast.Definition{
		Description: t.Description,
		Name:        t.Name,
		Interfaces:  t.Interfaces,
	}
	switch t.Kind {
	case TypeKindScalar:
		def.Kind = ast.Scalar
		if t.SpecifiedByURL != nil {
			def.Directives = append(def.Directives, directive("specifiedBy", "url", stringValue(*t.SpecifiedByURL)))
		}
	case TypeKindObject, TypeKindInterface:
		def.Kind = ast.Object
		if t.Kind == TypeKindInterface {
			def.Kind = ast.Interface
		}
		for _, f := range t.Fields {
			def.Fields = append(def.Fields, s.fieldDefinition(f))
		}
	case TypeKindUnion:
		def.Kind = ast.Union
		def.Types = t.PossibleTypes
	case TypeKindEnum:
		def.Kind = ast.Enum
		for _, v := range t.EnumValues {
			def.EnumValues = append(def.EnumValues, &ast.EnumValueDefinition{
				Description: v.Description,
				Name:        v.Name,
				Directives:  deprecated(v.IsDeprecated, v.DeprecationReason),
			})
		}
	case TypeKindInputObject:
		def.Kind = ast.InputObject
		if t.OneOf {
			def.Directives = append(def.Directives, &ast.Directive{Name: "oneOf"})
		}
		for _, in := range t.InputFields {
			def.Fields = append(def.Fields, &ast.FieldDefinition{
				Description:  in.Description,
				Name:         in.Name,
				Type:         astType(in.Type),
				DefaultValue: s.literal(in.DefaultValue, in.Type),
				Directives:   deprecated(in.IsDeprecated, in.DeprecationReason),
			})
		}
	}
	return def
}

func (s *Schema) fieldDefinition(f *Field) *ast.FieldDefinition {
	def := &ast.FieldDefinition{
		Description: f.Description,
		Name:        f.Name,
		Type:        astType(f.Type),
		Arguments:   s.argumentDefinitions(f.Arguments),
		Directives:  deprecated(f.IsDeprecated, f.DeprecationReason),
	}
	if f.Async {
		def.Directives = append(def.Directives, &ast.Directive{Name: BatchDirective})
	}
	return def
}

func (s *Schema) argumentDefinitions(args []*InputValue) ast.ArgumentDefinitionList {
	var out ast.ArgumentDefinitionList
	for _, arg := range args {
		out = append(out, &ast.ArgumentDefinition{
			Description:  arg.Description,
			Name:         arg.Name,
			Type:         astType(arg.Type),
			DefaultValue: s.literal(arg.DefaultValue, arg.Type),
			Directives:   deprecated(arg.IsDeprecated, arg.DeprecationReason),
		})
	}
	return out
}

func (s *Schema) directiveDefinition(d *Directive) *ast.DirectiveDefinition {
	def := &ast.DirectiveDefinition{
		Description:  d.Description,
		Name:         d.Name,
		Arguments:    s.argumentDefinitions(d.Arguments),
		IsRepeatable: d.IsRepeatable,
		// the formatter reads Src to skip built-ins
		Position: &ast.Position{Src: &ast.Source{}},
	}
	for _, loc := range d.Locations {
		def.Locations = append(def.Locations, ast.DirectiveLocation(loc))
	}
	return def
}

// Literal prints v as a GraphQL value of type ref. It returns "" for nil.
func (s *Schema) Literal(v any, ref *TypeRef) string {
	if l := s.literal(v, ref); l != nil {
		return l.String()
	}
	return ""
}

// literal turns a coerced default back into a value of type ref. Enum
// defaults print unquoted.
func (s *Schema) literal(v any, ref *TypeRef) *ast.Value {
	if v == nil {
		return nil
	}
	if ref.IsNonNull() {
		ref = ref.OfType
	}
	switch v := v.(type) {
	case bool:
		return &ast.Value{Kind: ast.BooleanValue, Raw: strconv.FormatBool(v)}
	case int:
		return &ast.Value{Kind: ast.IntValue, Raw: strconv.Itoa(v)}
	case int64:
		return &ast.Value{Kind: ast.IntValue, Raw: strconv.FormatInt(v, 10)}
	case float64:
		return &ast.Value{Kind: ast.FloatValue, Raw: strconv.FormatFloat(v, 'g', -1, 64)}
	case string:
		if t := s.Types[ref.GetNamedType()]; t != nil && t.Kind == TypeKindEnum {
			return &ast.Value{Kind: ast.EnumValue, Raw: v}
		}
		return stringValue(v)
	case []any:
		list := &ast.Value{Kind: ast.ListValue}
		elem := ref
		if ref.Kind == TypeRefKindList {
			elem = ref.OfType
		}
		for _, item := range v {
			list.Children = append(list.Children, &ast.ChildValue{Value: nullable(s.literal(item, elem))})
		}
		return list
	case map[string]any:
		obj := &ast.Value{Kind: ast.ObjectValue}
		input := s.Types[ref.GetNamedType()]
		for _, name := range sortedKeys(v) {
			fieldType := NamedType("String")
			if input != nil {
				for _, f := range input.InputFields {
					if f.Name == name {
						fieldType = f.Type
					}
				}
			}
			obj.Children = append(obj.Children, &ast.ChildValue{Name: name, Value: nullable(s.literal(v[name], fieldType))})
		}
		return obj
	default:
		return stringValue(fmt.Sprint(v))
	}
}

func nullable(v *ast.Value) *ast.Value {
	if v == nil {
		return &ast.Value{Kind: ast.NullValue, Raw: "null"}
	}
	return v
}

func astType(ref *TypeRef) *ast.Type {
	switch {
	case ref == nil:
		return nil
	case ref.Kind == TypeRefKindNonNull:
		t := astType(ref.OfType)
		t.NonNull = true
		return t
	case ref.Kind == TypeRefKindList:
		return ast.ListType(astType(ref.OfType), nil)
	default:
		return ast.NamedType(ref.Named, nil)
	}
}

func deprecated(is bool, reason string) ast.DirectiveList {
	if !is {
		return nil
	}
	if reason == "" {
		return ast.DirectiveList{{Name: "deprecated"}}
	}
	return ast.DirectiveList{directive("deprecated", "reason", stringValue(reason))}
}

func directive(name, arg string, value *ast.Value) *ast.Directive {
	return &ast.Directive{Name: name, Arguments: ast.ArgumentList{{Name: arg, Value: value}}}
}

func stringValue(s string) *ast.Value {
	return &ast.Value{Kind: ast.StringValue, Raw: s}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
