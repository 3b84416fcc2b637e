// Package introspection answers __schema and __type queries from the
// executable schema and delegates every other field to the wrapped runtime.
package introspection

import (
	"cmp"
	"context"
	"slices"

	"github.com/hanpama/socialgraph/internal/deferred"
	"github.com/hanpama/socialgraph/internal/executor"
	"github.com/hanpama/socialgraph/internal/schema"
)

// Wrapper holds the wrapping runtime and the schema extended with the
// introspection types. Execute against both.
type Wrapper struct {
	Runtime executor.Runtime
	Schema  *schema.Schema
}

// Wrap returns a Runtime that handles GraphQL introspection fields.
func Wrap(base executor.Runtime, sch *schema.Schema) *Wrapper {
	return &Wrapper{
		Runtime: &runtime{base: base, schema: sch},
		Schema:  extend(sch),
	}
}

type runtime struct {
	base executor.Runtime
	// schema is the unextended schema; introspection does not list itself.
	schema *schema.Schema
}

var (
	_ executor.Runtime       = (*runtime)(nil)
	_ executor.RequestScoper = (*runtime)(nil)
)

func (r *runtime) BeginRequest(ctx context.Context) context.Context {
	if s, ok := r.base.(executor.RequestScoper); ok {
		return s.BeginRequest(ctx)
	}
	return ctx
}

func (r *runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	if v, ok := r.resolveMeta(source, field, args); ok {
		return v, nil
	}
	if objectType == r.schema.QueryType {
		switch field {
		case "__schema":
			return r.schema, nil
		case "__type":
			name, _ := args["name"].(string)
			if t := r.schema.Types[name]; t != nil {
				return t, nil
			}
			return nil, nil
		}
	}
	return r.base.ResolveSync(ctx, objectType, field, source, args)
}

func (r *runtime) ResolveAsync(ctx context.Context, task executor.AsyncResolveTask) *deferred.Value[any] {
	return r.base.ResolveAsync(ctx, task)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

func (r *runtime) SerializeLeafValue(ctx context.Context, typ string, value any) (any, error) {
	return r.base.SerializeLeafValue(ctx, typ, value)
}

// resolveMeta reports ok=false for sources that are not schema values, so
// the field falls through to the wrapped runtime.
func (r *runtime) resolveMeta(source any, field string, args map[string]any) (any, bool) {
	switch src := source.(type) {
	case *schema.Schema:
		return r.schemaField(src, field)
	case *schema.Type:
		return r.typeField(src, field, args)
	case *schema.TypeRef:
		return r.typeRefField(src, field, args)
	case *schema.Field:
		return r.fieldField(src, field, args)
	case *schema.InputValue:
		return r.inputValueField(src, field)
	case *schema.EnumValue:
		return enumValueField(src, field)
	case *schema.Directive:
		return directiveField(src, field, args)
	}
	return nil, false
}

func (r *runtime) schemaField(sch *schema.Schema, field string) (any, bool) {
	switch field {
	case "types":
		return sortedValues(sch.Types, func(t *schema.Type) string { return t.Name }), true
	case "queryType":
		return sch.GetQueryType(), true
	case "mutationType":
		return orNil(sch.GetMutationType()), true
	case "subscriptionType":
		return orNil(sch.GetSubscriptionType()), true
	case "directives":
		return sortedValues(sch.Directives, func(d *schema.Directive) string { return d.Name }), true
	case "description":
		return optional(sch.Description), true
	}
	return nil, false
}

func (r *runtime) typeField(t *schema.Type, field string, args map[string]any) (any, bool) {
	switch field {
	case "kind":
		return string(t.Kind), true
	case "name":
		return t.Name, true
	case "description":
		return optional(t.Description), true
	case "specifiedByURL":
		if t.SpecifiedByURL == nil {
			return nil, true
		}
		return *t.SpecifiedByURL, true
	case "fields":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, true
		}
		return visible(t.Fields, args, func(f *schema.Field) (string, bool) { return f.Name, f.IsDeprecated }), true
	case "interfaces":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, true
		}
		return r.named(t.Interfaces), true
	case "possibleTypes":
		if t.Kind != schema.TypeKindInterface && t.Kind != schema.TypeKindUnion {
			return nil, true
		}
		return r.named(t.PossibleTypes), true
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil, true
		}
		return visible(t.EnumValues, args, func(v *schema.EnumValue) (string, bool) { return v.Name, v.IsDeprecated }), true
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil, true
		}
		return visible(t.InputFields, args, inputValueKey), true
	case "isOneOf":
		return t.OneOf, true
	case "ofType":
		// named types only; wrappers are *schema.TypeRef
		return nil, true
	}
	return nil, false
}

func (r *runtime) typeRefField(ref *schema.TypeRef, field string, args map[string]any) (any, bool) {
	if ref.Kind == schema.TypeRefKindNamed {
		if t := r.schema.Types[ref.Named]; t != nil {
			return r.typeField(t, field, args)
		}
	}
	switch field {
	case "kind":
		return string(ref.Kind), true
	case "ofType":
		if ref.Kind == schema.TypeRefKindNamed {
			return nil, true
		}
		return ref.OfType, true
	case "name":
		if ref.Kind == schema.TypeRefKindNamed {
			return ref.Named, true
		}
		return nil, true
	}
	return nil, true
}

func (r *runtime) fieldField(f *schema.Field, field string, args map[string]any) (any, bool) {
	switch field {
	case "name":
		return f.Name, true
	case "description":
		return optional(f.Description), true
	case "args":
		return visible(f.Arguments, args, inputValueKey), true
	case "type":
		return f.Type, true
	case "isDeprecated":
		return f.IsDeprecated, true
	case "deprecationReason":
		return reason(f.IsDeprecated, f.DeprecationReason), true
	}
	return nil, false
}

func (r *runtime) inputValueField(v *schema.InputValue, field string) (any, bool) {
	switch field {
	case "name":
		return v.Name, true
	case "description":
		return optional(v.Description), true
	case "type":
		return v.Type, true
	case "defaultValue":
		return optional(r.schema.Literal(v.DefaultValue, v.Type)), true
	case "isDeprecated":
		return v.IsDeprecated, true
	case "deprecationReason":
		return reason(v.IsDeprecated, v.DeprecationReason), true
	}
	return nil, false
}

func enumValueField(v *schema.EnumValue, field string) (any, bool) {
	switch field {
	case "name":
		return v.Name, true
	case "description":
		return optional(v.Description), true
	case "isDeprecated":
		return v.IsDeprecated, true
	case "deprecationReason":
		return reason(v.IsDeprecated, v.DeprecationReason), true
	}
	return nil, false
}

func directiveField(d *schema.Directive, field string, args map[string]any) (any, bool) {
	switch field {
	case "name":
		return d.Name, true
	case "description":
		return optional(d.Description), true
	case "isRepeatable":
		return d.IsRepeatable, true
	case "locations":
		return slices.Sorted(slices.Values(d.Locations)), true
	case "args":
		return visible(d.Arguments, args, inputValueKey), true
	}
	return nil, false
}

// named looks up names in the schema, skipping unknown ones, sorted.
func (r *runtime) named(names []string) []*schema.Type {
	out := []*schema.Type{}
	for _, name := range slices.Sorted(slices.Values(names)) {
		if t := r.schema.Types[name]; t != nil {
			out = append(out, t)
		}
	}
	return out
}

// visible filters deprecated members unless includeDeprecated is set and
// sorts the rest by name.
func visible[T any](items []T, args map[string]any, key func(T) (string, bool)) []T {
	include, _ := args["includeDeprecated"].(bool)
	out := []T{}
	for _, item := range items {
		if _, deprecated := key(item); deprecated && !include {
			continue
		}
		out = append(out, item)
	}
	slices.SortFunc(out, func(a, b T) int {
		ka, _ := key(a)
		kb, _ := key(b)
		return cmp.Compare(ka, kb)
	})
	return out
}

func sortedValues[T any](m map[string]T, name func(T) string) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(name(a), name(b)) })
	return out
}

func inputValueKey(v *schema.InputValue) (string, bool) { return v.Name, v.IsDeprecated }

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func reason(deprecated bool, reason string) any {
	if !deprecated {
		return nil
	}
	return reason
}

// orNil keeps a missing root type from becoming a typed nil.
func orNil(t *schema.Type) any {
	if t == nil {
		return nil
	}
	return t
}
