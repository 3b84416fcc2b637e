package executor

import (
	"slices"

	language "github.com/hanpama/socialgraph/internal/language"
	schema "github.com/hanpama/socialgraph/internal/schema"
)

// fieldGroup is every field node sharing one response name.
type fieldGroup struct {
	name   string
	fields []*language.Field
}

// collect groups the selections that apply to objectType by response name,
// in order of first appearance. Each named fragment is expanded once.
func (r *request) collect(objectType *schema.Type, set language.SelectionSet) []fieldGroup {
	var groups []fieldGroup
	index := make(map[string]int)
	visited := make(map[string]bool)

	var walk func(language.SelectionSet)
	walk = func(set language.SelectionSet) {
		for _, sel := range set {
			switch sel := sel.(type) {
			case *language.Field:
				if !r.included(sel.Directives) {
					continue
				}
				name := sel.Alias
				if name == "" {
					name = sel.Name
				}
				if i, ok := index[name]; ok {
					groups[i].fields = append(groups[i].fields, sel)
					continue
				}
				index[name] = len(groups)
				groups = append(groups, fieldGroup{name: name, fields: []*language.Field{sel}})

			case *language.InlineFragment:
				if r.included(sel.Directives) && r.applies(objectType, sel.TypeCondition) {
					walk(sel.SelectionSet)
				}

			case *language.FragmentSpread:
				if visited[sel.Name] || !r.included(sel.Directives) {
					continue
				}
				visited[sel.Name] = true
				def := r.document.Fragments.ForName(sel.Name)
				if def != nil && r.applies(objectType, def.TypeCondition) && r.included(def.Directives) {
					walk(def.SelectionSet)
				}
			}
		}
	}
	walk(set)
	return groups
}

// included evaluates @skip and @include.
func (r *request) included(directives language.DirectiveList) bool {
	if d := directives.ForName("skip"); d != nil && r.directiveArg(d, "if") == true {
		return false
	}
	if d := directives.ForName("include"); d != nil && r.directiveArg(d, "if") == false {
		return false
	}
	return true
}

func (r *request) directiveArg(d *language.Directive, name string) any {
	if arg := d.Arguments.ForName(name); arg != nil {
		return valueFromASTWithVars(arg.Value, r.vars)
	}
	return nil
}

// applies reports whether a fragment with the given type condition applies
// to objectType: the same object, an interface it implements or a union that
// contains it.
func (r *request) applies(objectType *schema.Type, condition string) bool {
	if condition == "" || condition == objectType.Name {
		return true
	}
	if slices.Contains(objectType.Interfaces, condition) {
		return true
	}
	if t := r.schema.Types[condition]; t != nil && t.Kind == schema.TypeKindUnion {
		return slices.Contains(t.PossibleTypes, objectType.Name)
	}
	return false
}
