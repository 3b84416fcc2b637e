// Package schema is the executable form of the GraphQL schema: named types
// with their fields, arguments and directives, plus the marker telling the
// executor which fields resolve through the request's batch queue.
package schema

import "github.com/vektah/gqlparser/v2/ast"

type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            map[string]*Type
	Directives       map[string]*Directive
	Description      string

	// Document is the validated source schema, used to validate queries.
	// Nil for schemas assembled in code.
	Document *ast.Schema `json:"-"`
}

func (s *Schema) GetQueryType() *Type        { return s.Types[s.QueryType] }
func (s *Schema) GetMutationType() *Type     { return s.Types[s.MutationType] }
func (s *Schema) GetSubscriptionType() *Type { return s.Types[s.SubscriptionType] }

type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// Type is a named type. Which of the member slices are populated depends on
// Kind: Fields and Interfaces for objects and interfaces, PossibleTypes for
// abstract types, EnumValues for enums and InputFields for inputs.
type Type struct {
	Name           string
	Kind           TypeKind
	Description    string
	Fields         []*Field
	Interfaces     []string
	PossibleTypes  []string
	EnumValues     []*EnumValue
	InputFields    []*InputValue
	SpecifiedByURL *string
	OneOf          bool

	// BuiltIn is set on the scalars every schema carries. Render omits them.
	BuiltIn bool
}

type Field struct {
	Name        string
	Description string
	Type        *TypeRef
	Arguments   []*InputValue
	// Async fields return a deferred value from the runtime; the executor
	// settles them once per depth by draining the request's queue.
	Async             bool
	IsDeprecated      bool
	DeprecationReason string
}

type EnumValue struct {
	Name              string
	Description       string
	IsDeprecated      bool
	DeprecationReason string
}

// InputValue is an argument or an input object field. DefaultValue holds
// the coerced Go value, not the literal.
type InputValue struct {
	Name              string
	Description       string
	Type              *TypeRef
	DefaultValue      any
	IsDeprecated      bool
	DeprecationReason string
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue
	IsRepeatable bool
	BuiltIn      bool
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

// TypeRef is a possibly wrapped reference to a named type. List and NonNull
// refs wrap OfType; named refs carry Named.
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef
	Named  string
}

func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

func (t *TypeRef) IsNonNull() bool { return t != nil && t.Kind == TypeRefKindNonNull }

// IsList reports a list, including a non-null list.
func (t *TypeRef) IsList() bool {
	switch {
	case t == nil:
		return false
	case t.Kind == TypeRefKindNonNull:
		return t.OfType.IsList()
	default:
		return t.Kind == TypeRefKindList
	}
}

// Unwrap strips one List or NonNull layer.
func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNamed {
		return t
	}
	return t.OfType
}

func (t *TypeRef) GetNamedType() string {
	for t != nil && t.Kind != TypeRefKindNamed {
		t = t.OfType
	}
	if t == nil {
		return ""
	}
	return t.Named
}

func IsNonNull(t *TypeRef) bool     { return t.IsNonNull() }
func IsList(t *TypeRef) bool        { return t.IsList() }
func Unwrap(t *TypeRef) *TypeRef    { return t.Unwrap() }
func GetNamedType(t *TypeRef) string { return t.GetNamedType() }
