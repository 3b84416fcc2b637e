package executor

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/hanpama/socialgraph/internal/deferred"
	language "github.com/hanpama/socialgraph/internal/language"
	schema "github.com/hanpama/socialgraph/internal/schema"
)

type Executor struct {
	runtime Runtime
	schema  *schema.Schema
}

func NewExecutor(runtime Runtime, schema *schema.Schema) *Executor {
	return &Executor{runtime: runtime, schema: schema}
}

// request is the state of one ExecuteRequest call.
type request struct {
	ctx      context.Context
	runtime  Runtime
	schema   *schema.Schema
	document *language.QueryDocument
	vars     map[string]any
	queue    *deferred.Queue

	data    map[string]any
	pending []pendingField
	errors  []GraphQLError
}

// pendingField is an async field waiting for the next drain.
type pendingField struct {
	task   AsyncResolveTask
	path   Path
	typ    *schema.TypeRef
	fields []*language.Field
	// boundary is the nearest position that may hold null. A non-null field
	// that completes to null writes null there instead.
	boundary Path
}

// unresolved holds the response slot of a pending field.
type unresolved struct{}

// ExecuteRequest executes one operation of document. Async fields resolve
// through the deferred queue carried by ctx; when ctx has none, a queue is
// created for this request.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	operation := getOperation(document, operationName)
	if operation == nil {
		return failed("operation not found")
	}
	vars, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return failed(err.Error())
	}
	rootType, err := e.rootType(operation.Operation)
	if err != nil {
		return failed(err.Error())
	}

	queue, ok := deferred.FromContext(ctx)
	if !ok {
		queue = deferred.NewQueue()
		ctx = deferred.NewContext(ctx, queue)
	}
	if scoper, ok := e.runtime.(RequestScoper); ok {
		ctx = scoper.BeginRequest(ctx)
	}

	r := &request{
		ctx:      ctx,
		runtime:  e.runtime,
		schema:   e.schema,
		document: document,
		vars:     vars,
		queue:    queue,
		errors:   []GraphQLError{},
	}
	r.data = r.executeSelectionSet(rootType, operation.SelectionSet, initialValue, Path{}, nil)
	for len(r.pending) > 0 {
		r.nextDepth()
	}
	return &ExecutionResult{Data: r.data, Errors: r.errors}
}

func failed(message string) *ExecutionResult {
	return &ExecutionResult{Errors: []GraphQLError{{Message: message}}}
}

func (e *Executor) rootType(op language.Operation) (*schema.Type, error) {
	var t *schema.Type
	switch op {
	case language.Query:
		t = e.schema.GetQueryType()
	case language.Mutation:
		t = e.schema.GetMutationType()
	case language.Subscription:
		t = e.schema.GetSubscriptionType()
	default:
		return nil, fmt.Errorf("unsupported operation type: %s", op)
	}
	if t == nil {
		return nil, fmt.Errorf("root type not found for %s operation", op)
	}
	return t, nil
}

func getOperation(document *language.QueryDocument, name string) *language.OperationDefinition {
	if name == "" {
		if len(document.Operations) == 1 {
			return document.Operations[0]
		}
		return nil
	}
	return document.Operations.ForName(name)
}

// executeSelectionSet resolves the sync fields of one object and queues its
// async fields. It returns nil when a non-null field below the root comes
// out null, leaving the caller to null the object. boundary is nil for the
// root, where each field is its own boundary.
func (r *request) executeSelectionSet(objectType *schema.Type, set language.SelectionSet, source any, path Path, boundary Path) map[string]any {
	out := make(map[string]any)
	for _, group := range r.collect(objectType, set) {
		fieldPath := path.append(group.name)
		if group.fields[0].Name == "__typename" {
			out[group.name] = objectType.Name
			continue
		}
		def := objectType.Field(group.fields[0].Name)
		if def == nil {
			r.errors = append(r.errors, GraphQLError{
				Message: fmt.Sprintf("Cannot query field '%s' on type '%s'", group.fields[0].Name, objectType.Name),
				Path:    fieldPath,
			})
			continue
		}

		args := r.coerceArgumentValues(def, group.fields[0].Arguments, fieldPath)
		if def.Async {
			fieldBoundary := boundary
			if fieldBoundary == nil || !schema.IsNonNull(def.Type) {
				fieldBoundary = fieldPath
			}
			r.pending = append(r.pending, pendingField{
				task: AsyncResolveTask{
					ObjectType: objectType.Name,
					Field:      def.Name,
					Source:     source,
					Args:       args,
				},
				path:     fieldPath,
				typ:      def.Type,
				fields:   group.fields,
				boundary: fieldBoundary,
			})
			out[group.name] = unresolved{}
			continue
		}

		value, err := r.runtime.ResolveSync(r.ctx, objectType.Name, def.Name, source, args)
		if err != nil {
			r.addFieldError(err, fieldPath)
			value = nil
		}
		completed := r.completeValue(def.Type, group.fields, value, fieldPath, boundary)
		if isNullish(completed) {
			if schema.IsNonNull(def.Type) && len(path) > 0 {
				return nil
			}
			completed = nil
		}
		out[group.name] = completed
	}
	return out
}

// nextDepth starts every pending field whose slot is still in the response,
// drains the queue once and completes the fields in the order they were
// queued. Fields found during completion form the following depth.
func (r *request) nextDepth() {
	var live []pendingField
	for _, p := range r.pending {
		if r.holds(p.path) {
			live = append(live, p)
		}
	}
	r.pending = nil

	values := make([]*deferred.Value[any], len(live))
	if err := r.ctx.Err(); err != nil {
		for i := range live {
			values[i] = deferred.Reject[any](err)
		}
	} else {
		for i, p := range live {
			if values[i] = r.runtime.ResolveAsync(r.ctx, p.task); values[i] == nil {
				values[i] = deferred.Resolve[any](nil)
			}
		}
		r.queue.Drain(r.ctx)
	}

	for i, p := range live {
		r.completeAsync(p, values[i])
	}
}

func (r *request) completeAsync(p pendingField, v *deferred.Value[any]) {
	// an earlier field of this depth may have nulled an ancestor
	if !r.holds(p.path) {
		return
	}
	value, err := v.Result()
	if errors.Is(err, deferred.ErrPending) {
		if err = r.ctx.Err(); err == nil {
			err = fmt.Errorf("field %s.%s was not resolved", p.task.ObjectType, p.task.Field)
		}
	}

	var completed any
	if err != nil {
		r.addFieldError(err, p.path)
	} else {
		completed = r.completeValue(p.typ, p.fields, value, p.path, p.boundary)
	}
	if isNullish(completed) {
		if schema.IsNonNull(p.typ) {
			r.assign(p.boundary, nil)
			return
		}
		completed = nil
	}
	r.assign(p.path, completed)
}

// completeValue shapes a resolved value to typ. Null positions nested
// inside it become the boundary for async fields below.
func (r *request) completeValue(typ *schema.TypeRef, fields []*language.Field, value any, path Path, boundary Path) any {
	if !schema.IsNonNull(typ) {
		if isNullish(value) {
			return nil
		}
		return r.completeNullable(typ, fields, value, path, path)
	}
	if isNullish(value) {
		if !r.hasErrorAt(path) {
			r.addError(fmt.Sprintf("Cannot return null for non-nullable field %s", path), path)
		}
		return nil
	}
	if boundary == nil {
		boundary = path
	}
	return r.completeNullable(typ.OfType, fields, value, path, boundary)
}

func (r *request) completeNullable(typ *schema.TypeRef, fields []*language.Field, value any, path Path, boundary Path) any {
	if typ.Kind == schema.TypeRefKindList {
		return r.completeList(typ.OfType, fields, value, path, boundary)
	}
	name := typ.GetNamedType()
	named := r.schema.Types[name]
	if named == nil {
		r.addError(fmt.Sprintf("Unknown type: %s", name), path)
		return nil
	}
	switch named.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		out, err := r.runtime.SerializeLeafValue(r.ctx, name, value)
		if err != nil {
			r.addFieldError(err, path)
			return nil
		}
		return out
	case schema.TypeKindObject:
		return r.executeSelectionSet(named, subSelection(fields), value, path, boundary)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		concrete, err := r.runtime.ResolveType(r.ctx, name, value)
		if err != nil {
			r.addError(err.Error(), path)
			return nil
		}
		object := r.schema.Types[concrete]
		if object == nil || object.Kind != schema.TypeKindObject {
			r.addError(fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", name, concrete), path)
			return nil
		}
		return r.executeSelectionSet(object, subSelection(fields), value, path, boundary)
	default:
		r.addError(fmt.Sprintf("Cannot complete value of unexpected type: %s", named.Kind), path)
		return nil
	}
}

func (r *request) completeList(item *schema.TypeRef, fields []*language.Field, value any, path Path, boundary Path) any {
	items, ok := value.([]any)
	if !ok {
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice {
			r.addError(fmt.Sprintf("Expected list value, got %T", value), path)
			return nil
		}
		items = make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
	}
	out := make([]any, len(items))
	for i, v := range items {
		completed := r.completeValue(item, fields, v, path.append(i), boundary)
		if isNullish(completed) {
			if schema.IsNonNull(item) {
				return nil
			}
			completed = nil
		}
		out[i] = completed
	}
	return out
}

// holds reports whether the container for the last element of path is
// still part of the response.
func (r *request) holds(path Path) bool {
	_, ok := r.container(path)
	return ok
}

func (r *request) container(path Path) (any, bool) {
	var cur any = r.data
	for _, elem := range path[:len(path)-1] {
		switch e := elem.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			cur = m[e]
		case int:
			s, ok := cur.([]any)
			if !ok || e >= len(s) {
				return nil, false
			}
			cur = s[e]
		}
	}
	switch cur.(type) {
	case map[string]any, []any:
		return cur, true
	}
	return nil, false
}

// assign writes value at path. Paths whose container was nulled are
// dropped.
func (r *request) assign(path Path, value any) {
	cur, ok := r.container(path)
	if !ok {
		return
	}
	switch last := path[len(path)-1].(type) {
	case string:
		if m, ok := cur.(map[string]any); ok {
			m[last] = value
		}
	case int:
		if s, ok := cur.([]any); ok && last < len(s) {
			s[last] = value
		}
	}
}

func subSelection(fields []*language.Field) language.SelectionSet {
	var set language.SelectionSet
	for _, f := range fields {
		set = append(set, f.SelectionSet...)
	}
	return set
}

// isNullish reports nil and typed nils.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
