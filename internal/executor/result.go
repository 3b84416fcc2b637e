package executor

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/hanpama/socialgraph/internal/failure"
)

// Path locates a response value: field names and list indexes.
type Path []PathElement

// PathElement is a string response name or an int list index.
type PathElement any

// String renders the path the way null errors report it, e.g. "list.[1]".
func (p Path) String() string {
	var b strings.Builder
	for i, elem := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		switch v := elem.(type) {
		case string:
			b.WriteString(v)
		case int:
			b.WriteString("[" + strconv.Itoa(v) + "]")
		}
	}
	return b.String()
}

// append returns a new path; p is never shared with the result.
func (p Path) append(elem PathElement) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, elem)
}

type GraphQLError struct {
	Message    string         `json:"message"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

func (r *request) addError(message string, path Path) {
	r.errors = append(r.errors, GraphQLError{Message: message, Path: path})
}

// addFieldError records a resolver error. Errors classified by the failure
// package carry their code in extensions.
func (r *request) addFieldError(err error, path Path) {
	gerr := GraphQLError{Message: err.Error(), Path: path}
	if code := failure.Code(err); code != failure.CodeInternal {
		gerr.Extensions = map[string]any{"code": code}
	}
	r.errors = append(r.errors, gerr)
}

func (r *request) hasErrorAt(path Path) bool {
	for _, err := range r.errors {
		if reflect.DeepEqual(err.Path, path) {
			return true
		}
	}
	return false
}
