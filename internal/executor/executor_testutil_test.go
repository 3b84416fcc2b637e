package executor

import (
	"testing"

	"go.uber.org/goleak"

	language "github.com/hanpama/socialgraph/internal/language"
)

// mustParseQuery parses a GraphQL query and fails the test on error.
func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
