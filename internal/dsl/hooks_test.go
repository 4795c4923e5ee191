package dsl

import (
	"strings"
	"testing"
)

func TestAddHooksWildcardWhenProjectionOmitted(t *testing.T) {
	doc := []byte(`
- add hooks:
  - event: anything.changed
`)
	sql, err := Compile(doc)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !strings.Contains(sql, "projection_id) VALUES ('anything.changed:*', 'anything.changed', NULL)") {
		t.Fatalf("expected wildcard hook insert, got:\n%s", sql)
	}
}

func TestAddHooksProjectionRequiresVersion(t *testing.T) {
	doc := []byte(`
- add hooks:
  - event: x.changed
    projection: parks
`)
	_, err := Compile(doc)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "/add_hooks/0/projection") {
		t.Fatalf("expected pointer error, got: %v", err)
	}
}
