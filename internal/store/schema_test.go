package store

import (
	"strings"
	"testing"
)

func TestSchemaEnforcesWildcardHookUniquenessWithPartialIndex(t *testing.T) {
	if !strings.Contains(schema, "UNIQUE (name, event, projection_id)") {
		t.Fatal("expected the plain (name, event, projection_id) uniqueness constraint for non-wildcard hooks")
	}
	if !strings.Contains(schema, "idx_fby_hook_wildcard") {
		t.Fatal("expected a partial unique index covering wildcard hooks (projection_id IS NULL)")
	}
	if !strings.Contains(schema, "ON fby_hook(name, event) WHERE projection_id IS NULL") {
		t.Fatal("expected the wildcard index to be scoped to projection_id IS NULL rows")
	}
}
