package dsl

import (
	"strings"
	"testing"
)

func TestCompileAddProjectionsWiresDependencies(t *testing.T) {
	doc := []byte(`
- add projections:
  - name: vat_rates
    version: 1
    dependencies:
      - entity: vat_rate
        version: 1
`)
	sql, err := Compile(doc)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !strings.Contains(sql, "INSERT INTO fby_projection (name, version) VALUES ('vat_rates', 1)") {
		t.Fatalf("expected projection row insert, got:\n%s", sql)
	}
	if !strings.Contains(sql, "INSERT INTO fby_projection_entity") {
		t.Fatalf("expected projection_entity edge insert, got:\n%s", sql)
	}
	if !strings.Contains(sql, "e.name = 'vat_rate' AND e.version = 1") {
		t.Fatalf("expected dependency lookup on vat_rate v1, got:\n%s", sql)
	}
}

func TestAddProjectionsRequiresAtLeastOneDependency(t *testing.T) {
	doc := []byte(`
- add projections:
  - name: vat_rates
    version: 1
    dependencies: []
`)
	_, err := Compile(doc)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "/add_projections/0/dependencies") {
		t.Fatalf("expected pointer-style error, got: %v", err)
	}
}

func TestAddProjectionsDependencyMissingVersionProducesPointerError(t *testing.T) {
	doc := []byte(`
- add projections:
  - name: vat_rates
    version: 1
    dependencies:
      - entity: vat_rate
`)
	_, err := Compile(doc)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "/add_projections/0/dependencies/0/version") {
		t.Fatalf("expected pointer-style error, got: %v", err)
	}
}
