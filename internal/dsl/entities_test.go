package dsl

import (
	"strings"
	"testing"
)

func TestCompileDefineEntitiesCreatesTableAndAggregateFunction(t *testing.T) {
	doc := []byte(`
- define entities:
  - name: vat_rate
    version: 1
    fields:
      - name: country
        type: TEXT
      - name: rate
        type: NUMERIC
    identified_by: [country]
`)
	sql, err := Compile(doc)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !strings.Contains(sql, "CREATE TABLE IF NOT EXISTS vat_rate_v1") {
		t.Fatalf("expected side table DDL, got:\n%s", sql)
	}
	if !strings.Contains(sql, "get_vat_rate_v1_aggregate") {
		t.Fatalf("expected aggregate function, got:\n%s", sql)
	}
	if !strings.Contains(sql, "INSERT INTO fby_entity") {
		t.Fatalf("expected entity row insert, got:\n%s", sql)
	}
	if !strings.Contains(sql, "country TEXT NOT NULL") {
		t.Fatalf("expected identifier column to be NOT NULL, got:\n%s", sql)
	}
	if strings.Contains(sql, "rate NUMERIC NOT NULL") {
		t.Fatalf("non-identifier column should not be NOT NULL, got:\n%s", sql)
	}
}

func TestDefineEntitiesMissingNameProducesPointerError(t *testing.T) {
	doc := []byte(`
- define entities:
  - version: 1
    fields:
      - name: x
        type: TEXT
    identified_by: [x]
`)
	_, err := Compile(doc)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "/define_entities/0/name") {
		t.Fatalf("expected pointer-style error, got: %v", err)
	}
}

func TestDefineEntitiesIdentifiedByMustReferenceDeclaredField(t *testing.T) {
	doc := []byte(`
- define entities:
  - name: vat_rate
    version: 1
    fields:
      - name: country
        type: TEXT
    identified_by: [nonexistent]
`)
	_, err := Compile(doc)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "identified_by") {
		t.Fatalf("expected identified_by complaint, got: %v", err)
	}
}
