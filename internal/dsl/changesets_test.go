package dsl

import (
	"strings"
	"testing"
)

func TestCompileAddChangeSetEmitsDoBlockWithThreadedIds(t *testing.T) {
	doc := []byte(`
- add change set:
  - description: initial VAT rates
    effective: "2026-01-01T00:00:00Z"
    frames:
      - entity: vat_rate
        version: 1
        action: POST
        data:
          - country: FR
            rate: 20.0
`)
	sql, err := Compile(doc)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !strings.Contains(sql, "DO $$") {
		t.Fatalf("expected a DO block, got:\n%s", sql)
	}
	if !strings.Contains(sql, "INSERT INTO fby_change_set (description, effective) VALUES ('initial VAT rates', '2026-01-01T00:00:00Z') RETURNING id INTO v_cs_id") {
		t.Fatalf("expected change set insert with id capture, got:\n%s", sql)
	}
	if !strings.Contains(sql, "RETURNING id INTO v_df_id") {
		t.Fatalf("expected data frame insert with id capture, got:\n%s", sql)
	}
	if !strings.Contains(sql, "INSERT INTO vat_rate_v1 (rdf_frame_id, country, rate) VALUES (v_df_id, 'FR', 20)") {
		t.Fatalf("expected side table row insert with sorted columns, got:\n%s", sql)
	}
}

func TestAddChangeSetRejectsUnknownAction(t *testing.T) {
	doc := []byte(`
- add change set:
  - description: bad action
    effective: "2026-01-01T00:00:00Z"
    frames:
      - entity: vat_rate
        version: 1
        action: PATCH
        data:
          - country: FR
`)
	_, err := Compile(doc)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "/add_change_set/0/frames/0/action") {
		t.Fatalf("expected pointer-style error, got: %v", err)
	}
}

func TestAddChangeSetRequiresNonEmptyFrames(t *testing.T) {
	doc := []byte(`
- add change set:
  - description: empty
    effective: "2026-01-01T00:00:00Z"
    frames: []
`)
	_, err := Compile(doc)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "/add_change_set/0/frames") {
		t.Fatalf("expected pointer-style error, got: %v", err)
	}
}
