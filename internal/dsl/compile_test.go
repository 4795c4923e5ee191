package dsl

import (
	"strings"
	"testing"
)

func TestCompileFullDocumentOrdersAllFourInstructions(t *testing.T) {
	doc := []byte(`
- define entities:
  - name: park
    version: 1
    fields:
      - name: code
        type: TEXT
      - name: name
        type: TEXT
    identified_by: [code]
- add projections:
  - name: parks
    version: 1
    dependencies:
      - entity: park
        version: 1
- add change set:
  - effective: "2026-01-01T00:00:00Z"
    description: seed
    frames:
      - entity: park
        version: 1
        action: POST
        data:
          - code: YOS
            name: Yosemite
- add hooks:
  - event: park.changed
    projection: parks
    version: 1
`)
	sql, err := Compile(doc)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	last := -1
	for _, want := range []string{
		"INSERT INTO fby_entity",
		"INSERT INTO fby_projection",
		"DO $$",
		"INSERT INTO fby_hook",
	} {
		idx := strings.Index(sql, want)
		if idx < 0 {
			t.Errorf("expected output to contain %q, got:\n%s", want, sql)
			continue
		}
		if idx < last {
			t.Errorf("expected %q to follow the previous instruction's output, got:\n%s", want, sql)
		}
		last = idx
	}
}

func TestCompileRejectsUnrecognisedInstruction(t *testing.T) {
	doc := []byte(`
- drop everything:
  - name: x
`)
	_, err := Compile(doc)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "recognised instruction") {
		t.Fatalf("expected unrecognised-instruction error, got: %v", err)
	}
}

func TestCompileEmptyDocumentIsNoop(t *testing.T) {
	sql, err := Compile([]byte(""))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if sql != "" {
		t.Fatalf("expected empty output, got %q", sql)
	}
}
