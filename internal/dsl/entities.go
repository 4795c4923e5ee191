package dsl

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/acuminous/rdf/internal/rdferrors"
)

func slug(instruction string) string {
	return strings.ReplaceAll(instruction, " ", "_")
}

func decodeDefineEntities(node *yaml.Node) ([]DefineEntity, error) {
	var items []DefineEntity
	if err := node.Decode(&items); err != nil {
		return nil, rdferrors.NewValidationError(slug(instructionDefineEntities), 0, "", "be a list of entity definitions")
	}
	for i, e := range items {
		if e.Name == "" {
			return nil, rdferrors.NewValidationError(slug(instructionDefineEntities), i, "name", "be present")
		}
		if e.Version <= 0 {
			return nil, rdferrors.NewValidationError(slug(instructionDefineEntities), i, "version", "be a positive integer")
		}
		if len(e.Fields) == 0 {
			return nil, rdferrors.NewValidationError(slug(instructionDefineEntities), i, "fields", "be a non-empty list")
		}
		for j, f := range e.Fields {
			if f.Name == "" {
				return nil, rdferrors.NewValidationError(slug(instructionDefineEntities), i, fmt.Sprintf("fields/%d/name", j), "be present")
			}
			if f.Type == "" {
				return nil, rdferrors.NewValidationError(slug(instructionDefineEntities), i, fmt.Sprintf("fields/%d/type", j), "be present")
			}
		}
		if len(e.IdentifiedBy) == 0 {
			return nil, rdferrors.NewValidationError(slug(instructionDefineEntities), i, "identified_by", "be a non-empty list")
		}
		fieldNames := make(map[string]bool, len(e.Fields))
		for _, f := range e.Fields {
			fieldNames[f.Name] = true
		}
		for _, id := range e.IdentifiedBy {
			if !fieldNames[id] {
				return nil, rdferrors.NewValidationError(slug(instructionDefineEntities), i, "identified_by", fmt.Sprintf("reference a declared field, got %q", id))
			}
		}
	}
	return items, nil
}

// entityTable returns the side-table name for an entity name and version,
// e.g. vat_rate_v1.
func entityTable(name string, version int) string {
	return fmt.Sprintf("%s_v%d", snake(name), version)
}

func snake(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// compileDefineEntities emits, for each declared entity: a fby_entity row,
// the side table keyed by rdf_frame_id, and the per-entity aggregate
// function that folds every frame up to the given change set, in
// (effective, id) order, down to the latest non-deleted state of each
// identifier tuple.
func compileDefineEntities(items []DefineEntity) string {
	var b strings.Builder
	for _, e := range items {
		table := entityTable(e.Name, e.Version)
		fn := fmt.Sprintf("get_%s_aggregate", table)

		fmt.Fprintf(&b, "INSERT INTO fby_entity (name, version) VALUES (%s, %d) ON CONFLICT (name, version) DO NOTHING;\n",
			quote(e.Name), e.Version)

		identSet := make(map[string]bool, len(e.IdentifiedBy))
		for _, id := range e.IdentifiedBy {
			identSet[id] = true
		}

		b.WriteString("CREATE TABLE IF NOT EXISTS ")
		b.WriteString(table)
		b.WriteString(" (\n  rdf_frame_id BIGINT PRIMARY KEY REFERENCES fby_data_frame(id)")
		for _, f := range e.Fields {
			fmt.Fprintf(&b, ",\n  %s %s", f.Name, f.Type)
			if identSet[f.Name] {
				b.WriteString(" NOT NULL")
			}
		}
		b.WriteString("\n);\n")

		identCols := strings.Join(e.IdentifiedBy, ", ")
		nonIdent := nonIdentifierFields(e)
		returnCols := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			returnCols = append(returnCols, fmt.Sprintf("%s %s", f.Name, f.Type))
		}

		fmt.Fprintf(&b, `CREATE OR REPLACE FUNCTION %s(p_change_set_id BIGINT)
RETURNS TABLE(%s) AS $$
BEGIN
  RETURN QUERY
  SELECT %s
  FROM (
    SELECT t.*, df.action,
           ROW_NUMBER() OVER (PARTITION BY %s ORDER BY cs.effective DESC, df.id DESC) AS rn
    FROM %s t
    JOIN fby_data_frame df ON df.id = t.rdf_frame_id
    JOIN fby_change_set cs ON cs.id = df.change_set_id
    WHERE (cs.effective, cs.id) <= (
      SELECT effective, id FROM fby_change_set WHERE id = p_change_set_id
    )
  ) latest
  WHERE latest.rn = 1 AND latest.action <> 'DELETE';
END;
$$ LANGUAGE plpgsql;
`, fn, strings.Join(returnCols, ", "), strings.Join(append([]string{}, appendCols(e.IdentifiedBy, nonIdent)...), ", "), identCols, table)
	}
	return b.String()
}

func nonIdentifierFields(e DefineEntity) []string {
	ident := make(map[string]bool, len(e.IdentifiedBy))
	for _, id := range e.IdentifiedBy {
		ident[id] = true
	}
	var out []string
	for _, f := range e.Fields {
		if !ident[f.Name] {
			out = append(out, f.Name)
		}
	}
	return out
}

func appendCols(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
