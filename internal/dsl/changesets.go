package dsl

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/acuminous/rdf/internal/rdferrors"
)

func decodeAddChangeSet(node *yaml.Node) ([]AddChangeSet, error) {
	var items []AddChangeSet
	if err := node.Decode(&items); err != nil {
		return nil, rdferrors.NewValidationError(slug(instructionAddChangeSet), 0, "", "be a list of change sets")
	}
	for i, cs := range items {
		if cs.Effective == "" {
			return nil, rdferrors.NewValidationError(slug(instructionAddChangeSet), i, "effective", "be present")
		}
		if len(cs.Frames) == 0 {
			return nil, rdferrors.NewValidationError(slug(instructionAddChangeSet), i, "frames", "be a non-empty list")
		}
		for j, f := range cs.Frames {
			if f.Entity == "" {
				return nil, rdferrors.NewValidationError(slug(instructionAddChangeSet), i, fmt.Sprintf("frames/%d/entity", j), "be present")
			}
			if f.Version <= 0 {
				return nil, rdferrors.NewValidationError(slug(instructionAddChangeSet), i, fmt.Sprintf("frames/%d/version", j), "be a positive integer")
			}
			if f.Action != actionPost && f.Action != actionDelete {
				return nil, rdferrors.NewValidationError(slug(instructionAddChangeSet), i, fmt.Sprintf("frames/%d/action", j), "be one of POST, DELETE")
			}
			if len(f.Data) == 0 {
				return nil, rdferrors.NewValidationError(slug(instructionAddChangeSet), i, fmt.Sprintf("frames/%d/data", j), "be a non-empty list")
			}
		}
	}
	return items, nil
}

// compileAddChangeSet emits one fby_change_set row per item, then one
// fby_data_frame row plus one entity side-table row per data row in each
// frame. Each change set is wrapped in its own DO block so that the
// generated change-set and data-frame ids can be threaded through plpgsql
// variables rather than a client-side scripting feature. Identifier
// columns are declared NOT NULL on the side table itself (compileDefineEntities),
// so a data row omitting one fails the insert instead of silently
// collapsing into another partition of the aggregate fold.
func compileAddChangeSet(items []AddChangeSet) string {
	var b strings.Builder
	for _, cs := range items {
		b.WriteString("DO $$\nDECLARE\n  v_cs_id BIGINT;\n  v_df_id BIGINT;\nBEGIN\n")
		fmt.Fprintf(&b, "  INSERT INTO fby_change_set (description, effective) VALUES (%s, %s) RETURNING id INTO v_cs_id;\n",
			nullableQuote(cs.Description), quote(cs.Effective))

		for _, f := range cs.Frames {
			table := entityTable(f.Entity, f.Version)
			for _, row := range f.Data {
				fmt.Fprintf(&b, `  INSERT INTO fby_data_frame (change_set_id, entity_id, action)
  SELECT v_cs_id, e.id, %s FROM fby_entity e WHERE e.name = %s AND e.version = %d
  RETURNING id INTO v_df_id;
`, quote(f.Action), quote(f.Entity), f.Version)

				cols, vals := rowColumns(row)
				fmt.Fprintf(&b, "  INSERT INTO %s (rdf_frame_id%s) VALUES (v_df_id%s);\n",
					table, prefixJoin(", ", cols), prefixJoin(", ", vals))
			}
		}
		b.WriteString("END;\n$$;\n")
	}
	return b.String()
}

func rowColumns(row map[string]interface{}) (cols, vals []string) {
	for k := range row {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	for _, k := range cols {
		vals = append(vals, literal(row[k]))
	}
	return cols, vals
}

func prefixJoin(sep string, items []string) string {
	if len(items) == 0 {
		return ""
	}
	return sep + strings.Join(items, ", ")
}

func literal(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quote(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return quote(fmt.Sprintf("%v", x))
	}
}

func nullableQuote(s string) string {
	if s == "" {
		return "NULL"
	}
	return quote(s)
}
