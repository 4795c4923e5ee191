package dsl

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/acuminous/rdf/internal/rdferrors"
)

func decodeAddProjections(node *yaml.Node) ([]AddProjection, error) {
	var items []AddProjection
	if err := node.Decode(&items); err != nil {
		return nil, rdferrors.NewValidationError(slug(instructionAddProjections), 0, "", "be a list of projections")
	}
	for i, p := range items {
		if p.Name == "" {
			return nil, rdferrors.NewValidationError(slug(instructionAddProjections), i, "name", "be present")
		}
		if p.Version <= 0 {
			return nil, rdferrors.NewValidationError(slug(instructionAddProjections), i, "version", "be a positive integer")
		}
		if len(p.Dependencies) == 0 {
			return nil, rdferrors.NewValidationError(slug(instructionAddProjections), i, "dependencies", "be a non-empty list")
		}
		for j, d := range p.Dependencies {
			if d.Entity == "" {
				return nil, rdferrors.NewValidationError(slug(instructionAddProjections), i, fmt.Sprintf("dependencies/%d/entity", j), "be present")
			}
			if d.Version <= 0 {
				return nil, rdferrors.NewValidationError(slug(instructionAddProjections), i, fmt.Sprintf("dependencies/%d/version", j), "be a positive integer")
			}
		}
	}
	return items, nil
}

// compileAddProjections emits one fby_projection row plus one
// fby_projection_entity edge per declared dependency, keyed by subqueries
// against fby_entity so the compiled SQL never depends on IDs only the
// database can assign.
func compileAddProjections(items []AddProjection) string {
	var b strings.Builder
	for _, p := range items {
		fmt.Fprintf(&b, "INSERT INTO fby_projection (name, version) VALUES (%s, %d) ON CONFLICT (name, version) DO NOTHING;\n",
			quote(p.Name), p.Version)
		for _, d := range p.Dependencies {
			fmt.Fprintf(&b, `INSERT INTO fby_projection_entity (projection_id, entity_id)
SELECT p.id, e.id FROM fby_projection p, fby_entity e
WHERE p.name = %s AND p.version = %d AND e.name = %s AND e.version = %d
ON CONFLICT DO NOTHING;
`, quote(p.Name), p.Version, quote(d.Entity), d.Version)
		}
	}
	return b.String()
}
