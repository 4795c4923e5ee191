package dsl

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/acuminous/rdf/internal/rdferrors"
)

func decodeAddHooks(node *yaml.Node) ([]AddHook, error) {
	var items []AddHook
	if err := node.Decode(&items); err != nil {
		return nil, rdferrors.NewValidationError(slug(instructionAddHooks), 0, "", "be a list of hooks")
	}
	for i, h := range items {
		if h.Event == "" {
			return nil, rdferrors.NewValidationError(slug(instructionAddHooks), i, "event", "be present")
		}
		if (h.Projection == "") != (h.Version == 0) {
			return nil, rdferrors.NewValidationError(slug(instructionAddHooks), i, "projection", "be supplied together with version, or not at all")
		}
	}
	return items, nil
}

// compileAddHooks emits one fby_hook row per item. A hook with no
// projection resolves to a NULL projection_id (wildcard, fires for every
// projection's notifications); otherwise the projection_id subquery
// resolves name+version the same way compileAddProjections does.
func compileAddHooks(items []AddHook) string {
	var b strings.Builder
	for _, h := range items {
		name := hookName(h)
		if h.Projection == "" {
			fmt.Fprintf(&b, "INSERT INTO fby_hook (name, event, projection_id) VALUES (%s, %s, NULL) ON CONFLICT DO NOTHING;\n",
				quote(name), quote(h.Event))
			continue
		}
		fmt.Fprintf(&b, `INSERT INTO fby_hook (name, event, projection_id)
SELECT %s, %s, p.id FROM fby_projection p WHERE p.name = %s AND p.version = %d
ON CONFLICT DO NOTHING;
`, quote(name), quote(h.Event), quote(h.Projection), h.Version)
	}
	return b.String()
}

// hookName derives a stable name for the (name, event, projection_id)
// uniqueness constraint from the hook's own declared fields, since the
// DSL doesn't ask the author to name hooks explicitly.
func hookName(h AddHook) string {
	if h.Projection == "" {
		return fmt.Sprintf("%s:*", h.Event)
	}
	return fmt.Sprintf("%s:%s:v%d", h.Event, h.Projection, h.Version)
}
