package dsl

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/acuminous/rdf/internal/rdferrors"
)

// The four recognised top-level instruction keys. A document may list them
// in any order and repeat any of them; Compile handles them in document
// order.
const (
	instructionDefineEntities  = "define entities"
	instructionAddProjections  = "add projections"
	instructionAddChangeSet    = "add change set"
	instructionAddHooks        = "add hooks"
)

// document is the parsed, not-yet-validated form of a YAML migration file:
// each top-level sequence element is a single-key mapping naming one
// instruction and its list of items.
type document struct {
	instructions []rawInstruction
}

type rawInstruction struct {
	name string
	node *yaml.Node
}

func parseDocument(data []byte) (*document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(root.Content) == 0 {
		return &document{}, nil
	}

	seq := root.Content[0]
	if seq.Kind != yaml.SequenceNode {
		return nil, rdferrors.NewValidationError("document", 0, "", "be a sequence of instructions")
	}

	doc := &document{}
	for i, item := range seq.Content {
		if item.Kind != yaml.MappingNode || len(item.Content) != 2 {
			return nil, rdferrors.NewValidationError("document", i, "", "be a single-key mapping naming one instruction")
		}
		name := item.Content[0].Value
		switch name {
		case instructionDefineEntities, instructionAddProjections, instructionAddChangeSet, instructionAddHooks:
		default:
			return nil, rdferrors.NewValidationError("document", i, "", fmt.Sprintf("name a recognised instruction, got %q", name))
		}
		doc.instructions = append(doc.instructions, rawInstruction{name: name, node: item.Content[1]})
	}
	return doc, nil
}
