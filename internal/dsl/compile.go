package dsl

import "strings"

// Compile parses, structurally validates, and compiles a YAML migration
// document into the SQL that implements it. The returned string is
// intended to run as a single statement batch inside one transaction, the
// same atomicity boundary the migration runner gives a raw .sql file.
func Compile(data []byte) (string, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, instr := range doc.instructions {
		switch instr.name {
		case instructionDefineEntities:
			items, err := decodeDefineEntities(instr.node)
			if err != nil {
				return "", err
			}
			b.WriteString(compileDefineEntities(items))
		case instructionAddProjections:
			items, err := decodeAddProjections(instr.node)
			if err != nil {
				return "", err
			}
			b.WriteString(compileAddProjections(items))
		case instructionAddChangeSet:
			items, err := decodeAddChangeSet(instr.node)
			if err != nil {
				return "", err
			}
			b.WriteString(compileAddChangeSet(items))
		case instructionAddHooks:
			items, err := decodeAddHooks(instr.node)
			if err != nil {
				return "", err
			}
			b.WriteString(compileAddHooks(items))
		}
	}
	return b.String(), nil
}
