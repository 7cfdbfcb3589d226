package dagtalk

import (
	"fmt"
	"strings"
)

// ValidateIntent enforces that resolvers never invent identifiers: a
// resolved DAG reference must occur in the instruction text (case
// insensitive) or in the supplied catalog, and a resolved run ID must occur
// in the instruction. Violations return ErrAmbiguousInstruction. A nil
// intent breaks the Resolver contract and is rejected with ErrProtocol.
func ValidateIntent(intent Intent, instruction Instruction, catalog []Dag) error {
	if intent == nil {
		return fmt.Errorf("resolver returned no intent: %w", ErrProtocol)
	}
	if ref := intent.Target(); ref != "" {
		if !refersTo(instruction, string(ref)) && !inCatalog(catalog, ref) {
			return fmt.Errorf("resolved DAG %q appears in neither the instruction nor the catalog: %w", ref, ErrAmbiguousInstruction)
		}
	}
	if rs, ok := intent.(RunStatusIntent); ok && rs.RunID != "" {
		if !refersTo(instruction, rs.RunID) {
			return fmt.Errorf("resolved run ID %q does not appear in the instruction: %w", rs.RunID, ErrAmbiguousInstruction)
		}
	}
	return nil
}

func refersTo(instruction Instruction, token string) bool {
	return strings.Contains(strings.ToLower(string(instruction)), strings.ToLower(token))
}

func inCatalog(catalog []Dag, ref DagRef) bool {
	for _, d := range catalog {
		if d.ID == ref {
			return true
		}
	}
	return false
}
