package dagtalk

import (
	"context"
	"strings"
)

// Instruction is one natural-language request, exactly as the user wrote it.
type Instruction string

// ResolveRequest carries everything a resolver may consult: the instruction,
// the tool specs, and an optional DAG catalog from a prior listing.
type ResolveRequest struct {
	Instruction Instruction
	Specs       []ToolSpec
	Catalog     []Dag // nil when no catalog was preloaded
}

// Resolution is a resolver's decision: the intent to execute, plus optional
// explanation text (markdown) when the mechanism produces any.
type Resolution struct {
	Intent      Intent
	Explanation string
}

// Resolver is a strategy pattern interface for instruction resolution.
// A resolver turns one instruction into one Intent; it decides only, and
// never calls the orchestrator itself. Resolution failures are classified
// with ErrAmbiguousInstruction (a required parameter could not be pinned
// down) and ErrUnsupportedInstruction (no tool matches the request).
type Resolver interface {
	Resolve(ctx context.Context, req ResolveRequest) (Resolution, error)
}

const systemRules = `You translate requests about workflow DAGs into exactly one tool call.

Rules:
- Use a DAG ID only if it appears verbatim in the request or in the DAG catalog below. Never invent or guess IDs.
- Use a run ID only if it appears verbatim in the request.
- If the request is not about DAGs or matches no tool, answer in plain text instead of calling a tool.
- If a required parameter cannot be determined, answer in plain text saying what is missing.`

// SystemPrompt renders the system prompt shared by the model-backed
// resolvers: the resolution rules plus the catalog of known DAGs, when
// one was supplied. Both model resolvers send the same prompt so that a
// resolver swap does not change what the model is allowed to do.
func SystemPrompt(catalog []Dag) string {
	if len(catalog) == 0 {
		return systemRules
	}
	var b strings.Builder
	b.WriteString(systemRules)
	b.WriteString("\n\nDAG catalog:\n")
	for _, dag := range catalog {
		b.WriteString("- ")
		b.WriteString(string(dag.ID))
		if dag.DisplayName != "" && dag.DisplayName != string(dag.ID) {
			b.WriteString(": ")
			b.WriteString(dag.DisplayName)
		}
		if dag.Paused {
			b.WriteString(" [paused]")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
