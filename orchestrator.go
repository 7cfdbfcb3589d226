package dagtalk

import "context"

// Orchestrator is the control-API contract of a workflow orchestrator.
// Implementations make exactly one logical API interaction per call, bounded
// by the caller's context. No retries, no caching: every call reflects the
// orchestrator's state at the time it was made.
//
// TriggerDag returns the orchestrator's acknowledgment of the new run. When
// the acknowledgment never arrives (ErrOutcomeUnknown in the chain) the
// returned partial result still carries the run ID so the caller can
// re-query the run instead of re-triggering it.
type Orchestrator interface {
	ListDags(ctx context.Context) ([]Dag, error)
	TriggerDag(ctx context.Context, dag DagRef, conf map[string]string) (*RunResult, error)
	RunStatus(ctx context.Context, dag DagRef, runID string) (*RunResult, error)
	DagStatus(ctx context.Context, dag DagRef) (*DagStatus, error)
}
