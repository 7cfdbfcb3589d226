// Package mock provides test doubles for dagtalk interfaces using function fields.
package mock

import (
	"context"

	"github.com/dagtalk/dagtalk"
)

// Interface compliance checks.
var (
	_ dagtalk.Orchestrator = (*Orchestrator)(nil)
	_ dagtalk.Resolver     = (*Resolver)(nil)
	_ dagtalk.Gate         = (*Gate)(nil)
)

// Orchestrator is a test double for dagtalk.Orchestrator.
// Set the function fields for the methods you need.
type Orchestrator struct {
	ListDagsFn   func(ctx context.Context) ([]dagtalk.Dag, error)
	TriggerDagFn func(ctx context.Context, dag dagtalk.DagRef, conf map[string]string) (*dagtalk.RunResult, error)
	RunStatusFn  func(ctx context.Context, dag dagtalk.DagRef, runID string) (*dagtalk.RunResult, error)
	DagStatusFn  func(ctx context.Context, dag dagtalk.DagRef) (*dagtalk.DagStatus, error)
}

// ListDags delegates to ListDagsFn.
func (o *Orchestrator) ListDags(ctx context.Context) ([]dagtalk.Dag, error) {
	return o.ListDagsFn(ctx)
}

// TriggerDag delegates to TriggerDagFn.
func (o *Orchestrator) TriggerDag(ctx context.Context, dag dagtalk.DagRef, conf map[string]string) (*dagtalk.RunResult, error) {
	return o.TriggerDagFn(ctx, dag, conf)
}

// RunStatus delegates to RunStatusFn.
func (o *Orchestrator) RunStatus(ctx context.Context, dag dagtalk.DagRef, runID string) (*dagtalk.RunResult, error) {
	return o.RunStatusFn(ctx, dag, runID)
}

// DagStatus delegates to DagStatusFn.
func (o *Orchestrator) DagStatus(ctx context.Context, dag dagtalk.DagRef) (*dagtalk.DagStatus, error) {
	return o.DagStatusFn(ctx, dag)
}
