// Package driver runs the resolve, gate, execute flow for one instruction
// against an orchestrator. It is the only layer that turns results and
// errors into user-facing text; everything below it returns structured
// values.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dagtalk/dagtalk"
	"github.com/dagtalk/dagtalk/audit"
)

const defaultTimeout = 30 * time.Second

// Driver composes a resolver and an orchestrator into single-instruction
// invocations. It holds no mutable state across invocations, so one Driver
// can serve concurrent callers.
type Driver struct {
	orchestrator dagtalk.Orchestrator
	resolver     dagtalk.Resolver
	registry     *dagtalk.Registry
	gate         dagtalk.Gate
	logger       *slog.Logger
	auditLog     *audit.Log
	timeout      time.Duration
	preload      bool
}

// Option configures a [Driver].
type Option func(*Driver)

// WithRegistry sets the tool registry. Default is the built-in registry.
func WithRegistry(r *dagtalk.Registry) Option {
	return func(d *Driver) { d.registry = r }
}

// WithGate sets the approval gate consulted before a trigger executes.
// Without a gate every trigger intent is denied.
func WithGate(g dagtalk.Gate) Option {
	return func(d *Driver) { d.gate = g }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithAudit sets the log that records every executed intent.
func WithAudit(l *audit.Log) Option {
	return func(d *Driver) { d.auditLog = l }
}

// WithTimeout bounds each resolver and orchestrator call. The caller's
// context still applies; the earlier deadline wins. Zero disables the bound.
func WithTimeout(t time.Duration) Option {
	return func(d *Driver) { d.timeout = t }
}

// WithCatalogPreload controls whether Resolve fetches the DAG catalog
// before resolution. Default is on; turning it off saves one listing call
// but leaves resolvers with only the instruction text to work from.
func WithCatalogPreload(enabled bool) Option {
	return func(d *Driver) { d.preload = enabled }
}

// New creates a Driver with the given orchestrator and resolver.
func New(orchestrator dagtalk.Orchestrator, resolver dagtalk.Resolver, opts ...Option) *Driver {
	d := &Driver{
		orchestrator: orchestrator,
		resolver:     resolver,
		registry:     dagtalk.DefaultRegistry(),
		logger:       slog.Default(),
		timeout:      defaultTimeout,
		preload:      true,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Resolve turns one instruction into one intent. The resolved intent is
// re-validated against the instruction and catalog regardless of which
// resolver produced it, so a resolver bug cannot smuggle in an invented
// DAG. The returned Resolution may carry an explanation even when err is
// set (a model answering in plain text).
func (d *Driver) Resolve(ctx context.Context, instruction dagtalk.Instruction) (dagtalk.Resolution, error) {
	catalog := d.loadCatalog(ctx)

	rctx, cancel := d.bound(ctx)
	defer cancel()

	res, err := d.resolver.Resolve(rctx, dagtalk.ResolveRequest{
		Instruction: instruction,
		Specs:       d.registry.Specs(),
		Catalog:     catalog,
	})
	if err != nil {
		return res, err
	}
	if err := dagtalk.ValidateIntent(res.Intent, instruction, catalog); err != nil {
		return dagtalk.Resolution{}, fmt.Errorf("driver: %w", err)
	}

	d.logger.InfoContext(ctx, "instruction resolved", "tool", res.Intent.Name(), "dag_id", res.Intent.Target())
	return res, nil
}

// Execute performs the one orchestrator call the intent maps to. Trigger
// intents pass through the gate first. The instruction is not consulted for
// execution; it is carried into the audit record so the log ties every
// orchestrator call back to the request that caused it.
//
// On an unknown trigger outcome the report still carries the partial run
// and re-query advice alongside the error.
func (d *Driver) Execute(ctx context.Context, instruction dagtalk.Instruction, intent dagtalk.Intent) (dagtalk.Report, error) {
	report, err := d.execute(ctx, intent)
	d.record(ctx, instruction, intent, report, err)
	return report, err
}

// Run is the one-shot composition: resolve, then execute. The resolution
// explanation is carried into the report.
func (d *Driver) Run(ctx context.Context, instruction dagtalk.Instruction) (dagtalk.Report, error) {
	res, err := d.Resolve(ctx, instruction)
	if err != nil {
		return dagtalk.Report{Explanation: res.Explanation}, err
	}
	report, err := d.Execute(ctx, instruction, res.Intent)
	report.Explanation = res.Explanation
	return report, err
}

func (d *Driver) execute(ctx context.Context, intent dagtalk.Intent) (dagtalk.Report, error) {
	report := dagtalk.Report{Intent: intent}

	ectx, cancel := d.bound(ctx)
	defer cancel()

	switch in := intent.(type) {
	case dagtalk.ListDagsIntent:
		dags, err := d.orchestrator.ListDags(ectx)
		if err != nil {
			return report, err
		}
		dags, err = filterDags(dags, in.Pattern)
		if err != nil {
			return report, err
		}
		report.Dags = dags
		d.logger.InfoContext(ctx, "listed dags", "count", len(dags), "pattern", in.Pattern)
		return report, nil

	case dagtalk.TriggerDagIntent:
		if err := d.approve(ctx, in); err != nil {
			return report, err
		}
		run, err := d.orchestrator.TriggerDag(ectx, in.DagID, in.Conf)
		report.Run = run
		if err != nil {
			if errors.Is(err, dagtalk.ErrOutcomeUnknown) && run != nil {
				report.Advice = fmt.Sprintf("The trigger may still have been accepted. Check before re-triggering: ask for the status of run %s of %s.", run.RunID, run.DagID)
			}
			return report, err
		}
		d.logger.InfoContext(ctx, "triggered dag", "dag_id", in.DagID, "run_id", run.RunID, "state", run.State)
		return report, nil

	case dagtalk.RunStatusIntent:
		run, err := d.orchestrator.RunStatus(ectx, in.DagID, in.RunID)
		if err != nil {
			return report, err
		}
		report.Run = run
		d.logger.InfoContext(ctx, "queried run", "dag_id", in.DagID, "run_id", in.RunID, "state", run.State)
		return report, nil

	case dagtalk.DagStatusIntent:
		status, err := d.orchestrator.DagStatus(ectx, in.DagID)
		if err != nil {
			return report, err
		}
		report.Status = status
		d.logger.InfoContext(ctx, "queried dag", "dag_id", in.DagID, "last_run_state", status.LastRunState)
		return report, nil

	default:
		return report, fmt.Errorf("driver: unhandled intent %q: %w", intent.Name(), dagtalk.ErrUnknownTool)
	}
}

// approve consults the gate for intents that start runs. A missing gate
// denies: starting a run is an external state change, and only an explicit
// approval may cause one.
func (d *Driver) approve(ctx context.Context, intent dagtalk.Intent) error {
	if d.gate == nil {
		return fmt.Errorf("driver: trigger %s requires approval and no gate is configured: %w", intent.Target(), dagtalk.ErrDenied)
	}
	if err := d.gate.Approve(ctx, intent); err != nil {
		if errors.Is(err, dagtalk.ErrDenied) {
			return err
		}
		return fmt.Errorf("driver: gate: %w: %w", dagtalk.ErrDenied, err)
	}
	return nil
}

// loadCatalog fetches the DAG catalog for resolution. Failures are logged
// and resolution proceeds without a catalog: instruction-verbatim
// references still resolve, and execution surfaces the real error.
func (d *Driver) loadCatalog(ctx context.Context) []dagtalk.Dag {
	if !d.preload {
		return nil
	}
	cctx, cancel := d.bound(ctx)
	defer cancel()

	catalog, err := d.orchestrator.ListDags(cctx)
	if err != nil {
		d.logger.WarnContext(ctx, "catalog preload failed", "err", err)
		return nil
	}
	return catalog
}

// record writes the audit entry for one execution. The write must outlive
// a cancelled invocation, and a failed write never fails the invocation.
func (d *Driver) record(ctx context.Context, instruction dagtalk.Instruction, intent dagtalk.Intent, report dagtalk.Report, execErr error) {
	if d.auditLog == nil {
		return
	}
	entry := audit.Entry{
		Instruction: string(instruction),
		Tool:        intent.Name(),
		DagID:       string(intent.Target()),
		Outcome:     Outcome(execErr),
	}
	if execErr != nil {
		entry.Detail = execErr.Error()
	}
	if report.Run != nil {
		entry.RunID = report.Run.RunID
	} else if rs, ok := intent.(dagtalk.RunStatusIntent); ok {
		entry.RunID = rs.RunID
	}
	if _, err := d.auditLog.Record(context.WithoutCancel(ctx), entry); err != nil {
		d.logger.WarnContext(ctx, "audit record failed", "err", err)
	}
}

// Outcome classifies an execution error for the audit log. A nil error is
// "ok"; an unknown trigger outcome classifies as "unknown" even though the
// chain also carries a transport error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, dagtalk.ErrOutcomeUnknown):
		return "unknown"
	case errors.Is(err, dagtalk.ErrDenied):
		return "denied"
	case errors.Is(err, dagtalk.ErrNotFound):
		return "not_found"
	case errors.Is(err, dagtalk.ErrConflict):
		return "conflict"
	case errors.Is(err, dagtalk.ErrAmbiguousInstruction):
		return "ambiguous"
	case errors.Is(err, dagtalk.ErrUnsupportedInstruction):
		return "unsupported"
	case errors.Is(err, dagtalk.ErrTransport):
		return "transport_error"
	case errors.Is(err, dagtalk.ErrProtocol):
		return "protocol_error"
	default:
		return "error"
	}
}

// filterDags narrows a listing to IDs matching the glob pattern.
func filterDags(dags []dagtalk.Dag, pattern string) ([]dagtalk.Dag, error) {
	if pattern == "" {
		return dags, nil
	}
	out := make([]dagtalk.Dag, 0, len(dags))
	for _, dag := range dags {
		ok, err := doublestar.Match(pattern, string(dag.ID))
		if err != nil {
			return nil, fmt.Errorf("driver: list pattern %q: %w: %w", pattern, dagtalk.ErrAmbiguousInstruction, err)
		}
		if ok {
			out = append(out, dag)
		}
	}
	return out, nil
}

func (d *Driver) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.timeout)
}
