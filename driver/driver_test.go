package driver_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/dagtalk/dagtalk"
	"github.com/dagtalk/dagtalk/audit"
	"github.com/dagtalk/dagtalk/driver"
	"github.com/dagtalk/dagtalk/mock"
	"github.com/dagtalk/dagtalk/rule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var catalog = []dagtalk.Dag{
	{ID: "payment_report_daily", DisplayName: "Daily Payment Report"},
	{ID: "user_sync", DisplayName: "User Sync", Paused: true},
}

func listCatalog(context.Context) ([]dagtalk.Dag, error) {
	return catalog, nil
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestDriver_Run_TriggersDagByDescription(t *testing.T) {
	t.Parallel()

	var gotDag dagtalk.DagRef
	var gotConf map[string]string
	orch := &mock.Orchestrator{
		ListDagsFn: listCatalog,
		TriggerDagFn: func(_ context.Context, dag dagtalk.DagRef, conf map[string]string) (*dagtalk.RunResult, error) {
			gotDag, gotConf = dag, conf
			return &dagtalk.RunResult{
				DagID:    dag,
				RunID:    "manual__2026-08-23T10:00:00Z__abc",
				State:    dagtalk.RunQueued,
				RawState: "queued",
			}, nil
		},
	}
	d := driver.New(orch, rule.New(),
		driver.WithGate(dagtalk.AutoApprove{}),
		driver.WithLogger(discard()))

	report, err := d.Run(context.Background(), "Can you please run the DAG for our daily payment report?")
	require.NoError(t, err)

	assert.Equal(t, dagtalk.DagRef("payment_report_daily"), gotDag)
	assert.Empty(t, gotConf)
	require.NotNil(t, report.Run)
	assert.Equal(t, dagtalk.RunQueued, report.Run.State)
	assert.Contains(t, report.Explanation, "trigger_dag")
}

func TestDriver_Run_UnsupportedInstruction(t *testing.T) {
	t.Parallel()

	// Only ListDagsFn is set: any execution attempt would panic.
	orch := &mock.Orchestrator{ListDagsFn: listCatalog}
	d := driver.New(orch, rule.New(), driver.WithLogger(discard()))

	report, err := d.Run(context.Background(), "What's the weather today?")
	require.Error(t, err)
	assert.ErrorIs(t, err, dagtalk.ErrUnsupportedInstruction)
	assert.Nil(t, report.Intent)
}

func TestDriver_Resolve_ValidatesResolverOutput(t *testing.T) {
	t.Parallel()

	orch := &mock.Orchestrator{ListDagsFn: listCatalog}
	invented := &mock.Resolver{
		ResolveFn: func(context.Context, dagtalk.ResolveRequest) (dagtalk.Resolution, error) {
			return dagtalk.Resolution{Intent: dagtalk.TriggerDagIntent{DagID: "nightly_sales"}}, nil
		},
	}
	d := driver.New(orch, invented, driver.WithLogger(discard()))

	res, err := d.Resolve(context.Background(), "please run the usual")
	require.Error(t, err)
	assert.ErrorIs(t, err, dagtalk.ErrAmbiguousInstruction)
	assert.Nil(t, res.Intent)
}

func TestDriver_Resolve_PreloadFailureFallsBackToInstruction(t *testing.T) {
	t.Parallel()

	orch := &mock.Orchestrator{
		ListDagsFn: func(context.Context) ([]dagtalk.Dag, error) {
			return nil, fmt.Errorf("airflow: list dags: %w", dagtalk.ErrTransport)
		},
	}
	d := driver.New(orch, rule.New(), driver.WithLogger(discard()))

	res, err := d.Resolve(context.Background(), "run dag_id=payment_report_daily")
	require.NoError(t, err)
	assert.Equal(t, dagtalk.TriggerDagIntent{DagID: "payment_report_daily"}, res.Intent)
}

func TestDriver_Resolve_WithoutPreload(t *testing.T) {
	t.Parallel()

	// No ListDagsFn: a preload attempt would panic.
	orch := &mock.Orchestrator{}
	d := driver.New(orch, rule.New(),
		driver.WithCatalogPreload(false),
		driver.WithLogger(discard()))

	res, err := d.Resolve(context.Background(), "status of dag_id=user_sync")
	require.NoError(t, err)
	assert.Equal(t, dagtalk.DagStatusIntent{DagID: "user_sync"}, res.Intent)
}

func TestDriver_Execute_DeniesTriggerWithoutGate(t *testing.T) {
	t.Parallel()

	// No TriggerDagFn: execution would panic.
	orch := &mock.Orchestrator{}
	d := driver.New(orch, rule.New(), driver.WithLogger(discard()))

	_, err := d.Execute(context.Background(), "run user_sync", dagtalk.TriggerDagIntent{DagID: "user_sync"})
	require.Error(t, err)
	assert.ErrorIs(t, err, dagtalk.ErrDenied)
}

func TestDriver_Execute_GateDenial(t *testing.T) {
	t.Parallel()

	t.Run("denial stops execution", func(t *testing.T) {
		t.Parallel()
		orch := &mock.Orchestrator{}
		gate := &mock.Gate{
			ApproveFn: func(_ context.Context, intent dagtalk.Intent) error {
				return fmt.Errorf("declined %s: %w", intent.Target(), dagtalk.ErrDenied)
			},
		}
		d := driver.New(orch, rule.New(), driver.WithGate(gate), driver.WithLogger(discard()))

		_, err := d.Execute(context.Background(), "run user_sync", dagtalk.TriggerDagIntent{DagID: "user_sync"})
		require.Error(t, err)
		assert.ErrorIs(t, err, dagtalk.ErrDenied)
		assert.Contains(t, err.Error(), "user_sync")
	})

	t.Run("gate failures classify as denied", func(t *testing.T) {
		t.Parallel()
		orch := &mock.Orchestrator{}
		gate := &mock.Gate{
			ApproveFn: func(context.Context, dagtalk.Intent) error {
				return errors.New("prompt closed")
			},
		}
		d := driver.New(orch, rule.New(), driver.WithGate(gate), driver.WithLogger(discard()))

		_, err := d.Execute(context.Background(), "run user_sync", dagtalk.TriggerDagIntent{DagID: "user_sync"})
		assert.ErrorIs(t, err, dagtalk.ErrDenied)
	})
}

func TestDriver_Execute_ReadOnlyBypassesGate(t *testing.T) {
	t.Parallel()

	orch := &mock.Orchestrator{
		ListDagsFn: listCatalog,
		DagStatusFn: func(_ context.Context, dag dagtalk.DagRef) (*dagtalk.DagStatus, error) {
			return &dagtalk.DagStatus{ID: dag, TotalRuns: 3}, nil
		},
	}
	// No gate configured: read-only intents must still execute.
	d := driver.New(orch, rule.New(), driver.WithLogger(discard()))

	report, err := d.Execute(context.Background(), "list dags", dagtalk.ListDagsIntent{})
	require.NoError(t, err)
	assert.Len(t, report.Dags, 2)

	report, err = d.Execute(context.Background(), "status of user_sync", dagtalk.DagStatusIntent{DagID: "user_sync"})
	require.NoError(t, err)
	require.NotNil(t, report.Status)
	assert.Equal(t, 3, report.Status.TotalRuns)
}

func TestDriver_Execute_FiltersListPattern(t *testing.T) {
	t.Parallel()

	orch := &mock.Orchestrator{
		ListDagsFn: func(context.Context) ([]dagtalk.Dag, error) {
			return []dagtalk.Dag{
				{ID: "payment_report_daily"},
				{ID: "payment_reconcile"},
				{ID: "user_sync"},
			}, nil
		},
	}
	d := driver.New(orch, rule.New(), driver.WithLogger(discard()))

	t.Run("matching pattern narrows the listing", func(t *testing.T) {
		t.Parallel()
		report, err := d.Execute(context.Background(), "list payment_*", dagtalk.ListDagsIntent{Pattern: "payment_*"})
		require.NoError(t, err)
		require.Len(t, report.Dags, 2)
		assert.Equal(t, dagtalk.DagRef("payment_report_daily"), report.Dags[0].ID)
		assert.Equal(t, dagtalk.DagRef("payment_reconcile"), report.Dags[1].ID)
	})

	t.Run("invalid pattern is ambiguous", func(t *testing.T) {
		t.Parallel()
		_, err := d.Execute(context.Background(), "list [", dagtalk.ListDagsIntent{Pattern: "["})
		require.Error(t, err)
		assert.ErrorIs(t, err, dagtalk.ErrAmbiguousInstruction)
	})
}

func TestDriver_Execute_UnknownOutcomeCarriesAdvice(t *testing.T) {
	t.Parallel()

	orch := &mock.Orchestrator{
		TriggerDagFn: func(_ context.Context, dag dagtalk.DagRef, conf map[string]string) (*dagtalk.RunResult, error) {
			partial := &dagtalk.RunResult{DagID: dag, RunID: "manual__2026-08-23T10:00:00Z__def", State: dagtalk.RunUnknown, Conf: conf}
			return partial, fmt.Errorf("airflow: trigger %s: %w: %w: request timed out", dag, dagtalk.ErrOutcomeUnknown, dagtalk.ErrTransport)
		},
	}
	d := driver.New(orch, rule.New(),
		driver.WithGate(dagtalk.AutoApprove{}),
		driver.WithLogger(discard()))

	report, err := d.Execute(context.Background(), "run user_sync", dagtalk.TriggerDagIntent{DagID: "user_sync"})
	require.Error(t, err)
	assert.ErrorIs(t, err, dagtalk.ErrOutcomeUnknown)
	assert.ErrorIs(t, err, dagtalk.ErrTransport)

	require.NotNil(t, report.Run)
	assert.Equal(t, "manual__2026-08-23T10:00:00Z__def", report.Run.RunID)
	assert.Contains(t, report.Advice, report.Run.RunID)
	assert.Contains(t, report.Advice, "re-trigger")
}

func TestDriver_Execute_RecordsAudit(t *testing.T) {
	t.Parallel()

	openAudit := func(t *testing.T) *audit.Log {
		t.Helper()
		l, err := audit.Open(filepath.Join(t.TempDir(), "audit.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = l.Close() })
		return l
	}

	t.Run("successful trigger", func(t *testing.T) {
		t.Parallel()
		auditLog := openAudit(t)
		orch := &mock.Orchestrator{
			TriggerDagFn: func(_ context.Context, dag dagtalk.DagRef, _ map[string]string) (*dagtalk.RunResult, error) {
				return &dagtalk.RunResult{DagID: dag, RunID: "manual__run", State: dagtalk.RunQueued}, nil
			},
		}
		d := driver.New(orch, rule.New(),
			driver.WithGate(dagtalk.AutoApprove{}),
			driver.WithAudit(auditLog),
			driver.WithLogger(discard()))

		_, err := d.Execute(context.Background(), "run user_sync", dagtalk.TriggerDagIntent{DagID: "user_sync"})
		require.NoError(t, err)

		entries, err := auditLog.Recent(context.Background(), 5)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "run user_sync", entries[0].Instruction)
		assert.Equal(t, dagtalk.ToolTriggerDag, entries[0].Tool)
		assert.Equal(t, "user_sync", entries[0].DagID)
		assert.Equal(t, "manual__run", entries[0].RunID)
		assert.Equal(t, "ok", entries[0].Outcome)
	})

	t.Run("denied trigger", func(t *testing.T) {
		t.Parallel()
		auditLog := openAudit(t)
		orch := &mock.Orchestrator{}
		d := driver.New(orch, rule.New(),
			driver.WithAudit(auditLog),
			driver.WithLogger(discard()))

		_, err := d.Execute(context.Background(), "run user_sync", dagtalk.TriggerDagIntent{DagID: "user_sync"})
		require.Error(t, err)

		entries, err := auditLog.Recent(context.Background(), 5)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "denied", entries[0].Outcome)
		assert.NotEmpty(t, entries[0].Detail)
	})

	t.Run("run status records the queried run id", func(t *testing.T) {
		t.Parallel()
		auditLog := openAudit(t)
		orch := &mock.Orchestrator{
			RunStatusFn: func(_ context.Context, dag dagtalk.DagRef, runID string) (*dagtalk.RunResult, error) {
				return nil, fmt.Errorf("airflow: run status %s/%s: %w", dag, runID, dagtalk.ErrNotFound)
			},
		}
		d := driver.New(orch, rule.New(),
			driver.WithAudit(auditLog),
			driver.WithLogger(discard()))

		_, err := d.Execute(context.Background(), "check manual__gone of user_sync",
			dagtalk.RunStatusIntent{DagID: "user_sync", RunID: "manual__gone"})
		require.Error(t, err)

		entries, err := auditLog.Recent(context.Background(), 5)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "manual__gone", entries[0].RunID)
		assert.Equal(t, "not_found", entries[0].Outcome)
	})
}

func TestDriver_Execute_RunStatusIdempotent(t *testing.T) {
	t.Parallel()

	orch := &mock.Orchestrator{
		RunStatusFn: func(_ context.Context, dag dagtalk.DagRef, runID string) (*dagtalk.RunResult, error) {
			return &dagtalk.RunResult{DagID: dag, RunID: runID, State: dagtalk.RunSuccess, RawState: "success"}, nil
		},
	}
	d := driver.New(orch, rule.New(), driver.WithLogger(discard()))
	intent := dagtalk.RunStatusIntent{DagID: "user_sync", RunID: "manual__abc"}

	first, err := d.Execute(context.Background(), "check manual__abc of user_sync", intent)
	require.NoError(t, err)
	second, err := d.Execute(context.Background(), "check manual__abc of user_sync", intent)
	require.NoError(t, err)
	assert.Equal(t, first.Run, second.Run)
}

func TestDriver_Execute_AppliesTimeout(t *testing.T) {
	t.Parallel()

	t.Run("configured timeout sets a deadline", func(t *testing.T) {
		t.Parallel()
		var deadline time.Time
		var hasDeadline bool
		orch := &mock.Orchestrator{
			ListDagsFn: func(ctx context.Context) ([]dagtalk.Dag, error) {
				deadline, hasDeadline = ctx.Deadline()
				return nil, nil
			},
		}
		d := driver.New(orch, rule.New(),
			driver.WithTimeout(time.Minute),
			driver.WithLogger(discard()))

		_, err := d.Execute(context.Background(), "list dags", dagtalk.ListDagsIntent{})
		require.NoError(t, err)
		require.True(t, hasDeadline)
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
	})

	t.Run("zero timeout leaves the context unbounded", func(t *testing.T) {
		t.Parallel()
		var hasDeadline bool
		orch := &mock.Orchestrator{
			ListDagsFn: func(ctx context.Context) ([]dagtalk.Dag, error) {
				_, hasDeadline = ctx.Deadline()
				return nil, nil
			},
		}
		d := driver.New(orch, rule.New(),
			driver.WithTimeout(0),
			driver.WithLogger(discard()))

		_, err := d.Execute(context.Background(), "list dags", dagtalk.ListDagsIntent{})
		require.NoError(t, err)
		assert.False(t, hasDeadline)
	})
}

func TestOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil is ok", nil, "ok"},
		{"unknown outcome wins over transport", fmt.Errorf("x: %w: %w", dagtalk.ErrOutcomeUnknown, dagtalk.ErrTransport), "unknown"},
		{"denied", fmt.Errorf("x: %w", dagtalk.ErrDenied), "denied"},
		{"not found", fmt.Errorf("x: %w", dagtalk.ErrNotFound), "not_found"},
		{"conflict", fmt.Errorf("x: %w", dagtalk.ErrConflict), "conflict"},
		{"ambiguous", fmt.Errorf("x: %w", dagtalk.ErrAmbiguousInstruction), "ambiguous"},
		{"unsupported", fmt.Errorf("x: %w", dagtalk.ErrUnsupportedInstruction), "unsupported"},
		{"transport", fmt.Errorf("x: %w", dagtalk.ErrTransport), "transport_error"},
		{"protocol", fmt.Errorf("x: %w", dagtalk.ErrProtocol), "protocol_error"},
		{"unclassified", errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, driver.Outcome(tt.err))
		})
	}
}
