package dagtalk

import "time"

// RunState is the lifecycle state of a DAG run.
type RunState string

const (
	RunQueued  RunState = "queued"
	RunRunning RunState = "running"
	RunSuccess RunState = "success"
	RunFailed  RunState = "failed"
	RunUnknown RunState = "unknown"
)

// ParseRunState maps a raw orchestrator state to a RunState.
// Unrecognized values map to RunUnknown; callers keep the raw value
// alongside the parsed one.
func ParseRunState(raw string) RunState {
	switch raw {
	case "queued":
		return RunQueued
	case "running":
		return RunRunning
	case "success":
		return RunSuccess
	case "failed":
		return RunFailed
	default:
		return RunUnknown
	}
}

// Terminal reports whether the state can no longer change.
func (s RunState) Terminal() bool {
	return s == RunSuccess || s == RunFailed
}

// RunResult describes one DAG run as reported by the orchestrator.
type RunResult struct {
	DagID       DagRef
	RunID       string
	State       RunState
	RawState    string
	LogicalDate time.Time
	Conf        map[string]string
}
