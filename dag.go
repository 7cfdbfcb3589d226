package dagtalk

import "time"

// DagRef is the stable identifier of a DAG at the orchestrator.
type DagRef string

// Dag is one catalog entry from the orchestrator's DAG listing.
type Dag struct {
	ID          DagRef
	DisplayName string
	Paused      bool
	Description string
}

// DagStatus is the detailed status of one DAG including its latest run.
// LastRunID is empty when the DAG has never run.
type DagStatus struct {
	ID                    DagRef
	DisplayName           string
	Paused                bool
	NextDataIntervalStart time.Time // zero when the orchestrator reports none
	NextDataIntervalEnd   time.Time
	LastRunID             string
	LastRunState          RunState
	LastRunRawState       string
	TotalRuns             int
}
