// Package airflow implements [dagtalk.Orchestrator] for the Airflow stable
// REST API (v1).
//
// Every method performs one logical API interaction bounded by the caller's
// context plus the configured client timeout. Failures are classified with
// the dagtalk sentinel errors. A trigger failure whose request may have
// reached the server carries [dagtalk.ErrOutcomeUnknown] and still returns a
// partial result with the client-generated run ID, so callers can re-query
// the run instead of re-triggering it.
package airflow

import "time"

const (
	defaultBaseURL  = "http://localhost:8080"
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 100
	apiPrefix       = "/api/v1"
)

// apiDag is a DAG object as returned by /dags and /dags/{id}.
// Interval fields are null for DAGs with no next scheduled run.
type apiDag struct {
	DagID                 string     `json:"dag_id"`
	DagDisplayName        string     `json:"dag_display_name"`
	IsPaused              bool       `json:"is_paused"`
	Description           string     `json:"description"`
	NextDataIntervalStart *time.Time `json:"next_dagrun_data_interval_start"`
	NextDataIntervalEnd   *time.Time `json:"next_dagrun_data_interval_end"`
}

type apiDagList struct {
	Dags         []apiDag `json:"dags"`
	TotalEntries int      `json:"total_entries"`
}

// apiDagRun is a DAG run object. Conf values are arbitrary JSON; only the
// trigger path constrains them to strings.
type apiDagRun struct {
	DagRunID    string         `json:"dag_run_id"`
	DagID       string         `json:"dag_id"`
	State       string         `json:"state"`
	LogicalDate *time.Time     `json:"logical_date"`
	Conf        map[string]any `json:"conf"`
}

type apiDagRunList struct {
	DagRuns      []apiDagRun `json:"dag_runs"`
	TotalEntries int         `json:"total_entries"`
}

// apiTriggerRequest is the JSON body for POST /dags/{id}/dagRuns.
type apiTriggerRequest struct {
	DagRunID string            `json:"dag_run_id"`
	Conf     map[string]string `json:"conf"`
}

// apiError is the problem-details body returned on non-2xx responses.
type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
	Type   string `json:"type"`
}
