package dagtalk

import (
	"encoding/json"
	"fmt"
)

type listDagsArgs struct {
	Pattern string `json:"pattern"`
}

type triggerDagArgs struct {
	DagID string            `json:"dag_id"`
	Conf  map[string]string `json:"conf"`
}

type runStatusArgs struct {
	DagID string `json:"dag_id"`
	RunID string `json:"run_id"`
}

type dagStatusArgs struct {
	DagID string `json:"dag_id"`
}

// ListDagsSpec returns the tool spec for listing DAGs.
func ListDagsSpec() ToolSpec {
	return ToolSpec{
		Name:        ToolListDags,
		Description: "List the DAGs registered with the orchestrator, with their IDs and display names. Use this to find the DAG ID a request refers to.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"pattern": {
					"type": "string",
					"description": "Optional glob pattern to filter DAG IDs, e.g. payment_*"
				}
			}
		}`),
		Decode: func(args json.RawMessage) (Intent, error) {
			var a listDagsArgs
			if err := unmarshalArgs(ToolListDags, args, &a); err != nil {
				return nil, err
			}
			return ListDagsIntent{Pattern: a.Pattern}, nil
		},
	}
}

// TriggerDagSpec returns the tool spec for starting a new DAG run.
func TriggerDagSpec() ToolSpec {
	return ToolSpec{
		Name:        ToolTriggerDag,
		Description: "Start a new run of a specific DAG by its ID. Only use a DAG ID that appears in the request or in the DAG catalog.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"dag_id": {
					"type": "string",
					"description": "ID of the DAG to trigger"
				},
				"conf": {
					"type": "object",
					"additionalProperties": {"type": "string"},
					"description": "Optional run configuration passed to the new run"
				}
			},
			"required": ["dag_id"]
		}`),
		Decode: func(args json.RawMessage) (Intent, error) {
			var a triggerDagArgs
			if err := unmarshalArgs(ToolTriggerDag, args, &a); err != nil {
				return nil, err
			}
			if a.DagID == "" {
				return nil, fmt.Errorf("%s: missing dag_id: %w", ToolTriggerDag, ErrAmbiguousInstruction)
			}
			return TriggerDagIntent{DagID: DagRef(a.DagID), Conf: a.Conf}, nil
		},
	}
}

// RunStatusSpec returns the tool spec for querying one DAG run.
func RunStatusSpec() ToolSpec {
	return ToolSpec{
		Name:        ToolRunStatus,
		Description: "Get the current state of one DAG run, identified by DAG ID and run ID.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"dag_id": {
					"type": "string",
					"description": "ID of the DAG the run belongs to"
				},
				"run_id": {
					"type": "string",
					"description": "ID of the DAG run to query"
				}
			},
			"required": ["dag_id", "run_id"]
		}`),
		Decode: func(args json.RawMessage) (Intent, error) {
			var a runStatusArgs
			if err := unmarshalArgs(ToolRunStatus, args, &a); err != nil {
				return nil, err
			}
			if a.DagID == "" {
				return nil, fmt.Errorf("%s: missing dag_id: %w", ToolRunStatus, ErrAmbiguousInstruction)
			}
			if a.RunID == "" {
				return nil, fmt.Errorf("%s: missing run_id: %w", ToolRunStatus, ErrAmbiguousInstruction)
			}
			return RunStatusIntent{DagID: DagRef(a.DagID), RunID: a.RunID}, nil
		},
	}
}

// DagStatusSpec returns the tool spec for querying detailed DAG status.
func DagStatusSpec() ToolSpec {
	return ToolSpec{
		Name:        ToolDagStatus,
		Description: "Get detailed status information for a specific DAG by DAG ID, including its latest run.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"dag_id": {
					"type": "string",
					"description": "ID of the DAG to describe"
				}
			},
			"required": ["dag_id"]
		}`),
		Decode: func(args json.RawMessage) (Intent, error) {
			var a dagStatusArgs
			if err := unmarshalArgs(ToolDagStatus, args, &a); err != nil {
				return nil, err
			}
			if a.DagID == "" {
				return nil, fmt.Errorf("%s: missing dag_id: %w", ToolDagStatus, ErrAmbiguousInstruction)
			}
			return DagStatusIntent{DagID: DagRef(a.DagID)}, nil
		},
	}
}

// DefaultRegistry returns a Registry with the four built-in tool specs.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(ListDagsSpec(), TriggerDagSpec(), RunStatusSpec(), DagStatusSpec())
	if err != nil {
		// the built-in specs are static and unique; NewRegistry cannot fail here
		panic(err)
	}
	return r
}

// unmarshalArgs decodes raw tool arguments. A nil or empty payload decodes
// as an empty object.
func unmarshalArgs(name string, args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("decode %s arguments: %w: %w", name, ErrProtocol, err)
	}
	return nil
}
