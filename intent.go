package dagtalk

// Tool names understood by the interpreter. Each maps to one Intent type
// and one Orchestrator call.
const (
	ToolListDags   = "list_dags"
	ToolTriggerDag = "trigger_dag"
	ToolRunStatus  = "get_run_status"
	ToolDagStatus  = "get_dag_status"
)

// Intent is a sealed interface representing one resolved orchestrator action.
// The unexported marker method prevents external implementations.
// Name() returns the tool name the intent decodes from. Target() returns the
// DAG the intent addresses, or "" for intents that address none; an intent
// never carries more than one DAG reference.
type Intent interface {
	isIntent()
	Name() string
	Target() DagRef
}

// ListDagsIntent lists the DAGs known to the orchestrator.
type ListDagsIntent struct {
	Pattern string // optional glob over DAG IDs; empty matches all
}

func (ListDagsIntent) isIntent() {}

// Name returns ToolListDags.
func (ListDagsIntent) Name() string { return ToolListDags }

// Target returns "": listing addresses no particular DAG.
func (ListDagsIntent) Target() DagRef { return "" }

// TriggerDagIntent starts a new run of one DAG.
type TriggerDagIntent struct {
	DagID DagRef
	Conf  map[string]string // run configuration passed through to the orchestrator
}

func (TriggerDagIntent) isIntent() {}

// Name returns ToolTriggerDag.
func (TriggerDagIntent) Name() string { return ToolTriggerDag }

// Target returns the DAG to trigger.
func (i TriggerDagIntent) Target() DagRef { return i.DagID }

// RunStatusIntent queries the state of one specific DAG run.
type RunStatusIntent struct {
	DagID DagRef
	RunID string
}

func (RunStatusIntent) isIntent() {}

// Name returns ToolRunStatus.
func (RunStatusIntent) Name() string { return ToolRunStatus }

// Target returns the DAG the run belongs to.
func (i RunStatusIntent) Target() DagRef { return i.DagID }

// DagStatusIntent queries the detailed status of one DAG, including its
// latest run.
type DagStatusIntent struct {
	DagID DagRef
}

func (DagStatusIntent) isIntent() {}

// Name returns ToolDagStatus.
func (DagStatusIntent) Name() string { return ToolDagStatus }

// Target returns the DAG to describe.
func (i DagStatusIntent) Target() DagRef { return i.DagID }

// Interface compliance checks.
var (
	_ Intent = ListDagsIntent{}
	_ Intent = TriggerDagIntent{}
	_ Intent = RunStatusIntent{}
	_ Intent = DagStatusIntent{}
)
