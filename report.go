package dagtalk

// Report is the structured outcome of one executed intent, handed to the
// rendering layer. At most one payload field is set, matching the intent.
type Report struct {
	Intent      Intent
	Dags        []Dag      // ListDagsIntent
	Run         *RunResult // TriggerDagIntent and RunStatusIntent
	Status      *DagStatus // DagStatusIntent
	Explanation string     // resolver explanation, markdown; may be empty
	Advice      string     // recovery guidance, e.g. how to re-query an unknown outcome
}
