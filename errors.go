package dagtalk

import "errors"

// Sentinel errors for the failure taxonomy. Callers classify failures with
// errors.Is; wrapped chains may carry more than one sentinel (for example a
// timed-out call matches both ErrTransport and context.DeadlineExceeded).
var (
	// ErrAmbiguousInstruction indicates a required parameter (usually the
	// DAG identifier) could not be extracted from the instruction with
	// enough confidence. Recoverable by re-prompting the user.
	ErrAmbiguousInstruction = errors.New("ambiguous instruction")

	// ErrUnsupportedInstruction indicates no registered tool matches the
	// instruction. Recoverable by re-prompting the user.
	ErrUnsupportedInstruction = errors.New("unsupported instruction")

	// ErrNotFound indicates the orchestrator does not know the requested
	// DAG or run.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the orchestrator rejected the request for
	// policy reasons (run already active, DAG paused).
	ErrConflict = errors.New("conflict")

	// ErrTransport indicates a network, timeout, or authentication failure
	// talking to an external endpoint.
	ErrTransport = errors.New("transport error")

	// ErrProtocol indicates a response that could not be decoded or did
	// not have the expected shape.
	ErrProtocol = errors.New("protocol error")

	// ErrOutcomeUnknown indicates a trigger request may have been accepted
	// by the orchestrator but the acknowledgment never arrived. The run
	// should be re-queried by ID, never re-triggered.
	ErrOutcomeUnknown = errors.New("outcome unknown")

	// ErrDenied indicates the policy gate rejected an intent before
	// execution.
	ErrDenied = errors.New("denied by policy")

	// ErrUnknownTool indicates a tool name with no registry entry.
	ErrUnknownTool = errors.New("unknown tool")
)
