// Package bubbletea provides the interactive Bubble Tea console for dagtalk.
//
// Each submitted instruction runs as one exchange: resolve the instruction
// into an intent, show the intent card, and execute. Trigger intents pause
// for an explicit y/n confirmation before anything is sent to the
// orchestrator; read-only intents execute immediately.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dagtalk/dagtalk"
)

// ResolveFunc turns one instruction into an intent. The function blocks
// until resolution completes or the context is cancelled.
type ResolveFunc func(ctx context.Context, instruction dagtalk.Instruction) (dagtalk.Resolution, error)

// ExecuteFunc executes a resolved intent against the orchestrator. The
// instruction is carried along for audit provenance.
type ExecuteFunc func(ctx context.Context, instruction dagtalk.Instruction, intent dagtalk.Intent) (dagtalk.Report, error)

// Run creates and runs the Bubble Tea program. It blocks until the program
// exits. The context is used for graceful shutdown; when cancelled, the
// program quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// ResolveDoneMsg carries the outcome of resolving an instruction.
type ResolveDoneMsg struct {
	Resolution dagtalk.Resolution
	Err        error
}

// ExecuteDoneMsg carries the outcome of executing an intent.
type ExecuteDoneMsg struct {
	Report dagtalk.Report
	Err    error
}
