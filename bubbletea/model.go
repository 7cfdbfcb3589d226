package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dagtalk/dagtalk"
)

var _ tea.Model = Model{}

// phase is the state of the current exchange. Confirming sits between
// resolve and execute: a trigger intent has been resolved and waits for
// the user's y/n before anything reaches the orchestrator.
type phase int

const (
	phaseIdle phase = iota
	phaseResolving
	phaseConfirming
	phaseExecuting
)

// Model is the Bubble Tea model for the dagtalk console.
type Model struct {
	// Input is the instruction input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable transcript area. Exported for test access.
	Viewport viewport.Model

	resolve ResolveFunc
	execute ExecuteFunc
	theme   dagtalk.Theme
	styles  Styles

	blocks     []MessageBlock
	blockFocus int // index of focused collapsible block (-1 = none)

	phase       phase
	instruction dagtalk.Instruction // instruction of the in-flight exchange
	pending     dagtalk.Intent      // trigger awaiting confirmation
	cancel      context.CancelFunc
	err         error
	ready       bool
}

// New creates a console Model with the given resolve and execute functions.
func New(resolve ResolveFunc, execute ExecuteFunc, theme dagtalk.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Type an instruction..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		Input:      ti,
		resolve:    resolve,
		execute:    execute,
		theme:      theme,
		styles:     NewStyles(theme),
		blockFocus: -1,
	}
}

// Running returns whether a resolve or execute call is in flight.
func (m Model) Running() bool {
	return m.phase == phaseResolving || m.phase == phaseExecuting
}

// Confirming returns whether a trigger intent is waiting for y/n.
func (m Model) Confirming() bool { return m.phase == phaseConfirming }

// Err returns the last error, if any.
func (m Model) Err() error { return m.err }

// SetResolving is a test helper that puts the model in the resolving state.
func SetResolving(m Model) (Model, tea.Cmd) {
	m.phase = phaseResolving
	return m, nil
}

// SetResolvingWithCancel is a test helper that puts the model in the
// resolving state with a cancel function.
func SetResolvingWithCancel(m Model, cancel func()) (Model, tea.Cmd) {
	m.phase = phaseResolving
	m.cancel = cancel
	return m, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ResolveDoneMsg:
		return m.handleResolveDone(msg)

	case ExecuteDoneMsg:
		return m.handleExecuteDone(msg)
	}

	// Pass remaining messages to sub-components.
	// Viewport always receives messages for scrolling (keyboard and mouse).
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if m.phase == phaseIdle {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder

	// Transcript area.
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")

	// Status line.
	b.WriteString(m.statusLine())
	b.WriteString("\n")

	// Input area.
	b.WriteString(m.Input.View())

	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputHeight := 1
	statusHeight := 1
	borderHeight := 2 // newlines between sections
	vpHeight := msg.Height - inputHeight - statusHeight - borderHeight

	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}

	// Blocks wrap at viewport width, so a resize re-renders the transcript.
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.Running() {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.phase != phaseIdle {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submitInput(text)

	case tea.KeyTab:
		if !m.Running() && m.blockFocus >= 0 {
			block, cmd := m.blocks[m.blockFocus].Update(ToggleMsg{})
			m.blocks[m.blockFocus] = block
			m.Viewport.SetContent(m.renderContent())
			return m, cmd
		}
		return m, nil

	case tea.KeyShiftTab:
		if !m.Running() {
			m = m.cycleFocusPrev()
			m.Viewport.SetContent(m.renderContent())
		}
		return m, nil
	}

	if m.phase == phaseConfirming {
		return m.handleConfirmKey(msg)
	}

	// When idle, pass keys to both input (for typing) and viewport
	// (for scrolling). Only forward non-character keys to viewport to avoid
	// conflicts (e.g. 'j'/'k' are viewport scroll AND text characters).
	if m.phase == phaseIdle {
		var cmd tea.Cmd
		var cmds []tea.Cmd

		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)

		return m, tea.Batch(cmds...)
	}

	return m, nil
}

// handleConfirmKey handles keys while a trigger waits for approval. Only
// an explicit y runs the trigger; n and Esc skip it. Non-character keys
// still scroll the viewport so the intent card can be reviewed first.
func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEsc:
		return m.declinePending()

	case msg.Type == tea.KeyRunes && len(msg.Runes) == 1:
		switch unicode.ToLower(msg.Runes[0]) {
		case 'y':
			return m.startExecute(m.pending)
		case 'n':
			return m.declinePending()
		}
		return m, nil

	case msg.Type != tea.KeyRunes:
		var cmd tea.Cmd
		m.Viewport, cmd = m.Viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) submitInput(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.err = nil
	m.instruction = dagtalk.Instruction(text)

	m.blocks = append(m.blocks, NewInstructionBlock(text, m.styles))
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.phase = phaseResolving

	m.Input.Blur()

	return m, resolveCmd(ctx, m.resolve, m.instruction)
}

func (m Model) handleResolveDone(msg ResolveDoneMsg) (tea.Model, tea.Cmd) {
	if m.phase != phaseResolving {
		return m, nil
	}
	m.cancel = nil

	if msg.Err != nil {
		m.phase = phaseIdle
		if !errors.Is(msg.Err, context.Canceled) {
			m.err = msg.Err
			if msg.Resolution.Explanation != "" {
				m.blocks = append(m.blocks, NewExplanationBlock(msg.Resolution.Explanation, true, m.theme, m.styles))
			}
			m.blocks = append(m.blocks, NewErrorBlock(msg.Err, m.styles))
			m = m.updateBlockFocus()
		}
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		return m, m.Input.Focus()
	}

	intent := msg.Resolution.Intent
	m.blocks = append(m.blocks, NewIntentBlock(intent, m.styles))
	if msg.Resolution.Explanation != "" {
		m.blocks = append(m.blocks, NewExplanationBlock(msg.Resolution.Explanation, false, m.theme, m.styles))
	}
	m = m.updateBlockFocus()

	if _, ok := intent.(dagtalk.TriggerDagIntent); ok {
		m.pending = intent
		m.phase = phaseConfirming
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		return m, nil
	}
	return m.startExecute(intent)
}

func (m Model) handleExecuteDone(msg ExecuteDoneMsg) (tea.Model, tea.Cmd) {
	if m.phase != phaseExecuting {
		return m, nil
	}
	m.cancel = nil
	m.phase = phaseIdle

	switch {
	case msg.Err == nil:
		m.blocks = append(m.blocks, NewResultBlock(msg.Report))
	case errors.Is(msg.Err, context.Canceled):
		// Cancelled by the user; nothing to report.
	default:
		m.err = msg.Err
		// A trigger with an unknown outcome still carries a partial run
		// worth showing, with advice on how to check it.
		if msg.Report.Run != nil {
			m.blocks = append(m.blocks, NewResultBlock(msg.Report))
		}
		m.blocks = append(m.blocks, NewErrorBlock(msg.Err, m.styles))
	}

	m = m.updateBlockFocus()
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m, m.Input.Focus()
}

func (m Model) startExecute(intent dagtalk.Intent) (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.phase = phaseExecuting
	m.pending = nil

	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()

	return m, executeCmd(ctx, m.execute, m.instruction, intent)
}

func (m Model) declinePending() (tea.Model, tea.Cmd) {
	intent := m.pending
	m.pending = nil
	m.phase = phaseIdle

	m.blocks = append(m.blocks, NewNoticeBlock(fmt.Sprintf("Skipped trigger of %s.", intent.Target()), m.styles))
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m, m.Input.Focus()
}

func (m Model) renderContent() string {
	if len(m.blocks) == 0 {
		return ""
	}
	var b strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			b.WriteString(blockSeparator(m.blocks[i-1], block))
		}
		b.WriteString(block.View(m.Viewport.Width))
	}
	return b.String()
}

// blockSeparator returns the separator between two adjacent blocks. An
// intent card and its explanation belong to the same resolution step and
// sit on adjacent lines; every other pair gets a blank line between.
func blockSeparator(prev, curr MessageBlock) string {
	if isResolutionStep(prev) && isResolutionStep(curr) {
		return "\n"
	}
	return "\n\n"
}

func isResolutionStep(b MessageBlock) bool {
	switch b.(type) {
	case *IntentBlock, *ExplanationBlock:
		return true
	}
	return false
}

// updateBlockFocus scans backwards to find the last collapsible block.
// Only the focused block responds to Tab. ShiftTab cycles to the previous
// collapsible block.
func (m Model) updateBlockFocus() Model {
	m.blockFocus = -1
	for i := len(m.blocks) - 1; i >= 0; i-- {
		switch m.blocks[i].(type) {
		case *IntentBlock, *ExplanationBlock:
			m.blockFocus = i
			return m
		}
	}
	return m
}

// cycleFocusPrev moves blockFocus to the previous collapsible block, wrapping around.
func (m Model) cycleFocusPrev() Model {
	start := m.blockFocus - 1
	if start < 0 {
		start = len(m.blocks) - 1
	}
	for i := range len(m.blocks) {
		idx := (start - i + len(m.blocks)) % len(m.blocks)
		switch m.blocks[idx].(type) {
		case *IntentBlock, *ExplanationBlock:
			m.blockFocus = idx
			return m
		}
	}
	m.blockFocus = -1
	return m
}

// statusLine reports the exchange phase. Errors are not repeated here;
// they live in the transcript, where they wrap to the viewport width.
func (m Model) statusLine() string {
	switch m.phase {
	case phaseResolving:
		return m.styles.Running.Render("Resolving...")
	case phaseExecuting:
		return m.styles.Running.Render("Executing...")
	case phaseConfirming:
		prompt := fmt.Sprintf("Trigger %s?", m.pending.Target())
		return m.styles.Intent.Render(prompt) + m.styles.Muted.Render(" y to run, n to skip")
	}
	return m.styles.Muted.Render("Enter to send, Tab to toggle, Ctrl+C to quit")
}

// resolveCmd runs the resolver in a goroutine and delivers the outcome.
func resolveCmd(ctx context.Context, resolve ResolveFunc, instruction dagtalk.Instruction) tea.Cmd {
	return func() tea.Msg {
		res, err := resolve(ctx, instruction)
		return ResolveDoneMsg{Resolution: res, Err: err}
	}
}

// executeCmd runs the executor in a goroutine and delivers the outcome.
func executeCmd(ctx context.Context, execute ExecuteFunc, instruction dagtalk.Instruction, intent dagtalk.Intent) tea.Cmd {
	return func() tea.Msg {
		report, err := execute(ctx, instruction, intent)
		return ExecuteDoneMsg{Report: report, Err: err}
	}
}
