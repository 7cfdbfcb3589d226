package bubbletea

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/dagtalk/dagtalk"
)

// Styles maps a Theme to lipgloss styles for TUI rendering.
type Styles struct {
	Instruction lipgloss.Style
	Intent      lipgloss.Style
	Error       lipgloss.Style
	Success     lipgloss.Style
	Running     lipgloss.Style
	Muted       lipgloss.Style
	Accent      lipgloss.Style
	IntentBg    lipgloss.Style
}

// NewStyles creates Styles from a Theme.
func NewStyles(t dagtalk.Theme) Styles {
	return Styles{
		Instruction: lipgloss.NewStyle().Foreground(ansiColor(t.Instruction)).Bold(true),
		Intent:      lipgloss.NewStyle().Foreground(ansiColor(t.Intent)),
		Error:       lipgloss.NewStyle().Foreground(ansiColor(t.Error)),
		Success:     lipgloss.NewStyle().Foreground(ansiColor(t.Success)),
		Running:     lipgloss.NewStyle().Foreground(ansiColor(t.Running)),
		Muted:       lipgloss.NewStyle().Foreground(ansiColor(t.Muted)).Faint(true),
		Accent:      lipgloss.NewStyle().Foreground(ansiColor(t.Accent)).Bold(true),
		IntentBg:    lipgloss.NewStyle().Background(ansiColor(t.CodeBg)).PaddingLeft(1),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}
