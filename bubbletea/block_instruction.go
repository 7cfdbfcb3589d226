package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var _ MessageBlock = (*InstructionBlock)(nil)

// InstructionBlock echoes a submitted instruction with a "> " prefix.
type InstructionBlock struct {
	text   string
	styles Styles
}

// NewInstructionBlock creates an InstructionBlock.
func NewInstructionBlock(text string, styles Styles) *InstructionBlock {
	return &InstructionBlock{text: text, styles: styles}
}

func (b *InstructionBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *InstructionBlock) View(width int) string {
	content := b.styles.Instruction.Render("> ") + b.text
	return lipgloss.NewStyle().Width(width).Render(content)
}
