package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dagtalk/dagtalk"
	"github.com/dagtalk/dagtalk/driver"
)

var _ MessageBlock = (*ResultBlock)(nil)

// ResultBlock renders the outcome of an executed intent. The text comes
// from the same renderer the one-shot command line uses, so a run looks
// identical in both surfaces.
type ResultBlock struct {
	report dagtalk.Report
}

// NewResultBlock creates a ResultBlock.
func NewResultBlock(report dagtalk.Report) *ResultBlock {
	return &ResultBlock{report: report}
}

func (b *ResultBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *ResultBlock) View(width int) string {
	return driver.Render(b.report, width)
}
