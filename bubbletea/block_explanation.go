package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dagtalk/dagtalk"
	"github.com/dagtalk/dagtalk/markdown"
)

var _ MessageBlock = (*ExplanationBlock)(nil)

// ExplanationBlock renders the resolver's explanation with a collapsible
// toggle. Explanations on a successful resolution start collapsed; an
// explanation attached to a failed resolution starts expanded, since it
// says what went wrong.
type ExplanationBlock struct {
	text      string
	collapsed bool
	theme     dagtalk.Theme
	styles    Styles

	// Explanation text never changes after creation, so the markdown
	// render is cached per width.
	renderedByWidth map[int]string
}

// NewExplanationBlock creates an ExplanationBlock.
func NewExplanationBlock(text string, expanded bool, theme dagtalk.Theme, styles Styles) *ExplanationBlock {
	return &ExplanationBlock{
		text:            text,
		collapsed:       !expanded,
		theme:           theme,
		styles:          styles,
		renderedByWidth: make(map[int]string),
	}
}

func (b *ExplanationBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(ToggleMsg); ok {
		b.collapsed = !b.collapsed
	}
	return b, nil
}

func (b *ExplanationBlock) View(width int) string {
	indicator := "▶"
	if !b.collapsed {
		indicator = "▼"
	}
	header := b.styles.Muted.Render(indicator + " Why")
	if b.collapsed {
		return header
	}
	return header + "\n" + b.rendered(width)
}

func (b *ExplanationBlock) rendered(width int) string {
	if cached, ok := b.renderedByWidth[width]; ok {
		return cached
	}
	r := markdown.Render(b.text, width, b.theme)
	b.renderedByWidth[width] = r
	return r
}
