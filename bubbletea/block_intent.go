package bubbletea

import (
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dagtalk/dagtalk"
)

var _ MessageBlock = (*IntentBlock)(nil)

// IntentBlock renders a resolved intent as a collapsible card: the tool
// name and target DAG in the header, the remaining parameters underneath.
// Read-only intents start collapsed; triggers start expanded so the exact
// payload is visible before the user approves it.
type IntentBlock struct {
	intent    dagtalk.Intent
	collapsed bool
	styles    Styles
}

// NewIntentBlock creates an IntentBlock for the given intent.
func NewIntentBlock(intent dagtalk.Intent, styles Styles) *IntentBlock {
	_, trigger := intent.(dagtalk.TriggerDagIntent)
	return &IntentBlock{intent: intent, collapsed: !trigger, styles: styles}
}

func (b *IntentBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(ToggleMsg); ok {
		b.collapsed = !b.collapsed
	}
	return b, nil
}

func (b *IntentBlock) View(width int) string {
	indicator := "▶"
	if !b.collapsed {
		indicator = "▼"
	}
	header := b.styles.Intent.Render(indicator + " " + b.intent.Name())
	if target := b.intent.Target(); target != "" {
		header += " " + b.styles.Accent.Render(string(target))
	}
	content := header
	if detail := intentDetail(b.intent); !b.collapsed && detail != "" {
		content = header + "\n" + b.styles.Muted.Render(detail)
	}
	return b.styles.IntentBg.
		Width(width).
		Render(content)
}

// intentDetail renders the intent parameters beyond the target DAG.
func intentDetail(intent dagtalk.Intent) string {
	switch in := intent.(type) {
	case dagtalk.ListDagsIntent:
		if in.Pattern != "" {
			return "pattern: " + in.Pattern
		}
	case dagtalk.TriggerDagIntent:
		return "conf: " + confString(in.Conf)
	case dagtalk.RunStatusIntent:
		return "run: " + in.RunID
	}
	return ""
}

func confString(conf map[string]string) string {
	if len(conf) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(conf))
	for k := range conf {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + conf[k]
	}
	return strings.Join(parts, " ")
}
