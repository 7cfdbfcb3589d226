package bubbletea_test

import (
	"testing"

	"github.com/dagtalk/dagtalk"
	bt "github.com/dagtalk/dagtalk/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestExplanationBlock_View(t *testing.T) {
	t.Parallel()

	theme := dagtalk.DefaultTheme()
	styles := bt.NewStyles(theme)

	t.Run("starts collapsed", func(t *testing.T) {
		t.Parallel()
		block := bt.NewExplanationBlock("Matched by keyword overlap.", false, theme, styles)
		view := block.View(80)
		assert.Contains(t, view, "▶ Why")
		assert.NotContains(t, view, "keyword overlap")
	})

	t.Run("expanded start for failed resolutions", func(t *testing.T) {
		t.Parallel()
		block := bt.NewExplanationBlock("No DAG matches the description.", true, theme, styles)
		view := block.View(80)
		assert.Contains(t, view, "▼ Why")
		assert.Contains(t, view, "No DAG matches the description.")
	})

	t.Run("toggle via ToggleMsg", func(t *testing.T) {
		t.Parallel()
		block := bt.NewExplanationBlock("Matched by keyword overlap.", false, theme, styles)
		updated, _ := block.Update(bt.ToggleMsg{})
		block = updated.(*bt.ExplanationBlock)
		assert.Contains(t, block.View(80), "keyword overlap")
		updated, _ = block.Update(bt.ToggleMsg{})
		block = updated.(*bt.ExplanationBlock)
		assert.NotContains(t, block.View(80), "keyword overlap")
	})

	t.Run("renders markdown content", func(t *testing.T) {
		t.Parallel()
		block := bt.NewExplanationBlock("Matched **payment_report_daily** on keyword `run`.", true, theme, styles)
		view := stripANSI(block.View(80))
		// Markdown markers are consumed by the renderer.
		assert.Contains(t, view, "payment_report_daily")
		assert.Contains(t, view, "run")
		assert.NotContains(t, view, "**")
	})

	t.Run("same width renders identically across calls", func(t *testing.T) {
		t.Parallel()
		block := bt.NewExplanationBlock("Matched by keyword overlap.", true, theme, styles)
		assert.Equal(t, block.View(80), block.View(80))
	})
}
