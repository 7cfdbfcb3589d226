package bubbletea_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/dagtalk/dagtalk"
	bt "github.com/dagtalk/dagtalk/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestErrorBlock_View(t *testing.T) {
	t.Parallel()

	styles := bt.NewStyles(dagtalk.DefaultTheme())

	t.Run("renders error message", func(t *testing.T) {
		t.Parallel()
		block := bt.NewErrorBlock(errors.New("connection refused"), styles)
		view := block.View(80)
		assert.Contains(t, view, "Error: connection refused")
	})

	t.Run("wraps long errors to width", func(t *testing.T) {
		t.Parallel()
		err := errors.New("a transport failure description that easily exceeds the available width")
		block := bt.NewErrorBlock(err, styles)
		view := block.View(30)
		assert.Contains(t, view, "width")
		assert.Greater(t, len(strings.Split(view, "\n")), 1)
	})
}

func TestNoticeBlock_View(t *testing.T) {
	t.Parallel()

	styles := bt.NewStyles(dagtalk.DefaultTheme())

	block := bt.NewNoticeBlock("Skipped trigger of payment_report_daily.", styles)
	assert.Contains(t, block.View(80), "Skipped trigger of payment_report_daily.")
}
