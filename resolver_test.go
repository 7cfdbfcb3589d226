package dagtalk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dagtalk/dagtalk"
)

func TestSystemPrompt(t *testing.T) {
	t.Parallel()

	t.Run("includes the catalog with display names and paused markers", func(t *testing.T) {
		t.Parallel()
		got := dagtalk.SystemPrompt([]dagtalk.Dag{
			{ID: "payment_report_daily", DisplayName: "Daily Payment Report"},
			{ID: "user_sync", DisplayName: "User Sync", Paused: true},
		})
		assert.Contains(t, got, "Never invent or guess IDs")
		assert.Contains(t, got, "DAG catalog:")
		assert.Contains(t, got, "- payment_report_daily: Daily Payment Report")
		assert.Contains(t, got, "- user_sync: User Sync [paused]")
	})

	t.Run("omits the catalog section when none was supplied", func(t *testing.T) {
		t.Parallel()
		got := dagtalk.SystemPrompt(nil)
		assert.Contains(t, got, "Never invent or guess IDs")
		assert.NotContains(t, got, "DAG catalog:")
	})

	t.Run("skips a display name that repeats the id", func(t *testing.T) {
		t.Parallel()
		got := dagtalk.SystemPrompt([]dagtalk.Dag{
			{ID: "user_sync", DisplayName: "user_sync"},
			{ID: "payment_report_daily", DisplayName: "Daily Payment Report"},
		})
		assert.Contains(t, got, "- user_sync\n")
		assert.NotContains(t, got, "user_sync: user_sync")
	})
}
