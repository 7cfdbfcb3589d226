package bubbletea_test

import (
	"context"
	"regexp"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dagtalk/dagtalk"
	bt "github.com/dagtalk/dagtalk/bubbletea"
	"github.com/stretchr/testify/require"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// stripANSI removes ANSI escape sequences so assertions can look at the
// raw characters regardless of the active color profile.
func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// initModel creates a model and sends a WindowSizeMsg to initialize the viewport.
func initModel(t *testing.T, resolve bt.ResolveFunc, execute bt.ExecuteFunc) bt.Model {
	t.Helper()
	return initModelWithSize(t, resolve, execute, 80, 24)
}

// initModelWithSize creates a model with a custom terminal size.
func initModelWithSize(t *testing.T, resolve bt.ResolveFunc, execute bt.ExecuteFunc, width, height int) bt.Model {
	t.Helper()
	m := bt.New(resolve, execute, dagtalk.DefaultTheme())
	updated, _ := m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// nopResolve is a resolver stub that returns an empty resolution.
func nopResolve(_ context.Context, _ dagtalk.Instruction) (dagtalk.Resolution, error) {
	return dagtalk.Resolution{}, nil
}

// nopExecute is an executor stub that returns an empty report.
func nopExecute(_ context.Context, _ dagtalk.Instruction, intent dagtalk.Intent) (dagtalk.Report, error) {
	return dagtalk.Report{Intent: intent}, nil
}
