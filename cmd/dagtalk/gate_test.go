package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dagtalk/dagtalk"
	"github.com/dagtalk/dagtalk/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gateIntent = dagtalk.TriggerDagIntent{DagID: "payment_report_daily"}

func TestPromptGate_YApproves(t *testing.T) {
	t.Parallel()
	g := &promptGate{in: strings.NewReader("y\n"), out: &bytes.Buffer{}}
	assert.NoError(t, g.Approve(context.Background(), gateIntent))
}

func TestPromptGate_YesApproves(t *testing.T) {
	t.Parallel()
	g := &promptGate{in: strings.NewReader("yes\n"), out: &bytes.Buffer{}}
	assert.NoError(t, g.Approve(context.Background(), gateIntent))
}

func TestPromptGate_CaseInsensitive(t *testing.T) {
	t.Parallel()
	g := &promptGate{in: strings.NewReader("Y\n"), out: &bytes.Buffer{}}
	assert.NoError(t, g.Approve(context.Background(), gateIntent))
}

func TestPromptGate_NDeclines(t *testing.T) {
	t.Parallel()
	g := &promptGate{in: strings.NewReader("n\n"), out: &bytes.Buffer{}}
	err := g.Approve(context.Background(), gateIntent)
	require.Error(t, err)
	assert.ErrorIs(t, err, dagtalk.ErrDenied)
}

func TestPromptGate_EmptyLineDeclines(t *testing.T) {
	t.Parallel()
	// Enter alone takes the default, which is No.
	g := &promptGate{in: strings.NewReader("\n"), out: &bytes.Buffer{}}
	assert.ErrorIs(t, g.Approve(context.Background(), gateIntent), dagtalk.ErrDenied)
}

func TestPromptGate_EOFDeclines(t *testing.T) {
	t.Parallel()
	// A closed stdin can never approve a run.
	g := &promptGate{in: strings.NewReader(""), out: &bytes.Buffer{}}
	assert.ErrorIs(t, g.Approve(context.Background(), gateIntent), dagtalk.ErrDenied)
}

func TestPromptGate_PromptNamesTheDag(t *testing.T) {
	t.Parallel()
	out := &bytes.Buffer{}
	g := &promptGate{in: strings.NewReader("y\n"), out: out}
	require.NoError(t, g.Approve(context.Background(), gateIntent))
	assert.Contains(t, out.String(), "Trigger payment_report_daily? [y/N]")
}

func TestNewGate_AutoMode(t *testing.T) {
	t.Parallel()
	g := newGate(config.ConfirmAuto)
	assert.NoError(t, g.Approve(context.Background(), gateIntent))
}

func TestNewGate_PromptMode(t *testing.T) {
	t.Parallel()
	_, ok := newGate(config.ConfirmPrompt).(*promptGate)
	assert.True(t, ok)
}
