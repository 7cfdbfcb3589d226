package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dagtalk/dagtalk"
	"github.com/dagtalk/dagtalk/config"
)

// Interface compliance check.
var _ dagtalk.Gate = (*promptGate)(nil)

// newGate returns the approval gate for one-shot mode.
func newGate(confirm string) dagtalk.Gate {
	if confirm == config.ConfirmAuto {
		return dagtalk.AutoApprove{}
	}
	return &promptGate{in: os.Stdin, out: os.Stderr}
}

// promptGate asks on the terminal before a run-starting intent executes.
// Anything other than an explicit yes declines.
type promptGate struct {
	in  io.Reader
	out io.Writer
}

func (g *promptGate) Approve(_ context.Context, intent dagtalk.Intent) error {
	fmt.Fprintf(g.out, "Trigger %s? [y/N] ", intent.Target())

	line, err := bufio.NewReader(g.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read approval: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return nil
	}
	return fmt.Errorf("trigger of %s declined: %w", intent.Target(), dagtalk.ErrDenied)
}
