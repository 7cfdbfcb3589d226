package dagtalk

import "context"

// Gate decides whether a resolved intent may execute. It sits between
// resolution and execution: a nil error approves, and rejections wrap
// ErrDenied. Read-only intents pass through gates unasked; drivers consult
// the gate for intents that start runs.
type Gate interface {
	Approve(ctx context.Context, intent Intent) error
}

// AutoApprove is a Gate that approves every intent.
type AutoApprove struct{}

// Approve returns nil.
func (AutoApprove) Approve(context.Context, Intent) error { return nil }

// Interface compliance check.
var _ Gate = AutoApprove{}
