package mock

import (
	"context"

	"github.com/dagtalk/dagtalk"
)

// Resolver is a test double for dagtalk.Resolver.
// Set ResolveFn before calling Resolve.
type Resolver struct {
	ResolveFn func(ctx context.Context, req dagtalk.ResolveRequest) (dagtalk.Resolution, error)
}

// Resolve delegates to ResolveFn.
func (r *Resolver) Resolve(ctx context.Context, req dagtalk.ResolveRequest) (dagtalk.Resolution, error) {
	return r.ResolveFn(ctx, req)
}

// Gate is a test double for dagtalk.Gate.
// Set ApproveFn before calling Approve.
type Gate struct {
	ApproveFn func(ctx context.Context, intent dagtalk.Intent) error
}

// Approve delegates to ApproveFn.
func (g *Gate) Approve(ctx context.Context, intent dagtalk.Intent) error {
	return g.ApproveFn(ctx, intent)
}
