package graph

import (
	"context"
	"time"

	"github.com/specialistvlad/nodular/internal/node"
)

// Hooks are lifecycle callbacks invoked during EvaluateNodes. Any field may
// be nil.
type Hooks struct {
	OnCompile  func(ctx context.Context, n *node.Node, err error)
	OnRunStart func(ctx context.Context, n *node.Node)
	OnRunEnd   func(ctx context.Context, n *node.Node, elapsed time.Duration, err error)
}

// Option configures a Graph.
type Option func(*options)

type options struct {
	reentrant  bool
	silentBind bool
	hooks      []Hooks
}

// WithReentrantWalk makes the execute phase run a node once for every
// dependency path that reaches it, instead of once per pass.
func WithReentrantWalk() Option {
	return func(o *options) { o.reentrant = true }
}

// WithSilentBind makes Bind log and swallow unresolvable upstream references,
// leaving the input unbound, instead of returning a *node.BindError.
func WithSilentBind() Option {
	return func(o *options) { o.silentBind = true }
}

// WithHooks registers lifecycle callbacks. It may be given more than once.
func WithHooks(h Hooks) Option {
	return func(o *options) { o.hooks = append(o.hooks, h) }
}

func (o *options) compiled(ctx context.Context, n *node.Node, err error) {
	for _, h := range o.hooks {
		if h.OnCompile != nil {
			h.OnCompile(ctx, n, err)
		}
	}
}

func (o *options) runStarted(ctx context.Context, n *node.Node) {
	for _, h := range o.hooks {
		if h.OnRunStart != nil {
			h.OnRunStart(ctx, n)
		}
	}
}

func (o *options) runEnded(ctx context.Context, n *node.Node, elapsed time.Duration, err error) {
	for _, h := range o.hooks {
		if h.OnRunEnd != nil {
			h.OnRunEnd(ctx, n, elapsed, err)
		}
	}
}
