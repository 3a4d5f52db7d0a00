package feed

import (
	"context"

	"github.com/specialistvlad/nodular/internal/ctxlog"
	"github.com/specialistvlad/nodular/internal/eventbus"
	"github.com/specialistvlad/nodular/internal/graph"
	"github.com/specialistvlad/nodular/internal/node"
	"github.com/specialistvlad/nodular/internal/script"
	"github.com/zclconf/go-cty/cty"
)

// Emitter sends a named event with a payload to the observer.
type Emitter interface {
	Emit(event string, payload any)
}

// Update is the payload emitted for every recomputed output value.
type Update struct {
	Graph string `json:"graph"`
	Node  string `json:"node"`
	Port  string `json:"port"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type subscription struct {
	bus      *eventbus.Bus
	listener *eventbus.Listener
}

// Forwarder relays update events of output buses to an Emitter.
type Forwarder struct {
	emitter Emitter
	subs    []subscription
}

// NewForwarder creates a forwarder emitting through e.
func NewForwarder(e Emitter) *Forwarder {
	return &Forwarder{emitter: e}
}

// Attach subscribes to every output of every node currently in g and returns
// the number of outputs attached. Outputs added later are not observed.
func (f *Forwarder) Attach(ctx context.Context, g *graph.Graph) int {
	logger := ctxlog.FromContext(ctx).With("graphID", g.ID().String())

	count := 0
	for _, n := range g.Nodes() {
		for _, out := range n.Outputs() {
			l := eventbus.NewListener(f.forward(ctx, g, n, out))
			out.Bus().Subscribe(eventbus.EventUpdate, l)
			f.subs = append(f.subs, subscription{bus: out.Bus(), listener: l})
			count++
		}
	}
	logger.Debug("Feed attached to graph outputs.", "outputs", count)
	return count
}

// Detach removes every subscription made by Attach and returns how many were
// still registered. Subscriptions dropped by a bus Clear are not counted.
func (f *Forwarder) Detach() int {
	live := 0
	for _, s := range f.subs {
		if s.bus.Has(eventbus.EventUpdate, s.listener) {
			live++
		}
		s.bus.Unsubscribe(eventbus.EventUpdate, s.listener)
	}
	f.subs = nil
	return live
}

// forward builds the listener for one output port. Conversion failures are
// logged and dropped so an observer can never fail a node run.
func (f *Forwarder) forward(ctx context.Context, g *graph.Graph, n *node.Node, out *node.OutputPort) func(any) error {
	update := Update{
		Graph: g.ID().String(),
		Node:  n.ID().String(),
		Port:  out.ID().String(),
		Name:  out.Name(),
	}
	return func(payload any) error {
		value, err := nativePayload(payload)
		if err != nil {
			ctxlog.FromContext(ctx).Warn("Dropping update that cannot be encoded.",
				"nodeID", update.Node, "output", update.Name, "error", err)
			return nil
		}
		u := update
		u.Value = value
		f.emitter.Emit(eventbus.EventUpdate, u)
		return nil
	}
}

// nativePayload converts a published cty value into plain Go values that
// encode to JSON. Other payloads pass through untouched.
func nativePayload(payload any) (any, error) {
	if v, ok := payload.(cty.Value); ok {
		return script.ToNative(v)
	}
	return payload, nil
}
