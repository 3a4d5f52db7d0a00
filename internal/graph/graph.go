package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/nodular/internal/ctxlog"
	"github.com/specialistvlad/nodular/internal/node"
	"github.com/specialistvlad/nodular/internal/nodeid"
)

// graphIDs issues process-unique graph identities.
var graphIDs nodeid.Sequence

// Graph owns an insertion-ordered collection of nodes.
type Graph struct {
	id    nodeid.ID
	ids   nodeid.Sequence
	nodes []*node.Node
	opts  options
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{id: graphIDs.Next()}
	for _, opt := range opts {
		opt(&g.opts)
	}
	return g
}

// ID returns the graph's process-unique identity.
func (g *Graph) ID() nodeid.ID { return g.id }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*node.Node {
	return append([]*node.Node(nil), g.nodes...)
}

// AddNode creates a node, appends it to the graph and returns its id.
func (g *Graph) AddNode(name string) nodeid.ID {
	n := node.New(g.ids.Next(), name, &g.ids)
	g.nodes = append(g.nodes, n)
	return n.ID()
}

// GetNodeByID returns the node with the given id, or an error wrapping
// ErrNotFound. It never mutates the graph.
func (g *Graph) GetNodeByID(id nodeid.ID) (*node.Node, error) {
	if idx := g.indexOf(id); idx >= 0 {
		return g.nodes[idx], nil
	}
	return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
}

// RemoveNode removes a node from the graph. The node's own inputs are
// unsubscribed from their upstream buses and every input of another node
// bound to one of its outputs is detached, so no callback can reach or
// originate from the removed node afterwards.
func (g *Graph) RemoveNode(id nodeid.ID) error {
	idx := g.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	removed := g.nodes[idx]

	// Detach while the node is still resolvable, so its buses can be found.
	removed.Destroy(g)
	for _, other := range g.nodes {
		if other != removed {
			other.DetachFrom(id, g)
		}
	}

	g.nodes = append(g.nodes[:idx], g.nodes[idx+1:]...)
	return nil
}

// ResolvePort implements node.Resolver against the graph's live nodes.
func (g *Graph) ResolvePort(ref nodeid.PortRef) (*node.Node, *node.OutputPort, bool) {
	return node.Snapshot(g.nodes).ResolvePort(ref)
}

// Bind adds an input named input to node nodeID, bound to the output named
// by ref. An unresolvable ref yields a *node.BindError unless the graph was
// created WithSilentBind, in which case the unbound port is kept and a
// warning logged.
func (g *Graph) Bind(ctx context.Context, nodeID nodeid.ID, input string, ref nodeid.PortRef) (*node.InputPort, error) {
	n, err := g.GetNodeByID(nodeID)
	if err != nil {
		return nil, err
	}

	port, err := n.AddInput(input, ref, g)
	var bindErr *node.BindError
	if errors.As(err, &bindErr) && g.opts.silentBind {
		ctxlog.FromContext(ctx).Warn("Input left unbound, upstream not found.",
			"nodeID", nodeID.String(), "input", input, "ref", ref.String())
		return port, nil
	}
	return port, err
}

// Unbind removes an input from a node, unsubscribing it from its upstream.
func (g *Graph) Unbind(nodeID nodeid.ID, input string) error {
	n, err := g.GetNodeByID(nodeID)
	if err != nil {
		return err
	}
	port, ok := n.Input(input)
	if !ok {
		return fmt.Errorf("node %s: input %q: %w", nodeID, input, node.ErrPortNotFound)
	}
	return n.RemoveInput(port, g)
}

// RemoveOutput removes an output from a node and detaches every input bound
// to it.
func (g *Graph) RemoveOutput(nodeID nodeid.ID, output string) error {
	n, err := g.GetNodeByID(nodeID)
	if err != nil {
		return err
	}
	port, ok := n.Output(output)
	if !ok {
		return fmt.Errorf("node %s: output %q: %w", nodeID, output, node.ErrPortNotFound)
	}

	ref := nodeid.Ref(nodeID, port.ID())
	for _, other := range g.nodes {
		other.DetachPort(ref, g)
	}
	return n.RemoveOutput(port)
}

func (g *Graph) indexOf(id nodeid.ID) int {
	for i, n := range g.nodes {
		if n.ID() == id {
			return i
		}
	}
	return -1
}
