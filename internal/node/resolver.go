package node

import "github.com/specialistvlad/nodular/internal/nodeid"

// Resolver looks up an output port by reference.
type Resolver interface {
	ResolvePort(ref nodeid.PortRef) (*Node, *OutputPort, bool)
}

// Snapshot resolves references against a fixed list of nodes.
type Snapshot []*Node

// ResolvePort implements Resolver.
func (s Snapshot) ResolvePort(ref nodeid.PortRef) (*Node, *OutputPort, bool) {
	for _, n := range s {
		if n.id != ref.Node {
			continue
		}
		for _, out := range n.outputs {
			if out.id == ref.Port {
				return n, out, true
			}
		}
		return nil, nil, false
	}
	return nil, nil, false
}
