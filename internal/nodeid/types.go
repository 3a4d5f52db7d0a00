// internal/nodeid/types.go
package nodeid

import (
	"fmt"
	"strconv"
	"sync/atomic"
)

// ID identifies a graph, node or port. Zero is never issued.
type ID uint64

// String returns the decimal form of the ID.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Sequence issues strictly increasing IDs starting at 1.
type Sequence struct {
	last atomic.Uint64
}

// Next returns the next ID of the sequence.
func (s *Sequence) Next() ID {
	return ID(s.last.Add(1))
}

// PortRef names an output port of a node within one graph. It is a key, never
// a pointer: it has to be resolved through the owning graph at use time.
type PortRef struct {
	Node ID
	Port ID
}

// Ref is shorthand for PortRef{Node: node, Port: port}.
func Ref(node, port ID) PortRef {
	return PortRef{Node: node, Port: port}
}

// IsZero reports whether the reference is unset.
func (r PortRef) IsZero() bool {
	return r.Node == 0 && r.Port == 0
}

// String serializes the reference into its canonical `n<node>.p<port>` form.
func (r PortRef) String() string {
	return fmt.Sprintf("n%d.p%d", r.Node, r.Port)
}
