package node

import (
	"fmt"

	"github.com/specialistvlad/nodular/internal/eventbus"
	"github.com/specialistvlad/nodular/internal/nodeid"
	"github.com/specialistvlad/nodular/internal/script"
	"github.com/zclconf/go-cty/cty"
)

// Node is a single unit of computation in a graph.
type Node struct {
	// id is unique within the owning graph's lifetime.
	id nodeid.ID
	// Name is the human-readable display name. It also names the compiled
	// program in diagnostics.
	Name string

	code    string
	inputs  []*InputPort
	outputs []*OutputPort

	// ids issues port identities; it is shared with the owning graph.
	ids *nodeid.Sequence
	// program is nil until Init succeeds and again after any port change.
	program *script.Program
}

// New creates an empty node. Graphs are the only intended caller; ids must be
// the graph's sequence so node and port identities never collide.
func New(id nodeid.ID, name string, ids *nodeid.Sequence) *Node {
	return &Node{id: id, Name: name, ids: ids}
}

// ID returns the node's identity.
func (n *Node) ID() nodeid.ID { return n.id }

// Code returns the current code body.
func (n *Node) Code() string { return n.code }

// SetCode replaces the code body. The node must be re-initialized.
func (n *Node) SetCode(code string) {
	n.code = code
	n.invalidate()
}

// Inputs returns the ordered input ports.
func (n *Node) Inputs() []*InputPort { return append([]*InputPort(nil), n.inputs...) }

// Outputs returns the ordered output ports.
func (n *Node) Outputs() []*OutputPort { return append([]*OutputPort(nil), n.outputs...) }

// Input finds an input port by name.
func (n *Node) Input(name string) (*InputPort, bool) {
	for _, p := range n.inputs {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

// Output finds an output port by name.
func (n *Node) Output(name string) (*OutputPort, bool) {
	for _, p := range n.outputs {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

// Initialized reports whether a compiled program matching the current ports
// is available.
func (n *Node) Initialized() bool { return n.program != nil }

// AddInput creates an input port bound to the output named by ref. If r
// cannot resolve ref the port is still created, left unbound, and a
// *BindError is returned alongside it. A zero ref creates an unbound port
// without error.
func (n *Node) AddInput(name string, ref nodeid.PortRef, r Resolver) (*InputPort, error) {
	if n.nameTaken(name) {
		return nil, fmt.Errorf("node %s: input %q: %w", n.id, name, ErrDuplicatePort)
	}

	port := &InputPort{
		id:       n.ids.Next(),
		name:     name,
		upstream: ref,
	}
	n.inputs = append(n.inputs, port)
	n.invalidate()

	if ref.IsZero() {
		return port, nil
	}

	var out *OutputPort
	ok := false
	if r != nil {
		_, out, ok = r.ResolvePort(ref)
	}
	if !ok {
		return port, &BindError{Node: n.id, Input: name, Ref: ref}
	}

	port.listener = eventbus.NewListener(port.update)
	out.bus.Subscribe(eventbus.EventUpdate, port.listener)
	return port, nil
}

// AddOutput creates an output port with a fresh private bus and no value.
func (n *Node) AddOutput(name string) (*OutputPort, error) {
	if n.nameTaken(name) {
		return nil, fmt.Errorf("node %s: output %q: %w", n.id, name, ErrDuplicatePort)
	}

	port := &OutputPort{
		id:   n.ids.Next(),
		name: name,
		bus:  eventbus.New(),
	}
	n.outputs = append(n.outputs, port)
	n.invalidate()
	return port, nil
}

// RemoveInput deletes port from the node and unsubscribes it from its
// upstream bus, resolved through r.
func (n *Node) RemoveInput(port *InputPort, r Resolver) error {
	idx := -1
	for i, p := range n.inputs {
		if p == port {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("node %s: %w", n.id, ErrPortNotFound)
	}

	detach(port, r)
	n.inputs = append(n.inputs[:idx], n.inputs[idx+1:]...)
	n.invalidate()
	return nil
}

// RemoveOutput deletes port from the node and drops every subscription on
// its bus. Downstream inputs referencing it become unresolvable; use the
// graph's RemoveOutput to also mark them unbound.
func (n *Node) RemoveOutput(port *OutputPort) error {
	idx := -1
	for i, p := range n.outputs {
		if p == port {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("node %s: %w", n.id, ErrPortNotFound)
	}

	port.bus.Clear()
	n.outputs = append(n.outputs[:idx], n.outputs[idx+1:]...)
	n.invalidate()
	return nil
}

// RenameInput changes the name of an input port.
func (n *Node) RenameInput(oldName, newName string) error {
	port, ok := n.Input(oldName)
	if !ok {
		return fmt.Errorf("node %s: input %q: %w", n.id, oldName, ErrPortNotFound)
	}
	if oldName == newName {
		return nil
	}
	if n.nameTaken(newName) {
		return fmt.Errorf("node %s: input %q: %w", n.id, newName, ErrDuplicatePort)
	}
	port.name = newName
	n.invalidate()
	return nil
}

// RenameOutput changes the name of an output port.
func (n *Node) RenameOutput(oldName, newName string) error {
	port, ok := n.Output(oldName)
	if !ok {
		return fmt.Errorf("node %s: output %q: %w", n.id, oldName, ErrPortNotFound)
	}
	if oldName == newName {
		return nil
	}
	if n.nameTaken(newName) {
		return fmt.Errorf("node %s: output %q: %w", n.id, newName, ErrDuplicatePort)
	}
	port.name = newName
	n.invalidate()
	return nil
}

// Destroy unsubscribes every input from its upstream bus. After Destroy no
// upstream publish reaches this node.
func (n *Node) Destroy(r Resolver) {
	for _, port := range n.inputs {
		detach(port, r)
	}
}

// DetachFrom unsubscribes every input bound to an output of upstream and
// leaves those inputs unbound. It returns how many inputs were detached.
func (n *Node) DetachFrom(upstream nodeid.ID, r Resolver) int {
	count := 0
	for _, port := range n.inputs {
		if port.upstream.Node == upstream && port.listener != nil {
			detach(port, r)
			count++
		}
	}
	return count
}

// DetachPort is like DetachFrom but only for inputs bound to ref.
func (n *Node) DetachPort(ref nodeid.PortRef, r Resolver) int {
	count := 0
	for _, port := range n.inputs {
		if port.upstream == ref && port.listener != nil {
			detach(port, r)
			count++
		}
	}
	return count
}

// Init compiles the code body against the current port set. On failure the
// previous program is discarded and a wrapped *script.CompileError returned.
func (n *Node) Init() error {
	inputs := make([]string, len(n.inputs))
	for i, p := range n.inputs {
		inputs[i] = p.name
	}
	outputs := make([]string, len(n.outputs))
	for i, p := range n.outputs {
		outputs[i] = p.name
	}

	program, err := script.Compile(n.Name, n.code, inputs, outputs)
	if err != nil {
		n.program = nil
		return fmt.Errorf("init node %s: %w", n.id, err)
	}
	n.program = program
	return nil
}

// Run executes the compiled program on the cached input values, stores each
// output and publishes it on the output's bus. Listener errors stop the
// publishing and are returned.
func (n *Node) Run() error {
	if n.program == nil {
		return fmt.Errorf("run node %s: %w", n.id, ErrNotInitialized)
	}

	args := make([]cty.Value, len(n.inputs))
	for i, p := range n.inputs {
		args[i] = p.argument()
	}

	results, err := n.program.Call(args...)
	if err != nil {
		return fmt.Errorf("run node %s: %w", n.id, err)
	}

	for _, port := range n.outputs {
		port.value = results[port.name]
		port.set = true
		if err := port.bus.Publish(eventbus.EventUpdate, port.value); err != nil {
			return fmt.Errorf("run node %s: publish %q: %w", n.id, port.name, err)
		}
	}
	return nil
}

func (n *Node) nameTaken(name string) bool {
	_, in := n.Input(name)
	_, out := n.Output(name)
	return in || out
}

func (n *Node) invalidate() {
	n.program = nil
}

// detach unsubscribes port from the upstream bus, if r can still resolve it,
// and marks the port unbound.
func detach(port *InputPort, r Resolver) {
	if port.listener == nil {
		return
	}
	if r != nil {
		if _, out, ok := r.ResolvePort(port.upstream); ok {
			out.bus.Unsubscribe(eventbus.EventUpdate, port.listener)
		}
	}
	port.listener = nil
}
