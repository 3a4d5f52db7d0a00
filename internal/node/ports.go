package node

import (
	"github.com/specialistvlad/nodular/internal/eventbus"
	"github.com/specialistvlad/nodular/internal/nodeid"
	"github.com/specialistvlad/nodular/internal/script"
	"github.com/zclconf/go-cty/cty"
)

// OutputPort produces values. It owns the bus bound inputs subscribe to.
type OutputPort struct {
	id    nodeid.ID
	name  string
	bus   *eventbus.Bus
	value cty.Value
	set   bool
}

func (p *OutputPort) ID() nodeid.ID { return p.id }

func (p *OutputPort) Name() string { return p.name }

// Bus returns the port's private event bus. External observers may subscribe
// to eventbus.EventUpdate on it to receive every recomputed value.
func (p *OutputPort) Bus() *eventbus.Bus { return p.bus }

// Value returns the last computed value and whether the port has been set.
func (p *OutputPort) Value() (cty.Value, bool) { return p.value, p.set }

// InputPort receives values pushed from an upstream output.
type InputPort struct {
	id       nodeid.ID
	name     string
	upstream nodeid.PortRef
	value    cty.Value
	set      bool
	// listener is the subscription token registered on the upstream bus; nil
	// while the port is unbound.
	listener *eventbus.Listener
}

func (p *InputPort) ID() nodeid.ID { return p.id }

func (p *InputPort) Name() string { return p.name }

// Upstream returns the reference captured at bind time, if any.
func (p *InputPort) Upstream() (nodeid.PortRef, bool) {
	return p.upstream, !p.upstream.IsZero()
}

// Bound reports whether the port currently holds a live subscription.
func (p *InputPort) Bound() bool { return p.listener != nil }

// Value returns the cached value and whether it has ever been set.
func (p *InputPort) Value() (cty.Value, bool) { return p.value, p.set }

// update is the listener callback: it refreshes the cache from a published
// payload. Non-cty payloads are converted from their native form.
func (p *InputPort) update(payload any) error {
	v, ok := payload.(cty.Value)
	if !ok {
		var err error
		if v, err = script.FromNative(payload); err != nil {
			return err
		}
	}
	p.value = v
	p.set = true
	return nil
}

// argument returns the value handed to the program for this port.
func (p *InputPort) argument() cty.Value {
	if !p.set {
		return cty.NullVal(cty.DynamicPseudoType)
	}
	return p.value
}
