// Package eventbus provides a small, synchronous, named-event publish/subscribe
// dispatcher.
//
// Every output port of a node owns a private Bus. Bound input ports subscribe
// to the "update" event of the upstream bus so that a newly computed value is
// pushed into their cache the moment it is published, independent of whether
// the downstream node has run yet.
//
// # Listener identity
//
// Go functions are not comparable, so a listener is wrapped in a *Listener.
// The pointer is the identity: subscribing the same *Listener twice registers
// it twice (and it fires twice), while Unsubscribe removes every entry that
// points at it.
//
// # Ordering and failures
//
// Publish invokes listeners synchronously, in subscription order, on the
// publisher's goroutine. The first listener error stops the fan-out and is
// returned to the publisher unchanged.
package eventbus
