// Package node implements a dataflow node: ordered input and output ports,
// a code body, and the compiled program derived from them.
//
// # Lifecycle
//
//  1. Created empty by the owning graph.
//  2. Ports added, removed or renamed; every change drops the compiled program.
//  3. Compiled with Init.
//  4. Executed with Run, any number of times, in any order relative to other
//     nodes.
//
// # Propagation
//
// Each output port owns a private eventbus.Bus. Binding an input to an
// upstream output subscribes the input's listener to that bus, so when the
// upstream node runs and publishes "update", the input cache refreshes
// immediately. The downstream node does not have to run for its cache to
// change.
//
// Upstream references are nodeid.PortRef keys, resolved through a Resolver
// (normally the owning graph) whenever they are used. A node never holds a
// pointer to another node.
//
// Nodes are not safe for concurrent mutation; the owning graph serializes
// access.
package node
