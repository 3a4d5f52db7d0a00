// Package graph owns a set of nodes and evaluates them.
//
// # Why Graph Package Exists
//
// Nodes only know their own ports. The graph is what turns them into a
// dataflow program: it issues identities, resolves the (node id, port id)
// references inputs are bound to, tears those bindings down when a node goes
// away, and runs the compile-then-execute pass.
//
// # Evaluation Pass
//
// EvaluateNodes runs three phases:
//
//  1. **Cycle check:** a dag.Graph is built from the live bindings; a cycle
//     is returned as *CycleError before anything compiles or runs.
//  2. **Compile:** every node's Init is called. Failures are logged and
//     recorded, they do not stop the pass.
//  3. **Execute:** nodes are walked in insertion order; before a node runs,
//     every node its bound inputs reference is walked first. Each Run
//     publishes its outputs, which pushes values into downstream input caches.
//     A failed node is logged and recorded; nodes depending on it still run,
//     on stale or unset inputs.
//
// By default a node runs at most once per pass. WithReentrantWalk restores
// the per-path behaviour where a shared ancestor (say, the top of a diamond)
// runs once for every path that reaches it.
//
// # Identity
//
// Every graph draws a process-unique ID, and issues node and port IDs from
// its own monotonic sequence, so IDs are deterministic for a given sequence
// of calls.
//
// # Thread-Safety
//
// A Graph is not safe for concurrent use. Evaluation is synchronous: every
// publish, compile and run completes before control returns to the caller.
package graph
