// Package dag holds the dependency structure of a graph evaluation: which
// node depends on which. It is rebuilt from the port bindings before each
// evaluation pass and used to reject cyclic bindings up front.
//
// Node order is insertion order everywhere, so cycle reports are
// deterministic.
package dag
