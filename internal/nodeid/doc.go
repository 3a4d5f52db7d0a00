// internal/nodeid/doc.go

/*
Package nodeid provides the identities used inside a graph: a numeric ID for
nodes and ports, issued by a per-graph monotonic Sequence, and a PortRef that
names an output port by (node id, port id).

The canonical text form of a PortRef is `n<node>.p<port>`, e.g. `n3.p7`.
It is used in log fields and error messages.
*/
package nodeid
