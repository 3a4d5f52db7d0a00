// Package feed forwards output updates of a graph to an external observer,
// typically a UI connected over socket.io.
package feed
