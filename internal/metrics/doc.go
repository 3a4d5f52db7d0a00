// Package metrics exposes prometheus collectors for graph evaluation. The
// collectors are fed through graph lifecycle hooks.
package metrics
