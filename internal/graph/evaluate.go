package graph

import (
	"context"
	"time"

	"github.com/specialistvlad/nodular/internal/ctxlog"
	"github.com/specialistvlad/nodular/internal/dag"
	"github.com/specialistvlad/nodular/internal/node"
	"github.com/specialistvlad/nodular/internal/nodeid"
)

// EvaluateNodes compiles every node and executes them dependency-first.
//
// Only a binding cycle or context cancellation is returned as an error.
// Per-node compile and run failures are logged and recorded in the Report;
// the pass carries on with the remaining nodes.
func (g *Graph) EvaluateNodes(ctx context.Context) (*Report, error) {
	logger := ctxlog.FromContext(ctx).With("graphID", g.id.String())

	if err := g.DetectCycles(); err != nil {
		logger.Error("Evaluation aborted, bindings form a cycle.", "error", err)
		return nil, err
	}

	ids := make([]nodeid.ID, len(g.nodes))
	for i, n := range g.nodes {
		ids[i] = n.ID()
	}
	report := newReport(ids)

	logger.Debug("Compiling nodes.", "count", len(g.nodes))
	for _, n := range g.nodes {
		err := n.Init()
		g.opts.compiled(ctx, n, err)
		if err != nil {
			logger.Error("Node failed to compile.", "nodeID", n.ID().String(), "name", n.Name, "error", err)
			report.compileFailed(n.ID(), err)
		}
	}

	w := &walker{
		g:        g,
		report:   report,
		done:     make(map[nodeid.ID]bool, len(g.nodes)),
		visiting: make(map[nodeid.ID]bool, len(g.nodes)),
	}
	for _, n := range g.Nodes() {
		if err := w.visit(ctx, n); err != nil {
			logger.Warn("Evaluation stopped early.", "error", err)
			return report, err
		}
	}

	logger.Debug("Evaluation finished.", "runs", len(report.Order), "failed", len(report.Failed()))
	return report, nil
}

// DetectCycles reports whether the current bindings form a dependency cycle.
func (g *Graph) DetectCycles() error {
	return g.dependencyGraph().DetectCycles()
}

// dependencyGraph builds the dag of live bindings: an edge upstream -> node
// for every bound input whose reference still resolves.
func (g *Graph) dependencyGraph() *dag.Graph {
	d := dag.New()
	for _, n := range g.nodes {
		d.AddNode(n.ID().String())
	}
	for _, n := range g.nodes {
		for _, up := range g.upstreamsOf(n) {
			// Both ends were added above, so AddEdge cannot fail.
			_ = d.AddEdge(up.ID().String(), n.ID().String())
		}
	}
	return d
}

// upstreamsOf returns, per bound input in input order, the node the input's
// reference resolves to. Repeats are kept; inputs whose reference no longer
// resolves are treated as unbound.
func (g *Graph) upstreamsOf(n *node.Node) []*node.Node {
	var ups []*node.Node
	for _, in := range n.Inputs() {
		if !in.Bound() {
			continue
		}
		ref, _ := in.Upstream()
		if up, _, ok := g.ResolvePort(ref); ok {
			ups = append(ups, up)
		}
	}
	return ups
}

// walker carries the state of one execute phase.
type walker struct {
	g        *Graph
	report   *Report
	done     map[nodeid.ID]bool
	visiting map[nodeid.ID]bool
}

// visit runs every upstream of n, then n itself.
func (w *walker) visit(ctx context.Context, n *node.Node) error {
	id := n.ID()
	if !w.g.opts.reentrant && w.done[id] {
		return nil
	}
	if w.visiting[id] {
		// Bindings changed mid-pass into a cycle; the upfront check saw none.
		return &CycleError{Path: []string{id.String(), id.String()}}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	w.visiting[id] = true
	defer delete(w.visiting, id)

	for _, up := range w.g.upstreamsOf(n) {
		if err := w.visit(ctx, up); err != nil {
			return err
		}
	}

	w.run(ctx, n)
	w.done[id] = true
	return nil
}

func (w *walker) run(ctx context.Context, n *node.Node) {
	logger := ctxlog.FromContext(ctx).With("nodeID", n.ID().String(), "name", n.Name)

	w.g.opts.runStarted(ctx, n)
	start := time.Now()
	err := n.Run()
	elapsed := time.Since(start)
	w.g.opts.runEnded(ctx, n, elapsed, err)

	w.report.ran(n.ID(), err)
	if err != nil {
		logger.Error("Node execution failed.", "error", err)
		return
	}
	logger.Debug("Node execution succeeded.", "elapsed", elapsed)
}
