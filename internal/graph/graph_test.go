package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/specialistvlad/nodular/internal/ctxlog"
	"github.com/specialistvlad/nodular/internal/eventbus"
	"github.com/specialistvlad/nodular/internal/node"
	"github.com/specialistvlad/nodular/internal/nodeid"
	"github.com/specialistvlad/nodular/internal/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// testContext returns a context carrying a logger that drops everything.
func testContext() context.Context {
	return ctxlog.WithLogger(context.Background(), ctxlog.Discard())
}

// addNode is a helper that creates a node with the given outputs and code.
func addNode(t *testing.T, g *Graph, name, code string, outputs ...string) *node.Node {
	t.Helper()
	id := g.AddNode(name)
	n, err := g.GetNodeByID(id)
	require.NoError(t, err)
	for _, out := range outputs {
		_, err := n.AddOutput(out)
		require.NoError(t, err)
	}
	n.SetCode(code)
	return n
}

// bind is a helper that binds to's input to from's named output.
func bind(t *testing.T, g *Graph, to *node.Node, input string, from *node.Node, output string) *node.InputPort {
	t.Helper()
	out, ok := from.Output(output)
	require.True(t, ok, "output %q missing on %s", output, from.Name)
	port, err := g.Bind(testContext(), to.ID(), input, nodeid.Ref(from.ID(), out.ID()))
	require.NoError(t, err)
	return port
}

// outputValue returns the native value of a node's output.
func outputValue(t *testing.T, n *node.Node, output string) any {
	t.Helper()
	port, ok := n.Output(output)
	require.True(t, ok)
	v, set := port.Value()
	require.True(t, set, "output %q of %s was never set", output, n.Name)
	native, err := script.ToNative(v)
	require.NoError(t, err)
	return native
}

// diamond builds A feeding B and C, which both feed D.
func diamond(t *testing.T, g *Graph) (a, b, c, d *node.Node) {
	t.Helper()
	a = addNode(t, g, "A", "out = 1", "out")
	b = addNode(t, g, "B", "out = x + 10", "out")
	c = addNode(t, g, "C", "out = x * 2", "out")
	d = addNode(t, g, "D", "out = l + r", "out")
	bind(t, g, b, "x", a, "out")
	bind(t, g, c, "x", a, "out")
	bind(t, g, d, "l", b, "out")
	bind(t, g, d, "r", c, "out")
	return a, b, c, d
}

func TestNew_UniqueGraphIDs(t *testing.T) {
	g1, g2 := New(), New()
	assert.NotEqual(t, g1.ID(), g2.ID())
	assert.Zero(t, g1.Len())
}

func TestAddNode_DeterministicIDs(t *testing.T) {
	g1, g2 := New(), New()
	for _, g := range []*Graph{g1, g2} {
		g.AddNode("first")
		g.AddNode("second")
	}
	require.Len(t, g1.Nodes(), 2)
	for i := range g1.Nodes() {
		assert.Equal(t, g1.Nodes()[i].ID(), g2.Nodes()[i].ID())
	}
	assert.Equal(t, "first", g1.Nodes()[0].Name)
}

func TestGetNodeByID(t *testing.T) {
	g := New()
	id := g.AddNode("n")

	n, err := g.GetNodeByID(id)
	require.NoError(t, err)
	assert.Equal(t, id, n.ID())
}

func TestGetNodeByID_NotFoundLeavesGraphUnchanged(t *testing.T) {
	g := New()
	g.AddNode("a")
	g.AddNode("b")
	before := g.Nodes()

	n, err := g.GetNodeByID(nodeid.ID(999))
	require.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, n)
	assert.Equal(t, before, g.Nodes())
}

func TestEvaluateNodes_UnconnectedNodesRunOnce(t *testing.T) {
	g := New()
	a := addNode(t, g, "A", "out = 1", "out")
	b := addNode(t, g, "B", `out = "b"`, "out")

	report, err := g.EvaluateNodes(testContext())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Runs(a.ID()))
	assert.Equal(t, 1, report.Runs(b.ID()))
	assert.Equal(t, []nodeid.ID{a.ID(), b.ID()}, report.Order)
	assert.Equal(t, int64(1), outputValue(t, a, "out"))
	assert.Equal(t, "b", outputValue(t, b, "out"))
	assert.NoError(t, report.Err())
}

func TestEvaluateNodes_SumExample(t *testing.T) {
	g := New()
	one := addNode(t, g, "one", "v = 1", "v")
	two := addNode(t, g, "two", "v = 2", "v")
	sum := addNode(t, g, "sum", "c = a + b;", "c")
	bind(t, g, sum, "a", one, "v")
	bind(t, g, sum, "b", two, "v")

	_, err := g.EvaluateNodes(testContext())
	require.NoError(t, err)
	assert.Equal(t, int64(3), outputValue(t, sum, "c"))
}

func TestEvaluateNodes_DependencyOrderNotInsertionOrder(t *testing.T) {
	g := New()
	consumer := addNode(t, g, "consumer", "y = x * 3", "y")
	producer := addNode(t, g, "producer", "x = 7", "x")
	bind(t, g, consumer, "x", producer, "x")

	report, err := g.EvaluateNodes(testContext())
	require.NoError(t, err)
	assert.Equal(t, []nodeid.ID{producer.ID(), consumer.ID()}, report.Order)
	assert.Equal(t, int64(21), outputValue(t, consumer, "y"))
}

// The default walk is memoized: in a diamond, A runs exactly once per pass
// and before D observes anything derived from it.
func TestEvaluateNodes_DiamondRunsSharedAncestorOnce(t *testing.T) {
	g := New()
	a, b, c, d := diamond(t, g)

	report, err := g.EvaluateNodes(testContext())
	require.NoError(t, err)

	for _, n := range []*node.Node{a, b, c, d} {
		assert.Equal(t, 1, report.Runs(n.ID()), "node %s", n.Name)
	}
	assert.Equal(t, []nodeid.ID{a.ID(), b.ID(), c.ID(), d.ID()}, report.Order)
	assert.Equal(t, int64(13), outputValue(t, d, "out"))
}

// WithReentrantWalk keeps the per-path behaviour: every top-level visit
// re-walks the ancestors it depends on.
func TestEvaluateNodes_DiamondReentrantRunsPerPath(t *testing.T) {
	g := New(WithReentrantWalk())
	a, b, c, d := diamond(t, g)

	report, err := g.EvaluateNodes(testContext())
	require.NoError(t, err)

	// Visits: A; A,B; A,C; (A,B),(A,C),D.
	assert.Equal(t, 5, report.Runs(a.ID()))
	assert.Equal(t, 2, report.Runs(b.ID()))
	assert.Equal(t, 2, report.Runs(c.ID()))
	assert.Equal(t, 1, report.Runs(d.ID()))
	assert.Equal(t, a.ID(), report.Order[0])
	assert.Equal(t, d.ID(), report.Order[len(report.Order)-1])
	assert.Equal(t, int64(13), outputValue(t, d, "out"))
}

func TestEvaluateNodes_CycleIsRejected(t *testing.T) {
	g := New()
	a := addNode(t, g, "A", "out = x", "out")
	b := addNode(t, g, "B", "out = x", "out")
	bind(t, g, a, "x", b, "out")
	bind(t, g, b, "x", a, "out")

	report, err := g.EvaluateNodes(testContext())
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Nil(t, report)
	assert.Equal(t, []string{a.ID().String(), b.ID().String(), a.ID().String()}, cycleErr.Path)

	assert.False(t, a.Initialized(), "nothing compiles when a cycle is found")
	out, _ := a.Output("out")
	_, set := out.Value()
	assert.False(t, set)
}

func TestEvaluateNodes_SelfBindingIsACycle(t *testing.T) {
	g := New()
	a := addNode(t, g, "A", "out = x", "out")
	bind(t, g, a, "x", a, "out")

	_, err := g.EvaluateNodes(testContext())
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
}

func TestEvaluateNodes_CompileFailureIsIsolated(t *testing.T) {
	g := New()
	broken := addNode(t, g, "broken", "out = ", "out")
	downstream := addNode(t, g, "downstream", "out = x", "out")
	other := addNode(t, g, "other", "out = 5", "out")
	bind(t, g, downstream, "x", broken, "out")

	report, err := g.EvaluateNodes(testContext())
	require.NoError(t, err)

	brokenOutcome, ok := report.Outcome(broken.ID())
	require.True(t, ok)
	assert.Equal(t, StatusFailed, brokenOutcome.Status)
	var compileErr *script.CompileError
	require.ErrorAs(t, brokenOutcome.CompileErr, &compileErr)
	require.ErrorIs(t, brokenOutcome.RunErr, node.ErrNotInitialized)

	// The dependent still runs, on an unset input.
	downOutcome, _ := report.Outcome(downstream.ID())
	assert.Equal(t, StatusCompleted, downOutcome.Status)
	assert.Nil(t, outputValue(t, downstream, "out"))

	assert.Equal(t, int64(5), outputValue(t, other, "out"))
	assert.Equal(t, []nodeid.ID{broken.ID()}, report.Failed())
	assert.ErrorContains(t, report.Err(), "1 error occurred")
}

func TestEvaluateNodes_RuntimeFailureKeepsStaleValues(t *testing.T) {
	g := New()
	up := addNode(t, g, "up", "out = 1", "out")
	down := addNode(t, g, "down", "out = x + 1", "out")
	bind(t, g, down, "x", up, "out")

	_, err := g.EvaluateNodes(testContext())
	require.NoError(t, err)
	assert.Equal(t, int64(2), outputValue(t, down, "out"))

	up.SetCode(`out = tonumber("nope")`)
	report, err := g.EvaluateNodes(testContext())
	require.NoError(t, err)

	upOutcome, _ := report.Outcome(up.ID())
	assert.Equal(t, StatusFailed, upOutcome.Status)
	var runtimeErr *script.RuntimeError
	require.ErrorAs(t, upOutcome.RunErr, &runtimeErr)

	assert.Equal(t, int64(1), outputValue(t, up, "out"), "failed run leaves previous output")
	assert.Equal(t, int64(2), outputValue(t, down, "out"), "dependent computed from stale input")
	downOutcome, _ := report.Outcome(down.ID())
	assert.Equal(t, StatusCompleted, downOutcome.Status)
}

func TestEvaluateNodes_CanceledContext(t *testing.T) {
	g := New()
	a := addNode(t, g, "A", "out = 1", "out")

	ctx, cancel := context.WithCancel(testContext())
	cancel()

	report, err := g.EvaluateNodes(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	outcome, _ := report.Outcome(a.ID())
	assert.Equal(t, StatusPending, outcome.Status)
	assert.Zero(t, outcome.Runs)
}

func TestEvaluateNodes_Hooks(t *testing.T) {
	var compiled, started, ended []string
	var compileErrs int
	hooks := Hooks{
		OnCompile: func(_ context.Context, n *node.Node, err error) {
			compiled = append(compiled, n.Name)
			if err != nil {
				compileErrs++
			}
		},
		OnRunStart: func(_ context.Context, n *node.Node) { started = append(started, n.Name) },
		OnRunEnd: func(_ context.Context, n *node.Node, elapsed time.Duration, err error) {
			assert.GreaterOrEqual(t, elapsed, time.Duration(0))
			ended = append(ended, n.Name)
		},
	}
	g := New(WithHooks(hooks), WithHooks(Hooks{}))
	addNode(t, g, "ok", "out = 1", "out")
	addNode(t, g, "bad", "out = nope", "out")

	_, err := g.EvaluateNodes(testContext())
	require.NoError(t, err)
	assert.Equal(t, []string{"ok", "bad"}, compiled)
	assert.Equal(t, 1, compileErrs)
	assert.Equal(t, []string{"ok", "bad"}, started)
	assert.Equal(t, []string{"ok", "bad"}, ended)
}

func TestEvaluateNodes_ExternalObserverSeesUpdates(t *testing.T) {
	g := New()
	a := addNode(t, g, "A", "out = 41 + 1", "out")
	out, _ := a.Output("out")

	var seen []cty.Value
	out.Bus().Subscribe(eventbus.EventUpdate, eventbus.NewListener(func(payload any) error {
		seen = append(seen, payload.(cty.Value))
		return nil
	}))

	_, err := g.EvaluateNodes(testContext())
	require.NoError(t, err)
	require.Len(t, seen, 1)
	native, err := script.ToNative(seen[0])
	require.NoError(t, err)
	assert.Equal(t, int64(42), native)
}

func TestBind_StrictReportsBindError(t *testing.T) {
	g := New()
	id := g.AddNode("consumer")

	port, err := g.Bind(testContext(), id, "x", nodeid.Ref(500, 501))
	var bindErr *node.BindError
	require.ErrorAs(t, err, &bindErr)
	require.NotNil(t, port)
	assert.False(t, port.Bound())
}

func TestBind_SilentModeSwallowsBindError(t *testing.T) {
	g := New(WithSilentBind())
	id := g.AddNode("consumer")

	port, err := g.Bind(testContext(), id, "x", nodeid.Ref(500, 501))
	require.NoError(t, err)
	require.NotNil(t, port)
	assert.False(t, port.Bound())
}

func TestBind_UnknownNode(t *testing.T) {
	g := New()
	_, err := g.Bind(testContext(), nodeid.ID(42), "x", nodeid.Ref(1, 2))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveNode_SeversDownstreamSubscriptions(t *testing.T) {
	g := New()
	a := addNode(t, g, "A", "out = 1", "out")
	b := addNode(t, g, "B", "out = x", "out")
	x := bind(t, g, b, "x", a, "out")
	aOut, _ := a.Output("out")
	require.Equal(t, 1, aOut.Bus().Len(eventbus.EventUpdate))

	require.NoError(t, g.RemoveNode(a.ID()))

	assert.Zero(t, aOut.Bus().Len(eventbus.EventUpdate))
	assert.False(t, x.Bound())
	_, err := g.GetNodeByID(a.ID())
	require.ErrorIs(t, err, ErrNotFound)

	// Running the detached node directly no longer reaches B.
	require.NoError(t, a.Init())
	require.NoError(t, a.Run())
	_, set := x.Value()
	assert.False(t, set)

	report, err := g.EvaluateNodes(testContext())
	require.NoError(t, err)
	assert.Equal(t, []nodeid.ID{b.ID()}, report.Order)
}

func TestRemoveNode_UnsubscribesOwnInputs(t *testing.T) {
	g := New()
	a := addNode(t, g, "A", "out = 1", "out")
	b := addNode(t, g, "B", "out = x", "out")
	bind(t, g, b, "x", a, "out")
	aOut, _ := a.Output("out")

	require.NoError(t, g.RemoveNode(b.ID()))
	assert.Zero(t, aOut.Bus().Len(eventbus.EventUpdate))
	assert.Equal(t, 1, g.Len())
}

func TestRemoveNode_NotFound(t *testing.T) {
	g := New()
	g.AddNode("a")
	require.ErrorIs(t, g.RemoveNode(nodeid.ID(77)), ErrNotFound)
	assert.Equal(t, 1, g.Len())
}

func TestUnbind(t *testing.T) {
	g := New()
	a := addNode(t, g, "A", "out = 1", "out")
	b := addNode(t, g, "B", "out = 2", "out")
	bind(t, g, b, "x", a, "out")
	aOut, _ := a.Output("out")

	require.NoError(t, g.Unbind(b.ID(), "x"))
	assert.Zero(t, aOut.Bus().Len(eventbus.EventUpdate))
	assert.Empty(t, b.Inputs())

	require.ErrorIs(t, g.Unbind(b.ID(), "x"), node.ErrPortNotFound)
	require.ErrorIs(t, g.Unbind(nodeid.ID(999), "x"), ErrNotFound)
}

func TestRemoveOutput_DetachesDownstream(t *testing.T) {
	g := New()
	a := addNode(t, g, "A", "out = 1\nkeep = 2", "out", "keep")
	b := addNode(t, g, "B", "out = x", "out")
	x := bind(t, g, b, "x", a, "out")
	y := bind(t, g, b, "y", a, "keep")

	require.NoError(t, g.RemoveOutput(a.ID(), "out"))
	assert.False(t, x.Bound())
	assert.True(t, y.Bound())
	assert.Len(t, a.Outputs(), 1)

	require.ErrorIs(t, g.RemoveOutput(a.ID(), "out"), node.ErrPortNotFound)
}

func TestReport_StatusString(t *testing.T) {
	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "completed", StatusCompleted.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}

func TestReport_UnknownNode(t *testing.T) {
	r := newReport(nil)
	_, ok := r.Outcome(nodeid.ID(1))
	assert.False(t, ok)
	assert.Zero(t, r.Runs(nodeid.ID(1)))
	assert.NoError(t, r.Err())
}

func TestOutcome_Err(t *testing.T) {
	compileErr := errors.New("compile")
	runErr := errors.New("run")
	assert.Equal(t, compileErr, Outcome{CompileErr: compileErr, RunErr: runErr}.Err())
	assert.Equal(t, runErr, Outcome{RunErr: runErr}.Err())
	assert.NoError(t, Outcome{}.Err())
}
