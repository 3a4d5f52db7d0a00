package node

import (
	"errors"
	"testing"

	"github.com/specialistvlad/nodular/internal/eventbus"
	"github.com/specialistvlad/nodular/internal/nodeid"
	"github.com/specialistvlad/nodular/internal/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// fixture hands out nodes that share one id sequence, the way a graph does.
type fixture struct {
	seq nodeid.Sequence
}

func (f *fixture) node(name string) *Node {
	return New(f.seq.Next(), name, &f.seq)
}

// requireNumber asserts that v is the whole number want.
func requireNumber(t *testing.T, v cty.Value, want int64) {
	t.Helper()
	native, err := script.ToNative(v)
	require.NoError(t, err)
	require.Equal(t, want, native)
}

// source builds a node with a single output computed by code.
func (f *fixture) source(t *testing.T, name, output, code string) (*Node, *OutputPort) {
	t.Helper()
	n := f.node(name)
	out, err := n.AddOutput(output)
	require.NoError(t, err)
	n.SetCode(code)
	require.NoError(t, n.Init())
	return n, out
}

func TestRun_SumOfInputs(t *testing.T) {
	var f fixture
	a, outA := f.source(t, "a", "v", "v = 1")
	b, outB := f.source(t, "b", "v", "v = 2")
	nodes := Snapshot{a, b}

	sum := f.node("sum")
	_, err := sum.AddInput("a", nodeid.Ref(a.ID(), outA.ID()), nodes)
	require.NoError(t, err)
	_, err = sum.AddInput("b", nodeid.Ref(b.ID(), outB.ID()), nodes)
	require.NoError(t, err)
	c, err := sum.AddOutput("c")
	require.NoError(t, err)
	sum.SetCode("c = a + b;")
	require.NoError(t, sum.Init())

	require.NoError(t, a.Run())
	require.NoError(t, b.Run())
	require.NoError(t, sum.Run())

	v, ok := c.Value()
	require.True(t, ok)
	requireNumber(t, v, 3)
}

func TestRun_PushesToBoundInputBeforeDownstreamRuns(t *testing.T) {
	var f fixture
	a, y := f.source(t, "A", "y", "y = 5")

	b := f.node("B")
	x, err := b.AddInput("x", nodeid.Ref(a.ID(), y.ID()), Snapshot{a})
	require.NoError(t, err)
	require.True(t, x.Bound())

	_, set := x.Value()
	require.False(t, set, "input must stay unset until upstream publishes")

	require.NoError(t, a.Run())

	v, set := x.Value()
	require.True(t, set)
	requireNumber(t, v, 5)
	assert.False(t, b.Initialized(), "B never ran nor compiled")
}

func TestRun_RequiresInit(t *testing.T) {
	var f fixture
	n := f.node("lonely")
	err := n.Run()
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestPortChangesInvalidateProgram(t *testing.T) {
	var f fixture
	n, _ := f.source(t, "n", "out", "out = 1")
	require.True(t, n.Initialized())

	_, err := n.AddOutput("extra")
	require.NoError(t, err)
	assert.False(t, n.Initialized())
	require.ErrorIs(t, n.Run(), ErrNotInitialized)

	n.SetCode("out = 1\nextra = 2")
	require.NoError(t, n.Init())
	require.NoError(t, n.RenameOutput("extra", "more"))
	assert.False(t, n.Initialized())

	n.SetCode("out = 1\nmore = 2")
	require.NoError(t, n.Init())
	require.NoError(t, n.Run())
}

func TestInit_CompileErrorResetsProgram(t *testing.T) {
	var f fixture
	n, _ := f.source(t, "n", "out", "out = 1")

	n.SetCode("out = ")
	err := n.Init()
	var compileErr *script.CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.False(t, n.Initialized())
	require.ErrorIs(t, n.Run(), ErrNotInitialized)
}

func TestRun_RuntimeError(t *testing.T) {
	var f fixture
	n := f.node("div")
	_, err := n.AddInput("a", nodeid.PortRef{}, nil)
	require.NoError(t, err)
	_, err = n.AddOutput("out")
	require.NoError(t, err)
	n.SetCode("out = a + 1")
	require.NoError(t, n.Init())

	err = n.Run()
	var runtimeErr *script.RuntimeError
	require.ErrorAs(t, err, &runtimeErr)
	var compileErr *script.CompileError
	assert.False(t, errors.As(err, &compileErr))
}

func TestAddInput_UnresolvedReference(t *testing.T) {
	var f fixture
	n := f.node("n")
	ref := nodeid.Ref(99, 100)

	port, err := n.AddInput("x", ref, Snapshot{})
	var bindErr *BindError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, ref, bindErr.Ref)
	assert.Equal(t, "x", bindErr.Input)

	require.NotNil(t, port, "port is created even when binding fails")
	assert.False(t, port.Bound())
	got, ok := port.Upstream()
	assert.True(t, ok)
	assert.Equal(t, ref, got)
	assert.Len(t, n.Inputs(), 1)
}

func TestAddInput_WrongPortOnKnownNode(t *testing.T) {
	var f fixture
	a, y := f.source(t, "A", "y", "y = 1")
	n := f.node("n")

	_, err := n.AddInput("x", nodeid.Ref(a.ID(), y.ID()+100), Snapshot{a})
	var bindErr *BindError
	require.ErrorAs(t, err, &bindErr)
}

func TestAddPorts_DuplicateNames(t *testing.T) {
	var f fixture
	n := f.node("n")
	_, err := n.AddOutput("v")
	require.NoError(t, err)

	_, err = n.AddOutput("v")
	require.ErrorIs(t, err, ErrDuplicatePort)
	_, err = n.AddInput("v", nodeid.PortRef{}, nil)
	require.ErrorIs(t, err, ErrDuplicatePort)
}

func TestRemoveInput_Unsubscribes(t *testing.T) {
	var f fixture
	a, y := f.source(t, "A", "y", "y = 1")
	b := f.node("B")
	x, err := b.AddInput("x", nodeid.Ref(a.ID(), y.ID()), Snapshot{a})
	require.NoError(t, err)
	require.Equal(t, 1, y.Bus().Len(eventbus.EventUpdate))

	require.NoError(t, b.RemoveInput(x, Snapshot{a}))
	assert.Zero(t, y.Bus().Len(eventbus.EventUpdate))
	assert.Empty(t, b.Inputs())
	assert.False(t, x.Bound())

	require.NoError(t, a.Run())
	_, set := x.Value()
	assert.False(t, set)

	require.ErrorIs(t, b.RemoveInput(x, Snapshot{a}), ErrPortNotFound)
}

func TestDestroy_StopsCallbacks(t *testing.T) {
	var f fixture
	a, y := f.source(t, "A", "y", "y = 1")
	b := f.node("B")
	x1, err := b.AddInput("x1", nodeid.Ref(a.ID(), y.ID()), Snapshot{a})
	require.NoError(t, err)
	x2, err := b.AddInput("x2", nodeid.Ref(a.ID(), y.ID()), Snapshot{a})
	require.NoError(t, err)
	require.Equal(t, 2, y.Bus().Len(eventbus.EventUpdate))

	b.Destroy(Snapshot{a})
	assert.Zero(t, y.Bus().Len(eventbus.EventUpdate))

	require.NoError(t, a.Run())
	_, set1 := x1.Value()
	_, set2 := x2.Value()
	assert.False(t, set1)
	assert.False(t, set2)
}

func TestDetachFrom(t *testing.T) {
	var f fixture
	a, ya := f.source(t, "A", "y", "y = 1")
	c, yc := f.source(t, "C", "y", "y = 2")
	nodes := Snapshot{a, c}

	b := f.node("B")
	fromA, err := b.AddInput("fromA", nodeid.Ref(a.ID(), ya.ID()), nodes)
	require.NoError(t, err)
	fromC, err := b.AddInput("fromC", nodeid.Ref(c.ID(), yc.ID()), nodes)
	require.NoError(t, err)

	assert.Equal(t, 1, b.DetachFrom(a.ID(), nodes))
	assert.False(t, fromA.Bound())
	assert.True(t, fromC.Bound())
	assert.Zero(t, ya.Bus().Len(eventbus.EventUpdate))

	assert.Equal(t, 1, b.DetachPort(nodeid.Ref(c.ID(), yc.ID()), nodes))
	assert.False(t, fromC.Bound())
	assert.Zero(t, yc.Bus().Len(eventbus.EventUpdate))
}

func TestRemoveOutput_ClearsBus(t *testing.T) {
	var f fixture
	a, y := f.source(t, "A", "y", "y = 1")
	b := f.node("B")
	_, err := b.AddInput("x", nodeid.Ref(a.ID(), y.ID()), Snapshot{a})
	require.NoError(t, err)

	require.NoError(t, a.RemoveOutput(y))
	assert.Zero(t, y.Bus().Len(eventbus.EventUpdate))
	assert.Empty(t, a.Outputs())
	require.ErrorIs(t, a.RemoveOutput(y), ErrPortNotFound)
}

func TestRenameInput(t *testing.T) {
	var f fixture
	n := f.node("n")
	_, err := n.AddInput("a", nodeid.PortRef{}, nil)
	require.NoError(t, err)
	_, err = n.AddInput("b", nodeid.PortRef{}, nil)
	require.NoError(t, err)

	require.ErrorIs(t, n.RenameInput("a", "b"), ErrDuplicatePort)
	require.ErrorIs(t, n.RenameInput("zzz", "c"), ErrPortNotFound)
	require.NoError(t, n.RenameInput("a", "a"))
	require.NoError(t, n.RenameInput("a", "c"))

	_, ok := n.Input("c")
	assert.True(t, ok)
}

func TestRun_PublishesToExternalObserver(t *testing.T) {
	var f fixture
	a, y := f.source(t, "A", "y", `y = "hello"`)

	var seen []cty.Value
	y.Bus().Subscribe(eventbus.EventUpdate, eventbus.NewListener(func(payload any) error {
		seen = append(seen, payload.(cty.Value))
		return nil
	}))

	require.NoError(t, a.Run())
	require.NoError(t, a.Run())
	require.Len(t, seen, 2)
	assert.Equal(t, "hello", seen[0].AsString())
}

func TestRun_ListenerErrorPropagates(t *testing.T) {
	var f fixture
	a, y := f.source(t, "A", "y", "y = 1")
	boom := errors.New("observer failed")
	y.Bus().Subscribe(eventbus.EventUpdate, eventbus.NewListener(func(any) error { return boom }))

	err := a.Run()
	require.ErrorIs(t, err, boom)
	v, set := y.Value()
	assert.True(t, set, "value is assigned before publishing")
	requireNumber(t, v, 1)
}

func TestInputPort_AcceptsNativePayload(t *testing.T) {
	var f fixture
	a, y := f.source(t, "A", "y", "y = 1")
	b := f.node("B")
	x, err := b.AddInput("x", nodeid.Ref(a.ID(), y.ID()), Snapshot{a})
	require.NoError(t, err)

	require.NoError(t, y.Bus().Publish(eventbus.EventUpdate, 12))
	v, ok := x.Value()
	require.True(t, ok)
	requireNumber(t, v, 12)
}

func TestIdentitiesAreUnique(t *testing.T) {
	var f fixture
	n := f.node("n")
	in, err := n.AddInput("i", nodeid.PortRef{}, nil)
	require.NoError(t, err)
	out, err := n.AddOutput("o")
	require.NoError(t, err)

	ids := map[nodeid.ID]bool{n.ID(): true, in.ID(): true, out.ID(): true}
	assert.Len(t, ids, 3)
}
