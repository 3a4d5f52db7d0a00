package graph

import (
	"errors"

	"github.com/specialistvlad/nodular/internal/dag"
)

// ErrNotFound is returned when a node id is not part of the graph.
var ErrNotFound = errors.New("node not found")

// CycleError reports bindings that form a dependency cycle. Path holds node
// ids, starting and ending on the same node.
type CycleError = dag.CycleError
