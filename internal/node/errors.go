package node

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/nodular/internal/nodeid"
)

var (
	// ErrNotInitialized is returned by Run when there is no compiled program,
	// either because Init was never called or because ports changed since.
	ErrNotInitialized = errors.New("node not initialized")
	// ErrDuplicatePort is returned when a port name is already used on the node.
	ErrDuplicatePort = errors.New("duplicate port name")
	// ErrPortNotFound is returned when a port does not belong to the node.
	ErrPortNotFound = errors.New("port not found")
)

// BindError reports an input whose upstream reference could not be resolved.
// The input port still exists, unbound.
type BindError struct {
	Node  nodeid.ID
	Input string
	Ref   nodeid.PortRef
}

func (e *BindError) Error() string {
	return fmt.Sprintf("node %s: input %q: upstream %s not found", e.Node, e.Input, e.Ref)
}
