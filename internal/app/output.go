package app

import (
	"fmt"
	"io"

	"github.com/specialistvlad/nodular/internal/graph"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// writeOutputs prints one `node.output = value` line per output port, in
// graph order. Values are JSON encoded; outputs never computed print as
// <unset>.
func writeOutputs(w io.Writer, g *graph.Graph) error {
	for _, n := range g.Nodes() {
		for _, out := range n.Outputs() {
			v, set := out.Value()
			text, err := formatValue(v, set)
			if err != nil {
				return fmt.Errorf("node %s output %q: %w", n.Name, out.Name(), err)
			}
			if _, err := fmt.Fprintf(w, "%s.%s = %s\n", n.Name, out.Name(), text); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatValue(v cty.Value, set bool) (string, error) {
	switch {
	case !set:
		return "<unset>", nil
	case v.IsNull():
		return "null", nil
	case !v.IsWhollyKnown():
		return "<unknown>", nil
	}
	b, err := ctyjson.SimpleJSONValue{Value: v}.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
