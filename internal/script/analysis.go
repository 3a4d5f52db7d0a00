package script

import (
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// TraversalKey generates a stable, canonical string representation for an
// hcl.Traversal, e.g. `a.b[0]`.
func TraversalKey(t hcl.Traversal) string {
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

// rootReference is a variable reference found in a statement, reduced to its
// root name.
type rootReference struct {
	name string
	key  string
	subj hcl.Range
}

// functionCall is a call site found in a statement.
type functionCall struct {
	name string
	subj hcl.Range
}

// extractReferencesAndFunctions walks an expression and collects its root
// variable references and its function calls. Names bound by for
// expressions are excluded from the references. Results are sorted so
// diagnostics come out in a deterministic order.
func extractReferencesAndFunctions(expr hclsyntax.Expression) ([]rootReference, []functionCall) {
	var refs []rootReference
	for _, traversal := range hclsyntax.Variables(expr) {
		refs = append(refs, rootReference{
			name: traversal.RootName(),
			key:  TraversalKey(traversal),
			subj: traversal.SourceRange(),
		})
	}

	var calls []functionCall
	hclsyntax.VisitAll(expr, func(n hclsyntax.Node) hcl.Diagnostics {
		if call, ok := n.(*hclsyntax.FunctionCallExpr); ok {
			calls = append(calls, functionCall{name: call.Name, subj: call.NameRange})
		}
		return nil
	})

	sort.SliceStable(refs, func(i, j int) bool { return refs[i].subj.Start.Byte < refs[j].subj.Start.Byte })
	sort.SliceStable(calls, func(i, j int) bool { return calls[i].subj.Start.Byte < calls[j].subj.Start.Byte })
	return refs, calls
}
