package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/nodular/internal/ctxlog"
	"github.com/specialistvlad/nodular/internal/fsutil"
	"github.com/specialistvlad/nodular/internal/graph"
	"github.com/specialistvlad/nodular/internal/node"
	"github.com/specialistvlad/nodular/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// ErrNoFiles is returned when the given paths contain no .hcl file.
var ErrNoFiles = errors.New("no .hcl files found")

// Loader builds graphs from HCL definition files.
type Loader struct {
	graphOpts []graph.Option
}

// NewLoader creates a loader. opts are passed to every graph it creates.
func NewLoader(opts ...graph.Option) *Loader {
	return &Loader{graphOpts: opts}
}

// Load parses every .hcl file found under paths and returns the graph they
// define. Directories are walked recursively.
func (l *Loader) Load(ctx context.Context, paths ...string) (*graph.Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Graph loader started.", "path_count", len(paths))

	files, err := fsutil.FindFilesByExtension(".hcl", paths...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%v: %w", paths, ErrNoFiles)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	var parsed []*hcl.File
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		parsed = append(parsed, f)
	}
	return l.build(ctx, parsed)
}

// LoadSource builds a graph from a single in-memory definition.
func (l *Loader) LoadSource(ctx context.Context, filename string, src []byte) (*graph.Graph, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return l.build(ctx, []*hcl.File{f})
}

func (l *Loader) build(ctx context.Context, files []*hcl.File) (*graph.Graph, error) {
	logger := ctxlog.FromContext(ctx)

	var blocks []*nodeBlock
	for _, f := range files {
		var root fileRoot
		if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode graph definition: %w", diags)
		}
		blocks = append(blocks, root.Nodes...)
	}

	g := graph.New(l.graphOpts...)
	byName := make(map[string]*node.Node, len(blocks))
	owners := make(map[*nodeBlock]*node.Node, len(blocks))
	var diags hcl.Diagnostics

	// Nodes and their outputs first, so inputs can reference any node.
	for _, b := range blocks {
		if _, dup := byName[b.Name]; dup {
			diags = diags.Append(&hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate node",
				Detail:   fmt.Sprintf("A node named %q is already defined.", b.Name),
				Subject:  b.DefRange.Ptr(),
			})
			continue
		}
		n, err := g.GetNodeByID(g.AddNode(b.Name))
		if err != nil {
			return nil, err
		}
		for _, name := range b.Outputs {
			if _, err := n.AddOutput(name); err != nil {
				diags = diags.Append(portDiagnostic(b.DefRange, err))
			}
		}
		n.SetCode(b.Code)
		byName[b.Name] = n
		owners[b] = n
	}

	for _, b := range blocks {
		n, ok := owners[b]
		if !ok {
			continue
		}
		for _, in := range b.Inputs {
			ref, refDiags := resolveFrom(in, byName)
			diags = diags.Extend(refDiags)
			if refDiags.HasErrors() {
				continue
			}
			if _, err := g.Bind(ctx, n.ID(), in.Name, ref); err != nil {
				diags = diags.Append(portDiagnostic(in.DefRange, err))
			}
		}
	}

	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid graph definition: %w", diags)
	}

	logger.Info("Graph loaded.", "graphID", g.ID().String(), "nodes", g.Len())
	return g, nil
}

// resolveFrom turns the `from` traversal of an input into a port reference.
// A missing `from` yields the zero reference, i.e. an unbound input.
func resolveFrom(in *inputBlock, byName map[string]*node.Node) (nodeid.PortRef, hcl.Diagnostics) {
	if in.From == nil {
		return nodeid.PortRef{}, nil
	}

	traversal, diags := hcl.AbsTraversalForExpr(in.From)
	if diags.HasErrors() {
		if v, valDiags := in.From.Value(nil); !valDiags.HasErrors() && v.IsNull() && v.Type() == cty.DynamicPseudoType {
			return nodeid.PortRef{}, nil
		}
		return nodeid.PortRef{}, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid input reference",
			Detail:   "The 'from' attribute must be a reference of the form <node>.<output>.",
			Subject:  in.From.Range().Ptr(),
		}}
	}
	if len(traversal) != 2 {
		return nodeid.PortRef{}, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid input reference",
			Detail:   "The 'from' attribute must be a reference of the form <node>.<output>.",
			Subject:  traversal.SourceRange().Ptr(),
		}}
	}
	attr, ok := traversal[1].(hcl.TraverseAttr)
	if !ok {
		return nodeid.PortRef{}, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid input reference",
			Detail:   "The output must be named with an attribute access, e.g. node.output.",
			Subject:  traversal.SourceRange().Ptr(),
		}}
	}

	nodeName := traversal.RootName()
	upstream, ok := byName[nodeName]
	if !ok {
		return nodeid.PortRef{}, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Reference to undeclared node",
			Detail:   fmt.Sprintf("Input %q references node %q, which is not declared.", in.Name, nodeName),
			Subject:  traversal.SourceRange().Ptr(),
		}}
	}
	out, ok := upstream.Output(attr.Name)
	if !ok {
		return nodeid.PortRef{}, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Reference to undeclared output",
			Detail:   fmt.Sprintf("Input %q references output %q of node %q, which is not declared.", in.Name, attr.Name, nodeName),
			Subject:  traversal.SourceRange().Ptr(),
		}}
	}
	return nodeid.Ref(upstream.ID(), out.ID()), nil
}

func portDiagnostic(rng hcl.Range, err error) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "Invalid port",
		Detail:   err.Error(),
		Subject:  rng.Ptr(),
	}
}
