package script

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// statement is a single `name = expr` assignment of a body.
type statement struct {
	name string
	expr hclsyntax.Expression
}

// Program is a compiled body. Its parameter list is the ordered input names
// and it returns an aggregate keyed by the ordered output names.
type Program struct {
	name    string
	params  []string
	results []string
	stmts   []statement
}

// Compile parses body and checks it against the given signature. All
// failures are reported as a *CompileError.
func Compile(name, body string, inputs, outputs []string) (*Program, error) {
	diags := checkSignature(inputs, outputs)
	if diags.HasErrors() {
		return nil, &CompileError{Program: name, Diagnostics: diags}
	}

	src := normalizeSeparators(body)
	file, parseDiags := hclsyntax.ParseConfig([]byte(src), name, hcl.Pos{Line: 1, Column: 1, Byte: 0})
	if parseDiags.HasErrors() {
		return nil, &CompileError{Program: name, Diagnostics: parseDiags}
	}

	syntaxBody, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		// hclsyntax.ParseConfig always yields an *hclsyntax.Body.
		return nil, &CompileError{Program: name, Diagnostics: hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unsupported body",
			Detail:   fmt.Sprintf("unexpected body type %T", file.Body),
		}}}
	}

	for _, block := range syntaxBody.Blocks {
		diags = diags.Append(&hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Blocks are not supported",
			Detail:   fmt.Sprintf("Only `name = expression` statements are allowed, found block %q.", block.Type),
			Subject:  block.DefRange().Ptr(),
		})
	}

	stmts := orderedStatements(syntaxBody)
	diags = diags.Extend(checkStatements(stmts, inputs, outputs))
	if diags.HasErrors() {
		return nil, &CompileError{Program: name, Diagnostics: diags}
	}

	return &Program{
		name:    name,
		params:  append([]string(nil), inputs...),
		results: append([]string(nil), outputs...),
		stmts:   stmts,
	}, nil
}

// Name returns the program name used in diagnostics.
func (p *Program) Name() string { return p.name }

// Params returns the ordered parameter names.
func (p *Program) Params() []string { return append([]string(nil), p.params...) }

// Results returns the ordered result names.
func (p *Program) Results() []string { return append([]string(nil), p.results...) }

// Call runs the program with positional args matching Params. Unset
// (cty.NilVal) arguments are passed to the body as null.
func (p *Program) Call(args ...cty.Value) (map[string]cty.Value, error) {
	if len(args) != len(p.params) {
		return nil, &RuntimeError{
			Program: p.name,
			Err:     fmt.Errorf("expected %d arguments, got %d", len(p.params), len(args)),
		}
	}

	vars := make(map[string]cty.Value, len(p.params)+len(p.stmts))
	for i, param := range p.params {
		vars[param] = orNull(args[i])
	}
	evalCtx := &hcl.EvalContext{
		Variables: vars,
		Functions: builtins,
	}

	for _, stmt := range p.stmts {
		val, diags := stmt.expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, &RuntimeError{Program: p.name, Statement: stmt.name, Err: diags}
		}
		vars[stmt.name] = val
	}

	out := make(map[string]cty.Value, len(p.results))
	for _, result := range p.results {
		out[result] = vars[result]
	}
	return out, nil
}

func orNull(v cty.Value) cty.Value {
	if v == cty.NilVal {
		return cty.NullVal(cty.DynamicPseudoType)
	}
	return v
}

// orderedStatements returns the body's attributes in source order.
func orderedStatements(body *hclsyntax.Body) []statement {
	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, attr := range body.Attributes {
		attrs = append(attrs, attr)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})

	stmts := make([]statement, len(attrs))
	for i, attr := range attrs {
		stmts[i] = statement{name: attr.Name, expr: attr.Expr}
	}
	return stmts
}

// reservedNames are identifiers the expression parser treats as keywords, so
// a port with one of these names could never be referenced.
var reservedNames = map[string]bool{
	"null": true, "true": true, "false": true,
	"for": true, "in": true, "if": true,
}

func checkSignature(inputs, outputs []string) hcl.Diagnostics {
	var diags hcl.Diagnostics
	seen := make(map[string]string, len(inputs)+len(outputs))

	check := func(kind, name string) {
		if !hclsyntax.ValidIdentifier(name) {
			diags = diags.Append(&hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid port name",
				Detail:   fmt.Sprintf("The %s name %q is not a valid identifier.", kind, name),
			})
			return
		}
		if reservedNames[name] {
			diags = diags.Append(&hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid port name",
				Detail:   fmt.Sprintf("The %s name %q is a reserved keyword.", kind, name),
			})
			return
		}
		if prev, dup := seen[name]; dup {
			diags = diags.Append(&hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate port name",
				Detail:   fmt.Sprintf("The %s name %q is already used by an %s.", kind, name, prev),
			})
			return
		}
		seen[name] = kind
	}

	for _, in := range inputs {
		check("input", in)
	}
	for _, out := range outputs {
		check("output", out)
	}
	return diags
}

// checkStatements enforces the isolation contract statically: statements may
// only read inputs or names assigned before them, may only call known
// functions, and together must assign every output.
func checkStatements(stmts []statement, inputs, outputs []string) hcl.Diagnostics {
	var diags hcl.Diagnostics

	visible := make(map[string]bool, len(inputs)+len(stmts))
	for _, in := range inputs {
		visible[in] = true
	}
	assignedLater := make(map[string]bool, len(stmts))
	for _, stmt := range stmts {
		assignedLater[stmt.name] = true
	}

	for _, stmt := range stmts {
		refs, calls := extractReferencesAndFunctions(stmt.expr)

		for _, ref := range refs {
			if visible[ref.name] {
				continue
			}
			detail := fmt.Sprintf("The reference %s uses %q, which is not a declared input.", ref.key, ref.name)
			if assignedLater[ref.name] {
				detail = fmt.Sprintf("The reference %s reads %q before it is assigned.", ref.key, ref.name)
			}
			diags = diags.Append(&hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unknown variable",
				Detail:   detail,
				Subject:  ref.subj.Ptr(),
			})
		}

		for _, call := range calls {
			if _, ok := builtins[call.name]; ok {
				continue
			}
			diags = diags.Append(&hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Call to unknown function",
				Detail:   fmt.Sprintf("There is no function named %q.", call.name),
				Subject:  call.subj.Ptr(),
			})
		}

		visible[stmt.name] = true
	}

	for _, out := range outputs {
		if !assignedLater[out] {
			diags = diags.Append(&hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Missing output",
				Detail:   fmt.Sprintf("The output %q is never assigned.", out),
			})
		}
	}
	return diags
}
