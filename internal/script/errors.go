package script

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// CompileError reports a body that cannot be turned into a program: a parse
// failure or a failed static check.
type CompileError struct {
	Program     string
	Diagnostics hcl.Diagnostics
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %q: %s", e.Program, e.Diagnostics.Error())
}

func (e *CompileError) Unwrap() error {
	return e.Diagnostics
}

// RuntimeError reports a failure while a compiled program was executing.
// Statement is empty when the call failed before any statement ran.
type RuntimeError struct {
	Program   string
	Statement string
	Err       error
}

func (e *RuntimeError) Error() string {
	if e.Statement == "" {
		return fmt.Sprintf("run %q: %v", e.Program, e.Err)
	}
	return fmt.Sprintf("run %q: statement %q: %v", e.Program, e.Statement, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}
