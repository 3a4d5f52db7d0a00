// Package script compiles node code bodies into callable programs.
//
// A body is a sequence of HCL native-syntax assignments, one per line:
//
//	sum   = a + b
//	label = format("%s=%d", name, sum)
//
// Statements run in source order and every assigned name is visible to the
// statements after it. A `;` outside strings and comments is accepted as a
// statement separator, so `c = a + b;` compiles too.
//
// # Isolation
//
// A program evaluates against a fresh hcl.EvalContext on every call. That
// context holds the declared inputs, the locals assigned so far and a fixed
// table of pure cty functions, nothing else. Compile rejects any reference to
// a name outside that set, any call to an unknown function, and any declared
// output the body never assigns. Values flow in and out as cty.Value.
package script
