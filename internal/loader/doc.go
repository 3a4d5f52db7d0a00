// Package loader reads graph definition files written in HCL and builds a
// populated graph from them.
//
// A definition declares nodes by name. Inputs reference an upstream output
// as a bare traversal:
//
//	node "sum" {
//	  outputs = ["c"]
//	  input "a" { from = one.v }
//	  input "b" { from = two.v }
//	  code = "c = a + b"
//	}
//
// Nodes are added to the graph in file order, so every reference may point
// at any node of the loaded files.
package loader
