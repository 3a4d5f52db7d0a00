package loader

import "github.com/hashicorp/hcl/v2"

// fileRoot is the top-level shape of a definition file.
type fileRoot struct {
	Nodes []*nodeBlock `hcl:"node,block"`
}

type nodeBlock struct {
	Name     string        `hcl:"name,label"`
	Outputs  []string      `hcl:"outputs,optional"`
	Inputs   []*inputBlock `hcl:"input,block"`
	Code     string        `hcl:"code,optional"`
	DefRange hcl.Range     `hcl:",def_range"`
}

type inputBlock struct {
	Name     string         `hcl:"name,label"`
	From     hcl.Expression `hcl:"from,optional"`
	DefRange hcl.Range      `hcl:",def_range"`
}
