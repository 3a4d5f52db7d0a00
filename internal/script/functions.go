package script

import (
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// builtins is the complete function table a body may call. Every entry is a
// pure function of its arguments.
var builtins = map[string]function.Function{
	"abs":        stdlib.AbsoluteFunc,
	"ceil":       stdlib.CeilFunc,
	"floor":      stdlib.FloorFunc,
	"max":        stdlib.MaxFunc,
	"min":        stdlib.MinFunc,
	"pow":        stdlib.PowFunc,
	"signum":     stdlib.SignumFunc,
	"upper":      stdlib.UpperFunc,
	"lower":      stdlib.LowerFunc,
	"strlen":     stdlib.StrlenFunc,
	"substr":     stdlib.SubstrFunc,
	"split":      stdlib.SplitFunc,
	"join":       stdlib.JoinFunc,
	"format":     stdlib.FormatFunc,
	"trimspace":  stdlib.TrimSpaceFunc,
	"length":     stdlib.LengthFunc,
	"concat":     stdlib.ConcatFunc,
	"coalesce":   stdlib.CoalesceFunc,
	"keys":       stdlib.KeysFunc,
	"values":     stdlib.ValuesFunc,
	"contains":   stdlib.ContainsFunc,
	"merge":      stdlib.MergeFunc,
	"range":      stdlib.RangeFunc,
	"sort":       stdlib.SortFunc,
	"jsonencode": stdlib.JSONEncodeFunc,
	"jsondecode": stdlib.JSONDecodeFunc,
	"tostring":   stdlib.MakeToFunc(cty.String),
	"tonumber":   stdlib.MakeToFunc(cty.Number),
	"tobool":     stdlib.MakeToFunc(cty.Bool),
}

// Functions returns the sorted names of the functions available to bodies.
func Functions() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
