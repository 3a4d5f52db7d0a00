package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertOutput checks that the run printed `<node>.<output> = <want>`, with
// want in its JSON form.
func AssertOutput(t *testing.T, result *HarnessResult, node, output, want string) {
	t.Helper()

	line := fmt.Sprintf("%s.%s = %s\n", node, output, want)
	require.True(t,
		strings.Contains(result.Output, line),
		"expected output %q was not found in:\n%s", strings.TrimSpace(line), result.Output,
	)
}
