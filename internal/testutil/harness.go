// Package testutil provides a harness for running graph definitions through
// the full application in integration tests.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/nodular/internal/app"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	// Output holds the printed output values and any log records at or above
	// the configured level.
	Output string
	Err    error
}

// RunGraph writes files under a temporary directory, points the app at it and
// runs one evaluation. File names are relative, e.g. "nested/math.hcl".
// mutate may adjust the configuration before it is validated.
func RunGraph(t *testing.T, files map[string]string, mutate func(*app.Config)) *HarnessResult {
	t.Helper()
	return RunGraphWithContext(context.Background(), t, files, mutate)
}

// RunGraphWithContext is RunGraph with a caller-provided context.
func RunGraphWithContext(ctx context.Context, t *testing.T, files map[string]string, mutate func(*app.Config)) *HarnessResult {
	t.Helper()

	graphDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(graphDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o600))
	}

	cfg := app.Config{
		GraphPath: graphDir,
		LogLevel:  "error",
		LogFormat: "text",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out := &SafeBuffer{}
	testApp, err := app.NewApp(out, appConfig)
	require.NoError(t, err)

	runErr := testApp.Run(ctx)

	if os.Getenv("NODULAR_TEST_LOGS") == "true" {
		t.Logf("--- Full Output for %s ---\n%s", t.Name(), out.String())
	}
	return &HarnessResult{Output: out.String(), Err: runErr}
}
