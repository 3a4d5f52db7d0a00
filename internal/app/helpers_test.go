package app

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// safeBuffer is a thread-safe buffer for capturing log output in tests.
type safeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// setupAppTest writes src as a graph file and creates an app evaluating it.
func setupAppTest(t *testing.T, src string, mutate func(*Config)) (*App, *safeBuffer) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	cfg := Config{GraphPath: path, LogLevel: "debug", LogFormat: "text"}
	if mutate != nil {
		mutate(&cfg)
	}
	validated, err := NewConfig(cfg)
	require.NoError(t, err)

	out := &safeBuffer{}
	testApp, err := NewApp(out, validated)
	require.NoError(t, err)

	t.Cleanup(func() {
		if os.Getenv("NODULAR_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), out.String())
		}
	})
	return testApp, out
}
