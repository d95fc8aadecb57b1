// ABOUTME: End-to-end tests for the CLI: version, ask against an in-process stub backend,
// ABOUTME: config validation failures, and the web command serving alongside the stub.
package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389-research/modelselector/stub"
)

// isolate keeps config files, .env and logs of the host out of the test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("MODELSELECTOR_REVEAL_THINK_DELAY", "10ms")
	t.Setenv("MODELSELECTOR_REVEAL_OUTPUT_DELAY", "20ms")
	t.Chdir(dir)
	return dir
}

func runCLI(t *testing.T, ctx context.Context, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(ctx, args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestVersion(t *testing.T) {
	isolate(t)
	code, out, _ := runCLI(t, context.Background(), "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "modelselector dev\n", out)
}

func TestAskPrintsStagesInOrder(t *testing.T) {
	dir := isolate(t)
	backend := httptest.NewServer(stub.NewServer(stub.Config{}))
	defer backend.Close()

	code, out, errOut := runCLI(t, context.Background(),
		"ask", "--base-url", backend.URL, "--log-file", filepath.Join(dir, "ask.log"),
		"Write", "and", "debug", "code",
	)
	require.Equal(t, 0, code, errOut)

	assert.Contains(t, out, "Query: Write and debug code")
	plan := strings.Index(out, "== Plan ==")
	think := strings.Index(out, "== Think ==")
	output := strings.Index(out, "== Output ==")
	require.True(t, plan >= 0 && think >= 0 && output >= 0, out)
	assert.Less(t, plan, think)
	assert.Less(t, think, output)
	assert.Contains(t, out, "large")
}

func TestAskReportsBackendFailure(t *testing.T) {
	dir := isolate(t)
	backend := httptest.NewServer(stub.NewServer(stub.Config{FailStatus: http.StatusServiceUnavailable}))
	defer backend.Close()

	code, out, errOut := runCLI(t, context.Background(),
		"ask", "--base-url", backend.URL, "--log-file", filepath.Join(dir, "ask.log"),
		"anything",
	)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "submission failed: api error")
	assert.Contains(t, out, "Error: Could not fetch plan.")
	assert.Contains(t, out, "Error: Could not fetch thought process.")
	assert.Contains(t, out, "Error: Could not fetch final response.")

	logged, err := os.ReadFile(filepath.Join(dir, "ask.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logged), "workflow request failed")
	assert.Contains(t, string(logged), "command failed")
}

func TestAskRequiresQuery(t *testing.T) {
	isolate(t)
	code, _, errOut := runCLI(t, context.Background(), "ask")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "requires at least 1 arg")
}

func TestAskRejectsBlankQuery(t *testing.T) {
	dir := isolate(t)
	code, _, errOut := runCLI(t, context.Background(), "ask", "--log-file", filepath.Join(dir, "ask.log"), "   ")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "query must not be empty")
}

func TestInvalidConfigFails(t *testing.T) {
	isolate(t)
	t.Setenv("MODELSELECTOR_REVEAL_OUTPUT_DELAY", "5ms")

	code, _, errOut := runCLI(t, context.Background(), "ask", "q")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid config")
}

func TestMissingConfigFileFails(t *testing.T) {
	isolate(t)
	code, _, errOut := runCLI(t, context.Background(), "--config", "nope.yaml", "stub")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "reading config")
}

func TestWebWithStub(t *testing.T) {
	dir := isolate(t)
	webAddr := freeAddr(t)
	t.Setenv("MODELSELECTOR_STUB_ADDR", freeAddr(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() {
		code, _, _ := runCLI(t, ctx, "web", "--with-stub", "--addr", webAddr, "--log-file", filepath.Join(dir, "web.log"))
		done <- code
	}()

	base := "http://" + webAddr
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines")
	assert.Contains(t, string(body), "modelselector_sessions")

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(10 * time.Second):
		t.Fatal("web command did not stop after cancel")
	}
}
