// Package integration contains end-to-end tests for copilot.
//
// These tests build the copilot binary and exercise it against a fake
// provider upstream, verifying prompt rendering, completion output, and
// JSON recovery through the real CLI surface.
package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repoRoot returns the copilot repository root directory.
func repoRoot(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	// test/integration/complete_test.go -> repo root
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

// buildBinary compiles copilot into a temp directory.
func buildBinary(t *testing.T) string {
	t.Helper()
	binary := filepath.Join(t.TempDir(), "copilot-test")
	cmd := exec.Command("go", "build", "-o", binary, "./cmd/copilot") //nolint:gosec // test helper
	cmd.Dir = repoRoot(t)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "go build failed:\n%s", out)
	return binary
}

// fakeUpstream serves a canned chat completion for every request.
func fakeUpstream(t *testing.T, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-4o-mini",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{
				"prompt_tokens":     12,
				"completion_tokens": 7,
				"total_tokens":      19,
			},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

// writeWorkspace lays out a config file and template catalog pointing at
// the fake upstream, and returns the config path.
func writeWorkspace(t *testing.T, upstreamURL string) string {
	t.Helper()
	dir := t.TempDir()

	catalog := filepath.Join(dir, "prompts.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte(`templates:
  - id: workout-plan
    template: "Plan a {{days}}-day workout for a {{level}} member."
    variables:
      - name: days
        required: true
        type: number
      - name: level
        required: true
        type: string
`), 0o600))

	config := filepath.Join(dir, "copilot.yaml")
	require.NoError(t, os.WriteFile(config, fmt.Appendf(nil, `provider: openai
base_url: %s
model: gpt-4o-mini
max_tokens: 256
requests_per_minute: 0
timeout: 10s
cache_ttl: 1m
catalog: %s
`, upstreamURL, catalog), 0o600))

	return config
}

func run(t *testing.T, binary string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := exec.Command(binary, args...) //nolint:gosec // test helper
	cmd.Env = append(os.Environ(), "OPENAI_API_KEY=test-key")
	var out, errBuf strings.Builder
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return out.String(), errBuf.String(), err
}

func TestComplete_InlinePrompt(t *testing.T) {
	binary := buildBinary(t)
	server := fakeUpstream(t, "Try three sets of goblet squats.")
	config := writeWorkspace(t, server.URL)

	stdout, stderr, err := run(t, binary, "--config", config, "complete", "suggest one exercise")
	require.NoError(t, err, "copilot complete failed: %s", stderr)
	assert.Contains(t, stdout, "goblet squats")
}

func TestComplete_TemplateWithJSONRecovery(t *testing.T) {
	binary := buildBinary(t)
	// Upstream wraps its JSON in a fence plus prose, the way models do.
	server := fakeUpstream(t, "Here you go:\n```json\n{\"plan\": \"push-pull-legs\", \"days\": 3}\n```\nEnjoy!")
	config := writeWorkspace(t, server.URL)

	stdout, stderr, err := run(t, binary, "--config", config,
		"complete", "--template", "workout-plan",
		"--var", "days=3", "--var", "level=beginner", "--json")
	require.NoError(t, err, "copilot complete failed: %s", stderr)

	// Output should be the recovered JSON, not the prose wrapper.
	var plan struct {
		Plan string `json:"plan"`
		Days int    `json:"days"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &plan), "stdout is not clean JSON:\n%s", stdout)
	assert.Equal(t, "push-pull-legs", plan.Plan)
	assert.Equal(t, 3, plan.Days)
}

func TestComplete_MissingTemplateVariable(t *testing.T) {
	binary := buildBinary(t)
	server := fakeUpstream(t, "unused")
	config := writeWorkspace(t, server.URL)

	_, stderr, err := run(t, binary, "--config", config,
		"complete", "--template", "workout-plan", "--var", "days=3")
	require.Error(t, err, "missing required variable should fail")
	assert.Contains(t, stderr, "level")
}

func TestRender_Offline(t *testing.T) {
	binary := buildBinary(t)
	// No upstream at all: render must not touch the network.
	config := writeWorkspace(t, "http://127.0.0.1:1")

	stdout, stderr, err := run(t, binary, "--config", config,
		"render", "workout-plan",
		"--var", "days=5", "--var", "level=advanced")
	require.NoError(t, err, "copilot render failed: %s", stderr)
	assert.Contains(t, stdout, "Plan a 5-day workout for a advanced member.")
}

func TestVersion(t *testing.T) {
	binary := buildBinary(t)

	stdout, _, err := run(t, binary, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "copilot")
}
