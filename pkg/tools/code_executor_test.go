package tools

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The executor runs "<interpreter> <script>", so sh stands in for python to
// keep these tests independent of the host's Python install.
func newShellExecutor(t *testing.T, timeout time.Duration) *CodeExecutorTool {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	return NewCodeExecutorTool(config.CodeExecutorConfig{
		Interpreter:    "sh",
		Timeout:        timeout,
		MaxOutputBytes: 1024,
		BlockedImports: []string{"os", "subprocess"},
	}, t.TempDir())
}

func TestCodeExecutorRuns(t *testing.T) {
	tool := newShellExecutor(t, 5*time.Second)

	res, err := tool.Execute(context.Background(), `{"code":"echo hello"}`)
	require.NoError(t, err)
	require.True(t, res.Success(), res.Text())
	assert.Equal(t, "hello", res.Content)
}

func TestCodeExecutorFailures(t *testing.T) {
	tool := newShellExecutor(t, 200*time.Millisecond)

	tests := []struct {
		name  string
		input string
		kind  FailureKind
		text  string
	}{
		{"bad json", `print(1)`, FailureInvalidInput, "Invalid JSON"},
		{"empty code", `{"code":"  "}`, FailureInvalidInput, "code is required"},
		{"language", `{"code":"x","language":"ruby"}`, FailureInvalidInput, "unsupported language"},
		{"blocked import", `{"code":"import os\nprint(os.getcwd())"}`, FailurePermissionDenied, "'os'"},
		{"blocked from import", `{"code":"from subprocess import run"}`, FailurePermissionDenied, "'subprocess'"},
		{"non-zero exit", `{"code":"echo oops >&2; exit 3"}`, FailureExecution, "Exit code 3: oops"},
		{"timeout", `{"code":"sleep 5"}`, FailureTimeout, "timed out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tool.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			require.False(t, res.Success())
			assert.Equal(t, tt.kind, res.Failure.Kind)
			assert.Contains(t, res.Text(), tt.text)
		})
	}
}

func TestLimitedBuffer(t *testing.T) {
	b := &limitedBuffer{max: 4}
	n, err := b.Write([]byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "abcd\n[output truncated]", b.String())
}
