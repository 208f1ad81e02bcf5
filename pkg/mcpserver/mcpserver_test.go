package mcpserver

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/tools"
)

func newRegistry(t *testing.T) (*tools.ToolRegistry, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("remember the milk\n"), 0o644))
	cfg := config.ToolsConfig{WorkingDirectory: dir}
	cfg.SetDefaults()
	reg, err := tools.NewDefaultRegistry(cfg)
	require.NoError(t, err)
	return reg, dir
}

func call(t *testing.T, reg *tools.ToolRegistry, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := handler(reg, name, slog.Default())(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestToolCall(t *testing.T) {
	reg, _ := newRegistry(t)

	res := call(t, reg, tools.FileOperationsName, map[string]any{
		"input": `{"action": "read", "path": "notes.txt"}`,
	})

	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), "remember the milk")
}

func TestToolCallFailures(t *testing.T) {
	reg, _ := newRegistry(t)
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing input", map[string]any{}, "input"},
		{"tool failure", map[string]any{"input": `{"action": "read", "path": "absent.txt"}`}, "absent.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, reg, tools.FileOperationsName, tt.args)
			assert.True(t, res.IsError)
			assert.Contains(t, text(t, res), tt.want)
		})
	}
}

func TestDefinition(t *testing.T) {
	reg, _ := newRegistry(t)
	tool, err := reg.GetTool(tools.FileOperationsName)
	require.NoError(t, err)

	def := definition(tool)

	assert.Equal(t, tools.FileOperationsName, def.Name)
	assert.Equal(t, []string{"input"}, def.InputSchema.Required)
	assert.Contains(t, def.InputSchema.Properties, "input")
}

func TestNew(t *testing.T) {
	reg, _ := newRegistry(t)
	assert.NotNil(t, New(reg, "test", nil))
}
