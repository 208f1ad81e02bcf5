package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	name    string
	enabled bool
	exec    func(ctx context.Context, input string) (ToolResult, error)
}

func (f *fakeTool) Name() string { return f.name }
func (f *fakeTool) Description() string { return "fake " + f.name }
func (f *fakeTool) Enabled() bool { return f.enabled }
func (f *fakeTool) Execute(ctx context.Context, input string) (ToolResult, error) {
	return f.exec(ctx, input)
}

func echoTool(name string) *fakeTool {
	return &fakeTool{name: name, enabled: true, exec: func(_ context.Context, input string) (ToolResult, error) {
		return Succeeded(name, "echo: "+input), nil
	}}
}

func TestRegistryExecute(t *testing.T) {
	reg := NewToolRegistry()
	require.NoError(t, reg.RegisterTool(echoTool("echo")))
	require.NoError(t, reg.RegisterTool(&fakeTool{name: "off", enabled: false}))
	require.NoError(t, reg.RegisterTool(&fakeTool{name: "broken", enabled: true, exec: func(context.Context, string) (ToolResult, error) {
		return ToolResult{}, errors.New("disk on fire")
	}}))
	require.NoError(t, reg.RegisterTool(&fakeTool{name: "panics", enabled: true, exec: func(context.Context, string) (ToolResult, error) {
		panic("boom")
	}}))

	tests := []struct {
		name     string
		tool     string
		wantOK   bool
		wantKind FailureKind
		wantText string
	}{
		{"success", "echo", true, "", "echo: hi"},
		{"unknown", "nope", false, FailureNotFound, "Tool 'nope' not found"},
		{"disabled", "off", false, FailureDisabled, "Tool 'off' is disabled"},
		{"error becomes failure", "broken", false, FailureExecution, "disk on fire"},
		{"panic becomes failure", "panics", false, FailureExecution, "crashed: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := reg.Execute(context.Background(), tt.tool, "hi")
			assert.Equal(t, tt.tool, res.ToolName)
			assert.Equal(t, tt.wantOK, res.Success())
			assert.Contains(t, res.Text(), tt.wantText)
			if !tt.wantOK {
				assert.Equal(t, tt.wantKind, res.Failure.Kind)
				assert.True(t, strings.HasPrefix(res.Render(), FailureMarker))
			} else {
				assert.True(t, strings.HasPrefix(res.Render(), SuccessMarker))
			}
		})
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewToolRegistry()
	require.NoError(t, reg.RegisterTool(echoTool("echo")))

	err := reg.RegisterTool(echoTool("echo"))
	var regErr *ToolRegistryError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "RegisterTool", regErr.Operation)

	assert.Error(t, reg.RegisterTool(nil))
}

func TestRegistryTruncatesOutput(t *testing.T) {
	reg := NewToolRegistry(WithOutputLimits(map[string]config.OutputLimit{
		"big": {MaxChars: 100, Mode: "tail"},
	}))
	require.NoError(t, reg.RegisterTool(&fakeTool{name: "big", enabled: true, exec: func(context.Context, string) (ToolResult, error) {
		return Succeeded("big", strings.Repeat("x", 500)), nil
	}}))

	res := reg.Execute(context.Background(), "big", "")
	require.True(t, res.Success())
	assert.Contains(t, res.Content, "First 400 characters were removed")
	assert.Less(t, len(res.Content), 500)
}

func TestDescribeListsEnabledToolsInOrder(t *testing.T) {
	reg := NewToolRegistry()
	require.NoError(t, reg.RegisterTool(echoTool("zeta")))
	require.NoError(t, reg.RegisterTool(&fakeTool{name: "hidden", enabled: false}))
	require.NoError(t, reg.RegisterTool(echoTool("alpha")))

	desc := reg.Describe()
	assert.NotContains(t, desc, "hidden")
	assert.Less(t, strings.Index(desc, "zeta"), strings.Index(desc, "alpha"))

	infos := reg.ListTools()
	require.Len(t, infos, 3)
	assert.False(t, infos[1].Enabled)

	assert.Contains(t, NewToolRegistry().Describe(), "No tools are available")
}

func TestStripMarkers(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"✅ done", "done"},
		{"❌ failed", "failed"},
		{"  ✅ ✅ twice", "twice"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripMarkers(tt.in))
	}
}

func TestNewDefaultRegistry(t *testing.T) {
	cfg := config.ToolsConfig{WorkingDirectory: t.TempDir()}
	cfg.SetDefaults()

	reg, err := NewDefaultRegistry(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{FileOperationsName, CodeExecutorName, WebSearchName, CodebaseSearchName}, reg.Names())

	res := reg.Execute(context.Background(), WebSearchName, `{"query":"go"}`)
	assert.Equal(t, "Tool 'web_search' is disabled", res.Text())

	for _, info := range reg.ListTools() {
		assert.Contains(t, info.InputSchema, `"properties"`, info.Name)
	}
}
