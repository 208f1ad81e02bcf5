package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newFileOpsForTest(t *testing.T, mutate func(*config.FileOperationsConfig)) (*FileOperationsTool, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.ToolsConfig{WorkingDirectory: dir}
	cfg.SetDefaults()
	cfg.FileOperations.AllowedPaths = nil
	if mutate != nil {
		mutate(&cfg.FileOperations)
	}
	tool, err := NewFileOperationsTool(cfg.FileOperations, dir)
	require.NoError(t, err)
	return tool, dir
}

func fileInput(t *testing.T, in FileOperationsInput) string {
	t.Helper()
	data, err := json.Marshal(in)
	require.NoError(t, err)
	return string(data)
}

func TestFileOperationsReadWriteList(t *testing.T) {
	tool, dir := newFileOpsForTest(t, nil)
	ctx := context.Background()

	res, err := tool.Execute(ctx, fileInput(t, FileOperationsInput{Action: "write", Path: "core/agent.py", Content: "line1\nline2\nline3"}))
	require.NoError(t, err)
	require.True(t, res.Success(), res.Text())
	assert.FileExists(t, filepath.Join(dir, "core", "agent.py"))

	res, _ = tool.Execute(ctx, fileInput(t, FileOperationsInput{Action: "read", Path: "core/agent.py"}))
	require.True(t, res.Success(), res.Text())
	assert.Contains(t, res.Content, "FILE: core/agent.py (3 lines)")
	assert.Contains(t, res.Content, "line2")

	res, _ = tool.Execute(ctx, fileInput(t, FileOperationsInput{Action: "read", Path: "core/agent.py", StartLine: 2, EndLine: 2}))
	require.True(t, res.Success(), res.Text())
	assert.Contains(t, res.Content, "showing 2-2")
	assert.NotContains(t, res.Content, "line1")

	res, _ = tool.Execute(ctx, fileInput(t, FileOperationsInput{Action: "list", Path: "."}))
	require.True(t, res.Success(), res.Text())
	assert.Contains(t, res.Content, "core/")

	res, _ = tool.Execute(ctx, fileInput(t, FileOperationsInput{Action: "exists", Path: "core/missing.py"}))
	require.True(t, res.Success())
	assert.Contains(t, res.Content, "does not exist")

	res, _ = tool.Execute(ctx, fileInput(t, FileOperationsInput{Action: "mkdir", Path: "out/nested"}))
	require.True(t, res.Success(), res.Text())
	assert.DirExists(t, filepath.Join(dir, "out", "nested"))
}

func TestFileOperationsFailures(t *testing.T) {
	tool, dir := newFileOpsForTest(t, func(c *config.FileOperationsConfig) {
		c.MaxFileSize = 10
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.txt"), []byte("0123456789abcdef"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SECRET=1"), 0o644))

	tests := []struct {
		name  string
		input string
		kind  FailureKind
	}{
		{"not json", "read main.go", FailureInvalidInput},
		{"missing path", `{"action":"read"}`, FailureInvalidInput},
		{"unknown action", `{"action":"delete","path":"x"}`, FailureInvalidInput},
		{"missing file", `{"action":"read","path":"nope.txt"}`, FailureNotFound},
		{"escape", `{"action":"read","path":"../../etc/passwd"}`, FailurePermissionDenied},
		{"absolute outside", `{"action":"read","path":"/etc/passwd"}`, FailurePermissionDenied},
		{"blocked", `{"action":"read","path":".env"}`, FailurePermissionDenied},
		{"too large", `{"action":"read","path":"big.txt"}`, FailureInvalidInput},
		{"read dir", `{"action":"read","path":"."}`, FailureInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tool.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			require.False(t, res.Success())
			assert.Equal(t, tt.kind, res.Failure.Kind, res.Text())
		})
	}
}

func TestFileOperationsWriteDisabled(t *testing.T) {
	tool, _ := newFileOpsForTest(t, func(c *config.FileOperationsConfig) {
		c.AllowWrite = config.BoolPtr(false)
	})
	res, err := tool.Execute(context.Background(), `{"action":"write","path":"a.txt","content":"x"}`)
	require.NoError(t, err)
	require.False(t, res.Success())
	assert.Equal(t, FailurePermissionDenied, res.Failure.Kind)
}

func TestFileOperationsReadsSpreadsheet(t *testing.T) {
	tool, dir := newFileOpsForTest(t, nil)

	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "name"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", "meton"))
	require.NoError(t, f.SaveAs(filepath.Join(dir, "data.xlsx")))
	require.NoError(t, f.Close())

	res, err := tool.Execute(context.Background(), `{"action":"read","path":"data.xlsx"}`)
	require.NoError(t, err)
	require.True(t, res.Success(), res.Text())
	assert.Contains(t, res.Content, "--- Sheet: Sheet1 ---")
	assert.Contains(t, res.Content, "A1: name")
	assert.Contains(t, res.Content, "B2: meton")
}
