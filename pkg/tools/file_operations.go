// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Senchy071/Meton-sub000/pkg/config"
)

const FileOperationsName = "file_operations"

type FileOperationsInput struct {
	Action    string `json:"action" jsonschema:"required,enum=read,enum=write,enum=list,enum=exists,enum=mkdir,description=Operation to perform"`
	Path      string `json:"path" jsonschema:"required,description=File or directory path relative to the working directory"`
	Content   string `json:"content,omitempty" jsonschema:"description=Content to write (write only)"`
	StartLine int    `json:"start_line,omitempty" jsonschema:"description=First line to return (read only; 1-indexed),minimum=1"`
	EndLine   int    `json:"end_line,omitempty" jsonschema:"description=Last line to return (read only; inclusive),minimum=1"`
}

// FileOperationsTool reads, writes and lists files inside the allowed paths.
type FileOperationsTool struct {
	cfg        config.FileOperationsConfig
	workingDir string
	allowed    []string
	schema     string
}

func NewFileOperationsTool(cfg config.FileOperationsConfig, workingDir string) (*FileOperationsTool, error) {
	root, err := filepath.Abs(workingDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	root = evalPath(root)

	allowedPaths := cfg.AllowedPaths
	if len(allowedPaths) == 0 {
		allowedPaths = []string{root}
	}
	allowed := make([]string, 0, len(allowedPaths))
	for _, p := range allowedPaths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		allowed = append(allowed, evalPath(filepath.Clean(p)))
	}

	return &FileOperationsTool{
		cfg:        cfg,
		workingDir: root,
		allowed:    allowed,
		schema:     inputSchema[FileOperationsInput](),
	}, nil
}

func (t *FileOperationsTool) Name() string { return FileOperationsName }

func (t *FileOperationsTool) Description() string {
	return "Read, write, list, check or create files and directories. " +
		`Input: {"action": "read|write|list|exists|mkdir", "path": "...", "content": "..."}`
}

func (t *FileOperationsTool) Enabled() bool {
	return config.BoolValue(t.cfg.Enabled, true)
}

func (t *FileOperationsTool) InputSchema() string { return t.schema }

func (t *FileOperationsTool) Execute(_ context.Context, input string) (ToolResult, error) {
	var in FileOperationsInput
	if err := decodeInput(input, &in); err != nil {
		return Failed(FileOperationsName, FailureInvalidInput, "Invalid JSON input: %v", err), nil
	}
	if in.Path == "" {
		return Failed(FileOperationsName, FailureInvalidInput, "path is required"), nil
	}

	full, failure := t.resolve(in.Path)
	if failure != nil {
		return ToolResult{ToolName: FileOperationsName, Failure: failure}, nil
	}

	switch in.Action {
	case "read":
		return t.read(in, full), nil
	case "write":
		return t.write(in, full), nil
	case "list":
		return t.list(in.Path, full), nil
	case "exists":
		return t.exists(in.Path, full), nil
	case "mkdir":
		return t.mkdir(in.Path, full), nil
	case "":
		return Failed(FileOperationsName, FailureInvalidInput, "action is required"), nil
	default:
		return Failed(FileOperationsName, FailureInvalidInput,
			"unknown action %q (expected read, write, list, exists or mkdir)", in.Action), nil
	}
}

// resolve maps path to an absolute path inside the allowed roots.
func (t *FileOperationsTool) resolve(path string) (string, *ToolFailure) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(t.workingDir, full)
	}
	full = filepath.Clean(full)

	full = evalPath(full)

	inside := false
	for _, root := range t.allowed {
		if within(root, full) {
			inside = true
			break
		}
	}
	if !inside {
		return "", &ToolFailure{Kind: FailurePermissionDenied, Message: fmt.Sprintf("Access denied: %s is outside the allowed paths", path)}
	}

	rel, _ := filepath.Rel(t.workingDir, full)
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, blocked := range t.cfg.BlockedPaths {
		blocked = filepath.Clean(blocked)
		root := blocked
		if !filepath.IsAbs(root) {
			root = filepath.Join(t.workingDir, root)
		}
		if within(root, full) {
			return "", &ToolFailure{Kind: FailurePermissionDenied, Message: fmt.Sprintf("Access denied: %s is blocked", path)}
		}
		for _, part := range parts {
			if part == blocked {
				return "", &ToolFailure{Kind: FailurePermissionDenied, Message: fmt.Sprintf("Access denied: %s is blocked", path)}
			}
		}
	}
	return full, nil
}

// evalPath resolves symlinks in the longest existing prefix of path, so a
// link cannot point outside the allowed roots.
func evalPath(path string) string {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		return real
	}
	parent := filepath.Dir(path)
	if parent == path {
		return path
	}
	return filepath.Join(evalPath(parent), filepath.Base(path))
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func (t *FileOperationsTool) read(in FileOperationsInput, full string) ToolResult {
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return Failed(FileOperationsName, FailureNotFound, "File not found: %s", in.Path)
		}
		return Failed(FileOperationsName, FailureExecution, "Failed to stat %s: %v", in.Path, err)
	}
	if info.IsDir() {
		return Failed(FileOperationsName, FailureInvalidInput, "%s is a directory; use the list action", in.Path)
	}
	if t.cfg.MaxFileSize > 0 && info.Size() > t.cfg.MaxFileSize {
		return Failed(FileOperationsName, FailureInvalidInput,
			"File too large: %d bytes (max %d)", info.Size(), t.cfg.MaxFileSize)
	}

	var content string
	if isDocument(full) {
		content, err = extractDocumentText(full, info.Size())
	} else {
		var data []byte
		data, err = os.ReadFile(full)
		content = string(data)
	}
	if err != nil {
		return Failed(FileOperationsName, FailureExecution, "Failed to read %s: %v", in.Path, err)
	}

	lines := strings.Split(content, "\n")
	total := len(lines)
	start, end := 1, total
	if in.StartLine > 0 {
		start = in.StartLine
	}
	if in.EndLine > 0 && in.EndLine < total {
		end = in.EndLine
	}
	if start > total {
		return Failed(FileOperationsName, FailureInvalidInput, "start_line %d exceeds file length (%d lines)", start, total)
	}
	if start > end {
		return Failed(FileOperationsName, FailureInvalidInput, "invalid range: start_line %d > end_line %d", start, end)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "FILE: %s (%d lines", in.Path, total)
	if start != 1 || end != total {
		fmt.Fprintf(&b, ", showing %d-%d", start, end)
	}
	b.WriteString(")\n")
	b.WriteString(strings.Join(lines[start-1:end], "\n"))

	res := Succeeded(FileOperationsName, b.String())
	res.Metadata = map[string]any{"path": in.Path, "lines": total, "bytes": info.Size()}
	return res
}

func (t *FileOperationsTool) write(in FileOperationsInput, full string) ToolResult {
	if !config.BoolValue(t.cfg.AllowWrite, true) {
		return Failed(FileOperationsName, FailurePermissionDenied, "Writing files is disabled")
	}
	if t.cfg.MaxFileSize > 0 && int64(len(in.Content)) > t.cfg.MaxFileSize {
		return Failed(FileOperationsName, FailureInvalidInput, "Content too large: %d bytes (max %d)", len(in.Content), t.cfg.MaxFileSize)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Failed(FileOperationsName, FailureExecution, "Failed to create parent directory: %v", err)
	}
	if err := os.WriteFile(full, []byte(in.Content), 0o644); err != nil {
		return Failed(FileOperationsName, FailureExecution, "Failed to write %s: %v", in.Path, err)
	}
	return Succeeded(FileOperationsName, fmt.Sprintf("Wrote %d bytes to %s", len(in.Content), in.Path))
}

func (t *FileOperationsTool) list(path, full string) ToolResult {
	entries, err := os.ReadDir(full)
	if err != nil {
		if os.IsNotExist(err) {
			return Failed(FileOperationsName, FailureNotFound, "Directory not found: %s", path)
		}
		return Failed(FileOperationsName, FailureExecution, "Failed to list %s: %v", path, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) == 0 {
		return Succeeded(FileOperationsName, fmt.Sprintf("Directory %s is empty", path))
	}
	return Succeeded(FileOperationsName, fmt.Sprintf("Contents of %s:\n%s", path, strings.Join(names, "\n")))
}

func (t *FileOperationsTool) exists(path, full string) ToolResult {
	info, err := os.Stat(full)
	switch {
	case os.IsNotExist(err):
		return Succeeded(FileOperationsName, fmt.Sprintf("%s does not exist", path))
	case err != nil:
		return Failed(FileOperationsName, FailureExecution, "Failed to stat %s: %v", path, err)
	case info.IsDir():
		return Succeeded(FileOperationsName, fmt.Sprintf("%s exists (directory)", path))
	default:
		return Succeeded(FileOperationsName, fmt.Sprintf("%s exists (file, %d bytes)", path, info.Size()))
	}
}

func (t *FileOperationsTool) mkdir(path, full string) ToolResult {
	if !config.BoolValue(t.cfg.AllowWrite, true) {
		return Failed(FileOperationsName, FailurePermissionDenied, "Writing files is disabled")
	}
	if err := os.MkdirAll(full, 0o755); err != nil {
		return Failed(FileOperationsName, FailureExecution, "Failed to create %s: %v", path, err)
	}
	return Succeeded(FileOperationsName, fmt.Sprintf("Created directory %s", path))
}
