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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Senchy071/Meton-sub000/pkg/config"
)

const CodeExecutorName = "code_executor"

type CodeExecutorInput struct {
	Code     string `json:"code" jsonschema:"required,description=Source code to run"`
	Language string `json:"language,omitempty" jsonschema:"description=Language of the code,default=python,enum=python"`
}

var importPattern = regexp.MustCompile(`(?m)^\s*(?:import|from)\s+([A-Za-z_][A-Za-z0-9_]*)`)

// CodeExecutorTool runs a snippet with the configured interpreter in a
// subprocess bounded by a wall-clock timeout.
type CodeExecutorTool struct {
	cfg        config.CodeExecutorConfig
	workingDir string
	schema     string
}

func NewCodeExecutorTool(cfg config.CodeExecutorConfig, workingDir string) *CodeExecutorTool {
	if cfg.Interpreter == "" {
		cfg.Interpreter = "python3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &CodeExecutorTool{
		cfg:        cfg,
		workingDir: workingDir,
		schema:     inputSchema[CodeExecutorInput](),
	}
}

func (t *CodeExecutorTool) Name() string { return CodeExecutorName }

func (t *CodeExecutorTool) Description() string {
	return fmt.Sprintf("Execute a Python snippet and return its output (timeout %s). "+
		`Input: {"code": "print(1 + 1)"}`, t.cfg.Timeout)
}

func (t *CodeExecutorTool) Enabled() bool {
	return config.BoolValue(t.cfg.Enabled, true)
}

func (t *CodeExecutorTool) InputSchema() string { return t.schema }

func (t *CodeExecutorTool) Execute(ctx context.Context, input string) (ToolResult, error) {
	var in CodeExecutorInput
	if err := decodeInput(input, &in); err != nil {
		return Failed(CodeExecutorName, FailureInvalidInput, "Invalid JSON input: %v", err), nil
	}
	if strings.TrimSpace(in.Code) == "" {
		return Failed(CodeExecutorName, FailureInvalidInput, "code is required"), nil
	}
	if lang := strings.ToLower(in.Language); lang != "" && lang != "python" {
		return Failed(CodeExecutorName, FailureInvalidInput, "unsupported language %q", in.Language), nil
	}
	if mod := t.blockedImport(in.Code); mod != "" {
		return Failed(CodeExecutorName, FailurePermissionDenied, "Import of module '%s' is not allowed", mod), nil
	}

	script, err := os.CreateTemp("", "meton-exec-*.py")
	if err != nil {
		return ToolResult{}, fmt.Errorf("failed to create script file: %w", err)
	}
	defer os.Remove(script.Name())
	if _, err := script.WriteString(in.Code); err != nil {
		script.Close()
		return ToolResult{}, fmt.Errorf("failed to write script file: %w", err)
	}
	script.Close()

	return t.run(ctx, script.Name()), nil
}

func (t *CodeExecutorTool) run(ctx context.Context, scriptPath string) ToolResult {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.cfg.Interpreter, scriptPath)
	if t.workingDir != "" {
		if abs, err := filepath.Abs(t.workingDir); err == nil {
			cmd.Dir = abs
		}
	}
	cmd.WaitDelay = 100 * time.Millisecond

	stdout := &limitedBuffer{max: t.cfg.MaxOutputBytes}
	stderr := &limitedBuffer{max: t.cfg.MaxOutputBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Failed(CodeExecutorName, FailureTimeout, "Execution timed out after %s", t.cfg.Timeout)
	}

	out := strings.TrimRight(stdout.String(), "\n")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = out
			}
			res := Failed(CodeExecutorName, FailureExecution, "Exit code %d: %s", exitErr.ExitCode(), msg)
			res.Metadata = map[string]any{"exit_code": exitErr.ExitCode()}
			return res
		}
		return Failed(CodeExecutorName, FailureExecution, "Failed to run %s: %v", t.cfg.Interpreter, err)
	}

	if out == "" {
		out = "(no output)"
	}
	res := Succeeded(CodeExecutorName, out)
	res.Metadata = map[string]any{"duration_ms": elapsed.Milliseconds()}
	if s := strings.TrimSpace(stderr.String()); s != "" {
		res.Metadata["stderr"] = s
	}
	return res
}

func (t *CodeExecutorTool) blockedImport(code string) string {
	for _, m := range importPattern.FindAllStringSubmatch(code, -1) {
		for _, blocked := range t.cfg.BlockedImports {
			if m[1] == blocked {
				return blocked
			}
		}
	}
	return ""
}

// limitedBuffer keeps at most max bytes and silently drops the rest.
type limitedBuffer struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if b.max <= 0 {
		return b.buf.Write(p)
	}
	room := b.max - b.buf.Len()
	if room <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + "\n[output truncated]"
	}
	return b.buf.String()
}
