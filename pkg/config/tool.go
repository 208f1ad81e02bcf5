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

package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// ToolsConfig configures the closed tool set. Each tool receives only its
// own section plus the working directory.
type ToolsConfig struct {
	// WorkingDirectory is the root for relative paths. Default ".".
	WorkingDirectory string `yaml:"working_directory,omitempty"`

	FileOperations FileOperationsConfig `yaml:"file_operations,omitempty"`
	CodeExecutor   CodeExecutorConfig   `yaml:"code_executor,omitempty"`
	WebSearch      WebSearchConfig      `yaml:"web_search,omitempty"`
	CodebaseSearch CodebaseSearchConfig `yaml:"codebase_search,omitempty"`

	// OutputLimits overrides per-tool truncation of tool output.
	OutputLimits map[string]OutputLimit `yaml:"output_limits,omitempty"`
}

// OutputLimit bounds a tool's output before it enters the loop state.
type OutputLimit struct {
	MaxChars int    `yaml:"max_chars,omitempty"`
	MaxLines int    `yaml:"max_lines,omitempty"`
	Mode     string `yaml:"mode,omitempty"` // head_tail | tail
}

// FileOperationsConfig configures the file_operations tool.
type FileOperationsConfig struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	AllowedPaths []string `yaml:"allowed_paths,omitempty"`
	BlockedPaths []string `yaml:"blocked_paths,omitempty"`
	MaxFileSize  int64    `yaml:"max_file_size,omitempty"`
	AllowWrite   *bool    `yaml:"allow_write,omitempty"`
}

// CodeExecutorConfig configures the code_executor tool.
type CodeExecutorConfig struct {
	Enabled        *bool         `yaml:"enabled,omitempty"`
	Interpreter    string        `yaml:"interpreter,omitempty"`
	Timeout        time.Duration `yaml:"timeout,omitempty"`
	MaxOutputBytes int           `yaml:"max_output_bytes,omitempty"`
	BlockedImports []string      `yaml:"blocked_imports,omitempty"`
}

// WebSearchConfig configures the web_search tool.
type WebSearchConfig struct {
	Enabled    *bool         `yaml:"enabled,omitempty"`
	Endpoint   string        `yaml:"endpoint,omitempty"`
	MaxResults int           `yaml:"max_results,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

// CodebaseSearchConfig configures the codebase_search tool.
type CodebaseSearchConfig struct {
	Enabled     *bool    `yaml:"enabled,omitempty"`
	TopK        int      `yaml:"top_k,omitempty"`
	WindowLines int      `yaml:"window_lines,omitempty"`
	MaxFileSize int64    `yaml:"max_file_size,omitempty"`
	Extensions  []string `yaml:"extensions,omitempty"`
	ExcludeDirs []string `yaml:"exclude_dirs,omitempty"`
}

// SetDefaults applies default values.
func (c *ToolsConfig) SetDefaults() {
	if c.WorkingDirectory == "" {
		c.WorkingDirectory = "."
	}

	fo := &c.FileOperations
	if fo.Enabled == nil {
		fo.Enabled = BoolPtr(true)
	}
	if len(fo.AllowedPaths) == 0 {
		fo.AllowedPaths = []string{c.WorkingDirectory}
	}
	if len(fo.BlockedPaths) == 0 {
		fo.BlockedPaths = []string{".git", ".env", ".env.local"}
	}
	if fo.MaxFileSize == 0 {
		fo.MaxFileSize = 10 * 1024 * 1024
	}
	if fo.AllowWrite == nil {
		fo.AllowWrite = BoolPtr(true)
	}

	ce := &c.CodeExecutor
	if ce.Enabled == nil {
		ce.Enabled = BoolPtr(true)
	}
	if ce.Interpreter == "" {
		ce.Interpreter = "python3"
	}
	if ce.Timeout == 0 {
		ce.Timeout = 5 * time.Second
	}
	if ce.MaxOutputBytes == 0 {
		ce.MaxOutputBytes = 64 * 1024
	}
	if len(ce.BlockedImports) == 0 {
		ce.BlockedImports = []string{"os", "subprocess", "shutil", "socket", "sys", "ctypes", "multiprocessing"}
	}

	ws := &c.WebSearch
	if ws.Enabled == nil {
		ws.Enabled = BoolPtr(false)
	}
	if ws.Endpoint == "" {
		ws.Endpoint = "https://api.duckduckgo.com/"
	}
	if ws.MaxResults == 0 {
		ws.MaxResults = 5
	}
	if ws.Timeout == 0 {
		ws.Timeout = 15 * time.Second
	}

	cs := &c.CodebaseSearch
	if cs.Enabled == nil {
		cs.Enabled = BoolPtr(true)
	}
	if cs.TopK == 0 {
		cs.TopK = 5
	}
	if cs.WindowLines == 0 {
		cs.WindowLines = 8
	}
	if cs.MaxFileSize == 0 {
		cs.MaxFileSize = 1024 * 1024
	}
	if len(cs.Extensions) == 0 {
		cs.Extensions = []string{".go", ".py", ".js", ".ts", ".rs", ".java", ".md", ".yaml", ".yml", ".toml", ".sh"}
	}
	if len(cs.ExcludeDirs) == 0 {
		cs.ExcludeDirs = []string{".git", "node_modules", "vendor", "__pycache__", ".venv"}
	}
}

// Validate checks the tools configuration.
func (c *ToolsConfig) Validate() error {
	if c.WorkingDirectory == "" {
		return fmt.Errorf("working_directory is required")
	}
	for _, p := range c.FileOperations.AllowedPaths {
		if filepath.Clean(p) == "/" {
			return fmt.Errorf("file_operations.allowed_paths must not include the filesystem root")
		}
	}
	if c.FileOperations.MaxFileSize < 0 || c.CodebaseSearch.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must be non-negative")
	}
	if c.CodeExecutor.Timeout < 0 {
		return fmt.Errorf("code_executor.timeout must be non-negative")
	}
	if c.CodebaseSearch.TopK < 1 {
		return fmt.Errorf("codebase_search.top_k must be at least 1")
	}
	for name, lim := range c.OutputLimits {
		if lim.Mode != "" && lim.Mode != "head_tail" && lim.Mode != "tail" {
			return fmt.Errorf("output_limits.%s.mode must be head_tail or tail", name)
		}
		if lim.MaxChars < 0 || lim.MaxLines < 0 {
			return fmt.Errorf("output_limits.%s bounds must be non-negative", name)
		}
	}
	return nil
}
