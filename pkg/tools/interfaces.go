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
	"strings"
	"time"
)

// Markers prefixed to rendered tool output in prompts.
const (
	SuccessMarker = "✅ "
	FailureMarker = "❌ "
)

// Tool is one named capability the reasoning loop can call. Input is the raw
// ACTION_INPUT text, usually JSON.
//
// Implementations report recoverable problems (bad input, missing file,
// timeout) as a failed ToolResult. A returned error is treated the same way
// by the registry; it never aborts the loop.
type Tool interface {
	Name() string
	Description() string
	Enabled() bool
	Execute(ctx context.Context, input string) (ToolResult, error)
}

// SchemaProvider is implemented by tools that describe their input with a
// JSON schema.
type SchemaProvider interface {
	InputSchema() string
}

type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
	InputSchema string `json:"input_schema,omitempty"`
}

// FailureKind classifies a ToolFailure.
type FailureKind string

const (
	FailureInvalidInput     FailureKind = "invalid_input"
	FailureNotFound         FailureKind = "not_found"
	FailureDisabled         FailureKind = "disabled"
	FailurePermissionDenied FailureKind = "permission_denied"
	FailureTimeout          FailureKind = "timeout"
	FailureExecution        FailureKind = "execution"
)

type ToolFailure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

func (f *ToolFailure) Error() string {
	return f.Message
}

// ToolResult is the typed outcome of one tool execution. Failure is nil on
// success.
type ToolResult struct {
	ToolName      string         `json:"tool_name"`
	Content       string         `json:"content,omitempty"`
	Failure       *ToolFailure   `json:"failure,omitempty"`
	ExecutionTime time.Duration  `json:"execution_time,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

func (r ToolResult) Success() bool {
	return r.Failure == nil
}

// Text returns the content on success and the failure message otherwise.
func (r ToolResult) Text() string {
	if r.Failure != nil {
		return r.Failure.Message
	}
	return r.Content
}

// Render formats the result the way the model sees it.
func (r ToolResult) Render() string {
	if r.Failure != nil {
		return FailureMarker + r.Failure.Message
	}
	return SuccessMarker + r.Content
}

func Succeeded(toolName, content string) ToolResult {
	return ToolResult{ToolName: toolName, Content: content}
}

func Failed(toolName string, kind FailureKind, format string, args ...any) ToolResult {
	return ToolResult{
		ToolName: toolName,
		Failure:  &ToolFailure{Kind: kind, Message: fmt.Sprintf(format, args...)},
	}
}

// StripMarkers removes leading success/failure markers from s.
func StripMarkers(s string) string {
	s = strings.TrimSpace(s)
	for {
		trimmed := strings.TrimPrefix(strings.TrimPrefix(s, strings.TrimSpace(SuccessMarker)), strings.TrimSpace(FailureMarker))
		trimmed = strings.TrimSpace(trimmed)
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}
