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
	"log/slog"
	"strings"
	"time"

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/observability"
	"github.com/Senchy071/Meton-sub000/pkg/registry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ToolRegistryError struct {
	Component string
	Operation string
	Message   string
	Err       error
}

func (e *ToolRegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Operation, e.Message)
}

func (e *ToolRegistryError) Unwrap() error {
	return e.Err
}

func NewToolRegistryError(component, operation, message string, err error) *ToolRegistryError {
	return &ToolRegistryError{
		Component: component,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// ToolRegistry maps tool names to implementations. It is filled at
// construction time and only read while agents run.
type ToolRegistry struct {
	*registry.BaseRegistry[Tool]
	limits map[string]config.OutputLimit
	logger *slog.Logger
}

type RegistryOption func(*ToolRegistry)

// WithOutputLimits overrides the default per-tool truncation.
func WithOutputLimits(limits map[string]config.OutputLimit) RegistryOption {
	return func(r *ToolRegistry) {
		r.limits = limits
	}
}

func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *ToolRegistry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewToolRegistry(opts ...RegistryOption) *ToolRegistry {
	r := &ToolRegistry{
		BaseRegistry: registry.NewBaseRegistry[Tool](),
		logger:       slog.Default().With("component", "tools"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ToolRegistry) RegisterTool(tool Tool) error {
	if tool == nil {
		return NewToolRegistryError("ToolRegistry", "RegisterTool", "tool cannot be nil", nil)
	}
	if err := r.Register(tool.Name(), tool); err != nil {
		return NewToolRegistryError("ToolRegistry", "RegisterTool",
			fmt.Sprintf("failed to register tool %s", tool.Name()), err)
	}
	return nil
}

func (r *ToolRegistry) GetTool(name string) (Tool, error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, NewToolRegistryError("ToolRegistry", "GetTool",
			fmt.Sprintf("tool %s not found", name), registry.ErrNotFound)
	}
	return tool, nil
}

// ListTools returns every registered tool in registration order.
func (r *ToolRegistry) ListTools() []ToolInfo {
	var infos []ToolInfo
	for _, t := range r.List() {
		infos = append(infos, infoFor(t))
	}
	return infos
}

// EnabledTools returns the tools that report themselves enabled.
func (r *ToolRegistry) EnabledTools() []Tool {
	var enabled []Tool
	for _, t := range r.List() {
		if t.Enabled() {
			enabled = append(enabled, t)
		}
	}
	return enabled
}

// Describe renders the enabled tools for a system prompt.
func (r *ToolRegistry) Describe() string {
	enabled := r.EnabledTools()
	if len(enabled) == 0 {
		return "No tools are available. Answer from reasoning alone."
	}

	var b strings.Builder
	for _, t := range enabled {
		info := infoFor(t)
		fmt.Fprintf(&b, "- %s: %s\n", info.Name, info.Description)
		if info.InputSchema != "" {
			fmt.Fprintf(&b, "  input schema: %s\n", info.InputSchema)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Execute runs the named tool. It always returns a result: unknown and
// disabled tools, returned errors and panics all become failures.
func (r *ToolRegistry) Execute(ctx context.Context, name, input string) (result ToolResult) {
	start := time.Now()

	ctx, span := observability.GetTracer("meton.tools").Start(ctx, observability.SpanToolExecution,
		trace.WithAttributes(attribute.String(observability.AttrToolName, name)),
	)
	defer func() {
		result.ExecutionTime = time.Since(start)
		if result.ToolName == "" {
			result.ToolName = name
		}
		if result.Failure != nil {
			span.SetStatus(codes.Error, result.Failure.Message)
		} else {
			span.SetStatus(codes.Ok, "success")
		}
		span.SetAttributes(attribute.Bool(observability.AttrToolSuccess, result.Success()))
		span.End()
		observability.GetGlobalMetrics().RecordToolExecution(ctx, name, result.ExecutionTime, !result.Success())
	}()

	tool, ok := r.Get(name)
	if !ok {
		r.logger.Warn("Unknown tool requested", "tool", name)
		return Failed(name, FailureNotFound, "Tool '%s' not found", name)
	}
	if !tool.Enabled() {
		return Failed(name, FailureDisabled, "Tool '%s' is disabled", name)
	}

	result = r.invoke(ctx, tool, input)
	if result.Success() {
		result.Content = TruncateToolOutput(result.Content, name, r.limits)
	}
	r.logger.Debug("Tool executed", "tool", name, "success", result.Success())
	return result
}

func (r *ToolRegistry) invoke(ctx context.Context, tool Tool, input string) (result ToolResult) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Tool panicked", "tool", tool.Name(), "panic", p)
			result = Failed(tool.Name(), FailureExecution, "Tool '%s' crashed: %v", tool.Name(), p)
		}
	}()

	res, err := tool.Execute(ctx, input)
	if err != nil {
		if res.Failure != nil {
			return res
		}
		if ctx.Err() != nil {
			return Failed(tool.Name(), FailureTimeout, "Tool '%s' was cancelled: %v", tool.Name(), err)
		}
		return Failed(tool.Name(), FailureExecution, "Tool '%s' failed: %v", tool.Name(), err)
	}
	return res
}

func infoFor(t Tool) ToolInfo {
	info := ToolInfo{Name: t.Name(), Description: t.Description(), Enabled: t.Enabled()}
	if sp, ok := t.(SchemaProvider); ok {
		info.InputSchema = sp.InputSchema()
	}
	return info
}
