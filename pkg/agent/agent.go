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

// Package agent implements the ReAct reasoning loop: a small state machine
// that moves between reasoning, tool execution and observation until the
// model produces an answer that passes the quality gate, a repeat is
// detected, or the iteration budget runs out.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/conversation"
	"github.com/Senchy071/Meton-sub000/pkg/llms"
	"github.com/Senchy071/Meton-sub000/pkg/observability"
	"github.com/Senchy071/Meton-sub000/pkg/parser"
	"github.com/Senchy071/Meton-sub000/pkg/tools"
)

// DefaultThought replaces an empty THOUGHT section.
const DefaultThought = "Continuing with the task"

// RunResult is what Run returns. Output is always set, also on failure.
type RunResult struct {
	RunID      string        `json:"run_id"`
	Output     string        `json:"output"`
	Thoughts   []string      `json:"thoughts"`
	ToolCalls  []ToolCall    `json:"tool_calls"`
	Iterations int           `json:"iterations"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Agent runs the reasoning loop. It holds no per-run state and may serve
// concurrent runs.
type Agent struct {
	name     string
	client   llms.Client
	registry *tools.ToolRegistry
	cfg      config.AgentConfig
	gate     *QualityGate
	gateOn   bool
	slots    PromptSlots
	logger   *slog.Logger

	history       *conversation.History
	recordHistory bool
}

type Option func(*Agent)

func WithName(name string) Option {
	return func(a *Agent) {
		a.name = name
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithConversation renders recent history into prompts and records each
// query and answer into it.
func WithConversation(h *conversation.History) Option {
	return func(a *Agent) {
		a.history = h
		a.recordHistory = true
	}
}

// WithReadOnlyConversation renders recent history without recording.
func WithReadOnlyConversation(h *conversation.History) Option {
	return func(a *Agent) {
		a.history = h
		a.recordHistory = false
	}
}

// WithPromptSlots overrides parts of the system prompt.
func WithPromptSlots(slots PromptSlots) Option {
	return func(a *Agent) {
		a.slots = a.slots.Merge(slots)
	}
}

// WithQualityGate turns answer validation on or off. Agents whose output is
// parsed by a machine (plans, reviews) run without it.
func WithQualityGate(enabled bool) Option {
	return func(a *Agent) {
		a.gateOn = enabled
	}
}

// New builds an agent. A nil registry gives a reasoning-only agent.
func New(client llms.Client, registry *tools.ToolRegistry, cfg config.AgentConfig, heuristics config.HeuristicsConfig, opts ...Option) (*Agent, error) {
	if client == nil {
		return nil, fmt.Errorf("language model client is required")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent config: %w", err)
	}
	heuristics.SetDefaults()
	if registry == nil {
		registry = tools.NewToolRegistry()
	}

	a := &Agent{
		name:     "meton",
		client:   client,
		registry: registry,
		cfg:      cfg,
		gate:     NewQualityGate(heuristics),
		gateOn:   true,
		slots:    DefaultPromptSlots(),
	}
	if cfg.SystemPrompt != "" {
		a.slots.SystemRole = cfg.SystemPrompt
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default().With("component", "agent", "agent", a.name)
	}
	return a, nil
}

func (a *Agent) Name() string { return a.name }

// Registry returns the tool registry the agent dispatches to.
func (a *Agent) Registry() *tools.ToolRegistry { return a.registry }

// Run answers one query. It never panics and never returns without an
// Output.
func (a *Agent) Run(ctx context.Context, input string) (result RunResult) {
	start := time.Now()
	runID := uuid.NewString()

	ctx, span := observability.GetTracer("meton.agent").Start(ctx, observability.SpanAgentRun)
	span.SetAttributes(attribute.String(observability.AttrAgentName, a.name))
	defer span.End()

	logger := a.logger.With("run_id", runID)
	logger.Info("Agent run started", "query", observability.TruncateAttr(input, 120))

	state := newState(input)
	var runErr error

	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("panic: %v", r)
			logger.Error("Agent run panicked", "panic", r)
		}

		result = a.buildResult(runID, state, runErr)
		result.Duration = time.Since(start)

		span.SetAttributes(attribute.Int(observability.AttrAgentIterations, result.Iterations))
		if runErr != nil {
			span.RecordError(runErr)
			span.SetStatus(codes.Error, runErr.Error())
		} else {
			span.SetStatus(codes.Ok, "success")
		}
		observability.GetGlobalMetrics().RecordAgentRun(ctx, a.name, result.Duration, result.Iterations, runErr)
		logger.Info("Agent run finished",
			"success", result.Success,
			"iterations", result.Iterations,
			"tool_calls", len(result.ToolCalls),
			"duration", result.Duration,
		)
	}()

	state, runErr = a.loop(ctx, state, logger)
	if runErr == nil {
		a.record(ctx, input, *state.FinalAnswer, logger)
	}
	return result
}

func (a *Agent) buildResult(runID string, s State, err error) RunResult {
	r := RunResult{
		RunID:      runID,
		Thoughts:   s.Thoughts,
		ToolCalls:  s.ToolCalls,
		Iterations: s.Iteration,
	}
	if r.Thoughts == nil {
		r.Thoughts = []string{}
	}
	if r.ToolCalls == nil {
		r.ToolCalls = []ToolCall{}
	}
	if err != nil {
		r.Error = err.Error()
		r.Output = fmt.Sprintf("I'm sorry, I encountered an error while processing your request: %v", err)
		return r
	}
	r.Output = *s.FinalAnswer
	r.Success = true
	return r
}

func (a *Agent) record(ctx context.Context, query, answer string, logger *slog.Logger) {
	if a.history == nil || !a.recordHistory {
		return
	}
	if err := a.history.Add(ctx, conversation.RoleUser, query); err != nil {
		logger.Warn("Failed to record query", "error", err)
		return
	}
	if err := a.history.Add(ctx, conversation.RoleAssistant, answer); err != nil {
		logger.Warn("Failed to record answer", "error", err)
	}
}

// loop drives the state machine until the terminal node.
func (a *Agent) loop(ctx context.Context, s State, logger *slog.Logger) (State, error) {
	node := NodeReasoning
	var err error
	for node != NodeTerminal {
		if err := ctx.Err(); err != nil {
			return s, fmt.Errorf("run cancelled: %w", err)
		}

		switch node {
		case NodeReasoning:
			s, err = a.reason(ctx, s, logger)
			if err != nil {
				return s, err
			}
			node = nextAfterReasoning(s)
		case NodeToolExecution:
			s = a.executeTool(ctx, s, logger)
			node = NodeObservation
		case NodeObservation:
			s = a.observe(ctx, s, logger)
			node = nextAfterObservation(s)
		}
	}

	if s.FinalAnswer == nil {
		return s, fmt.Errorf("loop ended without an answer")
	}
	return s, nil
}

func nextAfterReasoning(s State) Node {
	switch {
	case s.Finished:
		return NodeTerminal
	case s.HasPending():
		return NodeToolExecution
	default:
		return NodeReasoning
	}
}

func nextAfterObservation(s State) Node {
	if s.Finished {
		return NodeTerminal
	}
	return NodeReasoning
}

// reason performs one reasoning pass.
func (a *Agent) reason(ctx context.Context, s State, logger *slog.Logger) (State, error) {
	if s.Iteration >= a.cfg.MaxIterations {
		logger.Info("Iteration budget exhausted", "max_iterations", a.cfg.MaxIterations)
		return s.finish(a.forceSynthesis(ctx, s, "iteration budget exhausted")), nil
	}

	raw, err := a.client.Invoke(ctx, a.buildPrompt(s))
	if err != nil {
		return s, fmt.Errorf("language model call failed: %w", err)
	}
	step := parser.Parse(raw)

	thought := step.Thought
	if thought == "" {
		thought = DefaultThought
	}
	s = s.withThought(thought)
	logger.Debug("Reasoning step",
		"iteration", s.Iteration+1,
		"action", step.Action,
		"thought", observability.TruncateAttr(thought, 200),
	)

	if step.HasAction() {
		if prev, repeated := repeatsLastCall(s, step.Action, step.ActionInput); repeated {
			logger.Warn("Repeated tool call detected, not executing", "tool", step.Action)
			s.Iteration++
			return s.finish(a.answerFromRepeat(ctx, s, prev)), nil
		}
		s = s.withToolCall(ToolCall{ToolName: step.Action, Input: step.ActionInput})
	}

	if step.Answer != "" && !s.HasPending() {
		s = s.finish(a.applyGate(ctx, step.Answer, s, logger))
	}

	s.Iteration++
	return s, nil
}

// answerFromRepeat reuses a short successful result directly and
// synthesises otherwise.
func (a *Agent) answerFromRepeat(ctx context.Context, s State, prev ToolCall) string {
	if prev.Succeeded() {
		content := tools.StripMarkers(prev.Result.Content)
		if content != "" && len(content) <= a.cfg.ReuseResultMaxChars {
			return content
		}
	}
	return a.forceSynthesis(ctx, s, "repeated tool call")
}

// applyGate returns answer unchanged when it passes, and a synthesised
// replacement otherwise.
func (a *Agent) applyGate(ctx context.Context, answer string, s State, logger *slog.Logger) string {
	if !a.gateOn {
		return answer
	}
	rejection, ok := a.gate.Check(answer, s)
	if ok {
		return answer
	}
	logger.Info("Answer rejected by quality gate", "rule", rejection.Rule, "detail", rejection.Detail)
	return a.forceSynthesis(ctx, s, rejection.String())
}

func (a *Agent) executeTool(ctx context.Context, s State, logger *slog.Logger) State {
	call, _ := s.LastToolCall()
	result := a.registry.Execute(ctx, call.ToolName, call.Input)
	logger.Debug("Tool executed",
		"tool", call.ToolName,
		"success", result.Success(),
		"duration", result.ExecutionTime,
	)
	return s.withResult(result)
}

// observe closes out a tool round. When the budget is spent the run ends
// here with a synthesised answer.
func (a *Agent) observe(ctx context.Context, s State, logger *slog.Logger) State {
	if last, ok := s.LastToolCall(); ok && !last.Pending() && !last.Succeeded() {
		logger.Info("Tool call failed, asking the model to retry", "tool", last.ToolName, "error", last.Result.Text())
	}
	if !s.Finished && s.Iteration >= a.cfg.MaxIterations {
		logger.Info("Iteration budget exhausted", "max_iterations", a.cfg.MaxIterations)
		return s.finish(a.forceSynthesis(ctx, s, "iteration budget exhausted"))
	}
	return s
}
