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

import "fmt"

// AgentConfig configures one reasoning loop.
type AgentConfig struct {
	// MaxIterations is the hard ceiling on reasoning passes per run.
	MaxIterations int `yaml:"max_iterations,omitempty"`

	// ContextMessages bounds how many conversation messages are rendered
	// into the reasoning prompt.
	ContextMessages int `yaml:"context_messages,omitempty"`

	// ContextTokens bounds the rendered conversation window by token count.
	ContextTokens int `yaml:"context_tokens,omitempty"`

	// SummaryWindow is how many prior thoughts and tool calls are summarised
	// in each prompt.
	SummaryWindow int `yaml:"summary_window,omitempty"`

	// LoopWarningWindow is the number of recent tool calls inspected for a
	// repeating pattern of length 1 to 3.
	LoopWarningWindow int `yaml:"loop_warning_window,omitempty"`

	// ReuseResultMaxChars: when a repeated tool call is detected and the
	// previous successful result is at most this long, it is returned as the
	// answer directly instead of being synthesised.
	ReuseResultMaxChars int `yaml:"reuse_result_max_chars,omitempty"`

	// SynthesisTruncateChars bounds each non file-read result in the forced
	// synthesis prompt.
	SynthesisTruncateChars int `yaml:"synthesis_truncate_chars,omitempty"`

	// SystemPrompt replaces the built-in system prompt when set.
	SystemPrompt string `yaml:"system_prompt,omitempty"`
}

// SetDefaults applies default values.
func (c *AgentConfig) SetDefaults() {
	if c.MaxIterations == 0 {
		c.MaxIterations = 10
	}
	if c.ContextMessages == 0 {
		c.ContextMessages = 10
	}
	if c.ContextTokens == 0 {
		c.ContextTokens = 4000
	}
	if c.SummaryWindow == 0 {
		c.SummaryWindow = 3
	}
	if c.LoopWarningWindow == 0 {
		c.LoopWarningWindow = 6
	}
	if c.ReuseResultMaxChars == 0 {
		c.ReuseResultMaxChars = 500
	}
	if c.SynthesisTruncateChars == 0 {
		c.SynthesisTruncateChars = 1000
	}
}

// Validate checks the agent configuration.
func (c *AgentConfig) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1")
	}
	if c.SummaryWindow < 1 {
		return fmt.Errorf("summary_window must be at least 1")
	}
	if c.LoopWarningWindow < 2 {
		return fmt.Errorf("loop_warning_window must be at least 2")
	}
	if c.ContextMessages < 0 || c.ContextTokens < 0 {
		return fmt.Errorf("context bounds must be non-negative")
	}
	return nil
}

// MultiAgentConfig configures the coordinator pipeline.
type MultiAgentConfig struct {
	// Enabled allows complex queries to route through the coordinator.
	Enabled *bool `yaml:"enabled,omitempty"`

	// AutoRoute uses the complexity heuristic to pick the pipeline.
	AutoRoute *bool `yaml:"auto_route,omitempty"`

	// MaxSubtasks rejects plans with more subtasks than this.
	MaxSubtasks int `yaml:"max_subtasks,omitempty"`

	// ParallelExecution dispatches all ready subtasks of a scan concurrently.
	ParallelExecution bool `yaml:"parallel_execution,omitempty"`

	// MaxParallel bounds concurrent subtask dispatch.
	MaxParallel int `yaml:"max_parallel,omitempty"`

	// ValidateDependencies rejects plans with unknown, self or cyclic
	// dependencies before execution.
	ValidateDependencies *bool `yaml:"validate_dependencies,omitempty"`

	// SubAgentMaxIterations overrides agent.max_iterations for sub-agents.
	SubAgentMaxIterations int `yaml:"sub_agent_max_iterations,omitempty"`
}

// SetDefaults applies default values.
func (c *MultiAgentConfig) SetDefaults() {
	if c.Enabled == nil {
		c.Enabled = BoolPtr(true)
	}
	if c.AutoRoute == nil {
		c.AutoRoute = BoolPtr(true)
	}
	if c.MaxSubtasks == 0 {
		c.MaxSubtasks = 5
	}
	if c.MaxParallel == 0 {
		c.MaxParallel = 2
	}
	if c.ValidateDependencies == nil {
		c.ValidateDependencies = BoolPtr(true)
	}
}

// Validate checks the coordinator configuration.
func (c *MultiAgentConfig) Validate() error {
	if c.MaxSubtasks < 1 {
		return fmt.Errorf("max_subtasks must be at least 1")
	}
	if c.MaxParallel < 1 {
		return fmt.Errorf("max_parallel must be at least 1")
	}
	if c.SubAgentMaxIterations < 0 {
		return fmt.Errorf("sub_agent_max_iterations must be non-negative")
	}
	return nil
}
