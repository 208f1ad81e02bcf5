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

package coordinator

import (
	"fmt"
	"log/slog"

	"github.com/Senchy071/Meton-sub000/pkg/agent"
	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/conversation"
	"github.com/Senchy071/Meton-sub000/pkg/llms"
	"github.com/Senchy071/Meton-sub000/pkg/tools"
)

// NewDefault builds the four sub-agents from cfg. Only the executor gets
// tools, and only the executor runs the answer quality gate: the others
// have no tool results to synthesise from, and their raw output is what
// the pipeline consumes. All four read history but never write it.
func NewDefault(client llms.Client, registry *tools.ToolRegistry, cfg *config.Config, history *conversation.History, logger *slog.Logger) (*Coordinator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sub := cfg.SubAgentConfig()

	build := func(name string, reg *tools.ToolRegistry, opts ...agent.Option) (*agent.Agent, error) {
		opts = append(opts,
			agent.WithName(name),
			agent.WithLogger(logger.With("component", "agent", "agent", name)),
		)
		if history != nil {
			opts = append(opts, agent.WithReadOnlyConversation(history))
		}
		a, err := agent.New(client, reg, sub, cfg.Heuristics, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s agent: %w", name, err)
		}
		return a, nil
	}

	planner, err := build("planner", nil, agent.WithQualityGate(false))
	if err != nil {
		return nil, err
	}
	executor, err := build("executor", registry)
	if err != nil {
		return nil, err
	}
	reviewer, err := build("reviewer", nil, agent.WithQualityGate(false))
	if err != nil {
		return nil, err
	}
	synthesizer, err := build("synthesizer", nil, agent.WithQualityGate(false))
	if err != nil {
		return nil, err
	}

	return New(Agents{
		Planner:     planner,
		Executor:    executor,
		Reviewer:    reviewer,
		Synthesizer: synthesizer,
	}, cfg.MultiAgent, WithLogger(logger.With("component", "coordinator")))
}
