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

package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/Senchy071/Meton-sub000/pkg/agent"
	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/conversation"
	"github.com/Senchy071/Meton-sub000/pkg/coordinator"
)

// Mode picks the pipeline for a query.
type Mode string

const (
	ModeAuto       Mode = "auto"
	ModeAgent      Mode = "agent"
	ModeCoordinate Mode = "coordinate"
)

// ParseMode accepts "", auto, agent and coordinate.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeAgent:
		return ModeAgent, nil
	case ModeCoordinate:
		return ModeCoordinate, nil
	}
	return "", fmt.Errorf("invalid mode %q (valid: auto, agent, coordinate)", s)
}

// Answer is the outcome of Ask. Exactly one of Run and Task is set.
type Answer struct {
	Mode    Mode                    `json:"mode"`
	Output  string                  `json:"output"`
	Success bool                    `json:"success"`
	Error   string                  `json:"error,omitempty"`
	Run     *agent.RunResult        `json:"run,omitempty"`
	Task    *coordinator.TaskResult `json:"task,omitempty"`
}

// Route resolves ModeAuto. Complex queries go to the coordinator when it is
// enabled and auto routing is on.
func (r *Runtime) Route(query string, mode Mode) Mode {
	if mode == ModeCoordinate && r.coordinator != nil {
		return ModeCoordinate
	}
	if mode != ModeAuto || r.coordinator == nil {
		return ModeAgent
	}
	if !config.BoolValue(r.cfg.MultiAgent.AutoRoute, true) {
		return ModeAgent
	}
	if coordinator.IsComplexQuery(query, r.cfg.Heuristics) {
		return ModeCoordinate
	}
	return ModeAgent
}

// Ask answers one query through the routed pipeline.
func (r *Runtime) Ask(ctx context.Context, query string, mode Mode) Answer {
	routed := r.Route(query, mode)
	r.logger.Info("Routing query", "requested", mode, "mode", routed)

	if routed == ModeCoordinate {
		task := r.coordinator.CoordinateTask(ctx, query)
		// sub-agents only read the conversation
		r.record(ctx, query, task.Result)
		return Answer{Mode: routed, Output: task.Result, Success: task.Success, Error: task.Error, Task: &task}
	}

	run := r.agent.Run(ctx, query)
	return Answer{Mode: routed, Output: run.Output, Success: run.Success, Error: run.Error, Run: &run}
}

func (r *Runtime) record(ctx context.Context, query, answer string) {
	if r.history == nil {
		return
	}
	if err := r.history.Add(ctx, conversation.RoleUser, query); err != nil {
		r.logger.Warn("Failed to record query", "error", err)
	}
	if err := r.history.Add(ctx, conversation.RoleAssistant, answer); err != nil {
		r.logger.Warn("Failed to record answer", "error", err)
	}
}
