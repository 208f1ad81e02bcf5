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

package agent

import (
	"encoding/json"

	"github.com/Senchy071/Meton-sub000/pkg/tools"
)

// Node is a state of the reasoning loop.
type Node string

const (
	NodeReasoning     Node = "reasoning"
	NodeToolExecution Node = "tool_execution"
	NodeObservation   Node = "observation"
	NodeTerminal      Node = "terminal"
)

// ToolCall records one dispatch of a tool. Result is nil while the call is
// pending and is filled exactly once by the tool execution node.
type ToolCall struct {
	ToolName string            `json:"tool_name"`
	Input    string            `json:"input"`
	Result   *tools.ToolResult `json:"-"`
}

// Pending reports whether the call has not been executed yet.
func (c ToolCall) Pending() bool {
	return c.Result == nil
}

// Output returns the rendered result as the model saw it, empty while
// pending.
func (c ToolCall) Output() string {
	if c.Result == nil {
		return ""
	}
	return c.Result.Render()
}

// Succeeded reports whether the call ran and produced a successful result.
func (c ToolCall) Succeeded() bool {
	return c.Result != nil && c.Result.Success()
}

func (c ToolCall) MarshalJSON() ([]byte, error) {
	var output *string
	if c.Result != nil {
		rendered := c.Result.Render()
		output = &rendered
	}
	return json.Marshal(struct {
		ToolName string  `json:"tool_name"`
		Input    string  `json:"input"`
		Output   *string `json:"output"`
		Success  bool    `json:"success"`
	}{c.ToolName, c.Input, output, c.Succeeded()})
}

// State is owned by one Run. Every node takes a State and returns the next
// one; nodes never mutate a slice they received, so a State value handed
// out is never changed behind the holder's back.
type State struct {
	// Messages[0] is the user query.
	Messages    []string
	Thoughts    []string
	ToolCalls   []ToolCall
	Iteration   int
	Finished    bool
	FinalAnswer *string
}

func newState(query string) State {
	return State{Messages: []string{query}}
}

// Query returns the original user query.
func (s State) Query() string {
	if len(s.Messages) == 0 {
		return ""
	}
	return s.Messages[0]
}

// LastToolCall returns the most recent tool call, if any.
func (s State) LastToolCall() (ToolCall, bool) {
	if len(s.ToolCalls) == 0 {
		return ToolCall{}, false
	}
	return s.ToolCalls[len(s.ToolCalls)-1], true
}

// HasPending reports whether a tool call awaits execution.
func (s State) HasPending() bool {
	last, ok := s.LastToolCall()
	return ok && last.Pending()
}

// PendingCount is the number of calls without a result. The loop keeps it
// at zero or one.
func (s State) PendingCount() int {
	n := 0
	for _, c := range s.ToolCalls {
		if c.Pending() {
			n++
		}
	}
	return n
}

func (s State) withThought(thought string) State {
	s.Thoughts = append(append([]string(nil), s.Thoughts...), thought)
	return s
}

func (s State) withToolCall(call ToolCall) State {
	s.ToolCalls = append(append([]ToolCall(nil), s.ToolCalls...), call)
	return s
}

// withResult fills the pending call.
func (s State) withResult(result tools.ToolResult) State {
	calls := append([]ToolCall(nil), s.ToolCalls...)
	calls[len(calls)-1].Result = &result
	s.ToolCalls = calls
	return s
}

// finish sets the final answer. The first answer wins.
func (s State) finish(answer string) State {
	if s.FinalAnswer != nil {
		s.Finished = true
		return s
	}
	s.FinalAnswer = &answer
	s.Finished = true
	return s
}

// successfulCalls returns the calls that produced a successful result.
func (s State) successfulCalls() []ToolCall {
	var out []ToolCall
	for _, c := range s.ToolCalls {
		if c.Succeeded() {
			out = append(out, c)
		}
	}
	return out
}
