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
	"fmt"
	"strings"
	"unicode/utf8"
)

// PromptSlots are the parts of the reasoning system prompt. Empty slots
// keep the built-in text.
type PromptSlots struct {
	SystemRole            string
	ReasoningInstructions string
	OutputFormat          string
	Additional            string
}

// DefaultPromptSlots returns the built-in coding assistant prompt.
func DefaultPromptSlots() PromptSlots {
	return PromptSlots{
		SystemRole: "You are Meton, a local coding assistant. You answer questions about code " +
			"and files by using tools and reporting only what they return.",
		ReasoningInstructions: `Work step by step. In each step either call exactly one tool or give the final answer.
Never invent file contents or command output. If a tool fails, read the error, fix the input and retry.
Once a tool has returned what you need, answer immediately.`,
		OutputFormat: `Respond using exactly these labels:
THOUGHT: your reasoning for this step
ACTION: the tool name to call, or NONE
ACTION_INPUT: the tool input as JSON, or empty when ACTION is NONE
ANSWER: the final answer when ACTION is NONE, otherwise empty`,
	}
}

// Merge overrides slots with the non-empty values of other.
func (p PromptSlots) Merge(other PromptSlots) PromptSlots {
	if other.SystemRole != "" {
		p.SystemRole = other.SystemRole
	}
	if other.ReasoningInstructions != "" {
		p.ReasoningInstructions = other.ReasoningInstructions
	}
	if other.OutputFormat != "" {
		p.OutputFormat = other.OutputFormat
	}
	if other.Additional != "" {
		p.Additional = other.Additional
	}
	return p
}

const (
	summaryOutputChars = 300
	observationChars   = 4000
)

func (a *Agent) buildPrompt(s State) string {
	var sb strings.Builder

	sb.WriteString(a.slots.SystemRole)
	sb.WriteString("\n\n")
	sb.WriteString(a.slots.ReasoningInstructions)
	if a.slots.Additional != "" {
		sb.WriteString("\n\n")
		sb.WriteString(a.slots.Additional)
	}

	sb.WriteString("\n\nAVAILABLE TOOLS:\n")
	sb.WriteString(a.registry.Describe())

	if a.history != nil {
		if ctxText := a.history.Render(a.cfg.ContextMessages, a.cfg.ContextTokens); ctxText != "" {
			sb.WriteString("\n\nCONVERSATION CONTEXT:\n")
			sb.WriteString(ctxText)
		}
	}

	sb.WriteString("\n\nUSER QUERY: ")
	sb.WriteString(s.Query())

	if summary := a.summarize(s); summary != "" {
		sb.WriteString("\n\nPREVIOUS STEPS:\n")
		sb.WriteString(summary)
	}

	if last, ok := s.LastToolCall(); ok && !last.Pending() {
		sb.WriteString("\n\n")
		sb.WriteString(instructionBlock(last))
		if lastTwoIdentical(s) || detectPattern(s.ToolCalls, a.cfg.LoopWarningWindow) {
			sb.WriteString("\n\nWARNING: you are repeating the same tool calls. Do not call them again. ")
			sb.WriteString("Answer now with the information you already have.")
		}
	}

	sb.WriteString("\n\n")
	sb.WriteString(a.slots.OutputFormat)
	sb.WriteString("\n")
	return sb.String()
}

// summarize renders the last SummaryWindow thoughts and tool calls.
func (a *Agent) summarize(s State) string {
	window := a.cfg.SummaryWindow
	var sb strings.Builder

	thoughts := s.Thoughts
	if len(thoughts) > window {
		thoughts = thoughts[len(thoughts)-window:]
	}
	offset := len(s.Thoughts) - len(thoughts)
	for i, t := range thoughts {
		fmt.Fprintf(&sb, "Thought %d: %s\n", offset+i+1, t)
	}

	calls := s.ToolCalls
	if len(calls) > window {
		calls = calls[len(calls)-window:]
	}
	offset = len(s.ToolCalls) - len(calls)
	for i, c := range calls {
		out := "(pending)"
		if !c.Pending() {
			out = clip(c.Output(), summaryOutputChars)
		}
		fmt.Fprintf(&sb, "Tool call %d: %s %s -> %s\n", offset+i+1, c.ToolName, strings.TrimSpace(c.Input), out)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// instructionBlock tells the model what to do with the latest result.
func instructionBlock(last ToolCall) string {
	if !last.Succeeded() {
		return fmt.Sprintf("LATEST TOOL RESULT (%s):\n%s\n\nThe tool call failed. Fix the error and retry with corrected input, or try a different tool.",
			last.ToolName, clip(last.Output(), observationChars))
	}
	return fmt.Sprintf("LATEST TOOL RESULT (%s):\n%s\n\nYou must answer now using this content. Set ACTION to NONE and write the ANSWER from it, unless another tool call is strictly required.",
		last.ToolName, clip(last.Output(), observationChars))
}

// clip cuts s to at most n bytes without splitting a rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
