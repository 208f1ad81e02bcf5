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

// Package parser turns raw model output into a structured reasoning step.
//
// The expected format is four labeled sections:
//
//	THOUGHT: reasoning about what to do next
//	ACTION: tool name, or NONE
//	ACTION_INPUT: tool input, usually JSON
//	ANSWER: final answer, or empty
//
// Parsing never fails. Missing sections yield empty strings, except ACTION
// which defaults to NONE.
package parser

import (
	"regexp"
	"strings"
)

// NoAction is the ACTION value meaning "no tool call".
const NoAction = "NONE"

// Step is one parsed model response.
type Step struct {
	Thought     string
	Action      string
	ActionInput string
	Answer      string
}

// HasAction reports whether the step requests a tool call.
func (s Step) HasAction() bool {
	return s.Action != NoAction
}

// Labels only count at the start of a line, in any case. ACTION_INPUT must
// precede ACTION in the alternation.
var labelPattern = regexp.MustCompile(`(?mi)^[ \t]*(THOUGHT|ACTION_INPUT|ACTION|ANSWER)[ \t]*:`)

type section struct {
	label      string
	start, end int
}

// Parse extracts the labeled sections from text. When a label appears more
// than once, the first occurrence wins.
func Parse(text string) Step {
	matches := labelPattern.FindAllStringSubmatchIndex(text, -1)

	sections := make(map[string]string, 4)
	for i, m := range matches {
		label := strings.ToUpper(text[m[2]:m[3]])
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		if _, seen := sections[label]; seen {
			continue
		}
		sections[label] = strings.TrimSpace(text[m[1]:end])
	}

	return Step{
		Thought:     sections["THOUGHT"],
		Action:      normalizeAction(sections["ACTION"]),
		ActionInput: stripCodeFence(sections["ACTION_INPUT"]),
		Answer:      sections["ANSWER"],
	}
}

// normalizeAction keeps the first line, strips quoting and maps empty and
// any casing of "none" to NoAction.
func normalizeAction(raw string) string {
	line := raw
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.Trim(strings.TrimSpace(line), "`\"'*")
	line = strings.TrimSpace(line)
	if line == "" || strings.EqualFold(line, NoAction) {
		return NoAction
	}
	return line
}

// stripCodeFence removes a surrounding ``` fence, with or without a
// language tag.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// Drop the language tag line, e.g. ```json.
		if tag := strings.TrimSpace(s[:i]); !strings.ContainsAny(tag, "{[\"") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ExtractJSONArray returns the outermost [...] span of text.
func ExtractJSONArray(text string) (string, bool) {
	return outermost(text, '[', ']')
}

// ExtractJSONObject returns the outermost {...} span of text.
func ExtractJSONObject(text string) (string, bool) {
	return outermost(text, '{', '}')
}

func outermost(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
