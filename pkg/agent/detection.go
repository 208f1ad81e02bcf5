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
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
)

// canonicalInput normalises tool input so that equivalent JSON with
// different spacing or key order compares equal.
func canonicalInput(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	var v any
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&v); err == nil && !dec.More() {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err == nil {
			return strings.TrimSpace(buf.String())
		}
	}
	return strings.Join(strings.Fields(trimmed), " ")
}

func sameCall(a ToolCall, name, input string) bool {
	return a.ToolName == name && canonicalInput(a.Input) == canonicalInput(input)
}

// repeatsLastCall reports whether name and input repeat the most recent
// completed tool call.
func repeatsLastCall(s State, name, input string) (ToolCall, bool) {
	for i := len(s.ToolCalls) - 1; i >= 0; i-- {
		c := s.ToolCalls[i]
		if c.Pending() {
			continue
		}
		return c, sameCall(c, name, input)
	}
	return ToolCall{}, false
}

// lastTwoIdentical reports whether the two most recent tool calls share
// name and input.
func lastTwoIdentical(s State) bool {
	n := len(s.ToolCalls)
	if n < 2 {
		return false
	}
	prev := s.ToolCalls[n-2]
	return sameCall(prev, s.ToolCalls[n-1].ToolName, s.ToolCalls[n-1].Input)
}

func callSignature(c ToolCall) string {
	h := sha256.Sum256([]byte(canonicalInput(c.Input)))
	return fmt.Sprintf("%s:%x", c.ToolName, h[:8])
}

// detectPattern checks whether the last window tool calls repeat a pattern
// of length 1, 2 or 3.
func detectPattern(calls []ToolCall, window int) bool {
	if window < 2 || len(calls) < window {
		return false
	}
	sigs := make([]string, window)
	for i, c := range calls[len(calls)-window:] {
		sigs[i] = callSignature(c)
	}

	for patternLen := 1; patternLen <= 3; patternLen++ {
		if window%patternLen != 0 || patternLen == window {
			continue
		}
		match := true
		for i := patternLen; i < window && match; i++ {
			if sigs[i] != sigs[i%patternLen] {
				match = false
			}
		}
		if match {
			return true
		}
	}
	return false
}
