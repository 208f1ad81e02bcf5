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
	"fmt"
	"strings"

	"github.com/Senchy071/Meton-sub000/pkg/config"
)

type TruncationMode string

const (
	TruncateHeadTail TruncationMode = "head_tail"
	TruncateTail     TruncationMode = "tail"
)

const fallbackCharLimit = 30000

var defaultOutputLimits = map[string]config.OutputLimit{
	FileOperationsName: {MaxChars: 50000, Mode: string(TruncateHeadTail)},
	CodeExecutorName:   {MaxChars: 20000, MaxLines: 256, Mode: string(TruncateHeadTail)},
	WebSearchName:      {MaxChars: 10000, Mode: string(TruncateTail)},
	CodebaseSearchName: {MaxChars: 20000, MaxLines: 300, Mode: string(TruncateHeadTail)},
}

// TruncateOutput bounds output to maxChars, leaving a notice where text was
// removed.
func TruncateOutput(output string, maxChars int, mode TruncationMode) string {
	if maxChars <= 0 || len(output) <= maxChars {
		return output
	}

	removed := len(output) - maxChars
	if mode == TruncateTail {
		return fmt.Sprintf("[WARNING: Tool output was truncated. First %d characters were removed.]\n\n", removed) +
			output[len(output)-maxChars:]
	}

	half := maxChars / 2
	return output[:half] +
		fmt.Sprintf("\n\n[WARNING: Tool output was truncated. %d characters were removed from the middle. "+
			"Re-run the tool with more targeted parameters to see specific parts.]\n\n", removed) +
		output[len(output)-half:]
}

// TruncateLines keeps the first and last lines of output.
func TruncateLines(output string, maxLines int) string {
	if maxLines <= 0 {
		return output
	}
	lines := strings.Split(output, "\n")
	if len(lines) <= maxLines {
		return output
	}

	headCount := maxLines / 2
	tailCount := maxLines - headCount
	omitted := len(lines) - headCount - tailCount

	return strings.Join(lines[:headCount], "\n") +
		fmt.Sprintf("\n[... %d lines omitted ...]\n", omitted) +
		strings.Join(lines[len(lines)-tailCount:], "\n")
}

// TruncateToolOutput applies character then line truncation using the
// override for toolName, or the built-in default.
func TruncateToolOutput(output, toolName string, overrides map[string]config.OutputLimit) string {
	limit, ok := overrides[toolName]
	if !ok {
		limit = defaultOutputLimits[toolName]
	}
	if limit.MaxChars == 0 {
		limit.MaxChars = fallbackCharLimit
	}
	mode := TruncationMode(limit.Mode)
	if mode == "" {
		mode = TruncateHeadTail
	}

	result := TruncateOutput(output, limit.MaxChars, mode)
	return TruncateLines(result, limit.MaxLines)
}
