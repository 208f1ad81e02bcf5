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
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Senchy071/Meton-sub000/pkg/parser"
	"github.com/Senchy071/Meton-sub000/pkg/tools"
)

// NoResultsMessage is returned by forced synthesis when no tool succeeded.
const NoResultsMessage = "I'm sorry, but I could not gather any confirmed information to answer this. " +
	"None of the tool calls returned a usable result."

const excerptChars = 500

var (
	markerChars = strings.NewReplacer("✅", "", "❌", "", "✓", "", "✗", "", "⚠️", "")
	// A sentence ends at a terminator followed by whitespace or end of text,
	// or at a line break. Dots inside core/agent.py or 1.5 do not split.
	sentenceEnd = regexp.MustCompile(`[.!?]+(?:\s+|$)|\n+`)
)

// evidence renders the successful tool results for the synthesis prompt.
// file_operations output is kept whole, everything else is cut to limit.
func evidence(s State, limit int) []string {
	var blocks []string
	for _, c := range s.successfulCalls() {
		content := c.Result.Content
		if c.ToolName != tools.FileOperationsName && limit > 0 && len(content) > limit {
			content = clip(content, limit) + "\n[...truncated]"
		}
		blocks = append(blocks, fmt.Sprintf("[%d] %s %s\n%s", len(blocks)+1, c.ToolName, strings.TrimSpace(c.Input), content))
	}
	return blocks
}

func (a *Agent) synthesisPrompt(s State, blocks []string) string {
	var sb strings.Builder
	sb.WriteString("Answer the question using ONLY the confirmed tool results below.\n\n")
	sb.WriteString("QUESTION: ")
	sb.WriteString(s.Query())
	sb.WriteString("\n\nCONFIRMED TOOL RESULTS:\n")
	sb.WriteString(strings.Join(blocks, "\n\n"))
	sb.WriteString("\n\nWrite 2-4 sentences of plain, fact-based prose that answers the question. ")
	sb.WriteString("Do not include tool markers, JSON, labels or code fences. ")
	sb.WriteString("State only what the results show. Do not speculate")
	if len(a.gate.hedgeWords) > 0 {
		sb.WriteString(" and never use words such as ")
		sb.WriteString(strings.Join(a.gate.hedgeWords, ", "))
	}
	sb.WriteString(".\n")
	return sb.String()
}

// forceSynthesis builds an answer from confirmed tool results only. It
// never fails: model errors fall back to an excerpt of the results.
func (a *Agent) forceSynthesis(ctx context.Context, s State, reason string) string {
	blocks := evidence(s, a.cfg.SynthesisTruncateChars)
	if len(blocks) == 0 {
		a.logger.Info("Forced synthesis has no confirmed results", "reason", reason)
		return NoResultsMessage
	}

	a.logger.Info("Forcing synthesis", "reason", reason, "results", len(blocks))
	raw, err := a.client.Invoke(ctx, a.synthesisPrompt(s, blocks))
	if err != nil {
		a.logger.Warn("Synthesis call failed, returning excerpt", "error", err)
		return a.excerpt(s)
	}

	answer := a.cleanSynthesis(raw)
	if answer == "" {
		return a.excerpt(s)
	}
	return answer
}

// cleanSynthesis strips markers and labels and drops sentences that still
// hedge.
func (a *Agent) cleanSynthesis(raw string) string {
	text := raw
	if step := parser.Parse(raw); step.Answer != "" {
		text = step.Answer
	}
	text = strings.TrimSpace(tools.StripMarkers(markerChars.Replace(text)))

	var kept strings.Builder
	for _, sentence := range splitSentences(text) {
		if strings.TrimSpace(sentence) == "" {
			continue
		}
		if _, hedged := a.gate.FindHedge(sentence); hedged {
			continue
		}
		kept.WriteString(sentence)
	}
	return strings.TrimSpace(kept.String())
}

// splitSentences cuts text into sentences that keep their trailing
// separators, so joining them restores the original layout.
func splitSentences(text string) []string {
	var out []string
	prev := 0
	for _, m := range sentenceEnd.FindAllStringIndex(text, -1) {
		out = append(out, text[prev:m[1]])
		prev = m[1]
	}
	if prev < len(text) {
		out = append(out, text[prev:])
	}
	return out
}

func (a *Agent) excerpt(s State) string {
	calls := s.successfulCalls()
	if len(calls) == 0 {
		return NoResultsMessage
	}
	content := strings.TrimSpace(calls[len(calls)-1].Result.Content)
	if len(content) > excerptChars {
		content = clip(content, excerptChars) + "..."
	}
	return "Confirmed tool output:\n" + content
}
