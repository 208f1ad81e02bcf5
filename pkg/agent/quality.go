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
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Senchy071/Meton-sub000/pkg/config"
)

// Rejection explains why the quality gate refused an answer.
type Rejection struct {
	Rule   string
	Detail string
}

func (r Rejection) String() string {
	return fmt.Sprintf("%s: %s", r.Rule, r.Detail)
}

const (
	RuleRawOutput   = "raw_output"
	RuleBoilerplate = "boilerplate"
	RuleHedge       = "hedge"
	RuleUnreadFile  = "unread_file"
)

// QualityGate validates candidate answers with plain list membership over
// the configured word and phrase lists.
type QualityGate struct {
	rawMarkers  []string
	boilerplate []string
	hedges      []*regexp.Regexp
	hedgeWords  []string
	filePattern *regexp.Regexp
	nonFiles    map[string]bool
}

func NewQualityGate(cfg config.HeuristicsConfig) *QualityGate {
	g := &QualityGate{rawMarkers: cfg.RawMarkers}
	for _, p := range cfg.BoilerplatePhrases {
		g.boilerplate = append(g.boilerplate, strings.ToLower(p))
	}
	for _, w := range cfg.HedgeWords {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		g.hedgeWords = append(g.hedgeWords, w)
		g.hedges = append(g.hedges, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
	}
	if config.BoolValue(cfg.CheckUnreadFiles, true) && len(cfg.FileExtensions) > 0 {
		exts := make([]string, len(cfg.FileExtensions))
		for i, e := range cfg.FileExtensions {
			exts[i] = regexp.QuoteMeta(strings.TrimPrefix(e, "."))
		}
		g.filePattern = regexp.MustCompile(`\b[\w][\w./-]*\.(?:` + strings.Join(exts, "|") + `)\b`)
		g.nonFiles = make(map[string]bool, len(cfg.NonFileTerms))
		for _, term := range cfg.NonFileTerms {
			g.nonFiles[strings.ToLower(strings.TrimSpace(term))] = true
		}
	}
	return g
}

// Check returns the first rule the answer breaks.
func (g *QualityGate) Check(answer string, s State) (Rejection, bool) {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return Rejection{Rule: RuleRawOutput, Detail: "empty answer"}, false
	}

	for _, m := range g.rawMarkers {
		if m != "" && strings.HasPrefix(trimmed, m) {
			return Rejection{Rule: RuleRawOutput, Detail: fmt.Sprintf("begins with %q", m)}, false
		}
	}

	lower := strings.ToLower(trimmed)
	for _, p := range g.boilerplate {
		if p != "" && strings.Contains(lower, p) {
			return Rejection{Rule: RuleBoilerplate, Detail: p}, false
		}
	}

	if w, ok := g.FindHedge(trimmed); ok {
		return Rejection{Rule: RuleHedge, Detail: w}, false
	}

	if file, ok := g.unreadFile(trimmed, s); ok {
		return Rejection{Rule: RuleUnreadFile, Detail: file}, false
	}
	return Rejection{}, true
}

// FindHedge returns the first hedge word found in text.
func (g *QualityGate) FindHedge(text string) (string, bool) {
	for i, re := range g.hedges {
		if re.MatchString(text) {
			return g.hedgeWords[i], true
		}
	}
	return "", false
}

// unreadFile finds a file name in the answer that appears neither in the
// query nor in any successful tool call.
func (g *QualityGate) unreadFile(answer string, s State) (string, bool) {
	if g.filePattern == nil {
		return "", false
	}
	mentions := g.filePattern.FindAllString(answer, -1)
	if len(mentions) == 0 {
		return "", false
	}

	var evidence strings.Builder
	evidence.WriteString(strings.ToLower(s.Query()))
	for _, c := range s.successfulCalls() {
		evidence.WriteString("\n")
		evidence.WriteString(strings.ToLower(c.Input))
		evidence.WriteString("\n")
		evidence.WriteString(strings.ToLower(c.Result.Content))
	}
	seen := evidence.String()

	for _, m := range mentions {
		m = strings.TrimRight(m, ".")
		lm := strings.ToLower(m)
		if !strings.ContainsAny(m, `/\`) && g.nonFiles[lm] {
			continue
		}
		if strings.Contains(seen, lm) || strings.Contains(seen, strings.ToLower(filepath.Base(m))) {
			continue
		}
		return m, true
	}
	return "", false
}
