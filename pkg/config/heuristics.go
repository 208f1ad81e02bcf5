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

// HeuristicsConfig holds the word and phrase lists used by the answer
// quality gate and the complexity classifier. Matching is
// case-insensitive list membership, nothing more.
type HeuristicsConfig struct {
	// HedgeWords reject an answer when found anywhere in it.
	HedgeWords []string `yaml:"hedge_words,omitempty"`

	// RawMarkers reject an answer that begins with one of them.
	RawMarkers []string `yaml:"raw_markers,omitempty"`

	// BoilerplatePhrases reject answers that echo retrieved content.
	BoilerplatePhrases []string `yaml:"boilerplate_phrases,omitempty"`

	// CheckUnreadFiles rejects answers naming files no tool call touched.
	CheckUnreadFiles *bool `yaml:"check_unread_files,omitempty"`

	// FileExtensions recognised by the unread-file check. Any word ending in
	// one of them counts as a file name, so a technology name like Node.js
	// would be flagged unless it is listed in NonFileTerms.
	FileExtensions []string `yaml:"file_extensions,omitempty"`

	// NonFileTerms are file-shaped words the unread-file check ignores when
	// they carry no path separator.
	NonFileTerms []string `yaml:"non_file_terms,omitempty"`

	// MultiAgentPhrases route a query to the coordinator outright.
	MultiAgentPhrases []string `yaml:"multi_agent_phrases,omitempty"`

	// CoordinationPhrases route a query to the coordinator outright.
	CoordinationPhrases []string `yaml:"coordination_phrases,omitempty"`

	// ComplexityKeywords: two or more distinct hits route to the coordinator.
	ComplexityKeywords []string `yaml:"complexity_keywords,omitempty"`

	// ComplexLengthThreshold: longer queries route to the coordinator.
	ComplexLengthThreshold int `yaml:"complex_length_threshold,omitempty"`
}

// SetDefaults fills each empty list with the built-in list.
func (c *HeuristicsConfig) SetDefaults() {
	if len(c.HedgeWords) == 0 {
		c.HedgeWords = []string{
			"likely", "possibly", "probably", "might be", "may be", "could be",
			"perhaps", "presumably", "i think", "i believe", "i assume",
			"it seems", "seems to", "appears to", "i guess",
		}
	}
	if len(c.RawMarkers) == 0 {
		c.RawMarkers = []string{"✅", "❌", "✓", "✗", "{", "[", "Success:", "Error:", "THOUGHT:", "ACTION:"}
	}
	if len(c.BoilerplatePhrases) == 0 {
		c.BoilerplatePhrases = []string{
			"here is the content of",
			"here are the contents of",
			"the tool returned",
			"the tool output shows",
			"based on the tool output",
			"the output of the tool",
			"the file contains the following",
			"as shown in the output above",
		}
	}
	if c.CheckUnreadFiles == nil {
		c.CheckUnreadFiles = BoolPtr(true)
	}
	if len(c.FileExtensions) == 0 {
		c.FileExtensions = []string{
			"py", "go", "js", "ts", "tsx", "jsx", "rs", "java", "c", "h", "cpp",
			"rb", "sh", "md", "yaml", "yml", "json", "toml", "txt", "cfg", "ini",
		}
	}
	if len(c.NonFileTerms) == 0 {
		c.NonFileTerms = []string{
			"node.js", "vue.js", "next.js", "nuxt.js", "react.js", "express.js",
			"angular.js", "ember.js", "three.js", "d3.js", "chart.js", "p5.js",
		}
	}
	if len(c.MultiAgentPhrases) == 0 {
		c.MultiAgentPhrases = []string{"multi-agent", "multi agent", "multiple agents"}
	}
	if len(c.CoordinationPhrases) == 0 {
		c.CoordinationPhrases = []string{
			"and then", "after that", "followed by", "compare", "step by step",
			"first,", "finally,",
		}
	}
	if len(c.ComplexityKeywords) == 0 {
		c.ComplexityKeywords = []string{
			"analyze", "analyse", "refactor", "implement", "design", "review",
			"optimize", "debug", "test", "document", "migrate", "integrate",
			"architecture", "evaluate", "audit", "explain",
		}
	}
	if c.ComplexLengthThreshold == 0 {
		c.ComplexLengthThreshold = 150
	}
}

// Validate checks the heuristics configuration.
func (c *HeuristicsConfig) Validate() error {
	if c.ComplexLengthThreshold < 1 {
		return fmt.Errorf("complex_length_threshold must be positive")
	}
	for _, w := range c.HedgeWords {
		if w == "" {
			return fmt.Errorf("hedge_words must not contain empty entries")
		}
	}
	return nil
}
