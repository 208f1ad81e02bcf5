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
	"strings"
	"unicode/utf8"

	"github.com/Senchy071/Meton-sub000/pkg/config"
)

// IsComplexQuery decides whether a query goes through the coordinator. Any
// of these is enough: a multi-agent phrase, a coordination phrase, two or
// more distinct complexity keywords, or a query longer than the length
// threshold.
func IsComplexQuery(query string, h config.HeuristicsConfig) bool {
	h.SetDefaults()
	lower := strings.ToLower(query)

	for _, p := range h.MultiAgentPhrases {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	for _, p := range h.CoordinationPhrases {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}

	hits := 0
	for _, k := range h.ComplexityKeywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}

	return utf8.RuneCountInString(query) > h.ComplexLengthThreshold
}
