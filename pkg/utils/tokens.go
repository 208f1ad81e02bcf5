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

// Package utils holds small helpers shared across meton packages.
package utils

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Message is a role/content pair for token counting.
type Message struct {
	Role    string
	Content string
}

// tokensPerMessage approximates the role framing each chat message costs.
const tokensPerMessage = 3

var (
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	cacheMu       sync.RWMutex
)

// TokenCounter counts tokens with a tiktoken encoding. A counter without an
// encoding (nil, or one whose encoding could not be loaded) estimates four
// characters per token instead.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	model    string
}

// NewTokenCounter returns a counter for model. Unknown models use
// cl100k_base. Loading an encoding can require network access; on failure
// the returned counter still works in estimation mode alongside the error.
func NewTokenCounter(model string) (*TokenCounter, error) {
	name := EncodingForModel(model)

	cacheMu.RLock()
	cached, ok := encodingCache[name]
	cacheMu.RUnlock()
	if ok {
		return &TokenCounter{encoding: cached, model: model}, nil
	}

	encoding, err := tiktoken.GetEncoding(name)
	if err != nil {
		return &TokenCounter{model: model}, fmt.Errorf("failed to load encoding %s: %w", name, err)
	}

	cacheMu.Lock()
	encodingCache[name] = encoding
	cacheMu.Unlock()

	return &TokenCounter{encoding: encoding, model: model}, nil
}

// Count returns the number of tokens in text.
func (tc *TokenCounter) Count(text string) int {
	if tc == nil || tc.encoding == nil {
		return EstimateTokens(text)
	}
	return len(tc.encoding.Encode(text, nil, nil))
}

// CountMessages counts a message list including per-message framing.
func (tc *TokenCounter) CountMessages(messages []Message) int {
	total := 0
	for _, msg := range messages {
		total += tokensPerMessage + tc.Count(msg.Role) + tc.Count(msg.Content)
	}
	return total
}

// FitWithinLimit keeps the most recent messages whose combined count stays
// within maxTokens. Order is preserved.
func (tc *TokenCounter) FitWithinLimit(messages []Message, maxTokens int) []Message {
	if maxTokens <= 0 || len(messages) == 0 {
		return nil
	}

	used := 0
	start := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		n := tc.CountMessages(messages[i : i+1])
		if used+n > maxTokens {
			break
		}
		used += n
		start = i
	}
	return messages[start:]
}

// Model returns the model the counter was created for.
func (tc *TokenCounter) Model() string {
	if tc == nil {
		return ""
	}
	return tc.model
}

// Estimated reports whether the counter falls back to estimation.
func (tc *TokenCounter) Estimated() bool {
	return tc == nil || tc.encoding == nil
}

// EstimateTokens approximates four characters per token, rounding up.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// EncodingForModel maps a model name to a tiktoken encoding name.
func EncodingForModel(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "gpt-4o"), strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"):
		return "o200k_base"
	default:
		// Local models have their own tokenizers; cl100k_base is a close
		// enough approximation for context budgeting.
		return "cl100k_base"
	}
}
