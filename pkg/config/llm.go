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

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// LLMProvider identifies the language model backend.
type LLMProvider string

const (
	LLMProviderOllama    LLMProvider = "ollama"
	LLMProviderOpenAI    LLMProvider = "openai"
	LLMProviderAnthropic LLMProvider = "anthropic"
	LLMProviderGemini    LLMProvider = "gemini"
	LLMProviderGroq      LLMProvider = "groq"
	LLMProviderMistral   LLMProvider = "mistral"
)

var validProviders = map[LLMProvider]bool{
	LLMProviderOllama:    true,
	LLMProviderOpenAI:    true,
	LLMProviderAnthropic: true,
	LLMProviderGemini:    true,
	LLMProviderGroq:      true,
	LLMProviderMistral:   true,
}

const DefaultOllamaURL = "http://localhost:11434"

// LLMConfig configures the language model client.
type LLMConfig struct {
	// Provider (ollama, openai, anthropic, gemini, groq, mistral).
	Provider LLMProvider `yaml:"provider,omitempty"`

	// Model name, e.g. "llama3.2" or "gpt-4o-mini".
	Model string `yaml:"model,omitempty"`

	// APIKey for hosted providers. Supports ${VAR} expansion.
	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL overrides the provider endpoint. Ollama uses it as the host.
	BaseURL string `yaml:"base_url,omitempty"`

	// Temperature for generation. ReAct parsing is most reliable near 0.
	Temperature *float64 `yaml:"temperature,omitempty"`

	MaxTokens  int           `yaml:"max_tokens,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	MaxRetries *int          `yaml:"max_retries,omitempty"`
}

// SetDefaults applies default values.
func (c *LLMConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = detectProviderFromEnv()
	}
	c.Provider = LLMProvider(strings.ToLower(string(c.Provider)))

	if c.Model == "" {
		if m := os.Getenv("METON_MODEL"); m != "" {
			c.Model = m
		} else {
			c.Model = defaultModel(c.Provider)
		}
	}

	if c.APIKey == "" {
		c.APIKey = GetProviderAPIKey(c.Provider)
	}

	if c.BaseURL == "" && c.Provider == LLMProviderOllama {
		if host := os.Getenv("OLLAMA_HOST"); host != "" {
			c.BaseURL = host
		} else {
			c.BaseURL = DefaultOllamaURL
		}
	}

	if c.Temperature == nil {
		c.Temperature = Float64Ptr(0.0)
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2048
	}
	if c.Timeout == 0 {
		c.Timeout = 120 * time.Second
	}
	if c.MaxRetries == nil {
		c.MaxRetries = IntPtr(3)
	}
}

// Validate checks the LLM configuration.
func (c *LLMConfig) Validate() error {
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q (valid: ollama, openai, anthropic, gemini, groq, mistral)", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Provider != LLMProviderOllama && c.APIKey == "" {
		return fmt.Errorf("api_key is required for provider %q", c.Provider)
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}
	if c.MaxRetries != nil && *c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	return nil
}

func defaultModel(p LLMProvider) string {
	switch p {
	case LLMProviderOpenAI:
		return "gpt-4o-mini"
	case LLMProviderAnthropic:
		return "claude-3-5-haiku-latest"
	case LLMProviderGemini:
		return "gemini-2.0-flash"
	case LLMProviderGroq:
		return "llama-3.1-8b-instant"
	case LLMProviderMistral:
		return "mistral-small-latest"
	default:
		return "llama3.2"
	}
}

// detectProviderFromEnv prefers a local Ollama unless a hosted provider was
// explicitly requested through METON_PROVIDER.
func detectProviderFromEnv() LLMProvider {
	if p := os.Getenv("METON_PROVIDER"); p != "" {
		return LLMProvider(p)
	}
	return LLMProviderOllama
}
