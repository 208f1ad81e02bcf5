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

package llms

import (
	"context"
	"fmt"
	"time"

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/teilomillet/gollm"
)

// GollmClient serves the hosted providers gollm supports (OpenAI, Anthropic,
// Groq, Mistral).
type GollmClient struct {
	llm      gollm.LLM
	provider string
	model    string
	timeout  time.Duration
}

func NewGollmClient(cfg config.LLMConfig) (*GollmClient, error) {
	provider := string(cfg.Provider)
	opts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(cfg.Model),
		gollm.SetTemperature(config.Float64Value(cfg.Temperature, 0)),
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, gollm.SetMaxTokens(cfg.MaxTokens))
	}
	if cfg.MaxRetries != nil {
		opts = append(opts, gollm.SetMaxRetries(*cfg.MaxRetries))
	}
	if cfg.APIKey != "" {
		opts = append(opts, gollm.SetAPIKey(cfg.APIKey))
	}

	llm, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", provider, err)
	}
	return &GollmClient{llm: llm, provider: provider, model: cfg.Model, timeout: cfg.Timeout}, nil
}

// NewGollmClientFromLLM wraps an existing gollm.LLM.
func NewGollmClientFromLLM(provider, model string, llm gollm.LLM) *GollmClient {
	return &GollmClient{llm: llm, provider: provider, model: model}
}

func (c *GollmClient) Model() string { return c.model }

func (c *GollmClient) Invoke(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return observe(ctx, c.provider, c.model, func(ctx context.Context) (string, usage, error) {
		text, err := c.llm.Generate(ctx, gollm.NewPrompt(prompt))
		if err != nil {
			return "", usage{}, classifyError(c.provider, err)
		}
		return text, usage{}, nil
	})
}
