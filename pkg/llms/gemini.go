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

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiClient calls the Gemini API through the genai SDK.
type GeminiClient struct {
	client *genai.Client
	cfg    config.LLMConfig
}

func NewGeminiClient(ctx context.Context, cfg config.LLMConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client, cfg: cfg}, nil
}

func (c *GeminiClient) Model() string { return c.cfg.Model }

func (c *GeminiClient) Invoke(ctx context.Context, prompt string) (string, error) {
	return observe(ctx, string(config.LLMProviderGemini), c.cfg.Model, func(ctx context.Context) (string, usage, error) {
		genCfg := &genai.GenerateContentConfig{
			Temperature: genai.Ptr(float32(config.Float64Value(c.cfg.Temperature, 0))),
		}
		if c.cfg.MaxTokens > 0 {
			genCfg.MaxOutputTokens = int32(c.cfg.MaxTokens)
		}

		resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, genai.Text(prompt), genCfg)
		if err != nil {
			return "", usage{}, classifyError("gemini", err)
		}

		var u usage
		if resp.UsageMetadata != nil {
			u.inputTokens = int(resp.UsageMetadata.PromptTokenCount)
			u.outputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		}
		return resp.Text(), u, nil
	})
}
