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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/httpclient"
)

// OllamaClient talks to a local Ollama server over /api/chat.
type OllamaClient struct {
	cfg        config.LLMConfig
	httpClient *httpclient.Client
	baseURL    string
}

type OllamaRequest struct {
	Model    string          `json:"model"`
	Messages []OllamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *OllamaOptions  `json:"options,omitempty"`
}

type OllamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type OllamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type OllamaResponse struct {
	Model           string        `json:"model"`
	Message         OllamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
	Error           string        `json:"error,omitempty"`
}

func NewOllamaClient(cfg config.LLMConfig, opts ...httpclient.Option) *OllamaClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultOllamaURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	base := []httpclient.Option{httpclient.WithTimeout(cfg.Timeout)}
	if cfg.MaxRetries != nil {
		base = append(base, httpclient.WithMaxRetries(*cfg.MaxRetries))
	}

	return &OllamaClient{
		cfg:        cfg,
		httpClient: httpclient.New(append(base, opts...)...),
		baseURL:    baseURL,
	}
}

func (c *OllamaClient) Model() string { return c.cfg.Model }

func (c *OllamaClient) Invoke(ctx context.Context, prompt string) (string, error) {
	return observe(ctx, string(config.LLMProviderOllama), c.cfg.Model, func(ctx context.Context) (string, usage, error) {
		resp, err := c.chat(ctx, prompt)
		if err != nil {
			return "", usage{}, err
		}
		return resp.Message.Content, usage{inputTokens: resp.PromptEvalCount, outputTokens: resp.EvalCount}, nil
	})
}

func (c *OllamaClient) chat(ctx context.Context, prompt string) (*OllamaResponse, error) {
	request := OllamaRequest{
		Model:    c.cfg.Model,
		Messages: []OllamaMessage{{Role: "user", Content: prompt}},
		Stream:   false,
		Options: &OllamaOptions{
			Temperature: config.Float64Value(c.cfg.Temperature, 0),
			NumPredict:  c.cfg.MaxTokens,
		},
	}

	data, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("ollama request to %s failed: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var response OllamaResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(body, &response) == nil && response.Error != "" {
			return nil, &ProviderError{Provider: "ollama", Kind: kindForStatus(resp.StatusCode), StatusCode: resp.StatusCode, Message: response.Error}
		}
		return nil, &ProviderError{Provider: "ollama", Kind: kindForStatus(resp.StatusCode), StatusCode: resp.StatusCode, Message: string(body)}
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if response.Error != "" {
		return nil, &ProviderError{Provider: "ollama", Kind: ErrorUnknown, Message: response.Error}
	}
	return &response, nil
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return ErrorAuthentication
	case status == http.StatusForbidden:
		return ErrorAccessDenied
	case status == http.StatusNotFound:
		return ErrorNotFound
	case status == http.StatusTooManyRequests:
		return ErrorRateLimit
	case status >= 500:
		return ErrorServer
	}
	return ErrorUnknown
}
