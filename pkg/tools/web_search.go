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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/httpclient"
)

const WebSearchName = "web_search"

type WebSearchInput struct {
	Query      string `json:"query" jsonschema:"required,description=Search query"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Maximum number of results,minimum=1,maximum=20"`
}

// WebSearchTool queries the DuckDuckGo Instant Answer API.
type WebSearchTool struct {
	cfg    config.WebSearchConfig
	client *httpclient.Client
	schema string
}

func NewWebSearchTool(cfg config.WebSearchConfig, opts ...httpclient.Option) *WebSearchTool {
	base := []httpclient.Option{httpclient.WithTimeout(cfg.Timeout)}
	return &WebSearchTool{
		cfg:    cfg,
		client: httpclient.New(append(base, opts...)...),
		schema: inputSchema[WebSearchInput](),
	}
}

func (t *WebSearchTool) Name() string { return WebSearchName }

func (t *WebSearchTool) Description() string {
	return `Search the web for documentation or facts. Input: {"query": "...", "max_results": 5}`
}

func (t *WebSearchTool) Enabled() bool {
	return config.BoolValue(t.cfg.Enabled, false)
}

func (t *WebSearchTool) InputSchema() string { return t.schema }

type ddgResponse struct {
	Heading       string     `json:"Heading"`
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Answer        string     `json:"Answer"`
	Definition    string     `json:"Definition"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Name     string     `json:"Name"`
	Topics   []ddgTopic `json:"Topics"`
}

func (t *WebSearchTool) Execute(ctx context.Context, input string) (ToolResult, error) {
	var in WebSearchInput
	if err := decodeInput(input, &in); err != nil {
		return Failed(WebSearchName, FailureInvalidInput, "Invalid JSON input: %v", err), nil
	}
	in.Query = strings.TrimSpace(in.Query)
	if in.Query == "" {
		return Failed(WebSearchName, FailureInvalidInput, "query is required"), nil
	}
	limit := in.MaxResults
	if limit <= 0 {
		limit = t.cfg.MaxResults
	}

	u, err := url.Parse(t.cfg.Endpoint)
	if err != nil {
		return Failed(WebSearchName, FailureExecution, "Invalid search endpoint: %v", err), nil
	}
	q := u.Query()
	q.Set("q", in.Query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return ToolResult{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		if ctx.Err() != nil {
			return Failed(WebSearchName, FailureTimeout, "Search cancelled: %v", err), nil
		}
		return Failed(WebSearchName, FailureExecution, "Search request failed: %v", err), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Failed(WebSearchName, FailureExecution, "Search returned HTTP %d", resp.StatusCode), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return Failed(WebSearchName, FailureExecution, "Failed to read search response: %v", err), nil
	}
	var ddg ddgResponse
	if err := json.Unmarshal(body, &ddg); err != nil {
		return Failed(WebSearchName, FailureExecution, "Malformed search response: %v", err), nil
	}

	return Succeeded(WebSearchName, formatSearchResults(in.Query, ddg, limit)), nil
}

func formatSearchResults(query string, r ddgResponse, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search results for %q:\n", query)

	found := false
	if r.Answer != "" {
		fmt.Fprintf(&b, "\nAnswer: %s\n", r.Answer)
		found = true
	}
	if r.AbstractText != "" {
		heading := r.Heading
		if heading == "" {
			heading = "Summary"
		}
		fmt.Fprintf(&b, "\n%s: %s\n", heading, r.AbstractText)
		if r.AbstractURL != "" {
			fmt.Fprintf(&b, "Source: %s\n", r.AbstractURL)
		}
		found = true
	}
	if r.Definition != "" {
		fmt.Fprintf(&b, "\nDefinition: %s\n", r.Definition)
		found = true
	}

	topics := flattenTopics(r.RelatedTopics)
	if len(topics) > limit {
		topics = topics[:limit]
	}
	for i, topic := range topics {
		if i == 0 {
			b.WriteString("\nRelated:\n")
		}
		fmt.Fprintf(&b, "%d. %s", i+1, topic.Text)
		if topic.FirstURL != "" {
			fmt.Fprintf(&b, " (%s)", topic.FirstURL)
		}
		b.WriteString("\n")
		found = true
	}

	if !found {
		return fmt.Sprintf("No results found for %q", query)
	}
	return strings.TrimRight(b.String(), "\n")
}

func flattenTopics(topics []ddgTopic) []ddgTopic {
	var flat []ddgTopic
	for _, topic := range topics {
		if topic.Text != "" {
			flat = append(flat, topic)
		}
		flat = append(flat, flattenTopics(topic.Topics)...)
	}
	return flat
}
