package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ddgBody = `{
  "Heading": "Go (programming language)",
  "AbstractText": "Go is a statically typed compiled language.",
  "AbstractURL": "https://en.wikipedia.org/wiki/Go_(programming_language)",
  "RelatedTopics": [
    {"Text": "Goroutines - lightweight threads", "FirstURL": "https://example.com/goroutines"},
    {"Name": "Tools", "Topics": [
      {"Text": "gofmt - formatter", "FirstURL": "https://example.com/gofmt"},
      {"Text": "go vet - checker", "FirstURL": "https://example.com/govet"}
    ]}
  ]
}`

func newSearchTool(url string) *WebSearchTool {
	return NewWebSearchTool(config.WebSearchConfig{
		Enabled:    config.BoolPtr(true),
		Endpoint:   url,
		MaxResults: 2,
		Timeout:    5 * time.Second,
	}, httpclient.WithBaseDelay(time.Millisecond), httpclient.WithMaxRetries(1))
}

func TestWebSearchFormatsResults(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(ddgBody))
	}))
	defer server.Close()

	tool := newSearchTool(server.URL)
	require.True(t, tool.Enabled())

	res, err := tool.Execute(context.Background(), `{"query":"golang"}`)
	require.NoError(t, err)
	require.True(t, res.Success(), res.Text())

	assert.Equal(t, "golang", gotQuery)
	assert.Contains(t, res.Content, "Go (programming language): Go is a statically typed")
	assert.Contains(t, res.Content, "1. Goroutines")
	assert.Contains(t, res.Content, "2. gofmt")
	assert.NotContains(t, res.Content, "go vet", "max_results should cap related topics")
}

func TestWebSearchFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("q") {
		case "empty":
			_, _ = w.Write([]byte(`{}`))
		case "garbage":
			_, _ = w.Write([]byte(`<html>`))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer server.Close()
	tool := newSearchTool(server.URL)

	res, err := tool.Execute(context.Background(), `{"query":"empty"}`)
	require.NoError(t, err)
	require.True(t, res.Success())
	assert.Equal(t, `No results found for "empty"`, res.Content)

	res, _ = tool.Execute(context.Background(), `{"query":"garbage"}`)
	assert.False(t, res.Success())
	assert.Contains(t, res.Text(), "Malformed search response")

	res, _ = tool.Execute(context.Background(), `{"query":"forbidden"}`)
	assert.False(t, res.Success())
	assert.Contains(t, res.Text(), "HTTP 403")

	res, _ = tool.Execute(context.Background(), `{"query":""}`)
	assert.Equal(t, FailureInvalidInput, res.Failure.Kind)
}

func TestWebSearchDisabledByDefault(t *testing.T) {
	cfg := config.ToolsConfig{}
	cfg.SetDefaults()
	assert.False(t, NewWebSearchTool(cfg.WebSearch).Enabled())
}
