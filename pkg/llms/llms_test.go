package llms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ollamaConfig(url string) config.LLMConfig {
	return config.LLMConfig{
		Provider:    config.LLMProviderOllama,
		Model:       "llama3.2",
		BaseURL:     url + "/",
		Temperature: config.Float64Ptr(0.2),
		MaxTokens:   256,
		Timeout:     5 * time.Second,
	}
}

func TestOllamaInvoke(t *testing.T) {
	var got OllamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(OllamaResponse{
			Model:           "llama3.2",
			Message:         OllamaMessage{Role: "assistant", Content: "THOUGHT: hi\nANSWER: 4"},
			Done:            true,
			PromptEvalCount: 12,
			EvalCount:       5,
		})
	}))
	defer server.Close()

	client := NewOllamaClient(ollamaConfig(server.URL))
	text, err := client.Invoke(context.Background(), "what is 2+2?")
	require.NoError(t, err)

	assert.Equal(t, "THOUGHT: hi\nANSWER: 4", text)
	assert.Equal(t, "llama3.2", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "what is 2+2?", got.Messages[0].Content)
	assert.InDelta(t, 0.2, got.Options.Temperature, 1e-9)
	assert.Equal(t, 256, got.Options.NumPredict)
}

func TestOllamaErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req OllamaRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.Model {
		case "missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"model 'missing' not found"}`))
		case "inline":
			_, _ = w.Write([]byte(`{"error":"out of memory"}`))
		default:
			_, _ = w.Write([]byte(`not json`))
		}
	}))
	defer server.Close()

	tests := []struct {
		model    string
		wantKind ErrorKind
		wantText string
	}{
		{"missing", ErrorNotFound, "model 'missing' not found"},
		{"inline", ErrorUnknown, "out of memory"},
		{"garbage", "", "failed to decode response"},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			cfg := ollamaConfig(server.URL)
			cfg.Model = tt.model
			_, err := NewOllamaClient(cfg, httpclient.WithMaxRetries(0)).Invoke(context.Background(), "x")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantText)

			var perr *ProviderError
			if tt.wantKind != "" {
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, tt.wantKind, perr.Kind)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		msg       string
		kind      ErrorKind
		retryable bool
	}{
		{"HTTP 401 Unauthorized", ErrorAuthentication, false},
		{"rate limit exceeded", ErrorRateLimit, true},
		{"maximum context length is 8192 tokens", ErrorContextLength, false},
		{"502 internal server error", ErrorServer, true},
		{"context deadline exceeded", ErrorTimeout, true},
		{"something odd", ErrorUnknown, false},
	}
	for _, tt := range tests {
		err := classifyError("openai", errors.New(tt.msg))
		var perr *ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, tt.kind, perr.Kind, tt.msg)
		assert.Equal(t, tt.retryable, perr.Retryable(), tt.msg)
	}
	assert.NoError(t, classifyError("openai", nil))
}

func TestScriptedClient(t *testing.T) {
	boom := errors.New("boom")
	client := NewScriptedClient("one").Then("", boom)
	ctx := context.Background()

	text, err := client.Invoke(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "one", text)

	_, err = client.Invoke(ctx, "p2")
	assert.ErrorIs(t, err, boom)

	_, err = client.Invoke(ctx, "p3")
	assert.ErrorIs(t, err, ErrScriptExhausted)

	client.Always("again")
	text, err = client.Invoke(ctx, "p4")
	require.NoError(t, err)
	assert.Equal(t, "again", text)

	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, client.Prompts())
	assert.Equal(t, 4, client.Calls())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = client.Invoke(cancelled, "p5")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(context.Background(), config.LLMConfig{Provider: config.LLMProviderOllama, Model: "llama3.2"})
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", client.Model())

	_, err = NewClient(context.Background(), config.LLMConfig{Provider: "skynet"})
	assert.ErrorContains(t, err, "unsupported llm provider")

	_, err = NewClient(context.Background(), config.LLMConfig{Provider: config.LLMProviderGemini})
	assert.ErrorContains(t, err, "api key is required")
}
