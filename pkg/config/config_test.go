package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meton.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	t.Setenv("METON_PROVIDER", "")
	t.Setenv("METON_MODEL", "")
	t.Setenv("OLLAMA_HOST", "")

	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, LLMProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, "llama3.2", cfg.LLM.Model)
	assert.Equal(t, DefaultOllamaURL, cfg.LLM.BaseURL)
	assert.Equal(t, 10, cfg.Agent.MaxIterations)
	assert.Equal(t, 3, cfg.Agent.SummaryWindow)
	assert.Equal(t, 5, cfg.MultiAgent.MaxSubtasks)
	assert.True(t, BoolValue(cfg.MultiAgent.ValidateDependencies, false))
	assert.False(t, BoolValue(cfg.Tools.WebSearch.Enabled, true))
	assert.Contains(t, cfg.Heuristics.HedgeWords, "likely")
	assert.Contains(t, cfg.Heuristics.NonFileTerms, "node.js")
	assert.Equal(t, 150, cfg.Heuristics.ComplexLengthThreshold)
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("TEST_METON_MODEL", "qwen2.5-coder")
	path := writeConfig(t, `
llm:
  provider: ollama
  model: ${TEST_METON_MODEL}
  base_url: ${TEST_METON_HOST:-http://gpu-box:11434}
  timeout: 30s
agent:
  max_iterations: 4
multi_agent:
  max_subtasks: 3
  parallel_execution: true
heuristics:
  hedge_words: [maybe, "might be"]
tools:
  code_executor:
    blocked_imports: "os,sys"
`)

	cfg, loader, err := LoadConfigFile(context.Background(), path)
	require.NoError(t, err)
	defer loader.Close()

	assert.Equal(t, "qwen2.5-coder", cfg.LLM.Model)
	assert.Equal(t, "http://gpu-box:11434", cfg.LLM.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 4, cfg.Agent.MaxIterations)
	assert.Equal(t, 3, cfg.MultiAgent.MaxSubtasks)
	assert.True(t, cfg.MultiAgent.ParallelExecution)
	assert.Equal(t, []string{"maybe", "might be"}, cfg.Heuristics.HedgeWords)
	assert.Equal(t, []string{"os", "sys"}, cfg.Tools.CodeExecutor.BlockedImports)
	// untouched lists keep their defaults
	assert.NotEmpty(t, cfg.Heuristics.RawMarkers)
}

func TestParseJSON(t *testing.T) {
	cfg, err := Parse([]byte(`{"agent": {"max_iterations": 7}}`))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Agent.MaxIterations)
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad provider", "llm:\n  provider: skynet\n", "llm: invalid provider"},
		{"missing key", "llm:\n  provider: openai\n  api_key: \"\"\n", "api_key is required"},
		{"bad iterations", "agent:\n  max_iterations: -1\n", "agent: max_iterations"},
		{"bad driver", "conversation:\n  store:\n    driver: oracle\n", "unsupported store driver"},
		{"bad log format", "logger:\n  format: xml\n", "invalid log format"},
		{"bad truncation mode", "tools:\n  output_limits:\n    file_operations:\n      mode: middle\n", "head_tail or tail"},
	}
	t.Setenv("OPENAI_API_KEY", "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExpandEnvString(t *testing.T) {
	t.Setenv("METON_A", "alpha")
	t.Setenv("METON_EMPTY", "")

	assert.Equal(t, "alpha", expandEnvString("${METON_A}"))
	assert.Equal(t, "alpha/x", expandEnvString("$METON_A/x"))
	assert.Equal(t, "fallback", expandEnvString("${METON_EMPTY:-fallback}"))
	assert.Equal(t, "no vars", expandEnvString("no vars"))
}

func TestSubAgentConfig(t *testing.T) {
	cfg := Default()
	cfg.Agent.SystemPrompt = "custom"
	cfg.MultiAgent.SubAgentMaxIterations = 4

	sub := cfg.SubAgentConfig()
	assert.Equal(t, 4, sub.MaxIterations)
	assert.Empty(t, sub.SystemPrompt)
	assert.Equal(t, "custom", cfg.Agent.SystemPrompt)
}

func TestWatchReloads(t *testing.T) {
	path := writeConfig(t, "agent:\n  max_iterations: 2\n")

	reloaded := make(chan *Config, 1)
	_, loader, err := LoadConfigFile(context.Background(), path, WithOnChange(func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	}))
	require.NoError(t, err)
	defer loader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loader.Watch(ctx) }()

	// give the watcher time to register
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  max_iterations: 9\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 9, cfg.Agent.MaxIterations)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}
