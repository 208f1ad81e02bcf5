package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/llms"
	"github.com/Senchy071/Meton-sub000/pkg/runtime"
)

func TestResolveLogSettings(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	t.Setenv(LogFileEnvVar, "")
	t.Setenv(LogFormatEnvVar, "")
	fromConfig := &config.LoggerConfig{Level: "error", File: "meton.log", Format: "json"}

	s := resolveLogSettings("debug", "", "", fromConfig)
	assert.Equal(t, logSettings{level: "debug", file: "meton.log", format: "json"}, s)

	s = resolveLogSettings("", "", "", fromConfig)
	assert.Equal(t, "warn", s.level)

	s = resolveLogSettings("", "", "", nil)
	assert.Equal(t, logSettings{level: "warn", file: "", format: "simple"}, s)
}

func TestApplyOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("METON_PROVIDER", "")
	t.Setenv("METON_MODEL", "")
	t.Setenv("OLLAMA_HOST", "")

	cfg := config.Default()
	cli := &CLI{Provider: "OpenAI"}
	require.NoError(t, cli.applyOverrides(cfg))

	assert.Equal(t, config.LLMProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Empty(t, cfg.LLM.BaseURL)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)

	cfg = config.Default()
	cli = &CLI{Model: "qwen2.5-coder", BaseURL: "http://gpu:11434"}
	require.NoError(t, cli.applyOverrides(cfg))
	assert.Equal(t, "qwen2.5-coder", cfg.LLM.Model)
	assert.Equal(t, "http://gpu:11434", cfg.LLM.BaseURL)

	cli = &CLI{Provider: "skynet"}
	assert.Error(t, cli.applyOverrides(config.Default()))
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("METON_PROVIDER", "")
	path := filepath.Join(t.TempDir(), "meton.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  max_iterations: 4\n"), 0o644))

	cli := &CLI{Config: path, ConfigType: "file", Model: "override"}
	cfg, loader, err := cli.loadConfig(context.Background())
	require.NoError(t, err)
	defer loader.Close()

	assert.Equal(t, 4, cfg.Agent.MaxIterations)
	assert.Equal(t, "override", cfg.LLM.Model)
}

func TestRemoteConfigNeedsKey(t *testing.T) {
	cli := &CLI{ConfigType: "etcd"}
	_, _, err := cli.loadConfig(context.Background())
	assert.ErrorContains(t, err, "--config is required")
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "fix the bug", title([]string{"fix", "the", "bug"}))
	assert.Len(t, []rune(title([]string{strings.Repeat("é", 100)})), 60)
}

func TestChatLoop(t *testing.T) {
	t.Setenv("METON_PROVIDER", "")
	cfg := config.Default()
	cfg.Tools.WorkingDirectory = t.TempDir()
	client := llms.NewScriptedClient("ANSWER: Hello!", "ANSWER: Still here.")
	rt, err := runtime.New(context.Background(), cfg, runtime.Options{Client: client, EstimateTokens: true})
	require.NoError(t, err)
	defer rt.Close()

	in := strings.NewReader("hi\n/mode agent\n/session\n/bogus\n\nare you there?\n/clear\n/exit\nnever sent\n")
	var out bytes.Buffer
	require.NoError(t, chatLoop(context.Background(), rt, in, &out, runtime.ModeAuto, false, false))

	text := out.String()
	assert.Contains(t, text, "Hello!")
	assert.Contains(t, text, "Still here.")
	assert.Contains(t, text, "Not persisted")
	assert.Contains(t, text, "Unknown command /bogus")
	assert.Contains(t, text, "Conversation cleared.")
	assert.Equal(t, 2, client.Calls())
	assert.Equal(t, 0, rt.History().Len())
}
