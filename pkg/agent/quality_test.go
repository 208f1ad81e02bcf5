package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/llms"
	"github.com/Senchy071/Meton-sub000/pkg/tools"
)

func defaultHeuristics() config.HeuristicsConfig {
	h := config.HeuristicsConfig{}
	h.SetDefaults()
	return h
}

func stateWithRead(path, content string) State {
	s := newState("explain the config")
	s = s.withToolCall(ToolCall{ToolName: tools.FileOperationsName, Input: `{"action":"read","path":"` + path + `"}`})
	return s.withResult(tools.Succeeded(tools.FileOperationsName, content))
}

func TestQualityGateRules(t *testing.T) {
	gate := NewQualityGate(defaultHeuristics())
	read := stateWithRead("config/app.yaml", "port: 8080")

	tests := []struct {
		name   string
		answer string
		state  State
		rule   string
	}{
		{"accepted", "The service listens on port 8080.", read, ""},
		{"raw success marker", "✅ FILE: app.yaml", read, RuleRawOutput},
		{"raw json", `{"port": 8080}`, read, RuleRawOutput},
		{"boilerplate", "Here is the content of the file: port 8080.", read, RuleBoilerplate},
		{"hedge word", "It is probably port 8080.", read, RuleHedge},
		{"hedge phrase case insensitive", "It Might Be port 8080.", read, RuleHedge},
		{"hedge needs word boundary", "An unlikely event is logged on port 8080.", read, ""},
		{"unread file", "The port is set in server.go.", read, RuleUnreadFile},
		{"read file by base name", "app.yaml sets port 8080.", read, ""},
		{"file named in query", "Nothing about main.go.", newState("what does main.go do?"), ""},
		{"technology name is not a file", "The server runs on Node.js and Vue.js.", read, ""},
		{"path shaped technology name is a file", "See web/node.js for details.", read, RuleUnreadFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rejection, ok := gate.Check(tt.answer, tt.state)
			if tt.rule == "" {
				assert.True(t, ok, rejection.String())
				return
			}
			assert.False(t, ok)
			assert.Equal(t, tt.rule, rejection.Rule)
		})
	}
}

func TestUnreadFileCheckCanBeDisabled(t *testing.T) {
	h := defaultHeuristics()
	h.CheckUnreadFiles = config.BoolPtr(false)
	_, ok := NewQualityGate(h).Check("See server.go.", newState("q"))
	assert.True(t, ok)
}

func TestNonFileTermsAreConfigurable(t *testing.T) {
	h := defaultHeuristics()
	h.NonFileTerms = []string{"Deno.ts"}
	gate := NewQualityGate(h)

	_, ok := gate.Check("It targets Deno.ts.", newState("q"))
	assert.True(t, ok)
	rejection, ok := gate.Check("It targets Node.js.", newState("q"))
	assert.False(t, ok)
	assert.Equal(t, RuleUnreadFile, rejection.Rule)
}

func TestQualityGateIsIdempotent(t *testing.T) {
	client := llms.NewScriptedClient()
	a := newTestAgent(t, client, nil, nil)
	s := stateWithRead("app.yaml", "port: 8080")

	accepted := "The service listens on port 8080."
	once := a.applyGate(context.Background(), accepted, s, a.logger)
	twice := a.applyGate(context.Background(), once, s, a.logger)

	assert.Equal(t, accepted, once)
	assert.Equal(t, accepted, twice)
	assert.Zero(t, client.Calls())
}

func TestCleanSynthesis(t *testing.T) {
	a := newTestAgent(t, llms.NewScriptedClient(), nil, nil)

	tests := []struct {
		raw  string
		want string
	}{
		{"✅ Port is 8080.", "Port is 8080."},
		{"THOUGHT: ok\nANSWER: Port is 8080. It is likely fine.", "Port is 8080."},
		{"It seems fine. Perhaps not.", ""},
		{"❌ ✓ Done! Really.", "Done! Really."},
		{"The file core/agent.py defines Agent with version 1.5 support.", "The file core/agent.py defines Agent with version 1.5 support."},
		{"Timeout is 2.5s in app.yaml. It may be overridden.", "Timeout is 2.5s in app.yaml."},
		{"Files:\n- main.go\n- possibly util.go\n- go.mod", "Files:\n- main.go\n- go.mod"},
		{"Is it set? Yes, in config.toml!", "Is it set? Yes, in config.toml!"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, a.cleanSynthesis(tt.raw), tt.raw)
	}
}

func TestSynthesisFallsBackToExcerpt(t *testing.T) {
	client := llms.NewScriptedClient("Perhaps it is fine.")
	a := newTestAgent(t, client, nil, nil)
	s := stateWithRead("app.yaml", "port: 8080")

	answer := a.forceSynthesis(context.Background(), s, "test")
	assert.Equal(t, "Confirmed tool output:\nport: 8080", answer)
}

func TestEvidenceTruncatesNonFileResults(t *testing.T) {
	s := stateWithRead("big.txt", strings.Repeat("f", 3000))
	s = s.withToolCall(ToolCall{ToolName: "web_search", Input: `{"query":"go"}`})
	s = s.withResult(tools.Succeeded("web_search", strings.Repeat("w", 3000)))
	s = s.withToolCall(ToolCall{ToolName: "web_search", Input: `{"query":"rust"}`})
	s = s.withResult(tools.Failed("web_search", tools.FailureExecution, "offline"))

	blocks := evidence(s, 100)
	require.Len(t, blocks, 2)
	assert.Contains(t, blocks[0], strings.Repeat("f", 3000))
	assert.Contains(t, blocks[1], "[...truncated]")
	assert.NotContains(t, blocks[1], strings.Repeat("w", 101))
}
