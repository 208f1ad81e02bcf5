package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/llms"
	"github.com/Senchy071/Meton-sub000/pkg/runtime"
)

func newRuntime(t *testing.T, client llms.Client, mutate func(*config.Config)) *runtime.Runtime {
	t.Helper()
	cfg := config.Default()
	cfg.Tools.WorkingDirectory = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}
	rt, err := runtime.New(t.Context(), cfg, runtime.Options{Client: client, Stateless: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func newServer(t *testing.T, rt *runtime.Runtime, opts ...Option) *Server {
	t.Helper()
	s, err := New("127.0.0.1:0", rt, opts...)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndTools(t *testing.T) {
	s := newServer(t, newRuntime(t, llms.NewScriptedClient(), nil))

	rec := do(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"model":"scripted"`)

	rec = do(t, s, http.MethodGet, "/v1/tools", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tools toolsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tools))
	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.Contains(t, names, "file_operations")
	assert.Contains(t, names, "codebase_search")
}

func TestAsk(t *testing.T) {
	client := llms.NewScriptedClient("THOUGHT: trivial\nACTION: NONE\nANSWER: Four.")
	s := newServer(t, newRuntime(t, client, nil))

	rec := do(t, s, http.MethodPost, "/v1/ask", `{"query": "what is 2+2?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var answer runtime.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	assert.True(t, answer.Success)
	assert.Equal(t, runtime.ModeAgent, answer.Mode)
	assert.Equal(t, "Four.", answer.Output)
	require.NotNil(t, answer.Run)
	assert.Equal(t, 1, answer.Run.Iterations)
}

func TestAskRejectsBadRequests(t *testing.T) {
	s := newServer(t, newRuntime(t, llms.NewScriptedClient(), nil))
	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"not json", "hello", http.StatusBadRequest, "invalid request body"},
		{"unknown field", `{"question": "x"}`, http.StatusBadRequest, "invalid request body"},
		{"empty query", `{"query": "  "}`, http.StatusBadRequest, "query is required"},
		{"bad mode", `{"query": "x", "mode": "swarm"}`, http.StatusBadRequest, "invalid mode"},
		{"too large", `{"query": "` + strings.Repeat("a", maxBodyBytes) + `"}`, http.StatusRequestEntityTooLarge, "too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/v1/ask", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestCoordinate(t *testing.T) {
	client := llms.NewScriptedClient(
		`ANSWER: [{"id": 1, "task": "Count"}]`,
		"ANSWER: Three files.",
		`ANSWER: {"approved": true}`,
		"ANSWER: There are three files.",
	)
	s := newServer(t, newRuntime(t, client, nil))

	rec := do(t, s, http.MethodPost, "/v1/coordinate", `{"query": "count the files"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var answer runtime.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	assert.Equal(t, runtime.ModeCoordinate, answer.Mode)
	assert.Equal(t, "There are three files.", answer.Output)
	require.NotNil(t, answer.Task)
	assert.Len(t, answer.Task.Subtasks, 1)
}

func TestCoordinateDisabled(t *testing.T) {
	rt := newRuntime(t, llms.NewScriptedClient(), func(c *config.Config) {
		c.MultiAgent.Enabled = config.BoolPtr(false)
	})
	s := newServer(t, rt)

	rec := do(t, s, http.MethodPost, "/v1/coordinate", `{"query": "x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSwap(t *testing.T) {
	s := newServer(t, newRuntime(t, llms.NewScriptedClient().Always("ANSWER: old"), nil))
	next := newRuntime(t, llms.NewScriptedClient().Always("ANSWER: new"), nil)

	old := s.Swap(next)
	require.NotNil(t, old)
	assert.Same(t, next, s.Runtime())

	rec := do(t, s, http.MethodPost, "/v1/ask", `{"query": "which?", "mode": "agent"}`)
	assert.Contains(t, rec.Body.String(), `"output":"new"`)
}

func TestMetricsRoute(t *testing.T) {
	rt := newRuntime(t, llms.NewScriptedClient(), nil)

	rec := do(t, newServer(t, rt), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, newServer(t, rt, WithMetrics(true)), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRequiresRuntime(t *testing.T) {
	_, err := New(":0", nil)
	assert.Error(t, err)
}
