package coordinator

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Senchy071/Meton-sub000/pkg/agent"
	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/llms"
)

func reply(output string) Runner {
	return RunnerFunc(func(context.Context, string) agent.RunResult {
		return agent.RunResult{Output: output, Success: true}
	})
}

func failing(msg string) Runner {
	return RunnerFunc(func(context.Context, string) agent.RunResult {
		return agent.RunResult{Output: "I'm sorry", Success: false, Error: msg}
	})
}

var subtaskHeader = regexp.MustCompile(`SUBTASK (\d+):`)

// recordingExecutor answers "result N" and logs start/end events.
type recordingExecutor struct {
	mu      sync.Mutex
	events  []string
	queries map[int]string
	delay   time.Duration
}

func (r *recordingExecutor) Run(_ context.Context, query string) agent.RunResult {
	m := subtaskHeader.FindStringSubmatch(query)
	id := m[1]
	r.mu.Lock()
	r.events = append(r.events, "start "+id)
	if r.queries == nil {
		r.queries = map[int]string{}
	}
	n, _ := strconv.Atoi(id)
	r.queries[n] = query
	r.mu.Unlock()

	time.Sleep(r.delay)

	r.mu.Lock()
	r.events = append(r.events, "end "+id)
	r.mu.Unlock()
	return agent.RunResult{Output: "result " + id, Success: true}
}

func (r *recordingExecutor) position(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.events {
		if e == event {
			return i
		}
	}
	return -1
}

func newCoordinator(t *testing.T, agents Agents, mutate func(*config.MultiAgentConfig)) *Coordinator {
	t.Helper()
	cfg := config.MultiAgentConfig{}
	cfg.SetDefaults()
	if mutate != nil {
		mutate(&cfg)
	}
	if agents.Planner == nil {
		agents.Planner = reply("not json")
	}
	if agents.Executor == nil {
		agents.Executor = reply("done")
	}
	if agents.Reviewer == nil {
		agents.Reviewer = reply(`{"approved": true, "feedback": "", "revisions_needed": []}`)
	}
	if agents.Synthesizer == nil {
		agents.Synthesizer = reply("final answer")
	}
	c, err := New(agents, cfg)
	require.NoError(t, err)
	return c
}

func TestPlanFallback(t *testing.T) {
	const query = "refactor the parser and then add tests"
	tests := []struct {
		name   string
		output string
	}{
		{"not json", "not json"},
		{"broken json", `[{"id": 1, "task": "x"`},
		{"missing id", `[{"task": "x", "depends_on": []}]`},
		{"missing task", `[{"id": 1, "depends_on": []}]`},
		{"empty task", `[{"id": 1, "task": "  "}]`},
		{"empty plan", `[]`},
		{"too many", `[{"id":1,"task":"a"},{"id":2,"task":"b"},{"id":3,"task":"c"},{"id":4,"task":"d"},{"id":5,"task":"e"},{"id":6,"task":"f"}]`},
		{"duplicate id", `[{"id":1,"task":"a"},{"id":1,"task":"b"}]`},
		{"unknown dependency", `[{"id":1,"task":"a","depends_on":[9]}]`},
		{"self dependency", `[{"id":1,"task":"a","depends_on":[1]}]`},
		{"cycle", `[{"id":1,"task":"a","depends_on":[2]},{"id":2,"task":"b","depends_on":[1]}]`},
		{"string id", `[{"id":"1","task":"a"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCoordinator(t, Agents{Planner: reply(tt.output)}, nil)
			tasks, fallback := c.PlanTask(context.Background(), query)

			assert.True(t, fallback)
			require.Len(t, tasks, 1)
			assert.Equal(t, 1, tasks[0].ID)
			assert.Equal(t, query, tasks[0].Task)
			assert.Empty(t, tasks[0].DependsOn)
			assert.Equal(t, StatusPending, tasks[0].Status)
		})
	}

	t.Run("planner failure", func(t *testing.T) {
		c := newCoordinator(t, Agents{Planner: failing("model down")}, nil)
		tasks, fallback := c.PlanTask(context.Background(), query)
		assert.True(t, fallback)
		assert.Equal(t, query, tasks[0].Task)
	})
}

func TestPlanAcceptsEmbeddedArray(t *testing.T) {
	output := "Here is the plan:\n```json\n[{\"id\": 1, \"task\": \"Read the parser\"}, {\"id\": 2, \"task\": \"Write tests\", \"depends_on\": [1]}]\n```"
	c := newCoordinator(t, Agents{Planner: reply(output)}, nil)

	tasks, fallback := c.PlanTask(context.Background(), "q")

	assert.False(t, fallback)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Read the parser", tasks[0].Task)
	assert.Equal(t, []int{}, tasks[0].DependsOn)
	assert.Equal(t, []int{1}, tasks[1].DependsOn)
}

func TestCyclesAllowedWhenValidationDisabled(t *testing.T) {
	plan := `[{"id":1,"task":"a","depends_on":[2]},{"id":2,"task":"b","depends_on":[1]},{"id":3,"task":"c"}]`
	exec := &recordingExecutor{}
	c := newCoordinator(t, Agents{Planner: reply(plan), Executor: exec}, func(cfg *config.MultiAgentConfig) {
		cfg.ValidateDependencies = config.BoolPtr(false)
	})

	tasks, fallback := c.PlanTask(context.Background(), "q")
	require.False(t, fallback)

	tasks = c.ExecuteSubtasks(context.Background(), tasks)
	assert.Equal(t, StatusFailed, tasks[0].Status)
	assert.Equal(t, StatusFailed, tasks[1].Status)
	assert.Contains(t, tasks[0].Result, "Not executed")
	assert.Equal(t, StatusCompleted, tasks[2].Status)
	assert.Equal(t, []string{"start 3", "end 3"}, exec.events)
}

func TestValidateDependencies(t *testing.T) {
	tests := []struct {
		name  string
		tasks []SubTask
		want  string
	}{
		{"valid chain", []SubTask{{ID: 1}, {ID: 2, DependsOn: []int{1}}, {ID: 3, DependsOn: []int{1, 2}}}, ""},
		{"unknown", []SubTask{{ID: 1, DependsOn: []int{4}}}, "unknown subtask 4"},
		{"self", []SubTask{{ID: 2, DependsOn: []int{2}}}, "depends on itself"},
		{"three cycle", []SubTask{{ID: 1, DependsOn: []int{3}}, {ID: 2, DependsOn: []int{1}}, {ID: 3, DependsOn: []int{2}}}, "dependency cycle: 1 -> 3 -> 2 -> 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDependencies(tt.tasks)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func chainPlan() []SubTask {
	return []SubTask{
		{ID: 3, Task: "third", DependsOn: []int{1, 2}, Status: StatusPending},
		{ID: 2, Task: "second", DependsOn: []int{1}, Status: StatusPending},
		{ID: 1, Task: "first", DependsOn: []int{}, Status: StatusPending},
	}
}

func TestExecuteRespectsDependencies(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		t.Run(fmt.Sprintf("parallel=%v", parallel), func(t *testing.T) {
			exec := &recordingExecutor{delay: 5 * time.Millisecond}
			c := newCoordinator(t, Agents{Executor: exec}, func(cfg *config.MultiAgentConfig) {
				cfg.ParallelExecution = parallel
				cfg.MaxParallel = 3
			})

			tasks := c.ExecuteSubtasks(context.Background(), chainPlan())

			for _, task := range tasks {
				assert.Equal(t, StatusCompleted, task.Status, "subtask %d", task.ID)
				assert.Equal(t, fmt.Sprintf("result %d", task.ID), task.Result)
			}
			assert.Greater(t, exec.position("start 2"), exec.position("end 1"))
			assert.Greater(t, exec.position("start 3"), exec.position("end 1"))
			assert.Greater(t, exec.position("start 3"), exec.position("end 2"))

			assert.Contains(t, exec.queries[2], "result 1")
			assert.Contains(t, exec.queries[3], "result 1")
			assert.Contains(t, exec.queries[3], "result 2")
			assert.NotContains(t, exec.queries[1], "PREREQUISITE")
		})
	}
}

func TestParallelWaveRunsIndependentSubtasksTogether(t *testing.T) {
	exec := &recordingExecutor{delay: 50 * time.Millisecond}
	c := newCoordinator(t, Agents{Executor: exec}, func(cfg *config.MultiAgentConfig) {
		cfg.ParallelExecution = true
		cfg.MaxParallel = 2
	})
	tasks := []SubTask{
		{ID: 1, Task: "a", Status: StatusPending},
		{ID: 2, Task: "b", Status: StatusPending},
		{ID: 3, Task: "c", DependsOn: []int{1, 2}, Status: StatusPending},
	}

	tasks = c.ExecuteSubtasks(context.Background(), tasks)

	require.Equal(t, StatusCompleted, tasks[2].Status)
	// both independent subtasks start before either ends
	assert.Less(t, exec.position("start 1"), exec.position("end 2"))
	assert.Less(t, exec.position("start 2"), exec.position("end 1"))
	assert.Greater(t, exec.position("start 3"), exec.position("end 1"))
	assert.Greater(t, exec.position("start 3"), exec.position("end 2"))
}

func TestExecutorFailureIsRecorded(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	exec := RunnerFunc(func(_ context.Context, query string) agent.RunResult {
		mu.Lock()
		seen = append(seen, query)
		mu.Unlock()
		if strings.Contains(query, "SUBTASK 1:") {
			return agent.RunResult{Success: false, Error: "tool exploded"}
		}
		return agent.RunResult{Output: "ok", Success: true}
	})
	c := newCoordinator(t, Agents{Executor: exec}, nil)

	tasks := c.ExecuteSubtasks(context.Background(), []SubTask{
		{ID: 1, Task: "a", Status: StatusPending},
		{ID: 2, Task: "b", DependsOn: []int{1}, Status: StatusPending},
	})

	assert.Equal(t, StatusFailed, tasks[0].Status)
	assert.Equal(t, "Error: tool exploded", tasks[0].Result)
	assert.Equal(t, StatusCompleted, tasks[1].Status)
	require.Len(t, seen, 2)
	assert.Contains(t, seen[1], "Error: tool exploded")
}

func TestReviewFallback(t *testing.T) {
	tests := []struct {
		name     string
		reviewer Runner
	}{
		{"garbage", reply("looks fine to me")},
		{"broken json", reply(`{"approved": fals`)},
		{"missing approved", reply(`{"feedback": "x", "revisions_needed": [1]}`)},
		{"wrong type", reply(`{"approved": "no"}`)},
		{"reviewer failed", failing("timeout")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCoordinator(t, Agents{Reviewer: tt.reviewer}, nil)
			review, fallback := c.Review(context.Background(), "q", nil)
			assert.True(t, fallback)
			assert.True(t, review.Approved)
			assert.Equal(t, []int{}, review.RevisionsNeeded)
		})
	}
}

func TestRevisionReplacesResults(t *testing.T) {
	var revised []string
	exec := RunnerFunc(func(_ context.Context, query string) agent.RunResult {
		if strings.Contains(query, "REVIEWER FEEDBACK") {
			revised = append(revised, query)
			return agent.RunResult{Output: "better result", Success: true}
		}
		return agent.RunResult{Output: "first result", Success: true}
	})
	plan := `[{"id": 1, "task": "a"}, {"id": 2, "task": "b"}]`
	review := `{"approved": false, "feedback": "add error handling", "revisions_needed": [2, 2, 99]}`
	c := newCoordinator(t, Agents{Planner: reply(plan), Executor: exec, Reviewer: reply(review)}, nil)

	result := c.CoordinateTask(context.Background(), "build it")

	require.True(t, result.Success, result.Error)
	require.Len(t, revised, 1)
	assert.Contains(t, revised[0], "PREVIOUS RESULT:\nfirst result")
	assert.Contains(t, revised[0], "add error handling")
	assert.Equal(t, StatusCompleted, result.Subtasks[0].Status)
	assert.Equal(t, StatusRevised, result.Subtasks[1].Status)

	names := make([]string, len(result.Steps))
	for i, s := range result.Steps {
		names[i] = s.Step
	}
	assert.Equal(t, []string{StagePlan, StageExecute, StageReview, StageRevise, StageSynthesize}, names)
	assert.Equal(t, 1, result.Steps[3].Revisions)
	require.NotNil(t, result.Steps[2].Approved)
	assert.False(t, *result.Steps[2].Approved)
}

func TestCoordinateTaskApprovedSkipsRevision(t *testing.T) {
	var synthQuery string
	synth := RunnerFunc(func(_ context.Context, q string) agent.RunResult {
		synthQuery = q
		return agent.RunResult{Output: "all done", Success: true}
	})
	c := newCoordinator(t, Agents{Synthesizer: synth}, nil)

	result := c.CoordinateTask(context.Background(), "do the thing")

	require.True(t, result.Success)
	assert.Equal(t, "all done", result.Result)
	assert.Len(t, result.Steps, 4)
	assert.True(t, result.Steps[0].Fallback)
	assert.Equal(t, []SubTaskSummary{{ID: 1, Task: "do the thing", Status: StatusCompleted}}, result.Subtasks)
	assert.Contains(t, synthQuery, "USER REQUEST: do the thing")
	assert.Contains(t, synthQuery, "done")
}

func TestSynthesizerFallbackJoinsResults(t *testing.T) {
	c := newCoordinator(t, Agents{Synthesizer: failing("no model")}, nil)
	result := c.CoordinateTask(context.Background(), "q")

	require.True(t, result.Success)
	assert.Equal(t, "Subtask 1 (q): done", result.Result)
	assert.True(t, result.Steps[len(result.Steps)-1].Fallback)
}

func TestCoordinateTaskNeverPanics(t *testing.T) {
	boom := RunnerFunc(func(context.Context, string) agent.RunResult { panic("planner bug") })
	c := newCoordinator(t, Agents{Planner: boom}, nil)

	result := c.CoordinateTask(context.Background(), "q")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "planner bug")
	assert.True(t, strings.HasPrefix(result.Result, "I'm sorry"))
}

func TestCoordinateTaskCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newCoordinator(t, Agents{}, nil)

	result := c.CoordinateTask(ctx, "q")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "planning stage: cancelled")
	assert.Empty(t, result.Steps)
}

func TestNewRequiresAllAgents(t *testing.T) {
	_, err := New(Agents{Planner: reply("x")}, config.MultiAgentConfig{})
	assert.Error(t, err)
}

func TestNewDefaultPipeline(t *testing.T) {
	client := llms.NewScriptedClient(
		`THOUGHT: one step is enough
ACTION: NONE
ANSWER: [{"id": 1, "task": "Explain the greeting", "depends_on": []}]`,
		"THOUGHT: easy\nACTION: NONE\nANSWER: The greeting is hello.",
		`ANSWER: {"approved": true, "feedback": "", "revisions_needed": []}`,
		"ANSWER: The program greets with hello.",
	)
	cfg := config.Default()
	c, err := NewDefault(client, nil, cfg, nil, nil)
	require.NoError(t, err)

	result := c.CoordinateTask(context.Background(), "explain the greeting")

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "The program greets with hello.", result.Result)
	assert.Equal(t, 4, client.Calls())
	prompts := client.Prompts()
	assert.Contains(t, prompts[0], "planning agent")
	assert.Contains(t, prompts[1], "SUBTASK 1: Explain the greeting")
	assert.Contains(t, prompts[2], "The greeting is hello.")
}
