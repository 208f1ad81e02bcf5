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

// Package coordinator composes four reasoning loops into a pipeline for
// complex requests: plan, execute with dependencies, review, revise when
// asked to, and synthesize.
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/observability"
	"github.com/Senchy071/Meton-sub000/pkg/parser"
)

// Agents are the four sub-agents of the pipeline.
type Agents struct {
	Planner     Runner
	Executor    Runner
	Reviewer    Runner
	Synthesizer Runner
}

type Coordinator struct {
	agents Agents
	cfg    config.MultiAgentConfig
	logger *slog.Logger
}

type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func New(agents Agents, cfg config.MultiAgentConfig, opts ...Option) (*Coordinator, error) {
	if agents.Planner == nil || agents.Executor == nil || agents.Reviewer == nil || agents.Synthesizer == nil {
		return nil, fmt.Errorf("planner, executor, reviewer and synthesizer are all required")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid multi-agent config: %w", err)
	}

	c := &Coordinator{agents: agents, cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default().With("component", "coordinator")
	}
	return c, nil
}

// CoordinateTask runs the full pipeline. It never panics and always
// returns a Result.
func (c *Coordinator) CoordinateTask(ctx context.Context, query string) (result TaskResult) {
	start := time.Now()
	var steps []Step
	var tasks []SubTask

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Coordinator panicked", "panic", r)
			result = failure(fmt.Errorf("panic: %v", r), steps, tasks)
		}
		c.logger.Info("Coordination finished", "success", result.Success, "subtasks", len(result.Subtasks), "duration", time.Since(start))
	}()

	c.logger.Info("Coordination started", "query", observability.TruncateAttr(query, 120))

	var err error
	run := func(stage string, fn func(ctx context.Context) (Step, error)) {
		if err != nil {
			return
		}
		if cerr := ctx.Err(); cerr != nil {
			err = &StageError{Stage: stage, Message: "cancelled", Err: cerr}
			return
		}
		var step Step
		step, err = c.stage(ctx, stage, fn)
		if err == nil && step.Step != "" {
			steps = append(steps, step)
		}
	}

	run(StagePlan, func(ctx context.Context) (Step, error) {
		var fallback bool
		tasks, fallback = c.PlanTask(ctx, query)
		return Step{Step: StagePlan, Subtasks: len(tasks), Fallback: fallback}, nil
	})

	run(StageExecute, func(ctx context.Context) (Step, error) {
		tasks = c.ExecuteSubtasks(ctx, tasks)
		completed, failed := counts(tasks)
		return Step{Step: StageExecute, Subtasks: len(tasks), Completed: completed, Failed: failed}, nil
	})

	var review ReviewResult
	run(StageReview, func(ctx context.Context) (Step, error) {
		var fallback bool
		review, fallback = c.Review(ctx, query, tasks)
		approved := review.Approved
		return Step{Step: StageReview, Approved: &approved, Revisions: len(review.RevisionsNeeded), Fallback: fallback}, nil
	})

	if !review.Approved && len(review.RevisionsNeeded) > 0 {
		run(StageRevise, func(ctx context.Context) (Step, error) {
			var revised int
			tasks, revised = c.Revise(ctx, tasks, review)
			return Step{Step: StageRevise, Revisions: revised}, nil
		})
	}

	var answer string
	run(StageSynthesize, func(ctx context.Context) (Step, error) {
		var fallback bool
		answer, fallback = c.Synthesize(ctx, query, tasks)
		return Step{Step: StageSynthesize, Fallback: fallback}, nil
	})

	if err != nil {
		return failure(err, steps, tasks)
	}
	return TaskResult{
		Result:   answer,
		Steps:    steps,
		Success:  true,
		Subtasks: summaries(tasks),
	}
}

// stage wraps one pipeline stage in a span and records its metrics.
func (c *Coordinator) stage(ctx context.Context, name string, fn func(ctx context.Context) (Step, error)) (Step, error) {
	start := time.Now()
	ctx, span := observability.GetTracer("meton.coordinator").Start(ctx, observability.SpanCoordinatorStage)
	span.SetAttributes(attribute.String(observability.AttrStageName, name))
	defer span.End()

	step, err := fn(ctx)
	step.Duration = time.Since(start)
	observability.GetGlobalMetrics().RecordCoordinatorStage(ctx, name, step.Duration, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return step, err
	}
	span.SetAttributes(attribute.Int(observability.AttrSubtaskCount, step.Subtasks))
	span.SetStatus(codes.Ok, "success")
	c.logger.Debug("Stage finished", "stage", name, "duration", step.Duration)
	return step, nil
}

func failure(err error, steps []Step, tasks []SubTask) TaskResult {
	return TaskResult{
		Result:   fmt.Sprintf("I'm sorry, the multi-agent pipeline failed: %v", err),
		Steps:    steps,
		Success:  false,
		Subtasks: summaries(tasks),
		Error:    err.Error(),
	}
}

func summaries(tasks []SubTask) []SubTaskSummary {
	out := make([]SubTaskSummary, len(tasks))
	for i, t := range tasks {
		out[i] = SubTaskSummary{ID: t.ID, Task: t.Task, Status: t.Status}
	}
	return out
}

func counts(tasks []SubTask) (completed, failed int) {
	for _, t := range tasks {
		switch t.Status {
		case StatusCompleted, StatusRevised:
			completed++
		case StatusFailed:
			failed++
		}
	}
	return completed, failed
}

// fallbackPlan is the single subtask covering the whole query.
func fallbackPlan(query string) []SubTask {
	return []SubTask{{ID: 1, Task: query, DependsOn: []int{}, Status: StatusPending}}
}

type plannedTask struct {
	ID        *int    `json:"id"`
	Task      *string `json:"task"`
	DependsOn []int   `json:"depends_on"`
}

// PlanTask asks the planner for subtasks. Any malformed plan yields the
// single-subtask fallback, reported by the second return value.
func (c *Coordinator) PlanTask(ctx context.Context, query string) ([]SubTask, bool) {
	res := c.agents.Planner.Run(ctx, planQuery(query, c.cfg.MaxSubtasks))
	if !res.Success {
		c.logger.Warn("Planner failed, using single subtask", "error", res.Error)
		return fallbackPlan(query), true
	}

	tasks, err := c.parsePlan(res.Output)
	if err != nil {
		c.logger.Warn("Rejected plan, using single subtask", "reason", err)
		return fallbackPlan(query), true
	}
	c.logger.Info("Plan accepted", "subtasks", len(tasks))
	return tasks, false
}

func (c *Coordinator) parsePlan(output string) ([]SubTask, error) {
	raw, ok := parser.ExtractJSONArray(output)
	if !ok {
		return nil, fmt.Errorf("no JSON array in planner output")
	}
	var planned []plannedTask
	if err := json.Unmarshal([]byte(raw), &planned); err != nil {
		return nil, fmt.Errorf("invalid plan JSON: %w", err)
	}
	if len(planned) == 0 {
		return nil, fmt.Errorf("empty plan")
	}
	if len(planned) > c.cfg.MaxSubtasks {
		return nil, fmt.Errorf("plan has %d subtasks, maximum is %d", len(planned), c.cfg.MaxSubtasks)
	}

	tasks := make([]SubTask, 0, len(planned))
	seen := make(map[int]bool, len(planned))
	for i, p := range planned {
		if p.ID == nil || p.Task == nil || strings.TrimSpace(*p.Task) == "" {
			return nil, fmt.Errorf("subtask %d is missing id or task", i+1)
		}
		if seen[*p.ID] {
			return nil, fmt.Errorf("duplicate subtask id %d", *p.ID)
		}
		seen[*p.ID] = true
		deps := p.DependsOn
		if deps == nil {
			deps = []int{}
		}
		tasks = append(tasks, SubTask{ID: *p.ID, Task: strings.TrimSpace(*p.Task), DependsOn: deps, Status: StatusPending})
	}

	if config.BoolValue(c.cfg.ValidateDependencies, true) {
		if err := ValidateDependencies(tasks); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// ValidateDependencies rejects unknown ids, self dependencies and cycles.
func ValidateDependencies(tasks []SubTask) error {
	index := make(map[int]int, len(tasks))
	for i, t := range tasks {
		index[t.ID] = i
	}
	for _, t := range tasks {
		for _, d := range t.DependsOn {
			if d == t.ID {
				return fmt.Errorf("subtask %d depends on itself", t.ID)
			}
			if _, ok := index[d]; !ok {
				return fmt.Errorf("subtask %d depends on unknown subtask %d", t.ID, d)
			}
		}
	}

	const (
		unvisited = iota
		visiting
		visited
	)
	color := make([]int, len(tasks))
	var path []int
	var visit func(i int) error
	visit = func(i int) error {
		color[i] = visiting
		path = append(path, tasks[i].ID)
		for _, d := range tasks[i].DependsOn {
			j := index[d]
			switch color[j] {
			case visiting:
				return fmt.Errorf("dependency cycle: %s", cyclePath(path, d))
			case unvisited:
				if err := visit(j); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		color[i] = visited
		return nil
	}
	for i := range tasks {
		if color[i] == unvisited {
			if err := visit(i); err != nil {
				return err
			}
		}
	}
	return nil
}

func cyclePath(path []int, back int) string {
	start := 0
	for i, id := range path {
		if id == back {
			start = i
			break
		}
	}
	parts := make([]string, 0, len(path)-start+1)
	for _, id := range path[start:] {
		parts = append(parts, fmt.Sprint(id))
	}
	parts = append(parts, fmt.Sprint(back))
	return strings.Join(parts, " -> ")
}

// ExecuteSubtasks dispatches subtasks whose dependencies are terminal,
// scanning at most 2×N times. Failures are recorded and do not stop the
// batch. Subtasks still pending after the last scan are marked failed.
func (c *Coordinator) ExecuteSubtasks(ctx context.Context, tasks []SubTask) []SubTask {
	tasks = append([]SubTask(nil), tasks...)
	index := make(map[int]int, len(tasks))
	for i, t := range tasks {
		index[t.ID] = i
	}

	ready := func(t SubTask) bool {
		if t.Status != StatusPending {
			return false
		}
		for _, d := range t.DependsOn {
			j, ok := index[d]
			if !ok || !tasks[j].Status.Terminal() {
				return false
			}
		}
		return true
	}
	depsOf := func(t SubTask) []SubTask {
		deps := make([]SubTask, 0, len(t.DependsOn))
		for _, d := range t.DependsOn {
			deps = append(deps, tasks[index[d]])
		}
		return deps
	}

	ceiling := 2 * len(tasks)
	for scan := 0; scan < ceiling && !allTerminal(tasks); scan++ {
		if ctx.Err() != nil {
			break
		}
		var dispatched int
		if c.cfg.ParallelExecution {
			dispatched = c.dispatchWave(ctx, tasks, ready, depsOf)
		} else {
			for i := range tasks {
				if !ready(tasks[i]) {
					continue
				}
				tasks[i] = c.runSubtask(ctx, tasks[i], depsOf(tasks[i]))
				dispatched++
			}
		}
		if dispatched == 0 {
			break
		}
	}

	for i := range tasks {
		if !tasks[i].Status.Terminal() {
			tasks[i].Status = StatusFailed
			tasks[i].Result = "Not executed: dependencies could not be satisfied"
			c.logger.Warn("Subtask never became ready", "subtask", tasks[i].ID)
		}
	}
	return tasks
}

// dispatchWave runs every currently ready subtask concurrently, bounded by
// MaxParallel. Queries are built before any goroutine starts so workers
// never read shared entries.
func (c *Coordinator) dispatchWave(ctx context.Context, tasks []SubTask, ready func(SubTask) bool, depsOf func(SubTask) []SubTask) int {
	type job struct {
		i    int
		deps []SubTask
	}
	var wave []job
	for i := range tasks {
		if ready(tasks[i]) {
			wave = append(wave, job{i: i, deps: depsOf(tasks[i])})
		}
	}

	results := make([]SubTask, len(wave))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxParallel)
	for k, j := range wave {
		task := tasks[j.i]
		g.Go(func() error {
			results[k] = c.runSubtask(gctx, task, j.deps)
			return nil
		})
	}
	_ = g.Wait()

	for k, j := range wave {
		tasks[j.i] = results[k]
	}
	return len(wave)
}

func (c *Coordinator) runSubtask(ctx context.Context, task SubTask, deps []SubTask) SubTask {
	task.Status = StatusExecuting
	c.logger.Info("Executing subtask", "subtask", task.ID, "depends_on", task.DependsOn)

	res := c.agents.Executor.Run(ctx, executeQuery(task, deps))
	if !res.Success {
		task.Status = StatusFailed
		task.Result = "Error: " + res.Error
		c.logger.Warn("Subtask failed", "subtask", task.ID, "error", res.Error)
		return task
	}
	task.Status = StatusCompleted
	task.Result = res.Output
	return task
}

func allTerminal(tasks []SubTask) bool {
	for _, t := range tasks {
		if !t.Status.Terminal() {
			return false
		}
	}
	return true
}

type reviewPayload struct {
	Approved        *bool  `json:"approved"`
	Feedback        string `json:"feedback"`
	RevisionsNeeded []int  `json:"revisions_needed"`
}

// approvedReview is the verdict used whenever the reviewer's output is
// unusable.
func approvedReview() ReviewResult {
	return ReviewResult{Approved: true, RevisionsNeeded: []int{}}
}

// Review asks the reviewer for a verdict. Unusable output counts as
// approval, reported by the second return value.
func (c *Coordinator) Review(ctx context.Context, query string, tasks []SubTask) (ReviewResult, bool) {
	res := c.agents.Reviewer.Run(ctx, reviewQuery(query, tasks))
	if !res.Success {
		c.logger.Warn("Reviewer failed, treating as approved", "error", res.Error)
		return approvedReview(), true
	}
	raw, ok := parser.ExtractJSONObject(res.Output)
	if !ok {
		return approvedReview(), true
	}
	var p reviewPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.Approved == nil {
		return approvedReview(), true
	}

	review := ReviewResult{Approved: *p.Approved, Feedback: p.Feedback, RevisionsNeeded: p.RevisionsNeeded}
	if review.RevisionsNeeded == nil {
		review.RevisionsNeeded = []int{}
	}
	c.logger.Info("Review finished", "approved", review.Approved, "revisions", len(review.RevisionsNeeded))
	return review, false
}

// Revise re-runs each subtask the reviewer listed with its previous result
// and the feedback. Unknown ids are ignored. A failed revision keeps the
// previous result.
func (c *Coordinator) Revise(ctx context.Context, tasks []SubTask, review ReviewResult) ([]SubTask, int) {
	tasks = append([]SubTask(nil), tasks...)
	index := make(map[int]int, len(tasks))
	for i, t := range tasks {
		index[t.ID] = i
	}

	revised := 0
	done := make(map[int]bool)
	for _, id := range review.RevisionsNeeded {
		i, ok := index[id]
		if !ok || done[id] {
			continue
		}
		done[id] = true

		res := c.agents.Executor.Run(ctx, reviseQuery(tasks[i], review.Feedback))
		if !res.Success {
			c.logger.Warn("Revision failed, keeping previous result", "subtask", id, "error", res.Error)
			continue
		}
		tasks[i].Result = res.Output
		tasks[i].Status = StatusRevised
		revised++
	}
	return tasks, revised
}

// Synthesize combines the results into the final answer. When the
// synthesizer fails the results are joined instead.
func (c *Coordinator) Synthesize(ctx context.Context, query string, tasks []SubTask) (string, bool) {
	res := c.agents.Synthesizer.Run(ctx, synthesizeQuery(query, tasks))
	if res.Success && strings.TrimSpace(res.Output) != "" {
		return res.Output, false
	}
	c.logger.Warn("Synthesizer failed, joining subtask results", "error", res.Error)

	var sb strings.Builder
	for _, t := range tasks {
		fmt.Fprintf(&sb, "Subtask %d (%s): %s\n\n", t.ID, t.Task, t.Result)
	}
	return strings.TrimSpace(sb.String()), true
}
