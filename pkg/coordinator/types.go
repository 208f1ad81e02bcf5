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

package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/Senchy071/Meton-sub000/pkg/agent"
)

// Runner is one sub-agent. The coordinator only reads Output, Success and
// Error from the result.
type Runner interface {
	Run(ctx context.Context, query string) agent.RunResult
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, query string) agent.RunResult

func (f RunnerFunc) Run(ctx context.Context, query string) agent.RunResult {
	return f(ctx, query)
}

// Status of a SubTask.
type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRevised   Status = "completed (revised)"
)

// Terminal reports whether dependents may start.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRevised
}

// SubTask is one unit of decomposed work.
type SubTask struct {
	ID        int    `json:"id"`
	Task      string `json:"task"`
	DependsOn []int  `json:"depends_on"`
	Result    string `json:"result,omitempty"`
	Status    Status `json:"status"`
}

// ReviewResult is the reviewer's verdict.
type ReviewResult struct {
	Approved        bool   `json:"approved"`
	Feedback        string `json:"feedback"`
	RevisionsNeeded []int  `json:"revisions_needed"`
}

// Step is the trace entry of one pipeline stage.
type Step struct {
	Step      string        `json:"step"`
	Subtasks  int           `json:"subtasks,omitempty"`
	Completed int           `json:"completed,omitempty"`
	Failed    int           `json:"failed,omitempty"`
	Approved  *bool         `json:"approved,omitempty"`
	Revisions int           `json:"revisions,omitempty"`
	Fallback  bool          `json:"fallback,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// SubTaskSummary is the public view of a subtask.
type SubTaskSummary struct {
	ID     int    `json:"id"`
	Task   string `json:"task"`
	Status Status `json:"status"`
}

// TaskResult is what CoordinateTask returns. Result is always set.
type TaskResult struct {
	Result   string           `json:"result"`
	Steps    []Step           `json:"steps"`
	Success  bool             `json:"success"`
	Subtasks []SubTaskSummary `json:"subtasks"`
	Error    string           `json:"error,omitempty"`
}

// StageError reports a failure that ended the pipeline.
type StageError struct {
	Stage   string
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s stage: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s stage: %s", e.Stage, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

const (
	StagePlan       = "planning"
	StageExecute    = "execution"
	StageReview     = "review"
	StageRevise     = "revision"
	StageSynthesize = "synthesis"
)
