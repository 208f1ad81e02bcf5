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
	"fmt"
	"strings"
)

const plannerInstructions = `You are the planning agent. Break the user's request into at most %d subtasks.
Respond with ANSWER containing only a JSON array. Each element has:
  "id": integer, unique
  "task": what to do, as an instruction another agent can follow on its own
  "depends_on": list of ids that must finish first (empty when independent)
Keep the plan minimal. A simple request is a single subtask.

USER REQUEST: `

const executorInstructions = `You are the execution agent. Complete the subtask below using the available tools.
Report concrete findings from tool output.

`

const reviewerInstructions = `You are the review agent. Check whether the subtask results fully answer the user's request.
Respond with ANSWER containing only a JSON object:
  {"approved": true|false, "feedback": "what is missing or wrong", "revisions_needed": [ids of subtasks to redo]}

`

const synthesizerInstructions = `You are the synthesis agent. Combine the subtask results into one clear answer to the user's request.
Use only what the results contain.

`

func planQuery(query string, maxSubtasks int) string {
	return fmt.Sprintf(plannerInstructions, maxSubtasks) + query
}

func executeQuery(task SubTask, deps []SubTask) string {
	var sb strings.Builder
	sb.WriteString(executorInstructions)
	fmt.Fprintf(&sb, "SUBTASK %d: %s\n", task.ID, task.Task)
	if len(deps) > 0 {
		sb.WriteString("\nRESULTS OF PREREQUISITE SUBTASKS:\n")
		for _, d := range deps {
			fmt.Fprintf(&sb, "[Subtask %d: %s] (%s)\n%s\n", d.ID, d.Task, d.Status, d.Result)
		}
	}
	return sb.String()
}

func reviseQuery(task SubTask, feedback string) string {
	var sb strings.Builder
	sb.WriteString(executorInstructions)
	fmt.Fprintf(&sb, "SUBTASK %d: %s\n\nPREVIOUS RESULT:\n%s\n\nREVIEWER FEEDBACK:\n%s\n\nRedo the subtask and address the feedback.\n",
		task.ID, task.Task, task.Result, feedback)
	return sb.String()
}

func renderResults(tasks []SubTask) string {
	var sb strings.Builder
	for _, t := range tasks {
		fmt.Fprintf(&sb, "[Subtask %d: %s] (%s)\n%s\n\n", t.ID, t.Task, t.Status, t.Result)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func reviewQuery(query string, tasks []SubTask) string {
	return reviewerInstructions + "USER REQUEST: " + query + "\n\nSUBTASK RESULTS:\n" + renderResults(tasks)
}

func synthesizeQuery(query string, tasks []SubTask) string {
	return synthesizerInstructions + "USER REQUEST: " + query + "\n\nSUBTASK RESULTS:\n" + renderResults(tasks)
}
