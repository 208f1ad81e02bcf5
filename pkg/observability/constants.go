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

package observability

const (
	AttrAgentName       = "agent.name"
	AttrAgentIterations = "agent.iterations"
	AttrToolName        = "tool.name"
	AttrToolSuccess     = "tool.success"
	AttrLLMModel        = "llm.model"
	AttrLLMProvider     = "llm.provider"
	AttrLLMTokensInput  = "llm.tokens.input"
	AttrLLMTokensOutput = "llm.tokens.output"
	AttrStageName       = "coordinator.stage"
	AttrSubtaskCount    = "coordinator.subtasks"

	SpanAgentRun         = "agent.run"
	SpanLLMRequest       = "agent.llm_request"
	SpanToolExecution    = "agent.tool_execution"
	SpanCoordinatorStage = "coordinator.stage"

	DefaultServiceName = "meton"
	meterName          = "github.com/Senchy071/Meton-sub000"
)
