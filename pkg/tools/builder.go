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

package tools

import (
	"fmt"

	"github.com/Senchy071/Meton-sub000/pkg/config"
)

// NewDefaultRegistry registers the built-in tools configured by cfg. Disabled
// tools are registered too so calls to them fail with a clear message.
func NewDefaultRegistry(cfg config.ToolsConfig, opts ...RegistryOption) (*ToolRegistry, error) {
	opts = append([]RegistryOption{WithOutputLimits(cfg.OutputLimits)}, opts...)
	reg := NewToolRegistry(opts...)

	fileOps, err := NewFileOperationsTool(cfg.FileOperations, cfg.WorkingDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", FileOperationsName, err)
	}
	search, err := NewCodebaseSearchTool(cfg.CodebaseSearch, cfg.WorkingDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", CodebaseSearchName, err)
	}

	for _, tool := range []Tool{
		fileOps,
		NewCodeExecutorTool(cfg.CodeExecutor, cfg.WorkingDirectory),
		NewWebSearchTool(cfg.WebSearch),
		search,
	} {
		if err := reg.RegisterTool(tool); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
