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

package llms

import (
	"context"
	"fmt"

	"github.com/Senchy071/Meton-sub000/pkg/config"
)

// NewClient builds the client for cfg.Provider.
func NewClient(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case config.LLMProviderOllama, "":
		return NewOllamaClient(cfg), nil
	case config.LLMProviderGemini:
		return NewGeminiClient(ctx, cfg)
	case config.LLMProviderOpenAI, config.LLMProviderAnthropic, config.LLMProviderGroq, config.LLMProviderMistral:
		return NewGollmClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
