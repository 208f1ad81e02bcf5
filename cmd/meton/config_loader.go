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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/config/provider"
)

const defaultConfigFile = "meton.yaml"

// loadConfig loads the configured source, falling back to ./meton.yaml and
// then to a zero-config default built from the environment. The loader is
// nil for the zero-config default. Flag overrides are applied and the
// result is validated.
func (c *CLI) loadConfig(ctx context.Context, opts ...config.LoaderOption) (*config.Config, *config.Loader, error) {
	source := c.Config
	if source == "" && c.ConfigType == string(provider.TypeFile) {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			source = defaultConfigFile
		}
	}

	if source == "" {
		if c.ConfigType != string(provider.TypeFile) {
			return nil, nil, fmt.Errorf("--config is required for %s sources", c.ConfigType)
		}
		cfg := config.Default()
		if err := c.applyOverrides(cfg); err != nil {
			return nil, nil, err
		}
		slog.Debug("Using zero-config defaults", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
		return cfg, nil, nil
	}

	cfg, loader, err := config.LoadConfig(ctx, provider.ProviderConfig{
		Type:      provider.Type(c.ConfigType),
		Path:      source,
		Endpoints: c.ConfigEndpoints,
	}, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config %s: %w", source, err)
	}
	if err := c.applyOverrides(cfg); err != nil {
		_ = loader.Close()
		return nil, nil, err
	}
	slog.Debug("Config loaded", "source", source, "type", c.ConfigType)
	return cfg, loader, nil
}

// applyOverrides applies the LLM flags to cfg and revalidates it. Switching
// provider resets the provider-specific fields that were not also given.
func (c *CLI) applyOverrides(cfg *config.Config) error {
	llm := &cfg.LLM
	if c.Provider != "" {
		p := config.LLMProvider(strings.ToLower(c.Provider))
		if p != llm.Provider {
			llm.Provider = p
			llm.Model = ""
			llm.BaseURL = ""
			llm.APIKey = ""
		}
	}
	if c.Model != "" {
		llm.Model = c.Model
	}
	if c.BaseURL != "" {
		llm.BaseURL = c.BaseURL
	}
	if c.APIKey != "" {
		llm.APIKey = c.APIKey
	}
	llm.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
