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

// Package config defines meton's explicit configuration tree and its
// loading pipeline. Nothing in this package is global: a *Config is built
// by a Loader (or Default) and handed to constructors, each of which keeps
// only the section it needs.
package config

import "fmt"

// Config is the root configuration.
type Config struct {
	Version string `yaml:"version,omitempty"`

	Logger        LoggerConfig        `yaml:"logger,omitempty"`
	LLM           LLMConfig           `yaml:"llm,omitempty"`
	Agent         AgentConfig         `yaml:"agent,omitempty"`
	MultiAgent    MultiAgentConfig    `yaml:"multi_agent,omitempty"`
	Tools         ToolsConfig         `yaml:"tools,omitempty"`
	Heuristics    HeuristicsConfig    `yaml:"heuristics,omitempty"`
	Conversation  ConversationConfig  `yaml:"conversation,omitempty"`
	Observability ObservabilityConfig `yaml:"observability,omitempty"`
	Server        ServerConfig        `yaml:"server,omitempty"`
}

// Default returns a configuration built only from defaults and environment.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	c.Logger.SetDefaults()
	c.LLM.SetDefaults()
	c.Agent.SetDefaults()
	c.MultiAgent.SetDefaults()
	c.Tools.SetDefaults()
	c.Heuristics.SetDefaults()
	c.Conversation.SetDefaults()
	c.Observability.SetDefaults()
	c.Server.SetDefaults()
}

// Validate checks every section and reports the first failure, prefixed
// with the section name.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"logger", &c.Logger},
		{"llm", &c.LLM},
		{"agent", &c.Agent},
		{"multi_agent", &c.MultiAgent},
		{"tools", &c.Tools},
		{"heuristics", &c.Heuristics},
		{"conversation", &c.Conversation},
		{"observability", &c.Observability},
		{"server", &c.Server},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// SubAgentConfig returns the agent section used by coordinator sub-agents.
func (c *Config) SubAgentConfig() AgentConfig {
	ac := c.Agent
	if c.MultiAgent.SubAgentMaxIterations > 0 {
		ac.MaxIterations = c.MultiAgent.SubAgentMaxIterations
	}
	ac.SystemPrompt = ""
	return ac
}
