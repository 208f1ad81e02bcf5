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

// Package runtime assembles a working assistant from configuration: the
// language model client, the tool registry, the conversation, the reasoning
// loop and the coordinator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Senchy071/Meton-sub000/pkg/agent"
	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/conversation"
	"github.com/Senchy071/Meton-sub000/pkg/coordinator"
	"github.com/Senchy071/Meton-sub000/pkg/llms"
	"github.com/Senchy071/Meton-sub000/pkg/tools"
	"github.com/Senchy071/Meton-sub000/pkg/utils"
)

type Runtime struct {
	cfg         *config.Config
	client      llms.Client
	registry    *tools.ToolRegistry
	history     *conversation.History
	store       *conversation.Store
	agent       *agent.Agent
	coordinator *coordinator.Coordinator
	logger      *slog.Logger
}

type Options struct {
	// Client replaces the client built from cfg.LLM.
	Client llms.Client

	// Stateless skips the conversation entirely. The HTTP server uses it
	// so concurrent requests do not share context.
	Stateless bool

	// SessionID resumes a stored session. Empty starts a new one when the
	// store is enabled.
	SessionID    string
	SessionTitle string

	// EstimateTokens skips loading a tokenizer encoding.
	EstimateTokens bool

	Logger *slog.Logger
}

// New builds a Runtime. cfg must already be validated.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runtime{cfg: cfg, client: opts.Client, logger: logger}

	var err error
	if r.client == nil {
		r.client, err = llms.NewClient(ctx, cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to create language model client: %w", err)
		}
	}

	r.registry, err = tools.NewDefaultRegistry(cfg.Tools, tools.WithRegistryLogger(logger.With("component", "tools")))
	if err != nil {
		return nil, fmt.Errorf("failed to create tool registry: %w", err)
	}

	if !opts.Stateless {
		if err := r.openConversation(ctx, opts); err != nil {
			r.Close()
			return nil, err
		}
	}

	agentOpts := []agent.Option{agent.WithLogger(logger.With("component", "agent"))}
	if r.history != nil {
		agentOpts = append(agentOpts, agent.WithConversation(r.history))
	}
	r.agent, err = agent.New(r.client, r.registry, cfg.Agent, cfg.Heuristics, agentOpts...)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	if config.BoolValue(cfg.MultiAgent.Enabled, true) {
		r.coordinator, err = coordinator.NewDefault(r.client, r.registry, cfg, r.history, logger)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to create coordinator: %w", err)
		}
	}

	logger.Debug("Runtime ready",
		"model", r.client.Model(),
		"tools", len(r.registry.EnabledTools()),
		"multi_agent", r.coordinator != nil,
		"session", r.SessionID())
	return r, nil
}

func (r *Runtime) openConversation(ctx context.Context, opts Options) error {
	histOpts := []conversation.Option{conversation.WithLogger(r.logger.With("component", "conversation"))}
	if !opts.EstimateTokens {
		counter, err := utils.NewTokenCounter(r.client.Model())
		if err != nil {
			r.logger.Debug("Token encoding unavailable, estimating", "error", err)
		}
		histOpts = append(histOpts, conversation.WithTokenCounter(counter))
	}

	limit := r.cfg.Conversation.MaxMessages
	if !r.cfg.Conversation.Store.Enabled {
		if opts.SessionID != "" {
			return fmt.Errorf("session %s cannot be resumed: conversation store is disabled", opts.SessionID)
		}
		r.history = conversation.NewHistory(limit, histOpts...)
		return nil
	}

	store, err := conversation.OpenStore(ctx, r.cfg.Conversation.Store)
	if err != nil {
		return err
	}
	r.store = store

	if opts.SessionID != "" {
		if _, err := store.GetSession(ctx, opts.SessionID); err != nil {
			return fmt.Errorf("failed to resume session %s: %w", opts.SessionID, err)
		}
		r.history, err = conversation.LoadHistory(ctx, store, opts.SessionID, limit, histOpts...)
		return err
	}

	session, err := store.CreateSession(ctx, opts.SessionTitle)
	if err != nil {
		return err
	}
	r.history = conversation.NewHistory(limit, append(histOpts, conversation.WithStore(store, session.ID))...)
	return nil
}

func (r *Runtime) Config() *config.Config { return r.cfg }

func (r *Runtime) Client() llms.Client { return r.client }

func (r *Runtime) Registry() *tools.ToolRegistry { return r.registry }

func (r *Runtime) Agent() *agent.Agent { return r.agent }

// Coordinator is nil when multi_agent.enabled is false.
func (r *Runtime) Coordinator() *coordinator.Coordinator { return r.coordinator }

// History is nil for stateless runtimes.
func (r *Runtime) History() *conversation.History { return r.history }

// SessionID is empty unless the conversation is persisted.
func (r *Runtime) SessionID() string {
	if r.history == nil {
		return ""
	}
	return r.history.SessionID()
}

func (r *Runtime) Close() error {
	var errs []error
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("conversation store: %w", err))
		}
		r.store = nil
	}
	return errors.Join(errs...)
}
