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

// Package conversation holds the conversation collaborator shared by the
// reasoning loops: a bounded in-memory history and an optional SQL store
// that persists it as sessions.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Senchy071/Meton-sub000/pkg/utils"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one conversation turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// History is a bounded, concurrency-safe message log. When a store is
// attached every added message is also persisted under the session id.
type History struct {
	mu          sync.RWMutex
	messages    []Message
	maxMessages int

	counter   *utils.TokenCounter
	store     *Store
	sessionID string
	logger    *slog.Logger
}

type Option func(*History)

// WithTokenCounter sets the counter used by Window. Without one, tokens are
// estimated from length.
func WithTokenCounter(tc *utils.TokenCounter) Option {
	return func(h *History) {
		h.counter = tc
	}
}

// WithStore persists messages to store under sessionID.
func WithStore(store *Store, sessionID string) Option {
	return func(h *History) {
		h.store = store
		h.sessionID = sessionID
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *History) {
		h.logger = logger
	}
}

func NewHistory(maxMessages int, opts ...Option) *History {
	if maxMessages <= 0 {
		maxMessages = 1000
	}
	h := &History{maxMessages: maxMessages}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default().With("component", "conversation")
	}
	return h
}

// LoadHistory restores a persisted session into a new History bound to it.
func LoadHistory(ctx context.Context, store *Store, sessionID string, maxMessages int, opts ...Option) (*History, error) {
	msgs, err := store.Messages(ctx, sessionID, maxMessages)
	if err != nil {
		return nil, err
	}
	h := NewHistory(maxMessages, append(opts, WithStore(store, sessionID))...)
	h.messages = msgs
	return h, nil
}

// SessionID returns the bound session id, empty when not persisted.
func (h *History) SessionID() string {
	return h.sessionID
}

// Add appends a message, drops the oldest beyond the cap and persists it
// when a store is attached.
func (h *History) Add(ctx context.Context, role, content string) error {
	msg := Message{Role: role, Content: content, CreatedAt: time.Now()}

	h.mu.Lock()
	h.messages = append(h.messages, msg)
	if over := len(h.messages) - h.maxMessages; over > 0 {
		h.messages = append([]Message(nil), h.messages[over:]...)
	}
	h.mu.Unlock()

	if h.store == nil {
		return nil
	}
	if err := h.store.AppendMessage(ctx, h.sessionID, msg); err != nil {
		return fmt.Errorf("failed to persist message: %w", err)
	}
	return nil
}

// Messages returns a copy of the whole history.
func (h *History) Messages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Message(nil), h.messages...)
}

// Recent returns the last n messages in order.
func (h *History) Recent(n int) []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 || n >= len(h.messages) {
		return append([]Message(nil), h.messages...)
	}
	return append([]Message(nil), h.messages[len(h.messages)-n:]...)
}

// Window returns at most maxMessages recent messages whose combined token
// count fits maxTokens. Zero disables either bound.
func (h *History) Window(maxMessages, maxTokens int) []Message {
	recent := h.Recent(maxMessages)
	if maxTokens <= 0 || len(recent) == 0 {
		return recent
	}

	in := make([]utils.Message, len(recent))
	for i, m := range recent {
		in[i] = utils.Message{Role: m.Role, Content: m.Content}
	}
	fitted := h.counter.FitWithinLimit(in, maxTokens)
	return recent[len(recent)-len(fitted):]
}

// Render formats the window as "role: content" lines.
func (h *History) Render(maxMessages, maxTokens int) string {
	window := h.Window(maxMessages, maxTokens)
	var sb strings.Builder
	for _, m := range window {
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Clear empties the in-memory history. Persisted messages are kept.
func (h *History) Clear() {
	h.mu.Lock()
	h.messages = nil
	h.mu.Unlock()
	h.logger.Debug("Conversation cleared", "session", h.sessionID)
}
