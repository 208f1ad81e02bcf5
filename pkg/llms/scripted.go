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
	"errors"
	"sync"
)

var ErrScriptExhausted = errors.New("scripted client has no responses left")

// ScriptedReply is one step of a ScriptedClient script.
type ScriptedReply struct {
	Text string
	Err  error
}

// ScriptedClient replays a fixed sequence of replies and records every
// prompt it receives. Once the script runs out it repeats Fallback when set,
// otherwise it returns ErrScriptExhausted.
type ScriptedClient struct {
	mu       sync.Mutex
	replies  []ScriptedReply
	prompts  []string
	Fallback *ScriptedReply
}

// NewScriptedClient builds a client that answers with responses in order.
func NewScriptedClient(responses ...string) *ScriptedClient {
	c := &ScriptedClient{}
	for _, r := range responses {
		c.replies = append(c.replies, ScriptedReply{Text: r})
	}
	return c
}

// Then appends a reply to the script.
func (c *ScriptedClient) Then(text string, err error) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, ScriptedReply{Text: text, Err: err})
	return c
}

// Always sets the reply used once the script is exhausted.
func (c *ScriptedClient) Always(text string) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Fallback = &ScriptedReply{Text: text}
	return c
}

func (c *ScriptedClient) Model() string { return "scripted" }

func (c *ScriptedClient) Invoke(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.prompts = append(c.prompts, prompt)
	if len(c.replies) == 0 {
		if c.Fallback != nil {
			return c.Fallback.Text, c.Fallback.Err
		}
		return "", ErrScriptExhausted
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return reply.Text, reply.Err
}

// Prompts returns a copy of the prompts received so far.
func (c *ScriptedClient) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

// Calls returns how many times Invoke ran.
func (c *ScriptedClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}
