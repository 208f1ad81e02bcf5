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
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Senchy071/Meton-sub000/pkg/conversation"
)

type SessionsCmd struct {
	List   SessionsListCmd   `cmd:"" default:"1" help:"List stored sessions."`
	Show   SessionsShowCmd   `cmd:"" help:"Print a session's messages."`
	Delete SessionsDeleteCmd `cmd:"" help:"Delete a session."`
}

func (c *CLI) openStore(ctx context.Context) (*conversation.Store, func(), error) {
	cfg, loader, err := c.loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	if loader != nil {
		defer loader.Close()
	}
	if !cfg.Conversation.Store.Enabled {
		return nil, nil, errors.New("conversation store is disabled (set conversation.store.enabled: true)")
	}
	store, err := conversation.OpenStore(ctx, cfg.Conversation.Store)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

type SessionsListCmd struct{}

func (c *SessionsListCmd) Run(cli *CLI) error {
	ctx := context.Background()
	store, done, err := cli.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMESSAGES\tUPDATED\tTITLE")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.ID, s.MessageCount, s.UpdatedAt.Local().Format(time.DateTime), s.Title)
	}
	return w.Flush()
}

type SessionsShowCmd struct {
	ID    string `arg:"" help:"Session id."`
	Limit int    `help:"Show only the last N messages (0 = all)."`
}

func (c *SessionsShowCmd) Run(cli *CLI) error {
	ctx := context.Background()
	store, done, err := cli.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	session, err := store.GetSession(ctx, c.ID)
	if err != nil {
		return err
	}
	msgs, err := store.Messages(ctx, c.ID, c.Limit)
	if err != nil {
		return err
	}
	fmt.Printf("Session %s (%s), %d messages\n\n", session.ID, session.Title, session.MessageCount)
	for _, m := range msgs {
		fmt.Printf("[%s] %s:\n%s\n\n", m.CreatedAt.Local().Format(time.DateTime), m.Role, m.Content)
	}
	return nil
}

type SessionsDeleteCmd struct {
	ID string `arg:"" help:"Session id."`
}

func (c *SessionsDeleteCmd) Run(cli *CLI) error {
	ctx := context.Background()
	store, done, err := cli.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	if err := store.DeleteSession(ctx, c.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted session %s\n", c.ID)
	return nil
}
