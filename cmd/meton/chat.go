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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/Senchy071/Meton-sub000/pkg/runtime"
)

const chatHelp = `Commands:
  /mode auto|agent|coordinate   switch pipeline
  /clear                        forget the conversation
  /session                      show the stored session id
  /exit                         quit`

type ChatCmd struct {
	Session string `help:"Resume a stored session."`
	Mode    string `help:"Initial pipeline (auto, agent, coordinate)." enum:"auto,agent,coordinate" default:"auto"`
	Trace   bool   `help:"Print thoughts and tool calls before each answer."`
}

func (c *ChatCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	mode, err := runtime.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	a, err := cli.open(ctx, runtime.Options{SessionID: c.Session, SessionTitle: "chat"})
	if err != nil {
		return err
	}
	defer a.Close()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		fmt.Printf("meton chat (%s/%s). Type /help for commands.\n", a.cfg.LLM.Provider, a.cfg.LLM.Model)
		if id := a.rt.SessionID(); id != "" {
			fmt.Printf("Session %s\n", id)
		}
	}
	return chatLoop(ctx, a.rt, os.Stdin, os.Stdout, mode, interactive, c.Trace)
}

func chatLoop(ctx context.Context, rt *runtime.Runtime, in io.Reader, out io.Writer, mode runtime.Mode, interactive, trace bool) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		if interactive {
			fmt.Fprintf(out, "\n[%s]> ", mode)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			fields := strings.Fields(line)
			switch fields[0] {
			case "/exit", "/quit":
				return nil
			case "/help":
				fmt.Fprintln(out, chatHelp)
			case "/clear":
				if h := rt.History(); h != nil {
					h.Clear()
				}
				fmt.Fprintln(out, "Conversation cleared.")
			case "/session":
				if id := rt.SessionID(); id != "" {
					fmt.Fprintln(out, id)
				} else {
					fmt.Fprintln(out, "Not persisted (conversation.store.enabled is false).")
				}
			case "/mode":
				if len(fields) < 2 {
					fmt.Fprintf(out, "Mode is %s.\n", mode)
					continue
				}
				m, err := runtime.ParseMode(fields[1])
				if err != nil {
					fmt.Fprintln(out, err)
					continue
				}
				mode = m
			default:
				fmt.Fprintf(out, "Unknown command %s. Type /help.\n", fields[0])
			}
			continue
		}

		answer := rt.Ask(ctx, line, mode)
		if trace {
			printTrace(answer)
		}
		fmt.Fprintln(out, answer.Output)
		if ctx.Err() != nil {
			return nil
		}
	}
}
