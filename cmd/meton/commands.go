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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/runtime"
	"github.com/Senchy071/Meton-sub000/pkg/tools"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type AskCmd struct {
	Query   []string `arg:"" help:"The query."`
	Mode    string   `help:"Pipeline (auto, agent, coordinate)." enum:"auto,agent,coordinate" default:"auto"`
	Session string   `help:"Resume a stored session."`
	JSON    bool     `name:"json" help:"Print the full result as JSON."`
	Trace   bool     `help:"Print thoughts and tool calls before the answer."`
}

func (c *AskCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	mode, err := runtime.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	a, err := cli.open(ctx, runtime.Options{SessionID: c.Session, SessionTitle: title(c.Query)})
	if err != nil {
		return err
	}
	defer a.Close()

	return printAnswer(a.rt.Ask(ctx, strings.Join(c.Query, " "), mode), c.JSON, c.Trace)
}

type CoordinateCmd struct {
	Query []string `arg:"" help:"The query."`
	JSON  bool     `name:"json" help:"Print the full result as JSON."`
	Trace bool     `help:"Print the pipeline steps before the answer."`
}

func (c *CoordinateCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := cli.open(ctx, runtime.Options{SessionTitle: title(c.Query)})
	if err != nil {
		return err
	}
	defer a.Close()
	if a.rt.Coordinator() == nil {
		return fmt.Errorf("multi-agent mode is disabled (multi_agent.enabled: false)")
	}

	return printAnswer(a.rt.Ask(ctx, strings.Join(c.Query, " "), runtime.ModeCoordinate), c.JSON, c.Trace)
}

func printAnswer(answer runtime.Answer, asJSON, trace bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(answer); err != nil {
			return err
		}
	} else {
		if trace {
			printTrace(answer)
		}
		fmt.Println(answer.Output)
	}
	if !answer.Success {
		return errors.New(answer.Error)
	}
	return nil
}

func printTrace(answer runtime.Answer) {
	if answer.Run != nil {
		for i, t := range answer.Run.Thoughts {
			fmt.Fprintf(os.Stderr, "Thought %d: %s\n", i+1, t)
		}
		for i, call := range answer.Run.ToolCalls {
			status := "ok"
			if !call.Succeeded() {
				status = "failed"
			}
			fmt.Fprintf(os.Stderr, "Tool call %d: %s %s (%s)\n", i+1, call.ToolName, call.Input, status)
		}
		fmt.Fprintf(os.Stderr, "Iterations: %d\n\n", answer.Run.Iterations)
	}
	if answer.Task != nil {
		for _, s := range answer.Task.Steps {
			fmt.Fprintf(os.Stderr, "Step %s (%s)\n", s.Step, s.Duration.Round(time.Millisecond))
		}
		for _, st := range answer.Task.Subtasks {
			fmt.Fprintf(os.Stderr, "  Subtask %d [%s]: %s\n", st.ID, st.Status, st.Task)
		}
		fmt.Fprintln(os.Stderr)
	}
}

// title names a stored session after the first words of its query.
func title(query []string) string {
	t := strings.Join(query, " ")
	if r := []rune(t); len(r) > 60 {
		t = string(r[:60])
	}
	return t
}

type ToolsCmd struct {
	JSON bool `name:"json" help:"Print as JSON."`
}

func (c *ToolsCmd) Run(cli *CLI) error {
	cfg, loader, err := cli.loadConfig(context.Background())
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
	}
	reg, err := tools.NewDefaultRegistry(cfg.Tools)
	if err != nil {
		return err
	}

	infos := reg.ListTools()
	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tENABLED\tDESCRIPTION")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%v\t%s\n", info.Name, info.Enabled, info.Description)
	}
	return w.Flush()
}

type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, loader, err := cli.loadConfig(context.Background())
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
	}
	fmt.Println("Configuration is valid")
	fmt.Printf("  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Printf("  Iterations:   %d\n", cfg.Agent.MaxIterations)
	fmt.Printf("  Multi-agent:  %v (max %d subtasks, parallel %v)\n",
		config.BoolValue(cfg.MultiAgent.Enabled, true), cfg.MultiAgent.MaxSubtasks, cfg.MultiAgent.ParallelExecution)
	fmt.Printf("  Store:        %v (%s)\n", cfg.Conversation.Store.Enabled, cfg.Conversation.Store.Driver)
	return nil
}
