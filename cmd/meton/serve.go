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

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/mcpserver"
	"github.com/Senchy071/Meton-sub000/pkg/runtime"
	"github.com/Senchy071/Meton-sub000/pkg/server"
	"github.com/Senchy071/Meton-sub000/pkg/tools"
)

type ServeCmd struct {
	Address string `help:"Listen address (overrides server.address)."`
	Watch   bool   `help:"Reload the runtime when the config source changes."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	var srv *server.Server
	reload := func(next *config.Config) {
		if srv == nil {
			return
		}
		if err := cli.applyOverrides(next); err != nil {
			slog.Error("Reloaded config rejected", "error", err)
			return
		}
		rt, err := runtime.New(ctx, next, runtime.Options{Stateless: true, Logger: slog.Default()})
		if err != nil {
			slog.Error("Failed to rebuild runtime, keeping the current one", "error", err)
			return
		}
		if old := srv.Swap(rt); old != nil {
			_ = old.Close()
		}
	}

	a, err := cli.open(ctx, runtime.Options{Stateless: true}, config.WithOnChange(reload))
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Address
	if c.Address != "" {
		addr = c.Address
	}
	srv, err = server.New(addr, a.rt,
		server.WithMetrics(a.obs.MetricsEnabled()),
		server.WithLogger(slog.Default().With("component", "server")),
	)
	if err != nil {
		return err
	}
	// reloads close the runtimes they replace; only the live one is left for a.Close
	defer func() { a.rt = srv.Runtime() }()

	if c.Watch {
		if a.loader == nil {
			slog.Warn("Nothing to watch: no config source was loaded")
		} else {
			go func() {
				if err := a.loader.Watch(ctx); err != nil && ctx.Err() == nil {
					slog.Error("Config watch stopped", "error", err)
				}
			}()
		}
	}

	fmt.Printf("meton API listening on http://%s\n", addr)
	return srv.ListenAndServe(ctx)
}

type MCPCmd struct{}

func (c *MCPCmd) Run(cli *CLI) error {
	cfg, loader, err := cli.loadConfig(context.Background())
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
	}
	defer cli.reinitLoggerFromConfig(cfg)()

	reg, err := tools.NewDefaultRegistry(cfg.Tools, tools.WithRegistryLogger(slog.Default().With("component", "tools")))
	if err != nil {
		return err
	}
	return mcpserver.ServeStdio(mcpserver.New(reg, version, slog.Default().With("component", "mcp")))
}
