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

// Command meton is a local coding assistant driven by a ReAct reasoning
// loop, with a multi-agent pipeline for complex requests.
//
// Usage:
//
//	meton ask "what does pkg/parser do?"
//	meton chat --session 5f1c...
//	meton coordinate "review the loader and then write tests for it"
//	meton serve --watch
//	meton mcp
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"

	"github.com/Senchy071/Meton-sub000/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type CLI struct {
	Ask        AskCmd        `cmd:"" help:"Answer one query, routing complex ones to the multi-agent pipeline."`
	Chat       ChatCmd       `cmd:"" help:"Start an interactive session."`
	Coordinate CoordinateCmd `cmd:"" help:"Run a query through the multi-agent pipeline."`
	Tools      ToolsCmd      `cmd:"" help:"List the available tools."`
	Serve      ServeCmd      `cmd:"" help:"Start the HTTP API."`
	MCP        MCPCmd        `cmd:"" name:"mcp" help:"Serve the enabled tools over MCP on stdio."`
	Sessions   SessionsCmd   `cmd:"" help:"Manage stored conversation sessions."`
	Validate   ValidateCmd   `cmd:"" help:"Validate the configuration."`
	Version    VersionCmd    `cmd:"" help:"Show version information."`

	Config          string   `short:"c" help:"Config file path, or the key for remote sources. Defaults to ./meton.yaml when present." env:"METON_CONFIG"`
	ConfigType      string   `name:"config-type" help:"Config source (file, consul, etcd, zookeeper)." enum:"file,consul,etcd,zookeeper" default:"file"`
	ConfigEndpoints []string `name:"config-endpoints" help:"Endpoints for remote config sources." sep:","`

	Provider string `help:"LLM provider (ollama, openai, anthropic, gemini, groq, mistral)."`
	Model    string `help:"Model name."`
	BaseURL  string `name:"base-url" help:"Provider base URL."`
	APIKey   string `name:"api-key" help:"API key (defaults to the provider's environment variable)."`

	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose, json)."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	v := version
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	fmt.Printf("meton %s\n", v)
	return nil
}

func main() {
	_ = config.LoadDotEnv()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("meton"),
		kong.Description("Local coding assistant with a ReAct reasoning loop and a multi-agent pipeline."),
		kong.UsageOnError(),
	)

	cleanup, err := initLoggerFromCLI(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
