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
	"fmt"
	"os"

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/logger"
)

const (
	LogFileEnvVar   = "LOG_FILE"
	LogLevelEnvVar  = "LOG_LEVEL"
	LogFormatEnvVar = "LOG_FORMAT"
)

// logSettings resolves each setting as flag > env > config > default.
type logSettings struct {
	level, file, format string
}

func resolveLogSettings(flagLevel, flagFile, flagFormat string, cfg *config.LoggerConfig) logSettings {
	pick := func(flag, env, fromConfig, def string) string {
		for _, v := range []string{flag, os.Getenv(env), fromConfig} {
			if v != "" {
				return v
			}
		}
		return def
	}
	var cl config.LoggerConfig
	if cfg != nil {
		cl = *cfg
	}
	return logSettings{
		level:  pick(flagLevel, LogLevelEnvVar, cl.Level, "info"),
		file:   pick(flagFile, LogFileEnvVar, cl.File, ""),
		format: pick(flagFormat, LogFormatEnvVar, cl.Format, logger.FormatSimple),
	}
}

func applyLogSettings(s logSettings) (func(), error) {
	level, err := logger.ParseLevel(s.level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	if !logger.ValidFormat(s.format) {
		return nil, fmt.Errorf("invalid log format %q", s.format)
	}

	output := os.Stderr
	cleanup := func() {}
	if s.file != "" {
		file, closeFn, err := logger.OpenLogFile(s.file)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		cleanup = closeFn
	}
	logger.Init(level, output, s.format)
	return cleanup, nil
}

// initLoggerFromCLI runs before any config is loaded.
func initLoggerFromCLI(level, file, format string) (func(), error) {
	return applyLogSettings(resolveLogSettings(level, file, format, nil))
}

// reinitLoggerFromConfig applies the config file's logger section to
// whatever the flags and environment left unset. The returned cleanup
// closes a log file opened here.
func (c *CLI) reinitLoggerFromConfig(cfg *config.Config) func() {
	s := resolveLogSettings(c.LogLevel, c.LogFile, c.LogFormat, &cfg.Logger)
	if s == resolveLogSettings(c.LogLevel, c.LogFile, c.LogFormat, nil) {
		return func() {}
	}
	cleanup, err := applyLogSettings(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ignoring logger config: %v\n", err)
		return func() {}
	}
	return cleanup
}
