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
	"time"

	"github.com/Senchy071/Meton-sub000/pkg/config"
	"github.com/Senchy071/Meton-sub000/pkg/observability"
	"github.com/Senchy071/Meton-sub000/pkg/runtime"
)

// app is everything one command run holds open.
type app struct {
	cfg     *config.Config
	loader  *config.Loader
	obs     *observability.Manager
	rt      *runtime.Runtime
	closers []func()
}

// open loads config, starts observability and builds the runtime.
func (c *CLI) open(ctx context.Context, opts runtime.Options, loaderOpts ...config.LoaderOption) (*app, error) {
	cfg, loader, err := c.loadConfig(ctx, loaderOpts...)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, loader: loader}
	a.closers = append(a.closers, c.reinitLoggerFromConfig(cfg))

	a.obs = observability.NewManager(observabilityConfig(cfg))
	if err := a.obs.Initialize(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	opts.Logger = slog.Default()
	a.rt, err = runtime.New(ctx, cfg, opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	if a.rt != nil {
		if err := a.rt.Close(); err != nil {
			slog.Warn("Runtime cleanup failed", "error", err)
		}
	}
	if a.obs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.obs.Shutdown(ctx); err != nil {
			slog.Warn("Observability shutdown failed", "error", err)
		}
		cancel()
	}
	if a.loader != nil {
		_ = a.loader.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func observabilityConfig(cfg *config.Config) observability.Config {
	t := cfg.Observability.Tracing
	return observability.Config{
		Tracing: observability.TracerConfig{
			Enabled:      t.Enabled,
			Exporter:     t.Exporter,
			Endpoint:     t.Endpoint,
			SamplingRate: t.SamplingRate,
			ServiceName:  t.ServiceName,
		},
		MetricsEnabled: cfg.Observability.Metrics.Enabled,
	}
}
