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

package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var (
	globalMetrics Metrics = NoopMetrics{}
	metricsMu     sync.RWMutex
)

// Metrics records the counters and histograms meton exports.
type Metrics interface {
	RecordAgentRun(ctx context.Context, agent string, duration time.Duration, iterations int, err error)
	RecordToolExecution(ctx context.Context, tool string, duration time.Duration, failed bool)
	RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error)
	RecordCoordinatorStage(ctx context.Context, stage string, duration time.Duration, err error)
	RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration)
}

// PrometheusMetrics records through an OpenTelemetry meter backed by the
// Prometheus exporter. A zero value is safe and records nothing.
type PrometheusMetrics struct {
	provider *sdkmetric.MeterProvider

	agentDuration   metric.Float64Histogram
	agentRuns       metric.Int64Counter
	agentErrors     metric.Int64Counter
	agentIterations metric.Int64Histogram

	toolDuration metric.Float64Histogram
	toolCalls    metric.Int64Counter
	toolFailures metric.Int64Counter

	llmDuration     metric.Float64Histogram
	llmInputTokens  metric.Int64Counter
	llmOutputTokens metric.Int64Counter
	llmErrors       metric.Int64Counter

	stageDuration metric.Float64Histogram
	stageErrors   metric.Int64Counter

	httpDuration metric.Float64Histogram
	httpRequests metric.Int64Counter
}

// InitMetrics builds the meter provider. Disabled metrics return NoopMetrics.
// The exporter registers with the default Prometheus registerer, which the
// HTTP server exposes on /metrics.
func InitMetrics(enabled bool) (Metrics, error) {
	if !enabled {
		return NoopMetrics{}, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	return newPrometheusMetrics(provider)
}

func newPrometheusMetrics(provider *sdkmetric.MeterProvider) (*PrometheusMetrics, error) {
	meter := provider.Meter(meterName)
	m := &PrometheusMetrics{provider: provider}

	var err error
	hist := func(name, desc string) metric.Float64Histogram {
		if err != nil {
			return nil
		}
		var h metric.Float64Histogram
		h, err = meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
		return h
	}
	counter := func(name, desc string) metric.Int64Counter {
		if err != nil {
			return nil
		}
		var c metric.Int64Counter
		c, err = meter.Int64Counter(name, metric.WithDescription(desc))
		return c
	}

	m.agentDuration = hist("meton_agent_run_duration_seconds", "Reasoning loop run duration")
	m.agentRuns = counter("meton_agent_runs_total", "Reasoning loop runs")
	m.agentErrors = counter("meton_agent_errors_total", "Reasoning loop runs that failed")
	m.toolDuration = hist("meton_tool_execution_duration_seconds", "Tool execution duration")
	m.toolCalls = counter("meton_tool_calls_total", "Tool executions")
	m.toolFailures = counter("meton_tool_failures_total", "Tool executions that reported a failure")
	m.llmDuration = hist("meton_llm_request_duration_seconds", "Language model request duration")
	m.llmInputTokens = counter("meton_llm_tokens_input_total", "Prompt tokens sent")
	m.llmOutputTokens = counter("meton_llm_tokens_output_total", "Completion tokens received")
	m.llmErrors = counter("meton_llm_errors_total", "Language model requests that failed")
	m.stageDuration = hist("meton_coordinator_stage_duration_seconds", "Coordinator stage duration")
	m.stageErrors = counter("meton_coordinator_stage_errors_total", "Coordinator stages that fell back or failed")
	m.httpDuration = hist("meton_http_request_duration_seconds", "HTTP request duration")
	m.httpRequests = counter("meton_http_requests_total", "HTTP requests served")
	if err != nil {
		return nil, fmt.Errorf("failed to create instrument: %w", err)
	}

	m.agentIterations, err = meter.Int64Histogram("meton_agent_iterations", metric.WithDescription("Reasoning passes per run"))
	if err != nil {
		return nil, fmt.Errorf("failed to create instrument: %w", err)
	}
	return m, nil
}

func (m *PrometheusMetrics) RecordAgentRun(ctx context.Context, agent string, duration time.Duration, iterations int, err error) {
	if m == nil || m.agentRuns == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("agent", agent))
	m.agentDuration.Record(ctx, duration.Seconds(), attrs)
	m.agentRuns.Add(ctx, 1, attrs)
	m.agentIterations.Record(ctx, int64(iterations), attrs)
	if err != nil {
		m.agentErrors.Add(ctx, 1, attrs)
	}
}

func (m *PrometheusMetrics) RecordToolExecution(ctx context.Context, tool string, duration time.Duration, failed bool) {
	if m == nil || m.toolCalls == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("tool", tool))
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
	m.toolCalls.Add(ctx, 1, attrs)
	if failed {
		m.toolFailures.Add(ctx, 1, attrs)
	}
}

func (m *PrometheusMetrics) RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error) {
	if m == nil || m.llmDuration == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.llmDuration.Record(ctx, duration.Seconds(), attrs)
	m.llmInputTokens.Add(ctx, int64(inputTokens), attrs)
	m.llmOutputTokens.Add(ctx, int64(outputTokens), attrs)
	if err != nil {
		m.llmErrors.Add(ctx, 1, attrs)
	}
}

func (m *PrometheusMetrics) RecordCoordinatorStage(ctx context.Context, stage string, duration time.Duration, err error) {
	if m == nil || m.stageDuration == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("stage", stage))
	m.stageDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.stageErrors.Add(ctx, 1, attrs)
	}
}

func (m *PrometheusMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil || m.httpDuration == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	m.httpDuration.Record(ctx, duration.Seconds(), attrs)
	m.httpRequests.Add(ctx, 1, attrs)
}

// Shutdown flushes and stops the meter provider.
func (m *PrometheusMetrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) RecordAgentRun(context.Context, string, time.Duration, int, error) {}
func (NoopMetrics) RecordToolExecution(context.Context, string, time.Duration, bool) {}
func (NoopMetrics) RecordLLMCall(context.Context, string, time.Duration, int, int, error) {}
func (NoopMetrics) RecordCoordinatorStage(context.Context, string, time.Duration, error) {}
func (NoopMetrics) RecordHTTPRequest(context.Context, string, string, int, time.Duration) {}

func SetGlobalMetrics(m Metrics) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if m == nil {
		m = NoopMetrics{}
	}
	globalMetrics = m
}

// GetGlobalMetrics never returns nil.
func GetGlobalMetrics() Metrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return globalMetrics
}
