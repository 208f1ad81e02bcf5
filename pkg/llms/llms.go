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

// Package llms provides the language model clients the reasoning loop
// invokes. Every client exposes the same single blocking call.
package llms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Senchy071/Meton-sub000/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Client generates text for a prompt.
type Client interface {
	Invoke(ctx context.Context, prompt string) (string, error)
	Model() string
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, prompt string) (string, error)

func (f ClientFunc) Invoke(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func (f ClientFunc) Model() string { return "func" }

// usage is what a provider reports about one call.
type usage struct {
	inputTokens  int
	outputTokens int
}

// observe wraps one provider call in a span and records LLM metrics.
func observe(ctx context.Context, provider, model string, call func(ctx context.Context) (string, usage, error)) (string, error) {
	start := time.Now()

	ctx, span := observability.GetTracer("meton.llm").Start(ctx, observability.SpanLLMRequest,
		trace.WithAttributes(
			attribute.String(observability.AttrLLMModel, model),
			attribute.String(observability.AttrLLMProvider, provider),
		),
	)
	defer span.End()

	text, u, err := call(ctx)
	duration := time.Since(start)
	observability.GetGlobalMetrics().RecordLLMCall(ctx, model, duration, u.inputTokens, u.outputTokens, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(
		attribute.Int(observability.AttrLLMTokensInput, u.inputTokens),
		attribute.Int(observability.AttrLLMTokensOutput, u.outputTokens),
	)
	span.SetStatus(codes.Ok, "success")
	return text, nil
}

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	ErrorAuthentication ErrorKind = "authentication"
	ErrorAccessDenied   ErrorKind = "access_denied"
	ErrorNotFound       ErrorKind = "not_found"
	ErrorRateLimit      ErrorKind = "rate_limit"
	ErrorContextLength  ErrorKind = "context_length"
	ErrorServer         ErrorKind = "server"
	ErrorTimeout        ErrorKind = "timeout"
	ErrorContentFilter  ErrorKind = "content_filter"
	ErrorUnknown        ErrorKind = "unknown"
)

type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s error (HTTP %d): %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Provider, e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same call may succeed later.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case ErrorRateLimit, ErrorServer, ErrorTimeout:
		return true
	}
	return false
}

// classifyError maps SDK error text to a ProviderError. SDKs that do not
// expose typed errors only leave the message to go on.
func classifyError(provider string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)

	kind, status := ErrorUnknown, 0
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		kind, status = ErrorAuthentication, 401
	case strings.Contains(lower, "403") || strings.Contains(lower, "forbidden"):
		kind, status = ErrorAccessDenied, 403
	case strings.Contains(lower, "404") || strings.Contains(lower, "not found"):
		kind, status = ErrorNotFound, 404
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		kind, status = ErrorRateLimit, 429
	case strings.Contains(lower, "context length") || strings.Contains(lower, "too many tokens"):
		kind, status = ErrorContextLength, 413
	case strings.Contains(lower, "500") || strings.Contains(lower, "internal server"):
		kind, status = ErrorServer, 500
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		kind = ErrorTimeout
	case strings.Contains(lower, "content filter") || strings.Contains(lower, "safety"):
		kind = ErrorContentFilter
	}
	return &ProviderError{Provider: provider, Kind: kind, StatusCode: status, Message: msg, Err: err}
}
