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

// Package server exposes the assistant over HTTP.
//
// Routes:
//
//	POST /v1/ask         {"query": "...", "mode": "auto|agent|coordinate"}
//	POST /v1/coordinate  {"query": "..."}
//	GET  /v1/tools
//	GET  /healthz
//	GET  /metrics        (only when metrics are enabled)
//
// The runtime behind the routes can be replaced while serving, which the
// serve command uses for config hot reload.
package server
