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

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Senchy071/Meton-sub000/pkg/runtime"
	"github.com/Senchy071/Meton-sub000/pkg/tools"
)

type askRequest struct {
	Query string `json:"query"`
	Mode  string `json:"mode,omitempty"`
}

type toolsResponse struct {
	Tools []tools.ToolInfo `json:"tools"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	rt := s.Runtime()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"model":       rt.Client().Model(),
		"multi_agent": rt.Coordinator() != nil,
	})
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toolsResponse{Tools: s.Runtime().Registry().ListTools()})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAsk(w, r)
	if !ok {
		return
	}
	mode, err := runtime.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeAnswer(w, s.Runtime().Ask(r.Context(), req.Query, mode))
}

func (s *Server) handleCoordinate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAsk(w, r)
	if !ok {
		return
	}
	rt := s.Runtime()
	if rt.Coordinator() == nil {
		writeError(w, http.StatusServiceUnavailable, "multi-agent mode is disabled")
		return
	}
	writeAnswer(w, rt.Ask(r.Context(), req.Query, runtime.ModeCoordinate))
}

func decodeAsk(w http.ResponseWriter, r *http.Request) (askRequest, bool) {
	var req askRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return req, false
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return req, false
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return req, false
	}
	return req, true
}

// writeAnswer reports pipeline failures in the body. The request itself
// succeeded, so the status stays 200.
func writeAnswer(w http.ResponseWriter, answer runtime.Answer) {
	writeJSON(w, http.StatusOK, answer)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
