// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package server exposes the tool registry over plain JSON HTTP.
// Tool failures travel inside the response envelope with HTTP 200;
// only transport-level problems (bad JSON, unknown route) map to
// HTTP error codes, so a caller can always distinguish "the call
// failed" from "the call never ran".
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"

	"workbox/internal/tools"
)

// Server serves tool discovery and invocation endpoints.
type Server struct {
	registry *tools.Registry
	logger   zerolog.Logger
	router   *httprouter.Router
	httpsrv  *http.Server
}

// ToolCallRequest is the body of POST /v1/tools/call.
type ToolCallRequest struct {
	Function  string                 `json:"function"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// ErrorBody carries a machine-readable failure kind plus a message.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ToolCallResponse is the envelope for every tool invocation.
type ToolCallResponse struct {
	OK       bool       `json:"ok"`
	Function string     `json:"function"`
	Output   string     `json:"output,omitempty"`
	Error    *ErrorBody `json:"error,omitempty"`
}

// New creates a server bound to the given address.
func New(addr string, registry *tools.Registry, logger zerolog.Logger) *Server {
	s := &Server{
		registry: registry,
		logger:   logger,
		router:   httprouter.New(),
	}
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/v1/tools", s.handleListTools)
	s.router.POST("/v1/tools/call", s.handleToolCall)
	s.httpsrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routing handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpsrv.Addr).Msg("server listening")
	err := s.httpsrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down, waiting up to five seconds for
// in-flight requests.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpsrv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"tools":  len(s.registry.GetToolNames()),
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tools": s.registry.Definitions(),
	})
}

func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start := time.Now()

	var req ToolCallRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		s.logger.Warn().Err(err).Msg("malformed tool call body")
		writeJSON(w, http.StatusBadRequest, ToolCallResponse{
			OK:       false,
			Function: "unknown_tool",
			Error:    &ErrorBody{Kind: "invalid_arguments", Message: "malformed JSON body"},
		})
		return
	}
	if req.Function == "" {
		writeJSON(w, http.StatusBadRequest, ToolCallResponse{
			OK:       false,
			Function: "unknown_tool",
			Error:    &ErrorBody{Kind: "invalid_arguments", Message: "missing function name"},
		})
		return
	}

	result := s.registry.Execute(r.Context(), req.Function, req.Arguments)

	resp := ToolCallResponse{
		OK:       result.Error == nil,
		Function: result.Function,
		Output:   result.Result,
	}
	if result.Error != nil {
		resp.Output = ""
		resp.Error = &ErrorBody{
			Kind:    string(result.Kind),
			Message: result.Error.Error(),
		}
	}

	s.logger.Info().
		Str("function", req.Function).
		Bool("ok", resp.OK).
		Dur("elapsed", time.Since(start)).
		Msg("tool call")

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encode failures after WriteHeader cannot be reported to the client.
	_ = json.NewEncoder(w).Encode(body)
}
