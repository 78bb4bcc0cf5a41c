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

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"workbox/internal/tools"
	"workbox/internal/workspace"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ws, err := workspace.New(filepath.Join(t.TempDir(), "workspace"), workspace.DefaultLimits())
	if err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}
	registry := tools.NewRegistryWithPolicy(ws, tools.PolicyFromLists(tools.DefaultAllowList, nil))
	return New("127.0.0.1:0", registry, zerolog.Nop())
}

func callTool(t *testing.T, srv *Server, body string) (*httptest.ResponseRecorder, ToolCallResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/tools/call", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	var resp ToolCallResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
	}
	return rec, resp
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected ok status, got %v", body)
	}
}

func TestListTools(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/tools", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Tools []tools.Definition `json:"tools"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Tools) != 10 {
		t.Fatalf("expected 10 tools, got %d", len(body.Tools))
	}
}

func TestToolCallRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	rec, resp := callTool(t, srv,
		`{"function": "write_file", "arguments": {"path": "a.txt", "content": "hi"}}`)
	if rec.Code != http.StatusOK || !resp.OK {
		t.Fatalf("write failed: code=%d resp=%+v", rec.Code, resp)
	}

	rec, resp = callTool(t, srv, `{"function": "read_file", "arguments": {"path": "a.txt"}}`)
	if rec.Code != http.StatusOK || !resp.OK {
		t.Fatalf("read failed: code=%d resp=%+v", rec.Code, resp)
	}
	if resp.Output != "hi" {
		t.Fatalf("expected content round trip, got %q", resp.Output)
	}
}

func TestToolCallFailureEnvelope(t *testing.T) {
	srv := newTestServer(t)

	// A failing tool still answers 200 with the failure in the envelope.
	rec, resp := callTool(t, srv, `{"function": "read_file", "arguments": {"path": "../escape"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for sandbox failure, got %d", rec.Code)
	}
	if resp.OK || resp.Error == nil {
		t.Fatalf("expected error envelope, got %+v", resp)
	}
	if resp.Error.Kind != string(workspace.KindPathEscape) {
		t.Fatalf("expected path_escape kind, got %s", resp.Error.Kind)
	}
}

func TestToolCallUnknownFunction(t *testing.T) {
	srv := newTestServer(t)
	rec, resp := callTool(t, srv, `{"function": "frobnicate"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp.OK || resp.Error == nil || resp.Error.Kind != "unknown_operation" {
		t.Fatalf("expected unknown_operation, got %+v", resp)
	}
}

func TestToolCallMalformedBody(t *testing.T) {
	srv := newTestServer(t)
	rec, resp := callTool(t, srv, `{"function": `)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
	if resp.OK || resp.Error == nil {
		t.Fatalf("expected error envelope, got %+v", resp)
	}
}

func TestToolCallMissingFunction(t *testing.T) {
	srv := newTestServer(t)
	rec, resp := callTool(t, srv, `{"arguments": {"path": "a"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp.Function != "unknown_tool" {
		t.Fatalf("expected unknown_tool placeholder, got %s", resp.Function)
	}
}
