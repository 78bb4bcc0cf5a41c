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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8000" {
		t.Fatalf("expected default listen address, got %s", cfg.Listen)
	}
	if cfg.Workspace != "workspace" {
		t.Fatalf("expected default workspace, got %s", cfg.Workspace)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"model": "gpt-4o", "workspace": "files", "limits": {"max_file_size_bytes": 1024}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("WORKBOX_WORKSPACE", "override")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model != "gpt-4o" {
		t.Fatalf("expected model from file, got %s", cfg.Model)
	}
	if cfg.Workspace != "override" {
		t.Fatalf("env should override file, got %s", cfg.Workspace)
	}
	if cfg.APIKey != "sk-test" {
		t.Fatalf("expected API key from env, got %q", cfg.APIKey)
	}
	if cfg.WorkspaceLimits().MaxFileSizeBytes != 1024 {
		t.Fatalf("expected file size limit from file, got %d", cfg.WorkspaceLimits().MaxFileSizeBytes)
	}
}

func TestRequireAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = ""
	if err := cfg.RequireAPIKey(); err == nil {
		t.Fatal("expected error without API key")
	}
	cfg.APIKey = "sk-x"
	if err := cfg.RequireAPIKey(); err != nil {
		t.Fatalf("unexpected error with API key set: %v", err)
	}
}

func TestToolPolicyDefaults(t *testing.T) {
	cfg := DefaultConfig()
	policy := cfg.ToolPolicy()
	if !policy.Allowed["read_file"] {
		t.Fatal("expected read_file allowed by default")
	}
	if !policy.RequireConfirmation["delete_file"] {
		t.Fatal("expected delete_file to require confirmation by default")
	}

	cfg.Tools.RequireConfirmation = []string{}
	policy = cfg.ToolPolicy()
	if policy.RequireConfirmation["delete_file"] {
		t.Fatal("explicit empty confirmation list should disable confirmation")
	}
}
