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

// Package config loads settings from an optional JSON file with
// environment variable overrides.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	apperrors "workbox/internal/errors"
	"workbox/internal/tools"
	"workbox/internal/workspace"
)

// ToolSettings configures which tools run and which need approval.
// Empty lists fall back to the built-in defaults.
type ToolSettings struct {
	Allowed             []string `json:"allowed,omitempty"`
	RequireConfirmation []string `json:"require_confirmation,omitempty"`
}

// ToolLimits bounds what one tool call may touch.
type ToolLimits struct {
	MaxFileSizeBytes    int64 `json:"max_file_size_bytes,omitempty"`
	MaxDirectoryEntries int   `json:"max_directory_entries,omitempty"`
}

// Config holds the runtime configuration for both the interactive
// client and the daemon.
type Config struct {
	APIKey      string  `json:"api_key,omitempty"`
	APIURL      string  `json:"api_url,omitempty"`
	Model       string  `json:"model,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	Workspace string `json:"workspace,omitempty"`
	Listen    string `json:"listen,omitempty"`

	Tools  ToolSettings `json:"tools,omitempty"`
	Limits ToolLimits   `json:"limits,omitempty"`

	HistoryFile        string `json:"history_file,omitempty"`
	CommandHistoryFile string `json:"command_history_file,omitempty"`
	HistoryMaxMessages int    `json:"history_max_messages,omitempty"`
}

// DefaultConfig returns a configuration with sensible defaults applied.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Model:              "gpt-4o-mini",
		Temperature:        0.7,
		MaxTokens:          2048,
		Workspace:          "workspace",
		Listen:             "127.0.0.1:8000",
		HistoryFile:        filepath.Join(home, ".workbox_history.json"),
		CommandHistoryFile: filepath.Join(home, ".workbox_readline_history"),
		HistoryMaxMessages: 100,
	}
}

// LoadConfig reads the JSON config file if present, then applies
// environment overrides. A missing file is not an error; a malformed
// one is.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, apperrors.Wrap(apperrors.CodeServer, "cannot read config file", err)
			}
		} else if err := json.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeServer, "invalid config file", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("WORKBOX_WORKSPACE"); v != "" {
		cfg.Workspace = v
	}
	if v := os.Getenv("WORKBOX_ADDR"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("WORKBOX_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("WORKBOX_MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Limits.MaxFileSizeBytes = n
		}
	}
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Workspace == "" {
		cfg.Workspace = def.Workspace
	}
	if cfg.Listen == "" {
		cfg.Listen = def.Listen
	}
	if cfg.HistoryMaxMessages <= 0 {
		cfg.HistoryMaxMessages = def.HistoryMaxMessages
	}
}

// RequireAPIKey fails when no API key is configured. Only the chat
// client needs one; the daemon serves tools without it.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return apperrors.New(apperrors.CodeAPI,
			"no API key configured, set OPENAI_API_KEY or api_key in the config file")
	}
	return nil
}

// ToolPolicy converts the configured tool lists into a registry policy.
func (c *Config) ToolPolicy() tools.Policy {
	allow := c.Tools.Allowed
	if len(allow) == 0 {
		allow = tools.DefaultAllowList
	}
	confirm := c.Tools.RequireConfirmation
	if c.Tools.RequireConfirmation == nil {
		confirm = tools.DefaultConfirmList
	}
	return tools.PolicyFromLists(allow, confirm)
}

// WorkspaceLimits converts the configured limits, falling back to the
// workspace defaults for unset fields.
func (c *Config) WorkspaceLimits() workspace.Limits {
	limits := workspace.DefaultLimits()
	if c.Limits.MaxFileSizeBytes > 0 {
		limits.MaxFileSizeBytes = c.Limits.MaxFileSizeBytes
	}
	if c.Limits.MaxDirectoryEntries > 0 {
		limits.MaxDirectoryEntries = c.Limits.MaxDirectoryEntries
	}
	return limits
}
