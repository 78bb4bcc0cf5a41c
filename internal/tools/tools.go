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

// Package tools dispatches named operations against a sandboxed
// workspace. The registry holds a fixed set of tools validated at
// startup; every path-bearing argument goes through the workspace
// resolver before any filesystem call, and every failure is mapped to
// one kind in the result envelope. Nothing here panics on a bad call
// and no raw host error reaches the caller.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/sashabaranov/go-openai"

	"workbox/internal/workspace"
)

// Failure kinds added by the dispatcher on top of the workspace taxonomy.
const (
	KindUnknownOperation workspace.Kind = "unknown_operation"
	KindInvalidArguments workspace.Kind = "invalid_arguments"
	KindBlocked          workspace.Kind = "blocked"
)

// Default allow/confirm lists for built-in tools. Mutating tools require
// confirmation in interactive hosts; read-only tools run directly.
var (
	DefaultAllowList = []string{
		"read_file", "write_file", "append_file", "delete_file",
		"list_directory", "create_directory", "move_file", "get_file_info",
		"health_check", "get_current_datetime",
	}
	DefaultConfirmList = []string{
		"write_file", "append_file", "delete_file", "create_directory", "move_file",
	}
)

// ToolResult represents the result of a tool execution.
type ToolResult struct {
	Function string
	Result   string
	Kind     workspace.Kind
	Error    error
}

// Permission describes the policy for a tool.
type Permission struct {
	Allowed             bool
	RequireConfirmation bool
}

// Policy configures which tools are allowed and which require confirmation.
type Policy struct {
	Allowed             map[string]bool
	RequireConfirmation map[string]bool
}

// ExecuteOptions controls how tool execution is handled.
type ExecuteOptions struct {
	// Force bypasses policy checks and confirmation requirements (use only after explicit user consent).
	Force bool
}

// Registry holds all available tools with their implementations.
type Registry struct {
	mu          sync.RWMutex
	ws          *workspace.Workspace
	tools       map[string]Tool
	permissions map[string]Permission
}

// NewRegistry creates a registry over the workspace with the default policy.
func NewRegistry(ws *workspace.Workspace) *Registry {
	return NewRegistryWithPolicy(ws, DefaultPolicy())
}

// NewRegistryWithPolicy creates a registry with the provided policy.
func NewRegistryWithPolicy(ws *workspace.Workspace, policy Policy) *Registry {
	r := &Registry{
		ws:          ws,
		tools:       make(map[string]Tool),
		permissions: make(map[string]Permission),
	}
	registerBuiltInTools(r, ws)
	r.applyPolicy(DefaultPolicy())
	r.applyPolicy(policy)
	return r
}

// Workspace returns the workspace this registry operates on.
func (r *Registry) Workspace() *workspace.Workspace {
	return r.ws
}

// RegisterTool adds a new tool with its implementation to the registry.
func (r *Registry) RegisterTool(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tool.Name() == "" {
		return fmt.Errorf("tool has no name")
	}
	if _, exists := r.tools[tool.Name()]; exists {
		return fmt.Errorf("tool %q already registered", tool.Name())
	}
	r.tools[tool.Name()] = tool
	if _, ok := r.permissions[tool.Name()]; !ok {
		// Unknown tools default to blocked + confirmation.
		r.permissions[tool.Name()] = Permission{Allowed: false, RequireConfirmation: true}
	}
	return nil
}

func (r *Registry) applyPolicy(policy Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name := range r.tools {
		perm, ok := r.permissions[name]
		if !ok {
			perm = Permission{Allowed: false, RequireConfirmation: true}
		}
		if policy.Allowed != nil {
			perm.Allowed = policy.Allowed[name]
		}
		if policy.RequireConfirmation != nil {
			perm.RequireConfirmation = policy.RequireConfirmation[name]
		}
		r.permissions[name] = perm
	}
}

// DefaultPolicy returns the default allow/confirm policy.
func DefaultPolicy() Policy {
	return PolicyFromLists(DefaultAllowList, DefaultConfirmList)
}

// PolicyFromLists builds a policy from allow/confirmation lists.
func PolicyFromLists(allow, confirm []string) Policy {
	allowMap := make(map[string]bool, len(allow))
	for _, name := range allow {
		allowMap[name] = true
	}
	confirmMap := make(map[string]bool, len(confirm))
	for _, name := range confirm {
		confirmMap[name] = true
	}
	return Policy{
		Allowed:             allowMap,
		RequireConfirmation: confirmMap,
	}
}

// AllowedNames returns the sorted names of tools the policy allows.
func (p Policy) AllowedNames() []string {
	names := make([]string, 0, len(p.Allowed))
	for name, allowed := range p.Allowed {
		if allowed {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// GetToolNames returns a sorted list of all tool names.
func (r *Registry) GetToolNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition is the serializable description of one registered tool.
type Definition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Definitions lists the registered tools for transport-level discovery.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, Definition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// OpenAITools returns the registry as OpenAI tool definitions.
func (r *Registry) OpenAITools() []openai.Tool {
	defs := r.Definitions()
	out := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return out
}

// Execute runs the specified tool with given arguments.
func (r *Registry) Execute(ctx context.Context, function string, args map[string]interface{}) *ToolResult {
	return r.ExecuteWithOptions(ctx, function, args, ExecuteOptions{})
}

// ExecuteWithOptions runs the tool using the provided options.
func (r *Registry) ExecuteWithOptions(ctx context.Context, function string, args map[string]interface{}, opts ExecuteOptions) *ToolResult {
	result := &ToolResult{Function: function}

	tool, exists := r.getTool(function)
	if !exists {
		result.Error = fmt.Errorf("%w: %s", ErrUnknownOperation, function)
		result.Kind = KindUnknownOperation
		result.Result = fmt.Sprintf("Error: tool '%s' not found. Available tools: %v", function, r.GetToolNames())
		return result
	}

	if !opts.Force {
		perm := r.getPermission(function)
		if !perm.Allowed {
			result.Error = fmt.Errorf("%w: %s", ErrToolNotAllowed, function)
			result.Kind = KindBlocked
			result.Result = fmt.Sprintf("Tool '%s' is blocked by policy. Enable it to proceed.", function)
			return result
		}
		if perm.RequireConfirmation {
			result.Error = fmt.Errorf("%w: %s", ErrToolRequiresConfirmation, function)
			result.Kind = KindBlocked
			result.Result = fmt.Sprintf("Tool '%s' requires explicit approval before running.", function)
			return result
		}
	}

	if err := tool.Validate(args); err != nil {
		result.Error = fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		result.Kind = KindInvalidArguments
		result.Result = fmt.Sprintf("Error: %v", err)
		return result
	}

	output, err := tool.Execute(ctx, args)
	result.Result = output
	if err != nil {
		// The coded wrapper keeps errors.Is working on the workspace
		// sentinels underneath.
		result.Error = NewToolExecutionError(function, err)
		result.Kind = workspace.KindOf(err)
		if result.Result == "" {
			result.Result = fmt.Sprintf("Error: %v", err)
		}
	}
	return result
}

// ExecuteOpenAIToolCall executes an OpenAI tool call payload.
func (r *Registry) ExecuteOpenAIToolCall(ctx context.Context, call openai.ToolCall) *ToolResult {
	return r.ExecuteOpenAIToolCallWithOptions(ctx, call, ExecuteOptions{})
}

// ExecuteOpenAIToolCallWithOptions executes a tool call with execution options.
func (r *Registry) ExecuteOpenAIToolCallWithOptions(ctx context.Context, call openai.ToolCall, opts ExecuteOptions) *ToolResult {
	name := call.Function.Name
	if name == "" {
		return &ToolResult{
			Function: "unknown_tool",
			Kind:     KindInvalidArguments,
			Error:    fmt.Errorf("%w: tool call missing function name", ErrInvalidArguments),
		}
	}
	args, err := parseToolArgs(call.Function.Arguments)
	if err != nil {
		return &ToolResult{
			Function: name,
			Kind:     KindInvalidArguments,
			Error:    fmt.Errorf("%w: %v", ErrInvalidArguments, err),
		}
	}
	return r.ExecuteWithOptions(ctx, name, args, opts)
}

// AllowTool marks a tool as allowed and optionally keeps confirmation requirements.
func (r *Registry) AllowTool(name string, requireConfirmation bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	perm := r.permissions[name]
	perm.Allowed = true
	perm.RequireConfirmation = requireConfirmation
	r.permissions[name] = perm
}

// SetAllowed toggles whether a tool is allowed.
func (r *Registry) SetAllowed(name string, allowed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	perm := r.permissions[name]
	perm.Allowed = allowed
	r.permissions[name] = perm
}

// SetRequireConfirmation toggles per-tool confirmation.
func (r *Registry) SetRequireConfirmation(name string, require bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	perm := r.permissions[name]
	perm.RequireConfirmation = require
	r.permissions[name] = perm
}

// GetPermission returns the current permission entry for a tool.
func (r *Registry) GetPermission(name string) Permission {
	return r.getPermission(name)
}

func (r *Registry) getTool(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

func (r *Registry) getPermission(name string) Permission {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if perm, ok := r.permissions[name]; ok {
		return perm
	}
	// Default for unknown tools: blocked and requires confirmation.
	return Permission{Allowed: false, RequireConfirmation: true}
}

func parseToolArgs(argsJSON string) (map[string]interface{}, error) {
	args := map[string]interface{}{}
	if argsJSON == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return nil, err
	}
	return args, nil
}
