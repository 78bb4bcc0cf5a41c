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

package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"workbox/internal/config"
	"workbox/internal/tools"
	systemprompt "workbox/system_prompt"
)

// Tool loop bound. A model that keeps asking for tools past this is
// looping; stop and hand back whatever content it produced.
const maxToolIterations = 16

// Session represents a chat session with conversation context.
//
// Thread-safety: message operations are protected by an internal
// mutex. ToolRegistry carries its own locking.
type Session struct {
	Client       ChatClient
	Config       *config.Config
	Messages     []openai.ChatCompletionMessage
	ToolRegistry *tools.Registry
	Approver     ToolApprover
	Logger       zerolog.Logger

	mu                sync.Mutex
	lastSavedMsgCount int
}

var defaultSystemPrompt = mustLoadSystemPrompt()

func mustLoadSystemPrompt() string {
	prompt, err := systemprompt.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load system prompt: %v", err))
	}
	return prompt
}

// NewSession creates a chat session with a default OpenAI client.
func NewSession(cfg *config.Config, registry *tools.Registry) *Session {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIURL != "" {
		clientConfig.BaseURL = cfg.APIURL
		clientConfig.HTTPClient = &http.Client{}
	}
	return NewSessionWithClient(cfg, registry, openai.NewClientWithConfig(clientConfig))
}

// NewSessionWithClient creates a chat session with a provided client (for testing).
func NewSessionWithClient(cfg *config.Config, registry *tools.Registry, client ChatClient) *Session {
	return &Session{
		Client:       client,
		Config:       cfg,
		ToolRegistry: registry,
		Logger:       zerolog.Nop(),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: defaultSystemPrompt},
		},
	}
}

// AddMessage adds a message to the conversation history.
func (s *Session) AddMessage(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, openai.ChatCompletionMessage{
		Role:    role,
		Content: content,
	})
}

// AddAssistantMessage adds an assistant message with optional tool calls.
func (s *Session) AddAssistantMessage(content string, toolCalls []openai.ToolCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, openai.ChatCompletionMessage{
		Role:      openai.ChatMessageRoleAssistant,
		Content:   content,
		ToolCalls: toolCalls,
	})
}

// AddToolResultMessage appends a tool result message.
func (s *Session) AddToolResultMessage(call openai.ToolCall, result *tools.ToolResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content := result.Result
	if result.Error != nil {
		content = fmt.Sprintf("Error [%s]: %v", result.Kind, result.Error)
	}

	name := call.Function.Name
	if name == "" {
		name = "unknown_tool"
	}
	s.Messages = append(s.Messages, openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Content:    content,
		Name:       name,
		ToolCallID: call.ID,
	})
}

// MessagesSnapshot returns a copy of the current messages.
func (s *Session) MessagesSnapshot() []openai.ChatCompletionMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]openai.ChatCompletionMessage, len(s.Messages))
	copy(msgs, s.Messages)
	return msgs
}

// GetResponseWithContext sends the prompt, runs any tool calls the
// model asks for, and loops until the model answers in text.
func (s *Session) GetResponseWithContext(ctx context.Context, prompt string) (string, error) {
	s.AddMessage(openai.ChatMessageRoleUser, prompt)

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		req := openai.ChatCompletionRequest{
			Model:    s.Config.Model,
			Messages: s.MessagesSnapshot(),
			Tools:    s.ToolRegistry.OpenAITools(),
		}
		if s.Config.Temperature > 0 {
			req.Temperature = s.Config.Temperature
		}
		if s.Config.MaxTokens > 0 {
			req.MaxTokens = s.Config.MaxTokens
		}

		resp, err := s.Client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", &APIError{Operation: "create_completion", Err: err}
		}
		if len(resp.Choices) == 0 {
			return "", &APIError{Operation: "create_completion", Err: fmt.Errorf("response has no choices")}
		}

		response := resp.Choices[0].Message
		s.AddAssistantMessage(response.Content, response.ToolCalls)

		if len(response.ToolCalls) == 0 {
			return response.Content, nil
		}

		for _, toolCall := range response.ToolCalls {
			result := s.runToolCall(ctx, toolCall)
			s.Logger.Debug().
				Str("function", result.Function).
				Str("kind", string(result.Kind)).
				Bool("ok", result.Error == nil).
				Msg("tool call")
			s.AddToolResultMessage(toolCall, result)
		}
	}

	return "", &APIError{
		Operation: "tool_loop",
		Err:       fmt.Errorf("model did not produce a final answer after %d tool rounds", maxToolIterations),
	}
}

// GetResponse is GetResponseWithContext with a background context.
func (s *Session) GetResponse(prompt string) (string, error) {
	return s.GetResponseWithContext(context.Background(), prompt)
}

// runToolCall executes one tool call, routing confirmation-gated
// tools through the approver. Without an approver, gated tools fail
// with the registry's confirmation error and the model is told so.
func (s *Session) runToolCall(ctx context.Context, call openai.ToolCall) *tools.ToolResult {
	name := call.Function.Name
	perm := s.ToolRegistry.GetPermission(name)
	if perm.Allowed && perm.RequireConfirmation && s.Approver != nil {
		approved, persist := s.Approver.ApproveToolCall(call)
		if !approved {
			return &tools.ToolResult{
				Function: name,
				Kind:     tools.KindBlocked,
				Result:   fmt.Sprintf("The user declined to run '%s'. Do not retry it; ask what to do instead.", name),
				Error:    tools.NewPermissionError(name, "declined by user"),
			}
		}
		if persist {
			s.ToolRegistry.SetRequireConfirmation(name, false)
		}
		return s.ToolRegistry.ExecuteOpenAIToolCallWithOptions(ctx, call, tools.ExecuteOptions{Force: true})
	}
	return s.ToolRegistry.ExecuteOpenAIToolCall(ctx, call)
}

// ClearHistory clears the conversation history, keeping the system message.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	systemMsg := s.Messages[0]
	s.Messages = []openai.ChatCompletionMessage{systemMsg}
	s.lastSavedMsgCount = 0
}

// GetHistory returns the conversation history excluding the system message.
func (s *Session) GetHistory() []openai.ChatCompletionMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Messages) <= 1 {
		return []openai.ChatCompletionMessage{}
	}
	return s.Messages[1:]
}

// SaveConversationHistory appends new messages to the history file.
func (s *Session) SaveConversationHistory(filepath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.Messages[1:]
	if len(history) <= s.lastSavedMsgCount {
		return nil
	}

	file, err := os.OpenFile(filepath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return &HistoryError{Operation: "open", Filepath: filepath, Err: err}
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	for i := s.lastSavedMsgCount; i < len(history); i++ {
		if err := encoder.Encode(history[i]); err != nil {
			return &HistoryError{Operation: "encode", Filepath: filepath, Err: err}
		}
	}

	s.lastSavedMsgCount = len(history)
	return nil
}

// LoadConversationHistory loads conversation history from a file,
// keeping at most maxMessages of the newest entries. A missing file
// is not an error.
func (s *Session) LoadConversationHistory(filepath string, maxMessages int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &HistoryError{Operation: "open", Filepath: filepath, Err: err}
	}
	defer file.Close()

	var messages []openai.ChatCompletionMessage
	decoder := json.NewDecoder(file)
	for {
		var msg openai.ChatCompletionMessage
		if err := decoder.Decode(&msg); err != nil {
			if err == io.EOF {
				break
			}
			return &HistoryError{Operation: "decode", Filepath: filepath, Err: err}
		}
		messages = append(messages, msg)
	}

	if maxMessages > 0 && len(messages) > maxMessages {
		messages = messages[len(messages)-maxMessages:]
	}

	s.Messages = append(s.Messages, messages...)
	s.lastSavedMsgCount = len(messages)
	return nil
}
