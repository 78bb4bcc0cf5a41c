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

	"github.com/sashabaranov/go-openai"
)

// ChatClient abstracts the OpenAI client so tests can inject a mock
// instead of making real API calls.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ToolApprover decides whether a confirmation-gated tool call may run.
// Returning persist=true allows the tool for the rest of the session.
type ToolApprover interface {
	ApproveToolCall(call openai.ToolCall) (approved bool, persist bool)
}

// ApproverFunc adapts a function to the ToolApprover interface.
type ApproverFunc func(call openai.ToolCall) (bool, bool)

func (f ApproverFunc) ApproveToolCall(call openai.ToolCall) (bool, bool) {
	return f(call)
}

// Verify that openai.Client implements ChatClient at compile time.
var _ ChatClient = (*openai.Client)(nil)
