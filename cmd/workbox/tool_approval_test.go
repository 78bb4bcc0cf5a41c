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

package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func TestParseApprovalInput(t *testing.T) {
	cases := map[string]approvalDecision{
		"":        approvalYes,
		"\n":      approvalYes,
		"y":       approvalYes,
		"yes":     approvalYes,
		"YES":     approvalYes,
		"n":       approvalNo,
		"no":      approvalNo,
		"a":       approvalAlways,
		"always":  approvalAlways,
		"maybe":   approvalUnknown,
		"yessir":  approvalUnknown,
		"nothing": approvalUnknown,
	}
	for input, want := range cases {
		if got := parseApprovalInput(input); got != want {
			t.Errorf("parseApprovalInput(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestApproverDecisions(t *testing.T) {
	call := openai.ToolCall{Function: openai.FunctionCall{Name: "write_file"}}

	approver := newToolApproverWithPrompt(func(openai.ToolCall) (approvalDecision, error) {
		return approvalYes, nil
	})
	if ok, persist := approver.ApproveToolCall(call); !ok || persist {
		t.Fatalf("yes should approve once, got ok=%v persist=%v", ok, persist)
	}

	approver = newToolApproverWithPrompt(func(openai.ToolCall) (approvalDecision, error) {
		return approvalAlways, nil
	})
	if ok, persist := approver.ApproveToolCall(call); !ok || !persist {
		t.Fatalf("always should approve and persist, got ok=%v persist=%v", ok, persist)
	}

	approver = newToolApproverWithPrompt(func(openai.ToolCall) (approvalDecision, error) {
		return approvalNo, nil
	})
	if ok, _ := approver.ApproveToolCall(call); ok {
		t.Fatal("no should reject")
	}

	approver = newToolApproverWithPrompt(func(openai.ToolCall) (approvalDecision, error) {
		return approvalUnknown, errors.New("tty gone")
	})
	if ok, _ := approver.ApproveToolCall(call); ok {
		t.Fatal("prompt failure should reject")
	}
}

func TestFormatArgsDisplayRedactsContent(t *testing.T) {
	display := formatArgsDisplay(`{"path": "a.txt", "content": "secret sauce"}`)
	if strings.Contains(display, "secret sauce") {
		t.Fatalf("content not redacted: %s", display)
	}
	if !strings.Contains(display, "a.txt") {
		t.Fatalf("path missing from display: %s", display)
	}

	if display := formatArgsDisplay("{}"); display != "" {
		t.Fatalf("empty args should produce no display, got %q", display)
	}
}
