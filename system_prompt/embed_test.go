package systemprompt

import (
	"strings"
	"testing"
)

func TestLoadReturnsPrompt(t *testing.T) {
	prompt, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !strings.Contains(prompt, "workspace") {
		t.Fatal("expected prompt to describe the workspace sandbox")
	}
	if !strings.HasSuffix(prompt, "\n") {
		t.Fatal("expected trailing newline")
	}
}
