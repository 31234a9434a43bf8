package ui

import (
	"errors"
	"strings"
	"testing"

	"parley/model"
)

func TestAssistantErrorMessage(t *testing.T) {
	msg := assistantErrorMessage(errors.New("connection refused"))

	if msg.Role != model.RoleAssistant {
		t.Errorf("role = %q, want assistant so the error sits inline", msg.Role)
	}
	if !strings.Contains(msg.Content, "connection refused") {
		t.Errorf("content missing the underlying error: %q", msg.Content)
	}
	if msg.Rendered != msg.Content {
		t.Errorf("rendered = %q, want pre-rendered plain text", msg.Rendered)
	}
	if msg.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}
