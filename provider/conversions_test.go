package provider

import (
	"encoding/json"
	"testing"

	"github.com/ollama/ollama/api"

	"parley/model"
)

func TestMarshalApprovalRequest(t *testing.T) {
	msg := model.Message{
		Role: model.RoleApprovalRequest,
		Approval: &model.Approval{
			RequestID:   "apr_1",
			ToolName:    "get_weather",
			Arguments:   `{"city":"Paris"}`,
			ServerLabel: "weather",
		},
	}

	wire := marshalApproval(msg)
	var decoded map[string]any
	if err := json.Unmarshal([]byte(wire), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["type"] != "mcp_approval_request" {
		t.Errorf("type = %v", decoded["type"])
	}
	if decoded["id"] != "apr_1" {
		t.Errorf("id = %v", decoded["id"])
	}
	if decoded["tool_name"] != "get_weather" {
		t.Errorf("tool_name = %v", decoded["tool_name"])
	}
}

func TestMarshalApprovalResponse(t *testing.T) {
	approve := true
	msg := model.Message{
		Role: model.RoleApprovalResponse,
		Approval: &model.Approval{
			RequestID: "apr_1",
			Approved:  &approve,
		},
	}

	wire := marshalApproval(msg)
	var decoded map[string]any
	if err := json.Unmarshal([]byte(wire), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["type"] != "mcp_approval_response" {
		t.Errorf("type = %v", decoded["type"])
	}
	if decoded["approval_request_id"] != "apr_1" {
		t.Errorf("approval_request_id = %v", decoded["approval_request_id"])
	}
	if decoded["approve"] != true {
		t.Errorf("approve = %v", decoded["approve"])
	}
}

func TestMarshalApprovalDeniedAndMissing(t *testing.T) {
	deny := false
	denied := model.Message{
		Role:     model.RoleApprovalResponse,
		Approval: &model.Approval{RequestID: "apr_2", Approved: &deny},
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(marshalApproval(denied)), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["approve"] != false {
		t.Errorf("approve = %v", decoded["approve"])
	}

	// Messages without approval payloads serialize to nothing.
	if got := marshalApproval(model.Message{Role: model.RoleUser, Content: "hi"}); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestSerializeArguments(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"nil", nil, "{}"},
		{"empty", map[string]any{}, "{}"},
		{"simple", map[string]any{"city": "Paris"}, `{"city":"Paris"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := serializeArguments(tt.args); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToOllamaMessages(t *testing.T) {
	approve := true
	messages := []model.Message{
		{Role: model.RoleSystem, Content: "be terse"},
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello"},
		{Role: model.RoleTool, Content: `{"result":"ok"}`, ToolCallID: "c1"},
		{
			Role:     model.RoleApprovalRequest,
			Approval: &model.Approval{RequestID: "apr_1", ToolName: "search"},
		},
		{
			Role:     model.RoleApprovalResponse,
			Approval: &model.Approval{RequestID: "apr_1", Approved: &approve},
		},
	}

	result := toOllamaMessages(messages)
	if len(result) != 6 {
		t.Fatalf("got %d messages", len(result))
	}

	wantRoles := []string{"system", "user", "assistant", "tool", "assistant", "user"}
	for i, want := range wantRoles {
		if result[i].Role != want {
			t.Errorf("message %d role = %q, want %q", i, result[i].Role, want)
		}
	}

	// Approval echo/response carry the serialized protocol payload.
	if result[4].Content == "" || result[5].Content == "" {
		t.Error("approval messages lost their payload")
	}
}

func TestToOllamaMessagesFlattensParts(t *testing.T) {
	messages := []model.Message{
		{
			Role: model.RoleUser,
			Parts: []model.ContentPart{
				{Text: "look at "},
				{Text: "this"},
			},
		},
	}
	result := toOllamaMessages(messages)
	if result[0].Content != "look at this" {
		t.Errorf("content = %q", result[0].Content)
	}
}

func TestFromOllamaToolCalls(t *testing.T) {
	if got := fromOllamaToolCalls(nil); got != nil {
		t.Errorf("nil input produced %v", got)
	}

	calls := fromOllamaToolCalls([]api.ToolCall{
		{Function: api.ToolCallFunction{
			Name:      "get_weather",
			Arguments: map[string]any{"city": "Paris"},
		}},
	})
	if len(calls) != 1 {
		t.Fatalf("got %d calls", len(calls))
	}
	if calls[0].ID == "" {
		t.Error("no ID generated")
	}
	if calls[0].Name != "get_weather" {
		t.Errorf("name = %q", calls[0].Name)
	}
	if calls[0].ParseArguments()["city"] != "Paris" {
		t.Errorf("arguments = %q", calls[0].Arguments)
	}
}

func TestNewProviderDispatch(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"openai requires key", Config{Type: ProviderTypeOpenAI}, true},
		{"anthropic requires key", Config{Type: ProviderTypeAnthropic}, true},
		{"ollama defaults", Config{Type: ProviderTypeOllama}, false},
		{"openai with key", Config{Type: ProviderTypeOpenAI, APIKey: "sk-test"}, false},
		{"unknown type", Config{Type: ProviderType("fancy")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if p == nil {
				t.Fatal("nil provider")
			}
		})
	}
}
