package mcp

import (
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
)

func weatherTool() mcptypes.Tool {
	return mcptypes.Tool{
		Name:        "get_weather",
		Description: "Get current weather",
		InputSchema: mcptypes.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"city": map[string]any{
					"type":        "string",
					"description": "City name",
				},
				"units": map[string]any{
					"type": "string",
					"enum": []any{"metric", "imperial"},
				},
			},
			Required: []string{"city"},
		},
	}
}

func TestToOpenAITools(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		if got := ToOpenAITools(nil); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})

	t.Run("schema reshaping", func(t *testing.T) {
		result := ToOpenAITools([]mcptypes.Tool{weatherTool()})
		if len(result) != 1 {
			t.Fatalf("got %d tools", len(result))
		}

		fn := result[0].OfFunction
		if fn == nil {
			t.Fatal("not a function tool")
		}
		if fn.Function.Name != "get_weather" {
			t.Errorf("name = %q", fn.Function.Name)
		}
		params := fn.Function.Parameters
		if params["type"] != "object" {
			t.Errorf("type = %v", params["type"])
		}
		required, ok := params["required"].([]string)
		if !ok || len(required) != 1 || required[0] != "city" {
			t.Errorf("required = %v", params["required"])
		}
		props, ok := params["properties"].(map[string]any)
		if !ok || len(props) != 2 {
			t.Errorf("properties = %v", params["properties"])
		}
	})
}

func TestToAnthropicTools(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		if got := ToAnthropicTools(nil); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})

	t.Run("schema reshaping", func(t *testing.T) {
		result := ToAnthropicTools([]mcptypes.Tool{weatherTool()})
		if len(result) != 1 {
			t.Fatalf("got %d tools", len(result))
		}

		tool := result[0].OfTool
		if tool == nil {
			t.Fatal("not a standard tool")
		}
		if tool.Name != "get_weather" {
			t.Errorf("name = %q", tool.Name)
		}
		if tool.Description.Value != "Get current weather" {
			t.Errorf("description = %q", tool.Description.Value)
		}
		if len(tool.InputSchema.Required) != 1 {
			t.Errorf("required = %v", tool.InputSchema.Required)
		}
	})
}

func TestToOllamaTools(t *testing.T) {
	tests := []struct {
		name     string
		input    []mcptypes.Tool
		expected int
		validate func(t *testing.T, result []api.Tool)
	}{
		{
			name:     "empty tools",
			input:    []mcptypes.Tool{},
			expected: 0,
		},
		{
			name:     "typed property conversion",
			input:    []mcptypes.Tool{weatherTool()},
			expected: 1,
			validate: func(t *testing.T, result []api.Tool) {
				if result[0].Type != "function" {
					t.Errorf("type = %q", result[0].Type)
				}
				if result[0].Function.Name != "get_weather" {
					t.Errorf("name = %q", result[0].Function.Name)
				}

				params := result[0].Function.Parameters
				if params.Type != "object" {
					t.Errorf("params type = %q", params.Type)
				}
				if len(params.Required) != 1 {
					t.Errorf("required = %v", params.Required)
				}

				city, ok := params.Properties["city"]
				if !ok {
					t.Fatal("city property not found")
				}
				if len(city.Type) != 1 || city.Type[0] != "string" {
					t.Errorf("city type = %v", city.Type)
				}
				if city.Description != "City name" {
					t.Errorf("city description = %q", city.Description)
				}

				units := params.Properties["units"]
				if len(units.Enum) != 2 {
					t.Errorf("units enum = %v", units.Enum)
				}
			},
		},
		{
			name: "union and array types",
			input: []mcptypes.Tool{
				{
					Name: "query",
					InputSchema: mcptypes.ToolInputSchema{
						Type: "object",
						Properties: map[string]any{
							"limit": map[string]any{
								"type": []any{"integer", "null"},
							},
							"tags": map[string]any{
								"type":  "array",
								"items": map[string]any{"type": "string"},
							},
							"filter": map[string]any{
								"anyOf": []any{
									map[string]any{"type": "string"},
									map[string]any{"type": "number"},
								},
							},
						},
					},
				},
			},
			expected: 1,
			validate: func(t *testing.T, result []api.Tool) {
				props := result[0].Function.Parameters.Properties

				limit := props["limit"]
				if len(limit.Type) != 2 {
					t.Errorf("limit type = %v", limit.Type)
				}

				tags := props["tags"]
				if tags.Items == nil {
					t.Error("tags items lost")
				}

				filter := props["filter"]
				if len(filter.AnyOf) != 2 {
					t.Errorf("filter anyOf = %v", filter.AnyOf)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToOllamaTools(tt.input)
			if len(result) != tt.expected {
				t.Fatalf("got %d tools, want %d", len(result), tt.expected)
			}
			if tt.validate != nil {
				tt.validate(t, result)
			}
		})
	}
}

func TestSplitToolName(t *testing.T) {
	tests := []struct {
		input      string
		wantServer string
		wantTool   string
	}{
		{"filesystem.read_file", "filesystem", "read_file"},
		{"bare_tool", "", "bare_tool"},
		{"search.web.fetch", "search", "web.fetch"},
	}
	for _, tt := range tests {
		server, tool := splitToolName(tt.input)
		if server != tt.wantServer || tool != tt.wantTool {
			t.Errorf("splitToolName(%q) = (%q, %q), want (%q, %q)",
				tt.input, server, tool, tt.wantServer, tt.wantTool)
		}
	}
}
