package provider

import (
	"encoding/json"
	"testing"

	"google.golang.org/genai"
)

func TestToGeminiSchema_BasicTypes(t *testing.T) {
	raw := map[string]any{
		"type":        "object",
		"description": "args",
		"properties": map[string]any{
			"name": map[string]any{"type": "string", "description": "a name"},
			"age":  map[string]any{"type": "integer"},
		},
		"required": []any{"name"},
	}

	schema := toGeminiSchema(raw)
	if schema.Type != genai.TypeObject {
		t.Fatalf("expected TypeObject, got %v", schema.Type)
	}
	if schema.Description != "args" {
		t.Fatalf("expected description 'args', got %q", schema.Description)
	}
	if len(schema.Required) != 1 || schema.Required[0] != "name" {
		t.Fatalf("expected required=[name], got %v", schema.Required)
	}
	if schema.Properties["name"].Type != genai.TypeString {
		t.Fatalf("expected name property TypeString, got %v", schema.Properties["name"].Type)
	}
	if schema.Properties["age"].Type != genai.TypeInteger {
		t.Fatalf("expected age property TypeInteger, got %v", schema.Properties["age"].Type)
	}
}

func TestToGeminiSchema_NilInput(t *testing.T) {
	schema := toGeminiSchema(nil)
	if schema.Type != genai.TypeObject {
		t.Fatalf("nil schema should fall back to an empty object schema, got %v", schema.Type)
	}
}

func TestToGeminiSchema_NestedArrayItems(t *testing.T) {
	raw := map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "string",
			"enum": []any{"a", "b"},
		},
	}
	schema := toGeminiSchema(raw)
	if schema.Items == nil {
		t.Fatal("expected items schema to be populated")
	}
	if len(schema.Items.Enum) != 2 {
		t.Fatalf("expected 2 enum values, got %v", schema.Items.Enum)
	}
}

func TestConvertMessagesToGemini_ToolResultBatch(t *testing.T) {
	transcript := []Message{
		NewUserMessage("hi"),
		NewAssistantMessage("", []ToolCall{{ID: "1", Name: "echo", Args: json.RawMessage(`{"message":"x"}`)}}),
		NewToolResultBatch([]ToolResult{{ToolCallID: "1", Name: "echo", Output: "Echo: x"}}),
	}

	contents := convertMessagesToGemini(transcript)
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}
	if contents[2].Role != genai.RoleUser {
		t.Fatalf("tool result batch should map to RoleUser, got %v", contents[2].Role)
	}
	if contents[2].Parts[0].FunctionResponse == nil {
		t.Fatal("expected a FunctionResponse part for the tool result batch")
	}
	if contents[2].Parts[0].FunctionResponse.Response["result"] != "Echo: x" {
		t.Fatalf("expected wrapped result payload, got %v", contents[2].Parts[0].FunctionResponse.Response)
	}
}

func TestConvertGeminiResponse_ToolCallSetsFinishReason(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{
					{FunctionCall: &genai.FunctionCall{Name: "echo", Args: map[string]any{"message": "x"}}},
				},
			},
		}},
	}
	out := convertGeminiResponse(resp)
	if out.FinishReason != FinishToolCalls {
		t.Fatalf("expected FinishToolCalls, got %v", out.FinishReason)
	}
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].Name != "echo" {
		t.Fatalf("expected one echo tool call, got %v", out.ToolCalls)
	}
}

func TestConvertGeminiResponse_DuplicateToolCallsGetDistinctIDs(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{
					{FunctionCall: &genai.FunctionCall{Name: "grep_search", Args: map[string]any{"pattern": "a"}}},
					{FunctionCall: &genai.FunctionCall{Name: "grep_search", Args: map[string]any{"pattern": "b"}}},
				},
			},
		}},
	}
	out := convertGeminiResponse(resp)
	if len(out.ToolCalls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(out.ToolCalls))
	}
	if out.ToolCalls[0].ID == "" || out.ToolCalls[1].ID == "" {
		t.Fatal("expected non-empty synthesized IDs")
	}
	if out.ToolCalls[0].ID == out.ToolCalls[1].ID {
		t.Fatalf("expected distinct IDs for two calls to the same tool, both got %q", out.ToolCalls[0].ID)
	}
}

func TestIsRetryableGeminiError(t *testing.T) {
	cases := map[string]bool{
		"429 too many requests": true,
		"internal server error": true,
		"deadline exceeded":     true,
		"invalid api key":       false,
	}
	for msg, want := range cases {
		got := isRetryableGeminiError(errString(msg))
		if got != want {
			t.Errorf("isRetryableGeminiError(%q) = %v, want %v", msg, got, want)
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }
