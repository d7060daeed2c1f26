package provider

import (
	"encoding/json"
	"testing"

	openailib "github.com/sashabaranov/go-openai"
)

func TestConvertMessagesToOpenAI_SystemInstructionLeads(t *testing.T) {
	msgs := convertMessagesToOpenAI([]Message{NewUserMessage("hi")}, "be terse")
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != openailib.ChatMessageRoleSystem || msgs[0].Content != "be terse" {
		t.Fatalf("expected leading system message, got %+v", msgs[0])
	}
}

func TestConvertMessagesToOpenAI_ToolCallRoundTrip(t *testing.T) {
	transcript := []Message{
		NewAssistantMessage("", []ToolCall{{ID: "1", Name: "echo", Args: json.RawMessage(`{"message":"x"}`)}}),
		NewToolResultBatch([]ToolResult{{ToolCallID: "1", Name: "echo", Output: "Echo: x"}}),
	}
	msgs := convertMessagesToOpenAI(transcript, "")
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if len(msgs[0].ToolCalls) != 1 || msgs[0].ToolCalls[0].Function.Name != "echo" {
		t.Fatalf("expected assistant message carrying the echo tool call, got %+v", msgs[0].ToolCalls)
	}
	if msgs[1].ToolCallID != "1" || msgs[1].Content != "Echo: x" {
		t.Fatalf("expected tool message matching call ID 1, got %+v", msgs[1])
	}
}

func TestConvertOpenAIResponse_TextOnly(t *testing.T) {
	resp := openailib.ChatCompletionResponse{
		Choices: []openailib.ChatCompletionChoice{
			{Message: openailib.ChatCompletionMessage{Role: openailib.ChatMessageRoleAssistant, Content: "hi there"}},
		},
	}
	out := convertOpenAIResponse(resp)
	if out.FinishReason != FinishStop {
		t.Fatalf("expected FinishStop, got %v", out.FinishReason)
	}
	if out.Text != "hi there" {
		t.Fatalf("expected text 'hi there', got %q", out.Text)
	}
}

func TestIsRetryableOpenAIError(t *testing.T) {
	if !isRetryableOpenAIError(errString("429 rate limit exceeded")) {
		t.Error("429 should be retryable")
	}
	if isRetryableOpenAIError(errString("invalid_api_key")) {
		t.Error("auth errors should not be retryable")
	}
}
