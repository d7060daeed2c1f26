package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider adapts Provider to Anthropic's Messages API, grounded on
// haasonsaas-nexus's AnthropicProvider and toolconv/anthropic.go.
type AnthropicProvider struct {
	client  anthropic.Client
	model   string
	retrier retrier
}

type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	RetryDelay time.Duration
}

func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicProvider{
		client:  anthropic.NewClient(opts...),
		model:   model,
		retrier: newRetrier(cfg.MaxRetries, cfg.RetryDelay),
	}, nil
}

func (p *AnthropicProvider) Name() string  { return "anthropic" }
func (p *AnthropicProvider) Model() string { return p.model }

func (p *AnthropicProvider) Chat(ctx context.Context, transcript []Message, tools []ToolDefinition, systemInstruction string) (CompletionResponse, error) {
	messages, err := convertMessagesToAnthropic(transcript)
	if err != nil {
		return CompletionResponse{}, wrapErr("anthropic", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		Messages:  messages,
		MaxTokens: 4096,
	}
	if systemInstruction != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemInstruction}}
	}
	if len(tools) > 0 {
		toolParams, err := convertToolsToAnthropic(tools)
		if err != nil {
			return CompletionResponse{}, wrapErr("anthropic", err)
		}
		params.Tools = toolParams
	}

	var msg *anthropic.Message
	err = p.retrier.do(ctx, isRetryableAnthropicError, func() error {
		var callErr error
		msg, callErr = p.client.Messages.New(ctx, params)
		return callErr
	})
	if err != nil {
		return CompletionResponse{}, wrapErr("anthropic", err)
	}
	return convertAnthropicResponse(msg), nil
}

// convertMessagesToAnthropic implements §4.1's translation rules for
// Anthropic's content-block message shape.
func convertMessagesToAnthropic(transcript []Message) ([]anthropic.MessageParam, error) {
	var result []anthropic.MessageParam
	for _, m := range transcript {
		var blocks []anthropic.ContentBlockParamUnion
		switch m.Role {
		case RoleUser:
			if m.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Text))
			}
		case RoleAssistant:
			if m.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Text))
			}
			for _, tc := range m.ToolCalls {
				var input map[string]any
				if err := json.Unmarshal(tc.Args, &input); err != nil {
					return nil, fmt.Errorf("invalid tool call args for %s: %w", tc.Name, err)
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
		case RoleTool:
			for _, tr := range m.Results {
				blocks = append(blocks, anthropic.NewToolResultBlock(tr.ToolCallID, tr.Output, tr.IsError))
			}
		}
		if len(blocks) == 0 {
			continue
		}
		if m.Role == RoleAssistant {
			result = append(result, anthropic.NewAssistantMessage(blocks...))
		} else {
			result = append(result, anthropic.NewUserMessage(blocks...))
		}
	}
	return result, nil
}

func convertToolsToAnthropic(tools []ToolDefinition) ([]anthropic.ToolUnionParam, error) {
	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(t.Parameters, &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", t.Name, err)
		}
		toolParam := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if toolParam.OfTool == nil {
			return nil, fmt.Errorf("invalid tool schema for %s", t.Name)
		}
		toolParam.OfTool.Description = anthropic.String(t.Description)
		result = append(result, toolParam)
	}
	return result, nil
}

func convertAnthropicResponse(msg *anthropic.Message) CompletionResponse {
	out := CompletionResponse{FinishReason: FinishStop}
	if msg == nil {
		return out
	}
	var texts []string
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			texts = append(texts, block.Text)
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:   block.ID,
				Name: block.Name,
				Args: block.Input,
			})
		}
	}
	out.Text = strings.Join(texts, "")
	if len(out.ToolCalls) > 0 {
		out.FinishReason = FinishToolCalls
	}
	out.Usage = &Usage{
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}
	return out
}

func isRetryableAnthropicError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"rate limit", "429", "too many requests", "overloaded",
		"500", "502", "503", "504", "internal server error", "bad gateway", "service unavailable",
		"timeout", "deadline exceeded", "connection reset", "connection refused",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
