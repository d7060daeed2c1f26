package provider

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	openailib "github.com/sashabaranov/go-openai"
)

// OpenAIProvider adapts Provider to the OpenAI-compatible chat completions
// protocol. Works against any endpoint implementing the same wire format
// (BaseURL override), which is why the canonical provider name is "openai"
// even though it doubles as a generic OpenAI-compatible adapter.
type OpenAIProvider struct {
	client     *openailib.Client
	model      string
	maxRetries int
}

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	HTTPTimeout time.Duration
}

func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	clientConfig := openailib.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIProvider{
		client:     openailib.NewClientWithConfig(clientConfig),
		model:      model,
		maxRetries: maxRetries,
	}, nil
}

func (p *OpenAIProvider) Name() string  { return "openai" }
func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) Chat(ctx context.Context, transcript []Message, tools []ToolDefinition, systemInstruction string) (CompletionResponse, error) {
	msgs := convertMessagesToOpenAI(transcript, systemInstruction)

	req := openailib.ChatCompletionRequest{
		Model:    p.model,
		Messages: msgs,
	}
	if len(tools) > 0 {
		req.Tools = convertToolsToOpenAI(tools)
	}

	var resp openailib.ChatCompletionResponse
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		resp, lastErr = p.client.CreateChatCompletion(ctx, req)
		if lastErr == nil {
			break
		}
		if !isRetryableOpenAIError(lastErr) {
			break
		}
		if attempt < p.maxRetries {
			wait := time.Duration(attempt+1) * time.Second
			log.Printf("[provider:openai] retry %d/%d after %v, error: %v", attempt+1, p.maxRetries, wait, lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return CompletionResponse{}, wrapErr("openai", ctx.Err())
			}
		}
	}
	if lastErr != nil {
		return CompletionResponse{}, wrapErr("openai", lastErr)
	}
	if len(resp.Choices) == 0 {
		return CompletionResponse{}, wrapErr("openai", fmt.Errorf("no choices returned"))
	}

	return convertOpenAIResponse(resp), nil
}

// convertMessagesToOpenAI flattens the canonical transcript into OpenAI
// chat messages. System instruction becomes the leading system message
// (OpenAI has no separate out-of-band slot like Gemini/Anthropic).
func convertMessagesToOpenAI(transcript []Message, systemInstruction string) []openailib.ChatCompletionMessage {
	var msgs []openailib.ChatCompletionMessage
	if systemInstruction != "" {
		msgs = append(msgs, openailib.ChatCompletionMessage{
			Role:    openailib.ChatMessageRoleSystem,
			Content: systemInstruction,
		})
	}
	for _, m := range transcript {
		switch m.Role {
		case RoleUser:
			msgs = append(msgs, openailib.ChatCompletionMessage{
				Role:    openailib.ChatMessageRoleUser,
				Content: m.Text,
			})
		case RoleAssistant:
			msg := openailib.ChatCompletionMessage{
				Role:    openailib.ChatMessageRoleAssistant,
				Content: m.Text,
			}
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openailib.ToolCall{
					ID:   tc.ID,
					Type: openailib.ToolTypeFunction,
					Function: openailib.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Args),
					},
				})
			}
			msgs = append(msgs, msg)
		case RoleTool:
			for _, tr := range m.Results {
				msgs = append(msgs, openailib.ChatCompletionMessage{
					Role:       openailib.ChatMessageRoleTool,
					Content:    tr.Output,
					ToolCallID: tr.ToolCallID,
					Name:       tr.Name,
				})
			}
		}
	}
	return msgs
}

func convertToolsToOpenAI(tools []ToolDefinition) []openailib.Tool {
	result := make([]openailib.Tool, len(tools))
	for i, t := range tools {
		result[i] = openailib.Tool{
			Type: openailib.ToolTypeFunction,
			Function: &openailib.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return result
}

func convertOpenAIResponse(resp openailib.ChatCompletionResponse) CompletionResponse {
	choice := resp.Choices[0]
	out := CompletionResponse{
		Text:         choice.Message.Content,
		FinishReason: FinishStop,
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: []byte(tc.Function.Arguments),
		})
	}
	if len(out.ToolCalls) > 0 {
		out.FinishReason = FinishToolCalls
	} else if choice.FinishReason == openailib.FinishReasonLength {
		out.FinishReason = FinishMaxTokens
	}
	out.Usage = &Usage{
		InputTokens:  int64(resp.Usage.PromptTokens),
		OutputTokens: int64(resp.Usage.CompletionTokens),
	}
	return out
}

func isRetryableOpenAIError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"429", "rate limit", "500", "502", "503", "504", "timeout", "deadline exceeded", "connection reset"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
