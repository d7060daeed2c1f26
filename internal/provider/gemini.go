package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// GeminiProvider adapts Provider to Google's Gemini API via the official
// google.golang.org/genai SDK. It is the default vendor (§6): the
// transcript-translation rules it implements (contents/parts/functionCall/
// functionResponse) are the shape described verbatim in §4.1.
type GeminiProvider struct {
	client  *genai.Client
	model   string
	retrier retrier
}

// GeminiConfig configures a GeminiProvider.
type GeminiConfig struct {
	APIKey     string
	Model      string
	MaxRetries int
	RetryDelay time.Duration
}

func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-pro"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	return &GeminiProvider{
		client:  client,
		model:   model,
		retrier: newRetrier(cfg.MaxRetries, cfg.RetryDelay),
	}, nil
}

func (p *GeminiProvider) Name() string  { return "gemini" }
func (p *GeminiProvider) Model() string { return p.model }

func (p *GeminiProvider) Chat(ctx context.Context, transcript []Message, tools []ToolDefinition, systemInstruction string) (CompletionResponse, error) {
	contents := convertMessagesToGemini(transcript)
	config := &genai.GenerateContentConfig{}
	if systemInstruction != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}}
	}
	if len(tools) > 0 {
		config.Tools = convertToolsToGemini(tools)
	}

	var resp *genai.GenerateContentResponse
	err := p.retrier.do(ctx, isRetryableGeminiError, func() error {
		var callErr error
		resp, callErr = p.client.Models.GenerateContent(ctx, p.model, contents, config)
		return callErr
	})
	if err != nil {
		return CompletionResponse{}, wrapErr("gemini", err)
	}
	return convertGeminiResponse(resp), nil
}

// convertMessagesToGemini implements the §4.1 transcript translation rules
// for the Gemini wire shape, grounded on haasonsaas-nexus's
// GoogleProvider.convertMessages.
func convertMessagesToGemini(transcript []Message) []*genai.Content {
	var result []*genai.Content
	for _, msg := range transcript {
		content := &genai.Content{}
		switch msg.Role {
		case RoleUser:
			content.Role = genai.RoleUser
			if msg.Text != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: msg.Text})
			}
		case RoleAssistant:
			content.Role = genai.RoleModel
			if msg.Text != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: msg.Text})
			}
			for _, tc := range msg.ToolCalls {
				var args map[string]any
				if err := json.Unmarshal(tc.Args, &args); err != nil {
					args = map[string]any{}
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{Name: tc.Name, Args: args},
				})
			}
		case RoleTool:
			content.Role = genai.RoleUser
			for _, tr := range msg.Results {
				content.Parts = append(content.Parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						Name:     tr.Name,
						Response: map[string]any{"result": tr.Output},
					},
				})
			}
		}
		if len(content.Parts) > 0 {
			result = append(result, content)
		}
	}
	return result
}

func convertToolsToGemini(tools []ToolDefinition) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		var schemaMap map[string]any
		if err := json.Unmarshal(t.Parameters, &schemaMap); err != nil {
			schemaMap = nil
		}
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  toGeminiSchema(schemaMap),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// toGeminiSchema is the §4.1 recursive JSON-Schema walk, grounded on
// haasonsaas-nexus's toolconv.ToGeminiSchema.
func toGeminiSchema(schemaMap map[string]any) *genai.Schema {
	if schemaMap == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}
	schema := &genai.Schema{}
	if t, ok := schemaMap["type"].(string); ok {
		schema.Type = genai.Type(strings.ToUpper(t))
	}
	if desc, ok := schemaMap["description"].(string); ok {
		schema.Description = desc
	}
	if enum, ok := schemaMap["enum"].([]any); ok {
		for _, e := range enum {
			if s, ok := e.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}
	if props, ok := schemaMap["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				schema.Properties[name] = toGeminiSchema(propMap)
			}
		}
	}
	if required, ok := schemaMap["required"].([]any); ok {
		for _, r := range required {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	if items, ok := schemaMap["items"].(map[string]any); ok {
		schema.Items = toGeminiSchema(items)
	}
	return schema
}

func convertGeminiResponse(resp *genai.GenerateContentResponse) CompletionResponse {
	out := CompletionResponse{FinishReason: FinishStop}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}

	var texts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
		if part.FunctionCall != nil {
			args, _ := json.Marshal(part.FunctionCall.Args)
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				// Gemini doesn't assign its function calls an ID the way
				// OpenAI/Anthropic do; synthesize one so that two calls to
				// the same tool within one round don't collide when the
				// loop matches ToolResults back to ToolCalls by ID.
				ID:   uuid.NewString(),
				Name: part.FunctionCall.Name,
				Args: args,
			})
		}
	}
	out.Text = strings.Join(texts, "")
	if len(out.ToolCalls) > 0 {
		out.FinishReason = FinishToolCalls
	}

	if resp.UsageMetadata != nil {
		out.Usage = &Usage{
			InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out
}

// isRetryableGeminiError classifies transient Gemini failures, grounded on
// haasonsaas-nexus's GoogleProvider.isRetryableError.
func isRetryableGeminiError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"rate limit", "429", "too many requests", "resource exhausted", "quota",
		"500", "502", "503", "504", "internal server error", "bad gateway", "service unavailable", "gateway timeout",
		"timeout", "deadline exceeded",
		"connection reset", "connection refused", "no such host",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
