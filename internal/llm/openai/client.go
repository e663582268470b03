package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jmoray/symposium/internal/llm"
)

// Client implements the provider interface on top of the chat
// completions SDK. It also serves OpenAI-compatible endpoints when
// constructed with a custom base URL.
type Client struct {
	client  *openai.Client
	baseURL string
}

// NewClient creates a new OpenAI client
func NewClient(apiKey string) *Client {
	return &Client{client: openai.NewClient(apiKey)}
}

// NewClientWithBaseURL points the client at an OpenAI-compatible endpoint.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	if baseURL == "" {
		return NewClient(apiKey)
	}
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	return &Client{client: openai.NewClientWithConfig(config), baseURL: baseURL}
}

// Name returns the provider name
func (c *Client) Name() string {
	return "openai"
}

// SetAPIKey updates the provider's API key. The SDK bakes the key into
// its client, so the client is rebuilt, keeping any custom base URL.
func (c *Client) SetAPIKey(key string) {
	if c.baseURL != "" {
		config := openai.DefaultConfig(key)
		config.BaseURL = c.baseURL
		c.client = openai.NewClientWithConfig(config)
		return
	}
	c.client = openai.NewClient(key)
}

// Send issues one chat completion and maps the response onto the
// canonical outcome sum.
func (c *Client) Send(ctx context.Context, req *llm.Request) (llm.Outcome, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: c.convertMessages(req.System, req.Messages),
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		chatReq.Temperature = float32(req.Temperature)
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = c.convertTools(llm.SanitizeTools(req.Tools))
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &llm.TransportError{Provider: c.Name(), Status: apiErr.HTTPStatusCode, Body: apiErr.Message}
		}
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	usage := llm.Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}

	if len(resp.Choices) == 0 {
		return llm.TextOutcome{Usage: usage}, nil
	}
	choice := resp.Choices[0].Message

	if len(choice.ToolCalls) > 0 {
		invocations := make([]llm.ToolCall, 0, len(choice.ToolCalls))
		for _, tc := range choice.ToolCalls {
			args := make(map[string]interface{})
			if tc.Function.Arguments != "" {
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
					return nil, fmt.Errorf("failed to parse tool arguments for %s: %w", tc.Function.Name, err)
				}
			}
			invocations = append(invocations, llm.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: args,
			})
		}
		return llm.ToolCallOutcome{Invocations: invocations, Usage: usage}, nil
	}

	return llm.TextOutcome{Text: choice.Content, Usage: usage}, nil
}

// convertMessages maps the canonical conversation onto the chat
// completions vocabulary. The system instruction leads the array, and
// assistant invocation arguments are re-serialized to the JSON string
// the API expects.
func (c *Client) convertMessages(system string, messages []llm.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)

	if system != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, msg := range messages {
		switch {
		case msg.ToolCallID != "":
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    msg.Content,
				ToolCallID: msg.ToolCallID,
			})

		case len(msg.ToolCalls) > 0:
			calls := make([]openai.ToolCall, 0, len(msg.ToolCalls))
			for _, tc := range msg.ToolCalls {
				args, err := json.Marshal(tc.Arguments)
				if err != nil {
					args = []byte("{}")
				}
				calls = append(calls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:      openai.ChatMessageRoleAssistant,
				Content:   msg.Content,
				ToolCalls: calls,
			})

		default:
			out = append(out, openai.ChatCompletionMessage{
				Role:    msg.Role,
				Content: msg.Content,
			})
		}
	}

	return out
}

// convertTools converts llm.ToolDefinition to chat completion tools
func (c *Client) convertTools(tools []llm.ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(tools))

	for i, tool := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		}
	}

	return result
}
