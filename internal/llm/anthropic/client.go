package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jmoray/symposium/internal/llm"
)

const defaultBaseURL = "https://api.anthropic.com/v1"

// Client implements the provider interface for the Anthropic Messages API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a new Anthropic client
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{},
	}
}

// NewClientWithBaseURL points the client at a non-default endpoint.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	if baseURL != "" {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
	return c
}

// Name returns the provider name
func (c *Client) Name() string {
	return "anthropic"
}

// SetAPIKey updates the provider's API key
func (c *Client) SetAPIKey(key string) {
	c.apiKey = key
}

// Send issues one non-streaming Messages request and maps the response
// onto the canonical outcome sum.
func (c *Client) Send(ctx context.Context, req *llm.Request) (llm.Outcome, error) {
	body := map[string]interface{}{
		"model":      req.Model,
		"messages":   c.convertMessages(req.Messages),
		"max_tokens": 4096,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}
	if req.System != "" {
		body["system"] = req.System
	}
	if len(req.Tools) > 0 {
		body["tools"] = c.convertTools(llm.SanitizeTools(req.Tools))
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &llm.TransportError{Provider: c.Name(), Status: resp.StatusCode, Body: string(raw)}
	}

	var msg messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	usage := llm.Usage{
		PromptTokens:     msg.Usage.InputTokens,
		CompletionTokens: msg.Usage.OutputTokens,
		TotalTokens:      msg.Usage.InputTokens + msg.Usage.OutputTokens,
	}

	var invocations []llm.ToolCall
	var text strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			args := block.Input
			if args == nil {
				args = make(map[string]interface{})
			}
			invocations = append(invocations, llm.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
			})
		}
	}

	if len(invocations) > 0 {
		return llm.ToolCallOutcome{Invocations: invocations, Usage: usage}, nil
	}
	return llm.TextOutcome{Text: text.String(), Usage: usage}, nil
}

// convertMessages maps the canonical conversation onto Anthropic's
// vocabulary: the system instruction travels outside the array, tool
// results ride inside user-role tool_result blocks, and assistant
// tool invocations become tool_use content blocks.
func (c *Client) convertMessages(messages []llm.Message) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(messages))

	for _, msg := range messages {
		if msg.Role == string(llm.RoleSystem) {
			// System content is hoisted by the caller into req.System.
			continue
		}

		if msg.ToolCallID != "" {
			out = append(out, map[string]interface{}{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type":        "tool_result",
						"tool_use_id": msg.ToolCallID,
						"content":     msg.Content,
					},
				},
			})
			continue
		}

		if len(msg.ToolCalls) > 0 {
			content := make([]map[string]interface{}, 0, len(msg.ToolCalls)+1)
			if msg.Content != "" {
				content = append(content, map[string]interface{}{
					"type": "text",
					"text": msg.Content,
				})
			}
			for _, tc := range msg.ToolCalls {
				content = append(content, map[string]interface{}{
					"type":  "tool_use",
					"id":    tc.ID,
					"name":  tc.Name,
					"input": tc.Arguments,
				})
			}
			out = append(out, map[string]interface{}{
				"role":    "assistant",
				"content": content,
			})
			continue
		}

		out = append(out, map[string]interface{}{
			"role":    msg.Role,
			"content": msg.Content,
		})
	}

	return out
}

// convertTools converts llm.ToolDefinition to Anthropic format
func (c *Client) convertTools(tools []llm.ToolDefinition) []map[string]interface{} {
	result := make([]map[string]interface{}, len(tools))

	for i, tool := range tools {
		result[i] = map[string]interface{}{
			"name":         tool.Name,
			"description":  tool.Description,
			"input_schema": tool.Parameters,
		}
	}

	return result
}

// messagesResponse is the non-streaming Messages API response shape.
type messagesResponse struct {
	ID         string         `json:"id"`
	StopReason string         `json:"stop_reason"`
	Content    []contentBlock `json:"content"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type contentBlock struct {
	Type  string                 `json:"type"`
	Text  string                 `json:"text,omitempty"`
	ID    string                 `json:"id,omitempty"`
	Name  string                 `json:"name,omitempty"`
	Input map[string]interface{} `json:"input,omitempty"`
}
