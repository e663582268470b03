package ollama

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

const defaultBaseURL = "http://localhost:11434"

// Client implements the provider interface for a local Ollama daemon.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new Ollama client
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return "ollama"
}

// Send issues one non-streaming chat request and maps the response onto
// the canonical outcome sum.
func (c *Client) Send(ctx context.Context, req *llm.Request) (llm.Outcome, error) {
	body := map[string]interface{}{
		"model":    req.Model,
		"messages": c.convertMessages(req.System, req.Messages),
		"stream":   false,
	}

	options := map[string]interface{}{}
	if req.Temperature > 0 {
		options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	if len(options) > 0 {
		body["options"] = options
	}

	if len(req.Tools) > 0 {
		body["tools"] = c.convertTools(llm.SanitizeTools(req.Tools))
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
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

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	usage := llm.Usage{
		PromptTokens:     chat.PromptEvalCount,
		CompletionTokens: chat.EvalCount,
		TotalTokens:      chat.PromptEvalCount + chat.EvalCount,
	}

	if len(chat.Message.ToolCalls) > 0 {
		invocations := make([]llm.ToolCall, 0, len(chat.Message.ToolCalls))
		for _, tc := range chat.Message.ToolCalls {
			args := tc.Function.Arguments
			if args == nil {
				args = make(map[string]interface{})
			}
			// Ollama does not assign invocation IDs; the function name
			// stands in so results can still be paired.
			invocations = append(invocations, llm.ToolCall{
				ID:        tc.Function.Name,
				Name:      tc.Function.Name,
				Arguments: args,
			})
		}
		return llm.ToolCallOutcome{Invocations: invocations, Usage: usage}, nil
	}

	return llm.TextOutcome{Text: chat.Message.Content, Usage: usage}, nil
}

// convertMessages maps the canonical conversation onto Ollama's chat
// vocabulary, which follows the plain role/content shape.
func (c *Client) convertMessages(system string, messages []llm.Message) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(messages)+1)

	if system != "" {
		out = append(out, map[string]interface{}{
			"role":    "system",
			"content": system,
		})
	}

	for _, msg := range messages {
		switch {
		case msg.ToolCallID != "":
			out = append(out, map[string]interface{}{
				"role":    "tool",
				"content": msg.Content,
			})

		case len(msg.ToolCalls) > 0:
			calls := make([]map[string]interface{}, 0, len(msg.ToolCalls))
			for _, tc := range msg.ToolCalls {
				calls = append(calls, map[string]interface{}{
					"function": map[string]interface{}{
						"name":      tc.Name,
						"arguments": tc.Arguments,
					},
				})
			}
			out = append(out, map[string]interface{}{
				"role":       "assistant",
				"content":    msg.Content,
				"tool_calls": calls,
			})

		default:
			out = append(out, map[string]interface{}{
				"role":    msg.Role,
				"content": msg.Content,
			})
		}
	}

	return out
}

// convertTools converts llm.ToolDefinition to Ollama tool format
func (c *Client) convertTools(tools []llm.ToolDefinition) []map[string]interface{} {
	result := make([]map[string]interface{}, len(tools))

	for i, tool := range tools {
		result[i] = map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        tool.Name,
				"description": tool.Description,
				"parameters":  tool.Parameters,
			},
		}
	}

	return result
}

// chatResponse is the non-streaming /api/chat response shape.
type chatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role      string `json:"role"`
		Content   string `json:"content"`
		ToolCalls []struct {
			Function struct {
				Name      string                 `json:"name"`
				Arguments map[string]interface{} `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls,omitempty"`
	} `json:"message"`
	Done            bool `json:"done"`
	PromptEvalCount int  `json:"prompt_eval_count"`
	EvalCount       int  `json:"eval_count"`
}
