package google

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

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client implements the provider interface for the Gemini API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a new Google Gemini client
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
	return "google"
}

// SetAPIKey updates the provider's API key
func (c *Client) SetAPIKey(key string) {
	c.apiKey = key
}

// Send issues one generateContent request and maps the response onto the
// canonical outcome sum.
func (c *Client) Send(ctx context.Context, req *llm.Request) (llm.Outcome, error) {
	body := map[string]interface{}{
		"contents": c.convertMessages(req.Messages),
	}

	generationConfig := map[string]interface{}{}
	if req.MaxTokens > 0 {
		generationConfig["maxOutputTokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		generationConfig["temperature"] = req.Temperature
	}
	if len(generationConfig) > 0 {
		body["generationConfig"] = generationConfig
	}

	if req.System != "" {
		body["systemInstruction"] = map[string]interface{}{
			"parts": []map[string]interface{}{{"text": req.System}},
		}
	}

	if len(req.Tools) > 0 {
		body["tools"] = []map[string]interface{}{
			{"functionDeclarations": c.convertTools(llm.SanitizeTools(req.Tools))},
		}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, req.Model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
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

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	usage := llm.Usage{
		PromptTokens:     gen.UsageMetadata.PromptTokenCount,
		CompletionTokens: gen.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      gen.UsageMetadata.TotalTokenCount,
	}

	if len(gen.Candidates) == 0 {
		return llm.TextOutcome{Usage: usage}, nil
	}

	var invocations []llm.ToolCall
	var text strings.Builder
	for _, part := range gen.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			args := part.FunctionCall.Args
			if args == nil {
				args = make(map[string]interface{})
			}
			// Gemini does not assign invocation IDs; the function name
			// stands in so results can still be paired.
			invocations = append(invocations, llm.ToolCall{
				ID:        part.FunctionCall.Name,
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
			continue
		}
		text.WriteString(part.Text)
	}

	if len(invocations) > 0 {
		return llm.ToolCallOutcome{Invocations: invocations, Usage: usage}, nil
	}
	return llm.TextOutcome{Text: text.String(), Usage: usage}, nil
}

// convertMessages maps the canonical conversation onto Gemini's
// vocabulary. The assistant role is relabeled "model" here and nowhere
// else; tool results become functionResponse parts keyed by function
// name.
func (c *Client) convertMessages(messages []llm.Message) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(messages))

	for _, msg := range messages {
		switch {
		case msg.Role == string(llm.RoleSystem):
			// Hoisted into systemInstruction by Send.
			continue

		case msg.ToolCallID != "":
			out = append(out, map[string]interface{}{
				"role": "user",
				"parts": []map[string]interface{}{
					{
						"functionResponse": map[string]interface{}{
							"name":     msg.ToolCallID,
							"response": map[string]interface{}{"content": msg.Content},
						},
					},
				},
			})

		case len(msg.ToolCalls) > 0:
			parts := make([]map[string]interface{}, 0, len(msg.ToolCalls))
			for _, tc := range msg.ToolCalls {
				parts = append(parts, map[string]interface{}{
					"functionCall": map[string]interface{}{
						"name": tc.Name,
						"args": tc.Arguments,
					},
				})
			}
			out = append(out, map[string]interface{}{
				"role":  "model",
				"parts": parts,
			})

		default:
			role := msg.Role
			if role == string(llm.RoleAssistant) {
				role = "model"
			}
			out = append(out, map[string]interface{}{
				"role":  role,
				"parts": []map[string]interface{}{{"text": msg.Content}},
			})
		}
	}

	return out
}

// convertTools converts llm.ToolDefinition to Gemini function declarations
func (c *Client) convertTools(tools []llm.ToolDefinition) []map[string]interface{} {
	result := make([]map[string]interface{}, len(tools))

	for i, tool := range tools {
		result[i] = map[string]interface{}{
			"name":        tool.Name,
			"description": tool.Description,
			"parameters":  tool.Parameters,
		}
	}

	return result
}

// generateResponse is the generateContent response shape.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []responsePart `json:"parts"`
			Role  string         `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

type responsePart struct {
	Text         string `json:"text,omitempty"`
	FunctionCall *struct {
		Name string                 `json:"name"`
		Args map[string]interface{} `json:"args"`
	} `json:"functionCall,omitempty"`
}
