package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmoray/symposium/internal/llm"
)

func textResponse(text string) string {
	return `{
		"id": "msg_01",
		"stop_reason": "end_turn",
		"content": [{"type": "text", "text": "` + text + `"}],
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`
}

func TestSendPlainText(t *testing.T) {
	var captured map[string]interface{}
	var headers http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		assert.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(textResponse("hello there")))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("sk-test", server.URL+"/v1")
	out, err := client.Send(context.Background(), &llm.Request{
		Model:       "claude-x",
		System:      "be terse",
		Messages:    []llm.Message{{Role: "user", Content: "hi"}},
		Temperature: 0.4,
		MaxTokens:   512,
	})
	require.NoError(t, err)

	text, ok := out.(llm.TextOutcome)
	require.True(t, ok)
	assert.Equal(t, "hello there", text.Text)
	assert.Equal(t, 10, text.Usage.PromptTokens)
	assert.Equal(t, 5, text.Usage.CompletionTokens)
	assert.Equal(t, 15, text.Usage.TotalTokens)

	assert.Equal(t, "sk-test", headers.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", headers.Get("anthropic-version"))

	assert.Equal(t, "claude-x", captured["model"])
	assert.Equal(t, "be terse", captured["system"])
	assert.Equal(t, float64(512), captured["max_tokens"])
	assert.Equal(t, 0.4, captured["temperature"])
	msgs := captured["messages"].([]interface{})
	require.Len(t, msgs, 1)
}

func TestSendDefaultMaxTokens(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(textResponse("ok")))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("k", server.URL)
	_, err := client.Send(context.Background(), &llm.Request{
		Model:    "m",
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	assert.Equal(t, float64(4096), captured["max_tokens"])
	_, hasSystem := captured["system"]
	assert.False(t, hasSystem)
	_, hasTemp := captured["temperature"]
	assert.False(t, hasTemp)
}

func TestSendParsesToolUse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "msg_02",
			"stop_reason": "tool_use",
			"content": [
				{"type": "text", "text": "let me check"},
				{"type": "tool_use", "id": "toolu_1", "name": "read_file", "input": {"path": "a.py"}},
				{"type": "tool_use", "id": "toolu_2", "name": "list_dir", "input": {}}
			],
			"usage": {"input_tokens": 20, "output_tokens": 8}
		}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("k", server.URL)
	out, err := client.Send(context.Background(), &llm.Request{
		Model:    "m",
		Messages: []llm.Message{{Role: "user", Content: "read it"}},
	})
	require.NoError(t, err)

	calls, ok := out.(llm.ToolCallOutcome)
	require.True(t, ok, "tool_use blocks win over accompanying text")
	require.Len(t, calls.Invocations, 2)
	assert.Equal(t, "toolu_1", calls.Invocations[0].ID)
	assert.Equal(t, "read_file", calls.Invocations[0].Name)
	assert.Equal(t, "a.py", calls.Invocations[0].Arguments["path"])
	assert.NotNil(t, calls.Invocations[1].Arguments, "empty input still yields a map")
	assert.Equal(t, 28, calls.Usage.TotalTokens)
}

func TestSendConvertsToolHistory(t *testing.T) {
	var captured struct {
		Messages []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(textResponse("done")))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("k", server.URL)
	_, err := client.Send(context.Background(), &llm.Request{
		Model: "m",
		Messages: []llm.Message{
			{Role: "system", Content: "dropped from the array"},
			{Role: "user", Content: "read a.py"},
			{Role: "assistant", ToolCalls: []llm.ToolCall{
				{ID: "toolu_1", Name: "read_file", Arguments: map[string]interface{}{"path": "a.py"}},
			}},
			{Role: "tool", ToolCallID: "toolu_1", Content: "file contents"},
		},
	})
	require.NoError(t, err)

	require.Len(t, captured.Messages, 3, "system message never enters the array")
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Equal(t, "assistant", captured.Messages[1].Role)
	assert.Contains(t, string(captured.Messages[1].Content), "tool_use")
	assert.Contains(t, string(captured.Messages[1].Content), "toolu_1")
	assert.Equal(t, "user", captured.Messages[2].Role, "tool results ride as user tool_result blocks")
	assert.Contains(t, string(captured.Messages[2].Content), "tool_result")
	assert.Contains(t, string(captured.Messages[2].Content), "file contents")
}

func TestSendSerializesTools(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(textResponse("ok")))
	}))
	defer server.Close()

	open := false
	client := NewClientWithBaseURL("k", server.URL)
	_, err := client.Send(context.Background(), &llm.Request{
		Model:    "m",
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
		Tools: []llm.ToolDefinition{{
			Name:        "grep",
			Description: "search files",
			Parameters: llm.JSONSchema{
				Type:                 "object",
				Properties:           map[string]llm.JSONProperty{"pattern": {Type: "string"}},
				Required:             []string{"pattern"},
				AdditionalProperties: &open,
			},
		}},
	})
	require.NoError(t, err)

	tools := captured["tools"].([]interface{})
	require.Len(t, tools, 1)
	tool := tools[0].(map[string]interface{})
	assert.Equal(t, "grep", tool["name"])
	schema := tool["input_schema"].(map[string]interface{})
	assert.Equal(t, "object", schema["type"])
	_, leaked := schema["additionalProperties"]
	assert.False(t, leaked, "additionalProperties must be sanitized away")
}

func TestSendTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "overloaded"}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("k", server.URL)
	_, err := client.Send(context.Background(), &llm.Request{
		Model:    "m",
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)

	var transport *llm.TransportError
	require.ErrorAs(t, err, &transport)
	assert.Equal(t, "anthropic", transport.Provider)
	assert.Equal(t, http.StatusTooManyRequests, transport.Status)
	assert.Contains(t, transport.Body, "overloaded")
}

func TestSetAPIKey(t *testing.T) {
	client := NewClient("old")
	client.SetAPIKey("new")
	assert.Equal(t, "new", client.apiKey)
	assert.Equal(t, "anthropic", client.Name())
}
