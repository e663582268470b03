package ollama

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

func chatReply(content string) string {
	return `{
		"model": "llama-test",
		"message": {"role": "assistant", "content": "` + content + `"},
		"done": true,
		"prompt_eval_count": 14,
		"eval_count": 6
	}`
}

func TestSendPlainText(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(chatReply("hello from local")))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	out, err := client.Send(context.Background(), &llm.Request{
		Model:       "llama-test",
		System:      "be terse",
		Messages:    []llm.Message{{Role: "user", Content: "hi"}},
		Temperature: 0.6,
		MaxTokens:   64,
	})
	require.NoError(t, err)

	text, ok := out.(llm.TextOutcome)
	require.True(t, ok)
	assert.Equal(t, "hello from local", text.Text)
	assert.Equal(t, 14, text.Usage.PromptTokens)
	assert.Equal(t, 6, text.Usage.CompletionTokens)
	assert.Equal(t, 20, text.Usage.TotalTokens)

	assert.Equal(t, false, captured["stream"], "always non-streaming")
	options := captured["options"].(map[string]interface{})
	assert.Equal(t, 0.6, options["temperature"])
	assert.Equal(t, float64(64), options["num_predict"])

	msgs := captured["messages"].([]interface{})
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]interface{})
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "be terse", first["content"])
}

func TestSendOmitsEmptyOptions(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(chatReply("ok")))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Send(context.Background(), &llm.Request{
		Model:    "m",
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	_, hasOptions := captured["options"]
	assert.False(t, hasOptions)
}

func TestSendParsesToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"model": "m",
			"message": {"role": "assistant", "content": "", "tool_calls": [
				{"function": {"name": "read_file", "arguments": {"path": "a.py"}}},
				{"function": {"name": "list_dir"}}
			]},
			"done": true,
			"prompt_eval_count": 8,
			"eval_count": 4
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	out, err := client.Send(context.Background(), &llm.Request{
		Model:    "m",
		Messages: []llm.Message{{Role: "user", Content: "read it"}},
	})
	require.NoError(t, err)

	calls, ok := out.(llm.ToolCallOutcome)
	require.True(t, ok)
	require.Len(t, calls.Invocations, 2)
	assert.Equal(t, "read_file", calls.Invocations[0].Name)
	assert.Equal(t, "read_file", calls.Invocations[0].ID, "the function name stands in for the missing ID")
	assert.Equal(t, "a.py", calls.Invocations[0].Arguments["path"])
	assert.NotNil(t, calls.Invocations[1].Arguments)
	assert.Equal(t, 12, calls.Usage.TotalTokens)
}

func TestSendConvertsToolHistory(t *testing.T) {
	var captured struct {
		Messages []map[string]interface{} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(chatReply("done")))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Send(context.Background(), &llm.Request{
		Model: "m",
		Messages: []llm.Message{
			{Role: "user", Content: "read a.py"},
			{Role: "assistant", ToolCalls: []llm.ToolCall{
				{ID: "read_file", Name: "read_file", Arguments: map[string]interface{}{"path": "a.py"}},
			}},
			{Role: "tool", ToolCallID: "read_file", Content: "file contents"},
		},
	})
	require.NoError(t, err)

	require.Len(t, captured.Messages, 3)
	assert.Equal(t, "assistant", captured.Messages[1]["role"])
	assert.Contains(t, captured.Messages[1], "tool_calls")
	assert.Equal(t, "tool", captured.Messages[2]["role"])
	assert.Equal(t, "file contents", captured.Messages[2]["content"])
}

func TestSendSerializesTools(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(chatReply("ok")))
	}))
	defer server.Close()

	open := false
	client := NewClient(server.URL)
	_, err := client.Send(context.Background(), &llm.Request{
		Model:    "m",
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
		Tools: []llm.ToolDefinition{{
			Name:        "glob",
			Description: "find files",
			Parameters: llm.JSONSchema{
				Type:                 "object",
				Properties:           map[string]llm.JSONProperty{"pattern": {Type: "string"}},
				AdditionalProperties: &open,
			},
		}},
	})
	require.NoError(t, err)

	tools := captured["tools"].([]interface{})
	require.Len(t, tools, 1)
	tool := tools[0].(map[string]interface{})
	assert.Equal(t, "function", tool["type"])
	fn := tool["function"].(map[string]interface{})
	assert.Equal(t, "glob", fn["name"])
	params := fn["parameters"].(map[string]interface{})
	_, leaked := params["additionalProperties"]
	assert.False(t, leaked)
}

func TestSendTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "model not found"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Send(context.Background(), &llm.Request{
		Model:    "missing",
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)

	var transport *llm.TransportError
	require.ErrorAs(t, err, &transport)
	assert.Equal(t, "ollama", transport.Provider)
	assert.Equal(t, http.StatusInternalServerError, transport.Status)
	assert.Contains(t, transport.Body, "model not found")
}

func TestDefaultBaseURL(t *testing.T) {
	client := NewClient("")
	assert.Equal(t, "http://localhost:11434", client.baseURL)

	trimmed := NewClient("http://box:11434/")
	assert.Equal(t, "http://box:11434", trimmed.baseURL)
}
