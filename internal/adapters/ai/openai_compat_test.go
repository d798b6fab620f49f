package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manbo/pkg/errors"
)

func newTestCompatClient(serverURL string) *openAICompatClient {
	client := newOpenAICompatClient("openai", serverURL, "test-key", "test-model", time.Second, 600)
	return client
}

func TestOpenAICompatChatTextResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var wireReq openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&wireReq))
		assert.Equal(t, "test-model", wireReq.Model)
		require.Len(t, wireReq.Messages, 2)
		assert.Equal(t, "system", wireReq.Messages[0].Role)

		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "test-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "looks bullish"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	client := newTestCompatClient(server.URL)
	resp, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "you are an analyst"},
			{Role: RoleUser, Content: "analyze AAPL"},
		},
	})
	require.NoError(t, err)

	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "looks bullish", resp.Choices[0].Message.Content)
	assert.Equal(t, FinishReasonStop, resp.Choices[0].FinishReason)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestOpenAICompatChatToolCallResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var wireReq openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&wireReq))
		require.Len(t, wireReq.Tools, 1)
		assert.Equal(t, "get_market_data", wireReq.Tools[0].Function.Name)

		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-2",
			"model": "test-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "",
				"tool_calls": [{"id": "call_abc", "type": "function",
					"function": {"name": "get_market_data", "arguments": "{\"symbol\":\"AAPL\"}"}}]},
				"finish_reason": "tool_calls"}]
		}`))
	}))
	defer server.Close()

	client := newTestCompatClient(server.URL)
	resp, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "analyze AAPL"}},
		Tools: []ToolDefinition{{
			Type: "function",
			Function: FunctionDefinition{
				Name:        "get_market_data",
				Description: "fetch candles",
				Parameters:  map[string]interface{}{"type": "object"},
			},
		}},
	})
	require.NoError(t, err)

	choice := resp.Choices[0]
	assert.Equal(t, FinishReasonToolCalls, choice.FinishReason)
	require.Len(t, choice.Message.ToolCalls, 1)
	assert.Equal(t, "call_abc", choice.Message.ToolCalls[0].ID)
	assert.Equal(t, "get_market_data", choice.Message.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"symbol":"AAPL"}`, choice.Message.ToolCalls[0].Function.Arguments)
}

func TestOpenAICompatChatAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error", "code": "invalid_api_key"}}`))
	}))
	defer server.Close()

	client := newTestCompatClient(server.URL)
	_, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrExternal)
	assert.Contains(t, err.Error(), "bad key")
}

func TestOpenAICompatChatMissingKey(t *testing.T) {
	client := newOpenAICompatClient("openai", "https://example.invalid", "", "m", time.Second, 60)

	_, err := client.Chat(context.Background(), ChatRequest{})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestOpenAICompatRoundTripsToolResultMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var wireReq openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&wireReq))

		require.Len(t, wireReq.Messages, 3)
		assert.Equal(t, "assistant", wireReq.Messages[1].Role)
		require.Len(t, wireReq.Messages[1].ToolCalls, 1)
		assert.Equal(t, "tool", wireReq.Messages[2].Role)
		assert.Equal(t, "call_abc", wireReq.Messages[2].ToolCallID)

		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "done"}, "finish_reason": "stop"}]}`))
	}))
	defer server.Close()

	client := newTestCompatClient(server.URL)
	resp, err := client.Chat(context.Background(), ChatRequest{
		Messages: []Message{
			{Role: RoleUser, Content: "analyze"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{
				ID: "call_abc", Type: "function",
				Function: FunctionCall{Name: "get_market_data", Arguments: "{}"},
			}}},
			{Role: RoleTool, Content: "candle data", ToolCallID: "call_abc", Name: "get_market_data"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Choices[0].Message.Content)
}
