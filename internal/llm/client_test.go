package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaioption "github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCompleter(t *testing.T) {
	c, err := NewCompleter(Config{Provider: ProviderOpenAI, APIKey: "k", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	c, err = NewCompleter(Config{Provider: ProviderAnthropic, APIKey: "k", Model: "claude-haiku-4-5"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, c)

	_, err = NewCompleter(Config{Provider: "groq"})
	assert.Error(t, err)
}

func TestOpenAIClient_Complete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  summary text  "}, "finish_reason": "stop"}]
		}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(
		Config{APIKey: "test-key", Model: "gpt-4o-mini", MaxTokens: 256},
		openaioption.WithBaseURL(srv.URL+"/"),
		openaioption.WithMaxRetries(0),
	)

	out, err := client.Complete(context.Background(), "system", "prompt")

	require.NoError(t, err)
	assert.Equal(t, "summary text", out)
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.EqualValues(t, 256, body["max_completion_tokens"])
	assert.Len(t, body["messages"], 2)
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "x", "object": "chat.completion", "created": 1, "model": "m", "choices": []}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(Config{APIKey: "k", Model: "m"},
		openaioption.WithBaseURL(srv.URL+"/"),
		openaioption.WithMaxRetries(0),
	)

	_, err := client.Complete(context.Background(), "s", "p")

	assert.EqualError(t, err, "no response from openai")
}

func TestAnthropicClient_Complete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-haiku-4-5",
			"content": [{"type": "text", "text": "brief"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 2}
		}`))
	}))
	defer srv.Close()

	client := NewAnthropicClient(
		Config{APIKey: "test-key", Model: "claude-haiku-4-5"},
		anthropicoption.WithBaseURL(srv.URL),
		anthropicoption.WithMaxRetries(0),
	)

	out, err := client.Complete(context.Background(), "system", "prompt")

	require.NoError(t, err)
	assert.Equal(t, "brief", out)
	assert.Equal(t, "claude-haiku-4-5", body["model"])
	assert.EqualValues(t, defaultAnthropicMaxTokens, body["max_tokens"])
}

func TestAnthropicClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}}`))
	}))
	defer srv.Close()

	client := NewAnthropicClient(Config{APIKey: "bad", Model: "m"},
		anthropicoption.WithBaseURL(srv.URL),
		anthropicoption.WithMaxRetries(0),
	)

	_, err := client.Complete(context.Background(), "s", "p")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic API error")
}
