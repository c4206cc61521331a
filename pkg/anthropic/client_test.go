package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageHandler(t *testing.T, check func(body map[string]any)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if check != nil {
			check(body)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":   "msg_test_001",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": `{"headline":"Sunny bungalow"`},
				{"type": "text", "text": `}`},
			},
			"model":       "claude-sonnet-4-5-20250929",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 120, "output_tokens": 40},
		})
	}
}

func TestCreateMessage(t *testing.T) {
	temp := 0.4
	ts := httptest.NewServer(messageHandler(t, func(body map[string]any) {
		assert.Equal(t, "claude-sonnet-4-5-20250929", body["model"])
		assert.EqualValues(t, 512, body["max_tokens"])
		assert.InDelta(t, 0.4, body["temperature"], 0.0001)
		system, ok := body["system"].([]any)
		require.True(t, ok)
		require.Len(t, system, 1)
		assert.Equal(t, "You write listings.", system[0].(map[string]any)["text"])
		msgs := body["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
		assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])
	}))
	defer ts.Close()

	c := NewClient("test-key", WithBaseURL(ts.URL), WithMaxRetries(0))
	resp, err := c.CreateMessage(context.Background(), MessageRequest{
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   512,
		System:      "You write listings.",
		Temperature: &temp,
		Messages: []Message{
			{Role: "user", Content: "Describe 12 Oak St"},
			{Role: "assistant", Content: "{"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "msg_test_001", resp.ID)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, `{"headline":"Sunny bungalow"}`, resp.Text())
	assert.Equal(t, int64(120), resp.Usage.InputTokens)
	assert.Equal(t, int64(40), resp.Usage.OutputTokens)
}

func TestCreateMessage_NoSystem(t *testing.T) {
	ts := httptest.NewServer(messageHandler(t, func(body map[string]any) {
		_, ok := body["system"]
		assert.False(t, ok)
		_, ok = body["temperature"]
		assert.False(t, ok)
	}))
	defer ts.Close()

	_, err := NewClient("test-key", WithBaseURL(ts.URL), WithMaxRetries(0)).CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 100,
		Messages:  []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
}

func TestCreateMessage_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer ts.Close()

	_, err := NewClient("test-key", WithBaseURL(ts.URL), WithMaxRetries(0)).CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 10,
		Messages:  []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create message")
}

func TestEstimateCost(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 18.0, u.EstimateCost("claude-sonnet-4-5-20250929"), 0.0001)
	assert.InDelta(t, 6.0, u.EstimateCost("claude-haiku-4-5-20251001"), 0.0001)
	assert.Zero(t, u.EstimateCost("unknown-model"))
	assert.Zero(t, TokenUsage{}.EstimateCost("claude-sonnet-4-5-20250929"))
}

func TestLogCost_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		TokenUsage{InputTokens: 10, OutputTokens: 5}.LogCost("claude-sonnet-4-5-20250929", "describe")
	})
}

func TestMessageResponse_TextSkipsNonText(t *testing.T) {
	r := &MessageResponse{Content: []ContentBlock{{Type: "thinking", Text: "hmm"}, {Type: "text", Text: "ok"}}}
	assert.Equal(t, "ok", r.Text())
}
