package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageHandler(t *testing.T, check func(body map[string]any)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if check != nil {
			check(body)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":   "msg_001",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": "根据通知，"},
				{"type": "text", "text": "项目应当备案。"},
			},
			"model":       "claude-sonnet-4-5-20250929",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 12, "output_tokens": 7},
		})
	}
}

func TestCreateMessage(t *testing.T) {
	srv := httptest.NewServer(messageHandler(t, func(body map[string]any) {
		assert.Equal(t, defaultModel, body["model"])
		assert.EqualValues(t, 1024, body["max_tokens"])
		system, ok := body["system"].([]any)
		require.True(t, ok)
		require.Len(t, system, 1)
		assert.Equal(t, "只依据政府来源回答。", system[0].(map[string]any)["text"])
		assert.InDelta(t, 0.1, body["temperature"], 0.0001)
	}))
	defer srv.Close()

	temp := 0.1
	client := NewClient("test-key", WithBaseURL(srv.URL), WithMaxRetries(0))
	resp, err := client.CreateMessage(context.Background(), MessageRequest{
		System:      "只依据政府来源回答。",
		Messages:    []Message{{Role: "user", Content: "分布式光伏如何备案？"}},
		Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_001", resp.ID)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, "根据通知，项目应当备案。", resp.Text())
	assert.Equal(t, TokenUsage{InputTokens: 12, OutputTokens: 7}, resp.Usage)
}

func TestCreateMessage_ModelOverride(t *testing.T) {
	srv := httptest.NewServer(messageHandler(t, func(body map[string]any) {
		assert.Equal(t, "claude-haiku-4-5-20251001", body["model"])
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithModel("claude-haiku-4-5-20251001"), WithMaxRetries(0))
	_, err := client.CreateMessage(context.Background(), MessageRequest{
		Messages: []Message{{Role: "user", Content: "问题"}},
	})
	require.NoError(t, err)
}

func TestCreateMessage_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithMaxRetries(0))
	resp, err := client.CreateMessage(context.Background(), MessageRequest{
		Messages: []Message{{Role: "user", Content: "问题"}},
	})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "anthropic: create message")
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
}

func TestStatusCode_NonAPIError(t *testing.T) {
	assert.Equal(t, 0, StatusCode(context.Canceled))
	assert.Equal(t, 0, StatusCode(nil))
}

func TestToSDKMessages(t *testing.T) {
	msgs := toSDKMessages([]Message{
		{Role: "user", Content: "问"},
		{Role: "assistant", Content: "答"},
		{Role: "system", Content: "其他"},
	})
	require.Len(t, msgs, 3)
	assert.Equal(t, sdk.MessageParamRoleUser, msgs[0].Role)
	assert.Equal(t, sdk.MessageParamRoleAssistant, msgs[1].Role)
	assert.Equal(t, sdk.MessageParamRoleUser, msgs[2].Role)
}

func TestMessageResponse_TextSkipsNonText(t *testing.T) {
	r := &MessageResponse{Content: []ContentBlock{
		{Type: "tool_use"},
		{Type: "text", Text: "正文"},
	}}
	assert.Equal(t, "正文", r.Text())
}
