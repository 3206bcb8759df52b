package anthropic

import (
	"testing"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSDKMessage(t *testing.T) {
	sdkMsg := &sdk.Message{
		ID:         "msg_test_123",
		Model:      "claude-haiku-4-5-20251001",
		StopReason: "end_turn",
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: "Germany ranks first."},
			{Type: "text", Text: "Kenya follows."},
		},
		Usage: sdk.Usage{
			InputTokens:              100,
			OutputTokens:             50,
			CacheCreationInputTokens: 2000,
			CacheReadInputTokens:     3000,
		},
	}

	resp := fromSDKMessage(sdkMsg)
	require.NotNil(t, resp)
	assert.Equal(t, "msg_test_123", resp.ID)
	assert.Equal(t, "claude-haiku-4-5-20251001", resp.Model)
	assert.Equal(t, "end_turn", resp.StopReason)
	require.Len(t, resp.Content, 2)
	assert.Equal(t, "Germany ranks first.\nKenya follows.", resp.Text())
	assert.Equal(t, TokenUsage{
		InputTokens:              100,
		OutputTokens:             50,
		CacheCreationInputTokens: 2000,
		CacheReadInputTokens:     3000,
	}, resp.Usage)
}

func TestFromSDKMessage_EmptyContent(t *testing.T) {
	resp := fromSDKMessage(&sdk.Message{ID: "msg_empty", StopReason: "max_tokens"})
	require.NotNil(t, resp)
	assert.Empty(t, resp.Content)
	assert.Empty(t, resp.Text())
	assert.Equal(t, "max_tokens", resp.StopReason)
}

func TestToSDKMessages(t *testing.T) {
	tests := []struct {
		name string
		msgs []Message
		want int
	}{
		{"nil", nil, 0},
		{"user", []Message{{Role: "user", Content: "Hello"}}, 1},
		{"unknown role defaults to user", []Message{{Role: "system", Content: "x"}}, 1},
		{"mixed", []Message{
			{Role: "user", Content: "Question"},
			{Role: "assistant", Content: "Answer"},
			{Role: "user", Content: "Follow-up"},
		}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, toSDKMessages(tt.msgs), tt.want)
		})
	}
}

func TestToSDKSystemBlocks(t *testing.T) {
	blocks := toSDKSystemBlocks([]SystemBlock{
		{Text: "You are a market entry analyst."},
		{Text: "Cached context", CacheControl: &CacheControl{TTL: "1h"}},
		{Text: "No ttl", CacheControl: &CacheControl{}},
	})
	require.Len(t, blocks, 3)
	assert.Equal(t, "You are a market entry analyst.", blocks[0].Text)
	assert.Equal(t, "Cached context", blocks[1].Text)
	assert.NotNil(t, blocks[1].CacheControl)
	assert.NotNil(t, blocks[2].CacheControl)
}

func TestNewClient_Options(t *testing.T) {
	var co clientOptions
	for _, opt := range []Option{WithTimeout(8 * time.Second), WithBaseURL("http://localhost:9999")} {
		opt(&co)
	}
	assert.Equal(t, 8*time.Second, co.timeout)
	assert.Equal(t, "http://localhost:9999", co.baseURL)

	client := NewClient("test-api-key", WithTimeout(time.Second))
	require.NotNil(t, client)
	var _ Client = client //nolint:staticcheck // interface compliance check
}
