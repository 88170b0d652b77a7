package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

func newTestComposer(t *testing.T, handler http.HandlerFunc) *Composer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewComposer(Config{APIKey: "sk-ant-test", BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestNewComposer_MissingKey(t *testing.T) {
	_, err := NewComposer(Config{})

	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestCompose(t *testing.T) {
	c := newTestComposer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultModel, req.Model)
		assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
		assert.NotEmpty(t, req.System)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Contains(t, req.Messages[0].Content, "[Context 1 (relevance: 0.66)]")

		_, _ = w.Write([]byte(`{"content":[
			{"type":"text","text":"Margins "},
			{"type":"tool_use","text":"ignored"},
			{"type":"text","text":"improved."}
		],"stop_reason":"end_turn"}`))
	})

	answer, err := c.Compose(context.Background(), "How were margins?", []domain.Source{
		{Text: "Margins improved.", Similarity: 0.66},
	})

	require.NoError(t, err)
	assert.Equal(t, "Margins improved.", answer)
}

func TestCompose_Unauthorized(t *testing.T) {
	c := newTestComposer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	})

	_, err := c.Compose(context.Background(), "q", nil)

	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestCompose_APIError(t *testing.T) {
	c := newTestComposer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	})

	_, err := c.Compose(context.Background(), "q", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")
}

func TestCompose_EmptyContent(t *testing.T) {
	c := newTestComposer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[],"stop_reason":"end_turn"}`))
	})

	_, err := c.Compose(context.Background(), "q", nil)

	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	c := newTestComposer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("x-api-key"))
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	assert.NoError(t, c.Ping(context.Background()))
}
