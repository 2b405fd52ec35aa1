package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/radiology-reports/internal/llm"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func envelope(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": content}}},
	})
	return string(b)
}

func newTestClient(url string, retries int) *Client {
	return NewClient(Config{
		APIKey:       "sk-test",
		BaseURL:      url,
		Model:        "test-model",
		Timeout:      5 * time.Second,
		MaxRetries:   retries,
		RetryInitial: time.Millisecond,
		RetryMax:     2 * time.Millisecond,
	}, discard())
}

var req = llm.CompletionRequest{Operation: llm.OpAnalyze, System: "sys", Prompt: "prompt", Temperature: 0.1}

func TestCompleteJSON_OK(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, envelope("```json\n{\"summary\": \"All clear.\"}\n```"))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL, 0).CompleteJSON(context.Background(), req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary": "All clear."}`, string(out))

	assert.Equal(t, "test-model", got["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	assert.InDelta(t, 0.1, got["temperature"], 1e-6)
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "prompt", msgs[1].(map[string]any)["content"])
}

func TestCompleteJSON_Unauthorized(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error": {"message": "bad key"}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).CompleteJSON(context.Background(), req)
	require.Error(t, err)

	var up *llm.UpstreamError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, http.StatusUnauthorized, up.StatusCode)
	assert.False(t, errors.Is(err, llm.ErrMalformedResponse))
	assert.EqualValues(t, 1, hits.Load(), "4xx is not retried")
}

func TestCompleteJSON_NotJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "not json")
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 0).CompleteJSON(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrMalformedResponse)

	var up *llm.UpstreamError
	assert.False(t, errors.As(err, &up))
}

func TestCompleteJSON_ContentNotObject(t *testing.T) {
	for _, content := range []string{"Sure! Here is the JSON", "[1, 2]", "null"} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, envelope(content))
		}))
		_, err := newTestClient(srv.URL, 0).CompleteJSON(context.Background(), req)
		srv.Close()
		assert.ErrorIs(t, err, llm.ErrMalformedResponse, content)
	}
}

func TestCompleteJSON_RetriesTransientStatus(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, envelope(`{"summary": "ok"}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL, 2).CompleteJSON(context.Background(), req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary": "ok"}`, string(out))
	assert.EqualValues(t, 2, hits.Load())
}

func TestCompleteJSON_RetriesExhausted(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 2).CompleteJSON(context.Background(), req)
	var up *llm.UpstreamError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, http.StatusServiceUnavailable, up.StatusCode)
	assert.EqualValues(t, 3, hits.Load())
}

func TestCompleteJSON_MissingCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, discard())
	_, err := c.CompleteJSON(context.Background(), req)
	assert.ErrorIs(t, err, llm.ErrMissingCredentials)
	assert.Zero(t, hits.Load(), "no request without a credential")
}

func TestCompleteJSON_ReadsKeyAtCallTime(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-late", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, envelope(`{"summary": "ok"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, discard())
	t.Setenv("OPENAI_API_KEY", "sk-late")
	_, err := c.CompleteJSON(context.Background(), req)
	assert.NoError(t, err)
}
