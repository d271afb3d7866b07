package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rezkam/tasklens/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		APIKey:               "test-key",
		BaseURL:              server.URL + "/v1/",
		Model:                "test-model",
		MaxRetries:           2,
		RetryInitialInterval: time.Millisecond,
		Timeout:              5 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func writeCompletion(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
	})
	require.NoError(t, err)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestNew_AppliesDefaults(t *testing.T) {
	c, err := New(Config{APIKey: "k"})
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL+"/chat/completions", c.endpoint)
	assert.Equal(t, DefaultModel, c.config.Model)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
	assert.Equal(t, DefaultMaxTokens, c.config.MaxTokens)
	assert.Equal(t, DefaultMaxRetries, c.config.MaxRetries)
	require.NotNil(t, c.config.Temperature)
	assert.InDelta(t, DefaultTemperature, *c.config.Temperature, 1e-9)
}

func TestGenerate_SendsExplicitZeroTemperature(t *testing.T) {
	var sent map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		writeCompletion(t, w, "ok")
	}))
	t.Cleanup(server.Close)

	zero := 0.0
	client, err := New(Config{APIKey: "k", BaseURL: server.URL, Temperature: &zero})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "s", "u")
	require.NoError(t, err)

	require.Contains(t, sent, "temperature")
	assert.Equal(t, float64(0), sent["temperature"])
}

func TestGenerate_Success(t *testing.T) {
	var got chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(t, w, "hello")
	})

	text, err := client.Generate(context.Background(), "be brief", "say hi")

	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chatMessage{Role: "system", Content: "be brief"}, got.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "say hi"}, got.Messages[1])
}

func TestGenerate_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeCompletion(t, w, "third time lucky")
	})

	text, err := client.Generate(context.Background(), "s", "u")

	require.NoError(t, err)
	assert.Equal(t, "third time lucky", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGenerate_RetriesRateLimits(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeCompletion(t, w, "ok")
	})

	_, err := client.Generate(context.Background(), "s", "u")

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerate_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Generate(context.Background(), "s", "u")

	require.ErrorIs(t, err, domain.ErrService)
	assert.Contains(t, err.Error(), "status 503")
	assert.Equal(t, int32(3), calls.Load())
}

func TestGenerate_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Incorrect API key provided"}}`))
	})

	_, err := client.Generate(context.Background(), "s", "u")

	require.ErrorIs(t, err, domain.ErrService)
	assert.Contains(t, err.Error(), "Incorrect API key provided")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerate_UnusableResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "<html>gateway</html>"},
		{name: "no choices", body: `{"choices":[]}`},
		{name: "error payload", body: `{"error":{"message":"model overloaded"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Generate(context.Background(), "s", "u")

			require.ErrorIs(t, err, domain.ErrService)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestGenerate_HonorsContextCancellation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, "s", "u")

	require.ErrorIs(t, err, domain.ErrService)
}
