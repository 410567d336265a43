package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeOpenAI(t *testing.T, status int, reply string) (*httptest.Server, *map[string]any) {
	t.Helper()
	captured := map[string]any{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": reply}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrDisabled)

	client, err := NewClient(Config{APIKey: " k "})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", client.Model())
	assert.InDelta(t, 0.3, client.temperature, 1e-9)
	assert.True(t, client.Enabled())

	zero := 0.0
	client, err = NewClient(Config{APIKey: "k", Temperature: &zero})
	require.NoError(t, err)
	assert.Zero(t, client.temperature)

	negative := -1.0
	client, err = NewClient(Config{APIKey: "k", Temperature: &negative})
	require.NoError(t, err)
	assert.InDelta(t, 0.3, client.temperature, 1e-9)
}

func TestClientComplete(t *testing.T) {
	srv, captured := fakeOpenAI(t, http.StatusOK, "  hello  ")
	client, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/", MaxTokens: 200})
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, "gpt-4", (*captured)["model"])
	assert.EqualValues(t, 200, (*captured)["max_tokens"])
	assert.InDelta(t, 0.3, (*captured)["temperature"], 1e-9)
}

func TestClientCompleteStatusError(t *testing.T) {
	srv, _ := fakeOpenAI(t, http.StatusUnauthorized, "")
	client, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNilClientDisabled(t *testing.T) {
	var client *Client
	_, err := client.Complete(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrDisabled))
}
