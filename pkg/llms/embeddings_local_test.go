package llms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrinhq/vitrin/config"
	"github.com/vitrinhq/vitrin/pkg/models"
)

func newTestLocalEmbeddingsClient(t *testing.T, handler http.HandlerFunc) *LocalEmbeddingsClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.EmbeddingsClient.ServerURL = ts.URL
	client, err := NewLocalEmbeddingsClient(cfg)
	require.NoError(t, err)

	client.client.http.RetryWaitMin = time.Millisecond
	client.client.http.RetryWaitMax = 5 * time.Millisecond
	return client
}

func TestLocalEmbeddingsClient_EmbedTexts(t *testing.T) {
	client := newTestLocalEmbeddingsClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)

		var req localEmbeddingsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := localEmbeddingsResponse{}
		for range req.Texts {
			resp.Embeddings = append(resp.Embeddings, []float32{3, 4})
		}
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	embeddings, err := client.EmbedTexts(context.Background(), []string{"Text 1", "Text 2"})
	require.NoError(t, err)
	assert.Len(t, embeddings, 2)
	assert.Equal(t, []float32{3, 4}, embeddings[1])
}

func TestLocalEmbeddingsClient_NoTexts(t *testing.T) {
	var calls atomic.Int32
	client := newTestLocalEmbeddingsClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	embeddings, err := client.EmbedTexts(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, embeddings)
	assert.Zero(t, calls.Load())
}

func TestLocalEmbeddingsClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		kind    models.UpstreamErrorKind
	}{
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			kind: models.UpstreamRateLimited,
		},
		{
			name: "invalid input",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "bad input", http.StatusBadRequest)
			},
			kind: models.UpstreamInvalidInput,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			kind: models.UpstreamMalformedResponse,
		},
		{
			name: "wrong embedding count",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"embeddings": [[1, 2]]}`))
			},
			kind: models.UpstreamMalformedResponse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestLocalEmbeddingsClient(t, tt.handler)

			_, err := client.EmbedTexts(context.Background(), []string{"a", "b"})
			require.Error(t, err)

			var upstreamErr *models.UpstreamServiceError
			require.True(t, errors.As(err, &upstreamErr))
			assert.Equal(t, "embeddings", upstreamErr.Service)
			assert.Equal(t, tt.kind, upstreamErr.Kind)
		})
	}
}

func TestNewLocalEmbeddingsClient_RequiresServerURL(t *testing.T) {
	cfg := config.Default()
	_, err := NewLocalEmbeddingsClient(cfg)
	assert.Error(t, err)
}

func TestLocalEmbeddingsClient_CancelledCallsDoNotOpenBreaker(t *testing.T) {
	var slow atomic.Bool
	slow.Store(true)
	client := newTestLocalEmbeddingsClient(t, func(w http.ResponseWriter, r *http.Request) {
		if slow.Load() {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		_, _ = w.Write([]byte(`{"embeddings": [[3, 4]]}`))
	})

	for i := 0; i < breakerMinRequests; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		timer := time.AfterFunc(10*time.Millisecond, cancel)
		_, err := client.EmbedTexts(ctx, []string{"a"})
		timer.Stop()
		cancel()
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, models.ErrUpstreamService)
	}

	slow.Store(false)
	embeddings, err := client.EmbedTexts(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{3, 4}}, embeddings)
}
