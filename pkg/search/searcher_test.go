package search_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrinhq/vitrin/pkg/models"
	"github.com/vitrinhq/vitrin/pkg/search"
	"github.com/vitrinhq/vitrin/pkg/store/memory"
	"github.com/vitrinhq/vitrin/pkg/testutils"
)

func newSearchAppState(t *testing.T) (*models.AppState, *testutils.FakeEmbeddingsClient) {
	t.Helper()
	ctx := context.Background()
	cfg := testutils.NewTestConfig()
	client := testutils.NewFakeEmbeddingsClient(testutils.TestDimensions)
	store := memory.NewStore(testutils.TestDimensions)
	normalizer := search.NewNormalizer(client, testutils.TestDimensions)

	for _, c := range testutils.TestCategories {
		store.PutCategory(c)
	}
	for i := range testutils.TestProducts {
		p := testutils.TestProducts[i]
		stored, err := store.PutProduct(ctx, &p)
		require.NoError(t, err)
		v, err := normalizer.Embed(ctx, search.ProductEmbeddingText(stored))
		require.NoError(t, err)
		require.NoError(t, store.PutProductEmbedding(ctx, stored.ID, v, time.Time{}))
	}

	return &models.AppState{
		EmbeddingsClient: client,
		CatalogStore:     store,
		ReviewStore:      store,
		Config:           cfg,
	}, client
}

func TestProductSearcher_Search(t *testing.T) {
	appState, client := newSearchAppState(t)
	target := testutils.TestProducts[2]
	// The query embeds to exactly the MacBook's vector
	client.Vectors["pro laptop"] = testutils.HashVector(
		search.ProductEmbeddingText(&target),
		testutils.TestDimensions,
	)

	resp, err := search.NewProductSearcher(appState).Search(
		context.Background(),
		&models.ProductSearchRequest{Search: "pro laptop", Limit: 2},
	)
	require.NoError(t, err)

	assert.Equal(t, "pro laptop", resp.Query)
	assert.Empty(t, resp.RefinedQuery)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, target.Title, resp.Results[0].Product.Title)
	assert.InDelta(t, 0.0, resp.Results[0].Distance, 1e-5)
	assert.LessOrEqual(t, resp.Results[0].Distance, resp.Results[1].Distance)
}

func TestProductSearcher_CategoryFilter(t *testing.T) {
	appState, _ := newSearchAppState(t)

	resp, err := search.NewProductSearcher(appState).Search(
		context.Background(),
		&models.ProductSearchRequest{Search: "phone", CategoryID: 1},
	)
	require.NoError(t, err)

	require.Len(t, resp.Results, 2)
	for _, r := range resp.Results {
		assert.Equal(t, int64(1), r.Product.CategoryID)
		assert.Equal(t, "smartphones", r.Product.Category.Name)
	}
}

func TestProductSearcher_Limits(t *testing.T) {
	appState, _ := newSearchAppState(t)
	appState.Config.Search.DefaultLimit = 3
	appState.Config.Search.MaxLimit = 2
	searcher := search.NewProductSearcher(appState)
	ctx := context.Background()

	resp, err := searcher.Search(ctx, &models.ProductSearchRequest{Search: "anything", Limit: 50})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2)

	appState.Config.Search.MaxLimit = 100
	resp, err = search.NewProductSearcher(appState).Search(ctx, &models.ProductSearchRequest{Search: "anything"})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)

	_, err = searcher.Search(ctx, &models.ProductSearchRequest{Search: "anything", Limit: -1})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestProductSearcher_EmptyQuery(t *testing.T) {
	appState, client := newSearchAppState(t)
	calls := client.Calls()

	_, err := search.NewProductSearcher(appState).Search(
		context.Background(),
		&models.ProductSearchRequest{Search: "  "},
	)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, calls, client.Calls())
}

func TestProductSearcher_RefineQuery(t *testing.T) {
	appState, client := newSearchAppState(t)
	appState.Config.Search.RefineQuery = true
	appState.LLMClient = &testutils.FakeLLM{
		Responder: func(_ context.Context, prompt string) (string, error) {
			if !strings.Contains(prompt, "iphnoe") {
				return "", errors.New("unexpected prompt")
			}
			return `"iphone"`, nil
		},
	}
	target := testutils.TestProducts[0]
	client.Vectors["iphone"] = testutils.HashVector(
		search.ProductEmbeddingText(&target),
		testutils.TestDimensions,
	)

	resp, err := search.NewProductSearcher(appState).Search(
		context.Background(),
		&models.ProductSearchRequest{Search: "iphnoe", Limit: 1},
	)
	require.NoError(t, err)

	assert.Equal(t, "iphone", resp.RefinedQuery)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, target.Title, resp.Results[0].Product.Title)
}

func TestProductSearcher_RefineQueryFailureFallsBack(t *testing.T) {
	appState, _ := newSearchAppState(t)
	appState.Config.Search.RefineQuery = true
	appState.LLMClient = &testutils.FakeLLM{
		Responder: func(context.Context, string) (string, error) {
			return "", models.NewUpstreamServiceError("llm", models.UpstreamUnavailable, nil)
		},
	}

	resp, err := search.NewProductSearcher(appState).Search(
		context.Background(),
		&models.ProductSearchRequest{Search: "perfume"},
	)
	require.NoError(t, err)
	assert.Empty(t, resp.RefinedQuery)
	assert.NotEmpty(t, resp.Results)
}

func TestProductSearcher_EmbeddingsFailure(t *testing.T) {
	appState, client := newSearchAppState(t)
	client.Err = errors.New("boom")

	_, err := search.NewProductSearcher(appState).Search(
		context.Background(),
		&models.ProductSearchRequest{Search: "perfume"},
	)
	assert.ErrorIs(t, err, models.ErrUpstreamService)
}

func TestProductSearcher_VoiceSearch(t *testing.T) {
	appState, client := newSearchAppState(t)
	transcriber := &testutils.FakeTranscriber{Transcript: "pro laptop"}
	appState.Transcriber = transcriber
	target := testutils.TestProducts[2]
	client.Vectors["pro laptop"] = testutils.HashVector(
		search.ProductEmbeddingText(&target),
		testutils.TestDimensions,
	)
	audio := models.Audio{Filename: "query.webm", ContentType: "audio/webm", Data: []byte("webm")}

	resp, err := search.NewProductSearcher(appState).VoiceSearch(
		context.Background(),
		audio,
		&models.ProductSearchRequest{Search: "ignored", Limit: 1},
	)
	require.NoError(t, err)
	assert.Equal(t, "pro laptop", resp.Query)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, target.Title, resp.Results[0].Product.Title)
	assert.Equal(t, []models.Audio{audio}, transcriber.Received())
}

func TestProductSearcher_VoiceSearchErrors(t *testing.T) {
	ctx := context.Background()
	audio := models.Audio{Filename: "query.webm", Data: []byte("webm")}

	t.Run("not configured", func(t *testing.T) {
		appState, _ := newSearchAppState(t)
		_, err := search.NewProductSearcher(appState).VoiceSearch(ctx, audio, &models.ProductSearchRequest{})
		assert.ErrorIs(t, err, models.ErrUpstreamService)
	})

	t.Run("empty recording", func(t *testing.T) {
		appState, _ := newSearchAppState(t)
		transcriber := &testutils.FakeTranscriber{Transcript: "phone"}
		appState.Transcriber = transcriber
		_, err := search.NewProductSearcher(appState).VoiceSearch(
			ctx,
			models.Audio{Filename: "empty.webm"},
			&models.ProductSearchRequest{},
		)
		assert.ErrorIs(t, err, models.ErrValidation)
		assert.Empty(t, transcriber.Received())
	})

	t.Run("no speech", func(t *testing.T) {
		appState, client := newSearchAppState(t)
		appState.Transcriber = &testutils.FakeTranscriber{Transcript: " "}
		calls := client.Calls()
		_, err := search.NewProductSearcher(appState).VoiceSearch(ctx, audio, &models.ProductSearchRequest{})
		assert.ErrorIs(t, err, models.ErrValidation)
		assert.Equal(t, calls, client.Calls())
	})

	t.Run("transcription failure", func(t *testing.T) {
		appState, _ := newSearchAppState(t)
		appState.Transcriber = &testutils.FakeTranscriber{Err: errors.New("connection refused")}
		_, err := search.NewProductSearcher(appState).VoiceSearch(ctx, audio, &models.ProductSearchRequest{})
		assert.ErrorIs(t, err, models.ErrUpstreamService)
	})
}
