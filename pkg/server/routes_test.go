package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrinhq/vitrin/config"
	"github.com/vitrinhq/vitrin/pkg/auth"
	"github.com/vitrinhq/vitrin/pkg/models"
	"github.com/vitrinhq/vitrin/pkg/store/memory"
	"github.com/vitrinhq/vitrin/pkg/testutils"
)

type testEnv struct {
	appState    *models.AppState
	llm         *testutils.FakeLLM
	transcriber *testutils.FakeTranscriber
	server      *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore(testutils.TestDimensions)
	for _, c := range testutils.TestCategories {
		store.PutCategory(c)
	}
	llm := &testutils.FakeLLM{}
	transcriber := &testutils.FakeTranscriber{Transcript: "apple phone"}
	appState := &models.AppState{
		LLMClient:        llm,
		EmbeddingsClient: testutils.NewFakeEmbeddingsClient(testutils.TestDimensions),
		SentimentClient:  &testutils.FakeSentimentClassifier{},
		Transcriber:      transcriber,
		CatalogStore:     store,
		ReviewStore:      store,
		Config:           testutils.NewTestConfig(),
	}
	router, err := setupRouter(appState)
	require.NoError(t, err)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{appState: appState, llm: llm, transcriber: transcriber, server: server}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.server.URL+path, r)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (e *testEnv) createProduct(t *testing.T, req models.CreateProductRequest) *models.Product {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/products", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[*models.Product](t, resp)
}

func TestAuthMiddleware(t *testing.T) {
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cfg := &config.Config{
		Auth: config.AuthConfig{
			Secret:   "test-secret",
			Required: true,
		},
	}

	t.Run("auth required", func(t *testing.T) {
		router, err := setupRouter(&models.AppState{Config: cfg})
		require.NoError(t, err)
		router.Handle("/", testHandler)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		res := httptest.NewRecorder()

		router.ServeHTTP(res, req)
		require.Equal(t, http.StatusUnauthorized, res.Code)
	})

	t.Run("auth required with token", func(t *testing.T) {
		router, err := setupRouter(&models.AppState{Config: cfg})
		require.NoError(t, err)
		router.Handle("/", testHandler)

		token, err := auth.GenerateJWT(cfg, "", 0)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		res := httptest.NewRecorder()

		router.ServeHTTP(res, req)
		require.Equal(t, http.StatusOK, res.Code)
	})

	t.Run("heartbeat skips auth", func(t *testing.T) {
		router, err := setupRouter(&models.AppState{Config: cfg})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		res := httptest.NewRecorder()

		router.ServeHTTP(res, req)
		require.Equal(t, http.StatusOK, res.Code)
	})

	t.Run("auth not required", func(t *testing.T) {
		router, err := setupRouter(&models.AppState{Config: &config.Config{}})
		require.NoError(t, err)
		router.Handle("/", testHandler)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		res := httptest.NewRecorder()

		router.ServeHTTP(res, req)
		require.Equal(t, http.StatusOK, res.Code)
	})

	t.Run("auth required without secret", func(t *testing.T) {
		_, err := setupRouter(&models.AppState{
			Config: &config.Config{Auth: config.AuthConfig{Required: true}},
		})
		assert.ErrorIs(t, err, auth.ErrMissingSecret)
	})
}

func TestSendVersion(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	handler := SendVersion(nextHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, config.VersionString, rr.Header().Get(versionHeader))
}

func TestProductRoutes(t *testing.T) {
	env := newTestEnv(t)

	product := env.createProduct(t, models.CreateProductRequest{
		Title:      "iPhone 9",
		Brand:      "Apple",
		Price:      549,
		CategoryID: 1,
	})
	assert.NotZero(t, product.ID)
	assert.Equal(t, "summary", product.Description)
	require.NotNil(t, product.Category)
	assert.Equal(t, "smartphones", product.Category.Name)

	path := fmt.Sprintf("/api/v1/products/%d", product.ID)

	resp := env.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[models.Product](t, resp)
	assert.Equal(t, "iPhone 9", got.Title)

	title := "iPhone 9 Pro"
	resp = env.do(t, http.MethodPut, path, models.UpdateProductRequest{Title: &title})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decodeBody[models.Product](t, resp)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, "summary", got.Description)

	resp = env.do(t, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateProductHandler_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"missing title", models.CreateProductRequest{Price: 10}, http.StatusBadRequest},
		{"negative price", models.CreateProductRequest{Title: "x", Price: -1}, http.StatusBadRequest},
		{"unknown category", models.CreateProductRequest{Title: "x", CategoryID: 99}, http.StatusNotFound},
		{"not json", "title", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/v1/products", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}

	t.Run("llm unavailable", func(t *testing.T) {
		env.llm.Responder = func(context.Context, string) (string, error) {
			return "", errors.New("connection refused")
		}
		resp := env.do(t, http.MethodPost, "/api/v1/products", models.CreateProductRequest{Title: "x"})
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestInvalidProductID(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/v1/products/abc", "/api/v1/products/0/reviews"} {
		resp := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestSearchProductsHandler(t *testing.T) {
	env := newTestEnv(t)
	for i := range testutils.TestProducts {
		p := testutils.TestProducts[i]
		env.createProduct(t, models.CreateProductRequest{
			Title:       p.Title,
			Description: p.Description,
			Brand:       p.Brand,
			CategoryID:  p.CategoryID,
		})
	}

	resp := env.do(t, http.MethodPost, "/api/v1/products/search?limit=2", models.ProductSearchRequest{
		Search: "apple phone",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeBody[models.ProductSearchResponse](t, resp)
	assert.Equal(t, "apple phone", result.Query)
	require.Len(t, result.Results, 2)
	assert.LessOrEqual(t, result.Results[0].Distance, result.Results[1].Distance)

	resp = env.do(t, http.MethodPost, "/api/v1/products/search", models.ProductSearchRequest{
		Search:     "apple",
		CategoryID: 2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result = decodeBody[models.ProductSearchResponse](t, resp)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "MacBook Pro", result.Results[0].Product.Title)

	resp = env.do(t, http.MethodPost, "/api/v1/products/search", models.ProductSearchRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/products/search?limit=x", models.ProductSearchRequest{
		Search: "apple",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func (e *testEnv) upload(t *testing.T, path, field string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		part, err := mw.CreateFormFile(field, "query.webm")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestVoiceSearchProductsHandler(t *testing.T) {
	env := newTestEnv(t)
	for i := range testutils.TestProducts {
		p := testutils.TestProducts[i]
		env.createProduct(t, models.CreateProductRequest{
			Title:       p.Title,
			Description: p.Description,
			Brand:       p.Brand,
			CategoryID:  p.CategoryID,
		})
	}

	resp := env.upload(t, "/api/v1/products/voice_search?limit=2", "file", []byte("webm bytes"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeBody[models.ProductSearchResponse](t, resp)
	assert.Equal(t, "apple phone", result.Query)
	require.Len(t, result.Results, 2)

	received := env.transcriber.Received()
	require.Len(t, received, 1)
	assert.Equal(t, "query.webm", received[0].Filename)
	assert.Equal(t, []byte("webm bytes"), received[0].Data)

	resp = env.upload(t, "/api/v1/products/voice_search?category_id=2", "file", []byte("webm bytes"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result = decodeBody[models.ProductSearchResponse](t, resp)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "MacBook Pro", result.Results[0].Product.Title)

	t.Run("missing file", func(t *testing.T) {
		resp := env.upload(t, "/api/v1/products/voice_search", "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("not multipart", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/v1/products/voice_search", models.ProductSearchRequest{
			Search: "apple",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("no speech", func(t *testing.T) {
		env.transcriber.Set("  ", nil)
		t.Cleanup(func() { env.transcriber.Set("apple phone", nil) })
		resp := env.upload(t, "/api/v1/products/voice_search", "file", []byte("silence"))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("transcription failure", func(t *testing.T) {
		env.transcriber.Set("", errors.New("connection refused"))
		t.Cleanup(func() { env.transcriber.Set("apple phone", nil) })
		resp := env.upload(t, "/api/v1/products/voice_search", "file", []byte("webm bytes"))
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("too large", func(t *testing.T) {
		data := bytes.Repeat([]byte("a"), env.appState.Config.Server.MaxRequestSize+1)
		resp := env.upload(t, "/api/v1/products/voice_search", "file", data)
		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	})
}

func TestReviewRoutes(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, models.CreateProductRequest{
		Title:       "iPhone 9",
		Description: "An apple mobile",
		CategoryID:  1,
	})
	base := fmt.Sprintf("/api/v1/products/%d", product.ID)

	resp := env.do(t, http.MethodGet, base+"/reviews", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeBody[[]models.Review](t, resp))

	// no reviews, nothing to analyze
	resp = env.do(t, http.MethodGet, base+"/analysis", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	llmCalls := env.llm.Calls()

	resp = env.do(t, http.MethodPost, base+"/reviews", models.CreateReviewRequest{
		Content: "Great camera",
		Rating:  5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	review := decodeBody[models.Review](t, resp)
	assert.Equal(t, models.SentimentPositive, review.SentimentLabel)
	assert.InDelta(t, 0.8, review.SentimentScore, 1e-9)

	resp = env.do(t, http.MethodPost, base+"/reviews", models.CreateReviewRequest{
		Content: "Bad battery",
		Rating:  6,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, base+"/reviews", models.CreateReviewRequest{
		Content: "Bad battery",
		Rating:  1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodGet, base+"/analysis", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeBody[models.ProductAnalysis](t, resp)
	assert.Equal(t, product.ID, result.ProductID)
	assert.Equal(t, 2, result.ReviewCount)
	assert.InDelta(t, 0.0, result.SentimentScoreAvg, 1e-9)
	assert.Equal(t, 1, result.SentimentLabelCounts[models.SentimentPositive])
	assert.Equal(t, 1, result.SentimentLabelCounts[models.SentimentNegative])
	assert.Equal(t, "summary", result.CommentsSummary)
	// one chunk summary and one merge
	assert.Equal(t, llmCalls+2, env.llm.Calls())

	reviewPath := fmt.Sprintf("%s/reviews/%d", base, review.ID)
	content := "Camera is ok"
	resp = env.do(t, http.MethodPut, reviewPath, models.UpdateReviewRequest{Content: &content})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[models.Review](t, resp)
	assert.Equal(t, models.SentimentNeutral, updated.SentimentLabel)

	resp = env.do(t, http.MethodGet, reviewPath, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, content, decodeBody[models.Review](t, resp).Content)

	resp = env.do(t, http.MethodDelete, reviewPath, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, reviewPath, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetProductAnalysisHandler_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	product := env.createProduct(t, models.CreateProductRequest{
		Title:       "iPhone 9",
		Description: "An apple mobile",
	})
	base := fmt.Sprintf("/api/v1/products/%d", product.ID)
	resp := env.do(t, http.MethodPost, base+"/reviews", models.CreateReviewRequest{
		Content: "Great camera",
		Rating:  5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	env.llm.Responder = func(context.Context, string) (string, error) {
		return "", errors.New("connection refused")
	}
	resp = env.do(t, http.MethodGet, base+"/analysis", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/products/999/analysis", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMaxRequestSize(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/products", models.CreateProductRequest{
		Title:       "Large",
		Description: strings.Repeat("a", env.appState.Config.Server.MaxRequestSize+1),
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}
