package catalog

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrinhq/vitrin/pkg/models"
	"github.com/vitrinhq/vitrin/pkg/search"
	"github.com/vitrinhq/vitrin/pkg/store/memory"
	"github.com/vitrinhq/vitrin/pkg/testutils"
)

type testEnv struct {
	appState   *models.AppState
	store      *memory.Store
	llm        *testutils.FakeLLM
	embeddings *testutils.FakeEmbeddingsClient
	sentiment  *testutils.FakeSentimentClassifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store: memory.NewStore(testutils.TestDimensions),
		llm: &testutils.FakeLLM{
			Responder: func(context.Context, string) (string, error) {
				return "  A generated description.  ", nil
			},
		},
		embeddings: testutils.NewFakeEmbeddingsClient(testutils.TestDimensions),
		sentiment:  &testutils.FakeSentimentClassifier{},
	}
	for _, c := range testutils.TestCategories {
		env.store.PutCategory(c)
	}
	env.appState = &models.AppState{
		LLMClient:        env.llm,
		EmbeddingsClient: env.embeddings,
		SentimentClient:  env.sentiment,
		CatalogStore:     env.store,
		ReviewStore:      env.store,
		Config:           testutils.NewTestConfig(),
	}
	return env
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func createTestProduct(t *testing.T, env *testEnv, description string) *models.Product {
	t.Helper()
	p, err := NewProductService(env.appState).Create(context.Background(), &models.CreateProductRequest{
		Title:       "iPhone 9",
		Description: description,
		Brand:       "Apple",
		Price:       549,
		CategoryID:  1,
	})
	require.NoError(t, err)
	return p
}

func TestProductService_CreateGeneratesDescription(t *testing.T) {
	env := newTestEnv(t)

	p := createTestProduct(t, env, "")

	assert.Equal(t, "A generated description.", p.Description)
	assert.Equal(t, "smartphones", p.Category.Name)
	require.Len(t, env.llm.Prompts(), 1)
	assert.Contains(t, env.llm.Prompts()[0], "Title: iPhone 9")
	assert.Contains(t, env.llm.Prompts()[0], "Category: smartphones")
	assert.Contains(t, env.llm.Prompts()[0], "Price: $549.00")

	assert.Len(t, p.Embedding, testutils.TestDimensions)
	assert.InDelta(t, 1.0, vectorNorm(p.Embedding), 1e-6)

	expected, err := search.Normalize(
		testutils.HashVector(search.ProductEmbeddingText(p), testutils.TestDimensions),
	)
	require.NoError(t, err)
	assert.Equal(t, expected, p.Embedding)
}

func TestProductService_CreateKeepsDescription(t *testing.T) {
	env := newTestEnv(t)

	p := createTestProduct(t, env, "Handwritten")

	assert.Equal(t, "Handwritten", p.Description)
	assert.Equal(t, 0, env.llm.Calls())
}

func TestProductService_CreateErrors(t *testing.T) {
	env := newTestEnv(t)
	svc := NewProductService(env.appState)
	ctx := context.Background()

	_, err := svc.Create(ctx, &models.CreateProductRequest{Title: "x", Description: "y", CategoryID: 99})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Create(ctx, &models.CreateProductRequest{Title: "  ", Description: "y"})
	assert.ErrorIs(t, err, models.ErrValidation)

	env.embeddings.Err = errors.New("down")
	_, err = svc.Create(ctx, &models.CreateProductRequest{Title: "x", Description: "y"})
	assert.ErrorIs(t, err, models.ErrUpstreamService)

	env.embeddings.Err = nil
	env.llm.Responder = func(context.Context, string) (string, error) {
		return "", models.NewUpstreamServiceError("llm", models.UpstreamContentFiltered, nil)
	}
	_, err = svc.Create(ctx, &models.CreateProductRequest{Title: "x"})
	assert.ErrorIs(t, err, models.ErrUpstreamService)

	ids, err := env.store.GetUnembeddedProductIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestProductService_UpdateRegeneratesEmbedding(t *testing.T) {
	env := newTestEnv(t)
	svc := NewProductService(env.appState)
	ctx := context.Background()
	p := createTestProduct(t, env, "Original")

	title := "iPhone 9 Pro"
	price := 649.0
	updated, err := svc.Update(ctx, p.ID, &models.UpdateProductRequest{Title: &title, Price: &price})
	require.NoError(t, err)

	assert.Equal(t, "iPhone 9 Pro", updated.Title)
	assert.Equal(t, 649.0, updated.Price)
	assert.Equal(t, "Original", updated.Description)
	assert.NotEqual(t, p.Embedding, updated.Embedding)
	assert.InDelta(t, 1.0, vectorNorm(updated.Embedding), 1e-6)

	_, err = svc.Update(ctx, 404, &models.UpdateProductRequest{Title: &title})
	assert.ErrorIs(t, err, models.ErrNotFound)

	category := int64(77)
	_, err = svc.Update(ctx, p.ID, &models.UpdateProductRequest{CategoryID: &category})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestProductService_Embed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.store.PutProduct(ctx, &models.Product{Title: "Brown Perfume", Brand: "Royal_Mirage"})
	require.NoError(t, err)

	require.NoError(t, NewProductService(env.appState).Embed(ctx, p.ID))

	got, err := env.store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, got.Embedding, testutils.TestDimensions)
}

func TestProductService_Delete(t *testing.T) {
	env := newTestEnv(t)
	svc := NewProductService(env.appState)
	p := createTestProduct(t, env, "x")

	require.NoError(t, svc.Delete(context.Background(), p.ID))
	_, err := svc.Get(context.Background(), p.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestReviewService_Create(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReviewService(env.appState)
	p := createTestProduct(t, env, "x")

	r, err := svc.Create(context.Background(), p.ID, &models.CreateReviewRequest{
		Content: "  Bad battery.  ",
		Rating:  1,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bad battery.", r.Content)
	assert.Equal(t, models.SentimentNegative, r.SentimentLabel)
	assert.InDelta(t, -0.9, r.SentimentScore, 1e-9)

	_, err = svc.Create(context.Background(), 404, &models.CreateReviewRequest{Content: "x", Rating: 1})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Create(context.Background(), p.ID, &models.CreateReviewRequest{Content: "   ", Rating: 1})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestReviewService_UpdateReclassifiesOnlyChangedContent(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReviewService(env.appState)
	ctx := context.Background()
	p := createTestProduct(t, env, "x")

	r, err := svc.Create(ctx, p.ID, &models.CreateReviewRequest{Content: "Great phone", Rating: 5})
	require.NoError(t, err)
	require.Equal(t, 1, env.sentiment.Calls())

	rating := 4
	same := "Great phone"
	r, err = svc.Update(ctx, p.ID, r.ID, &models.UpdateReviewRequest{Content: &same, Rating: &rating})
	require.NoError(t, err)
	assert.Equal(t, 4, r.Rating)
	assert.Equal(t, 1, env.sentiment.Calls())

	changed := "It is ok"
	r, err = svc.Update(ctx, p.ID, r.ID, &models.UpdateReviewRequest{Content: &changed})
	require.NoError(t, err)
	assert.Equal(t, 2, env.sentiment.Calls())
	assert.Equal(t, models.SentimentNeutral, r.SentimentLabel)
	assert.Equal(t, 0.0, r.SentimentScore)

	reviews, err := svc.List(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "It is ok", reviews[0].Content)

	require.NoError(t, svc.Delete(ctx, p.ID, r.ID))
	_, err = svc.Get(ctx, p.ID, r.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestReviewService_UnknownLabelStoredAsNeutral(t *testing.T) {
	env := newTestEnv(t)
	env.sentiment.Results = map[string]models.Sentiment{
		"Mixed feelings": {Label: "mixed", Confidence: 0.7},
	}
	p := createTestProduct(t, env, "x")

	r, err := NewReviewService(env.appState).Create(
		context.Background(),
		p.ID,
		&models.CreateReviewRequest{Content: "Mixed feelings", Rating: 3},
	)
	require.NoError(t, err)
	assert.Equal(t, models.SentimentNeutral, r.SentimentLabel)
	assert.Zero(t, r.SentimentScore)
}

func TestReviewService_ClassifierFailure(t *testing.T) {
	env := newTestEnv(t)
	env.sentiment.Err = errors.New("timeout talking to model")
	p := createTestProduct(t, env, "x")

	_, err := NewReviewService(env.appState).Create(
		context.Background(),
		p.ID,
		&models.CreateReviewRequest{Content: "fine", Rating: 3},
	)
	assert.ErrorIs(t, err, models.ErrUpstreamService)
}
