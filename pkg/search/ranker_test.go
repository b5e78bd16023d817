package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrinhq/vitrin/pkg/models"
	"github.com/vitrinhq/vitrin/pkg/testutils"
)

func unit(t *testing.T, v ...float32) []float32 {
	t.Helper()
	n, err := Normalize(v)
	require.NoError(t, err)
	return n
}

func resultIDs(results []models.SearchResult) []int64 {
	ids := make([]int64, len(results))
	for i, r := range results {
		ids[i] = r.ProductID
	}
	return ids
}

func TestRanker_Rank(t *testing.T) {
	r := NewRanker(2)
	candidates := []models.ProductVectorRecord{
		{ProductID: 1, Embedding: unit(t, 1, 0)},
		{ProductID: 2, Embedding: unit(t, 0, 1)},
		{ProductID: 3, Embedding: unit(t, 1, 1)},
	}

	results, err := r.Rank(unit(t, 1, 0.1), candidates, 2)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 3}, resultIDs(results))
	assert.Less(t, results[0].Distance, results[1].Distance)
	assert.InDelta(t, 0.005, results[0].Distance, 1e-3)
}

func TestRanker_OppositeVectors(t *testing.T) {
	r := NewRanker(2)
	candidates := []models.ProductVectorRecord{
		{ProductID: 7, Embedding: unit(t, -1, 0)},
		{ProductID: 8, Embedding: unit(t, 1, 0)},
	}

	results, err := r.Rank(unit(t, 1, 0), candidates, 5)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, int64(8), results[0].ProductID)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-6)
	assert.InDelta(t, 2.0, results[1].Distance, 1e-6)
}

func TestRanker_TieBreakByProductID(t *testing.T) {
	r := NewRanker(2)
	same := unit(t, 0.6, 0.8)
	candidates := []models.ProductVectorRecord{
		{ProductID: 30, Embedding: same},
		{ProductID: 10, Embedding: same},
		{ProductID: 20, Embedding: same},
	}

	results, err := r.Rank(unit(t, 1, 0), candidates, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, resultIDs(results))
}

func TestRanker_Deterministic(t *testing.T) {
	r := NewRanker(testutils.TestDimensions)
	var candidates []models.ProductVectorRecord
	for i := int64(1); i <= 50; i++ {
		v, err := Normalize(testutils.HashVector(testutils.GenerateRandomString(12), testutils.TestDimensions))
		require.NoError(t, err)
		candidates = append(candidates, models.ProductVectorRecord{ProductID: i, Embedding: v})
	}
	query := unit(t, testutils.HashVector("query", testutils.TestDimensions)...)

	first, err := r.Rank(query, candidates, 10)
	require.NoError(t, err)
	require.Len(t, first, 10)

	reversed := make([]models.ProductVectorRecord, len(candidates))
	for i, c := range candidates {
		reversed[len(candidates)-1-i] = c
	}
	second, err := r.Rank(query, reversed, 10)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for i := 1; i < len(first); i++ {
		assert.LessOrEqual(t, first[i-1].Distance, first[i].Distance)
	}
}

func TestRanker_Errors(t *testing.T) {
	r := NewRanker(2)

	_, err := r.Rank(unit(t, 1, 0), nil, 0)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = r.Rank([]float32{1, 0, 0}, nil, 1)
	assert.ErrorIs(t, err, models.ErrDimensionMismatch)

	_, err = r.Rank(unit(t, 1, 0), []models.ProductVectorRecord{
		{ProductID: 4, Embedding: []float32{1}},
	}, 1)
	var dimErr *models.DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, int64(4), dimErr.ProductID)
}

func TestRanker_EmptyCandidates(t *testing.T) {
	results, err := NewRanker(2).Rank(unit(t, 1, 0), nil, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}
