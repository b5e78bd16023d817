package search

import (
	"cmp"
	"slices"

	"github.com/viterin/vek/vek32"

	"github.com/vitrinhq/vitrin/pkg/models"
)

// Ranker orders unit-length product embeddings by cosine distance to a query.
type Ranker struct {
	dimensions int
}

func NewRanker(dimensions int) *Ranker {
	return &Ranker{dimensions: dimensions}
}

// Rank returns the k candidates nearest to query, ascending by distance with
// ties broken by ascending product ID. Both query and candidates must already
// be normalized, so cosine distance is 1 - dot product.
func (r *Ranker) Rank(
	query []float32,
	candidates []models.ProductVectorRecord,
	k int,
) ([]models.SearchResult, error) {
	if k < 1 {
		return nil, models.NewValidationError("limit", "must be at least 1")
	}
	if len(query) != r.dimensions {
		return nil, models.NewDimensionMismatchError(r.dimensions, len(query), 0)
	}

	results := make([]models.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Embedding) != r.dimensions {
			return nil, models.NewDimensionMismatchError(r.dimensions, len(c.Embedding), c.ProductID)
		}
		results = append(results, models.SearchResult{
			ProductID: c.ProductID,
			Distance:  CosineDistance(query, c.Embedding),
			Product:   c.Product,
		})
	}

	slices.SortFunc(results, CompareResults)

	return results[:min(k, len(results))], nil
}

// CosineDistance returns 1 - a·b for unit-length a and b.
func CosineDistance(a, b []float32) float64 {
	return 1 - float64(vek32.Dot(a, b))
}

// CompareResults orders by distance, then product ID.
func CompareResults(a, b models.SearchResult) int {
	if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
		return c
	}
	return cmp.Compare(a.ProductID, b.ProductID)
}
