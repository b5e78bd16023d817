package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/vitrinhq/vitrin/pkg/models"
	"github.com/vitrinhq/vitrin/pkg/search"
)

var _ models.CatalogStore = &Store{}
var _ models.ReviewStore = &Store{}

// Store is an in-process CatalogStore and ReviewStore. Searches are ranked
// exhaustively with search.Ranker.
type Store struct {
	mu            sync.RWMutex
	categories    map[int64]models.Category
	products      map[int64]*models.Product
	reviews       map[int64]*models.Review
	nextProductID int64
	nextReviewID  int64
	ranker        *search.Ranker
}

func NewStore(dimensions int) *Store {
	return &Store{
		categories: map[int64]models.Category{},
		products:   map[int64]*models.Product{},
		reviews:    map[int64]*models.Review{},
		ranker:     search.NewRanker(dimensions),
	}
}

func (s *Store) PutCategory(category models.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[category.ID] = category
}

func (s *Store) GetCategory(_ context.Context, categoryID int64) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[categoryID]
	if !ok {
		return nil, models.NewNotFoundError(fmt.Sprintf("category %d", categoryID))
	}
	return &c, nil
}

func (s *Store) GetProduct(_ context.Context, productID int64) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok {
		return nil, models.NewNotFoundError(fmt.Sprintf("product %d", productID))
	}
	return s.copyProduct(p), nil
}

func (s *Store) PutProduct(_ context.Context, product *models.Product) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneProduct(product)
	stored.Category = nil

	now := time.Now().UTC()
	if stored.ID == 0 {
		s.nextProductID++
		stored.ID = s.nextProductID
		stored.CreatedAt = now
	} else {
		existing, ok := s.products[stored.ID]
		if !ok {
			return nil, models.NewNotFoundError(fmt.Sprintf("product %d", stored.ID))
		}
		stored.CreatedAt = existing.CreatedAt
		if stored.Embedding == nil {
			stored.Embedding = existing.Embedding
		}
	}
	stored.UpdatedAt = now
	s.products[stored.ID] = stored

	return s.copyProduct(stored), nil
}

func (s *Store) DeleteProduct(_ context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[productID]; !ok {
		return models.NewNotFoundError(fmt.Sprintf("product %d", productID))
	}
	delete(s.products, productID)
	for id, r := range s.reviews {
		if r.ProductID == productID {
			delete(s.reviews, id)
		}
	}
	return nil
}

func (s *Store) SearchProducts(
	ctx context.Context,
	query []float32,
	limit int,
) ([]models.SearchResult, error) {
	candidates, err := s.GetProductVectors(ctx, models.ProductVectorFilter{})
	if err != nil {
		return nil, err
	}
	return s.ranker.Rank(query, candidates, limit)
}

func (s *Store) GetProductVectors(
	_ context.Context,
	filter models.ProductVectorFilter,
) ([]models.ProductVectorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]models.ProductVectorRecord, 0, len(s.products))
	for _, p := range s.products {
		if len(p.Embedding) == 0 {
			continue
		}
		if filter.CategoryID != 0 && p.CategoryID != filter.CategoryID {
			continue
		}
		product := s.copyProduct(p)
		records = append(records, models.ProductVectorRecord{
			ProductID: p.ID,
			Embedding: product.Embedding,
			Product:   product,
		})
	}
	slices.SortFunc(records, func(a, b models.ProductVectorRecord) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	return records, nil
}

func (s *Store) GetUnembeddedProductIDs(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for id, p := range s.products {
		if len(p.Embedding) == 0 {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *Store) PutProductEmbedding(
	_ context.Context,
	productID int64,
	embedding []float32,
	version time.Time,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return models.NewNotFoundError(fmt.Sprintf("product %d", productID))
	}
	if !version.IsZero() && !p.UpdatedAt.Equal(version) {
		return models.NewStaleProductError(productID)
	}
	p.Embedding = slices.Clone(embedding)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) GetReviews(_ context.Context, productID int64) ([]models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reviews := make([]models.Review, 0)
	for _, r := range s.reviews {
		if r.ProductID == productID {
			reviews = append(reviews, *r)
		}
	}
	slices.SortFunc(reviews, func(a, b models.Review) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return reviews, nil
}

func (s *Store) GetReview(_ context.Context, productID, reviewID int64) (*models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reviews[reviewID]
	if !ok || r.ProductID != productID {
		return nil, models.NewNotFoundError(fmt.Sprintf("review %d", reviewID))
	}
	review := *r
	return &review, nil
}

func (s *Store) PutReview(_ context.Context, review *models.Review) (*models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[review.ProductID]; !ok {
		return nil, models.NewNotFoundError(fmt.Sprintf("product %d", review.ProductID))
	}

	stored := *review
	now := time.Now().UTC()
	if stored.ID == 0 {
		s.nextReviewID++
		stored.ID = s.nextReviewID
		stored.CreatedAt = now
	} else {
		existing, ok := s.reviews[stored.ID]
		if !ok || existing.ProductID != stored.ProductID {
			return nil, models.NewNotFoundError(fmt.Sprintf("review %d", stored.ID))
		}
		stored.CreatedAt = existing.CreatedAt
	}
	stored.UpdatedAt = now
	s.reviews[stored.ID] = &stored

	result := stored
	return &result, nil
}

func (s *Store) DeleteReview(_ context.Context, productID, reviewID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reviews[reviewID]
	if !ok || r.ProductID != productID {
		return models.NewNotFoundError(fmt.Sprintf("review %d", reviewID))
	}
	delete(s.reviews, reviewID)
	return nil
}

func (s *Store) Close() error {
	return nil
}

// copyProduct returns a copy of p with its category attached. Callers must
// hold the lock.
func (s *Store) copyProduct(p *models.Product) *models.Product {
	out := cloneProduct(p)
	if c, ok := s.categories[p.CategoryID]; ok {
		out.Category = &c
	}
	return out
}

func cloneProduct(p *models.Product) *models.Product {
	out := *p
	out.Images = slices.Clone(p.Images)
	out.Embedding = slices.Clone(p.Embedding)
	return &out
}
