package models

import (
	"context"
	"time"
)

// CatalogStore persists products and their embeddings.
type CatalogStore interface {
	// GetCategory returns a NotFoundError if the category does not exist
	GetCategory(ctx context.Context, categoryID int64) (*Category, error)
	// GetProduct returns a NotFoundError if the product does not exist
	GetProduct(ctx context.Context, productID int64) (*Product, error)
	// PutProduct creates the product if ID is zero and updates it otherwise
	PutProduct(ctx context.Context, product *Product) (*Product, error)
	DeleteProduct(ctx context.Context, productID int64) error
	// SearchProducts returns the limit products nearest to query, ordered by
	// cosine distance and then product ID
	SearchProducts(ctx context.Context, query []float32, limit int) ([]SearchResult, error)
	// GetProductVectors returns all embedded products matching the filter
	GetProductVectors(ctx context.Context, filter ProductVectorFilter) ([]ProductVectorRecord, error)
	GetUnembeddedProductIDs(ctx context.Context) ([]int64, error)
	// PutProductEmbedding stores an embedding computed from the product as of
	// version, its UpdatedAt. If the product was updated since, nothing is
	// written and a StaleProductError is returned. A zero version always writes.
	PutProductEmbedding(
		ctx context.Context,
		productID int64,
		embedding []float32,
		version time.Time,
	) error
	Close() error
}

// ReviewStore persists product reviews.
type ReviewStore interface {
	// GetReviews returns all reviews of a product in ID order
	GetReviews(ctx context.Context, productID int64) ([]Review, error)
	GetReview(ctx context.Context, productID, reviewID int64) (*Review, error)
	// PutReview creates the review if ID is zero and updates it otherwise
	PutReview(ctx context.Context, review *Review) (*Review, error)
	DeleteReview(ctx context.Context, productID, reviewID int64) error
}
