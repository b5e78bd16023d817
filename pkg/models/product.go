package models

import "time"

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID                 int64     `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Brand              string    `json:"brand"`
	Price              float64   `json:"price"`
	DiscountPercentage float64   `json:"discount_percentage"`
	Rating             float64   `json:"rating"`
	Stock              int       `json:"stock"`
	Thumbnail          string    `json:"thumbnail,omitempty"`
	Images             []string  `json:"images,omitempty"`
	IsPublished        bool      `json:"is_published"`
	CategoryID         int64     `json:"category_id,omitempty"`
	Category           *Category `json:"category,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	// Embedding is the unit-length vector of the product's title, description and brand
	Embedding []float32 `json:"-"`
}

type CreateProductRequest struct {
	Title              string   `json:"title"               validate:"required"`
	Description        string   `json:"description"`
	Brand              string   `json:"brand"`
	Price              float64  `json:"price"               validate:"gte=0"`
	DiscountPercentage float64  `json:"discount_percentage" validate:"gte=0,lte=100"`
	Rating             float64  `json:"rating"              validate:"gte=0,lte=5"`
	Stock              int      `json:"stock"               validate:"gte=0"`
	Thumbnail          string   `json:"thumbnail"`
	Images             []string `json:"images"`
	IsPublished        bool     `json:"is_published"`
	CategoryID         int64    `json:"category_id"         validate:"gte=0"`
}

// UpdateProductRequest carries a partial update. Nil fields are left unchanged.
type UpdateProductRequest struct {
	Title              *string   `json:"title"               validate:"omitempty,min=1"`
	Description        *string   `json:"description"`
	Brand              *string   `json:"brand"`
	Price              *float64  `json:"price"               validate:"omitempty,gte=0"`
	DiscountPercentage *float64  `json:"discount_percentage" validate:"omitempty,gte=0,lte=100"`
	Rating             *float64  `json:"rating"              validate:"omitempty,gte=0,lte=5"`
	Stock              *int      `json:"stock"               validate:"omitempty,gte=0"`
	Thumbnail          *string   `json:"thumbnail"`
	Images             *[]string `json:"images"`
	IsPublished        *bool     `json:"is_published"`
	CategoryID         *int64    `json:"category_id"         validate:"omitempty,gte=0"`
}

// ProductVectorRecord is a candidate for similarity ranking.
type ProductVectorRecord struct {
	ProductID int64
	Embedding []float32
	Product   *Product
}

// ProductVectorFilter narrows the candidate set used for in-process ranking.
type ProductVectorFilter struct {
	CategoryID int64
}

// SearchResult is a ranked product. Lower Distance means more similar.
type SearchResult struct {
	ProductID int64    `json:"product_id"`
	Distance  float64  `json:"distance"`
	Product   *Product `json:"product,omitempty"`
}

type ProductSearchRequest struct {
	Search     string `json:"search"      validate:"required"`
	Limit      int    `json:"limit"       validate:"gte=0"`
	CategoryID int64  `json:"category_id" validate:"gte=0"`
}

type ProductSearchResponse struct {
	Query        string         `json:"query"`
	RefinedQuery string         `json:"refined_query,omitempty"`
	Results      []SearchResult `json:"results"`
}
