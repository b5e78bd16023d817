package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/tmc/langchaingo/llms"

	"github.com/vitrinhq/vitrin/internal"
	"github.com/vitrinhq/vitrin/pkg/models"
	"github.com/vitrinhq/vitrin/pkg/search"
)

var log = internal.GetLogger()

const descriptionMaxTokens = 256

// ProductService manages products and keeps their embeddings current.
type ProductService struct {
	store             models.CatalogStore
	normalizer        *search.Normalizer
	llm               models.LLM
	descriptionPrompt string
}

func NewProductService(appState *models.AppState) *ProductService {
	return &ProductService{
		store: appState.CatalogStore,
		normalizer: search.NewNormalizer(
			appState.EmbeddingsClient,
			appState.Config.EmbeddingsClient.Dimensions,
		),
		llm: appState.LLMClient,
		descriptionPrompt: internal.FirstNonEmpty(
			appState.Config.CustomPrompts.ProductDescription,
			defaultProductDescriptionPromptTemplate,
		),
	}
}

func (s *ProductService) Get(ctx context.Context, productID int64) (*models.Product, error) {
	return s.store.GetProduct(ctx, productID)
}

// Create stores a new product. A missing description is written by the LLM.
func (s *ProductService) Create(
	ctx context.Context,
	req *models.CreateProductRequest,
) (*models.Product, error) {
	product := &models.Product{}
	if err := copier.Copy(product, req); err != nil {
		return nil, fmt.Errorf("failed to copy product request: %w", err)
	}
	product.Title = strings.TrimSpace(product.Title)
	if product.Title == "" {
		return nil, models.NewEmptyInputError("title")
	}

	if err := s.attachCategory(ctx, product); err != nil {
		return nil, err
	}

	if strings.TrimSpace(product.Description) == "" {
		description, err := s.generateDescription(ctx, product)
		if err != nil {
			return nil, err
		}
		product.Description = description
	}

	if err := s.embed(ctx, product); err != nil {
		return nil, err
	}

	return s.store.PutProduct(ctx, product)
}

// Update applies the non-nil fields of req and regenerates the embedding.
func (s *ProductService) Update(
	ctx context.Context,
	productID int64,
	req *models.UpdateProductRequest,
) (*models.Product, error) {
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	applyProductUpdate(product, req)
	if strings.TrimSpace(product.Title) == "" {
		return nil, models.NewEmptyInputError("title")
	}

	if req.CategoryID != nil {
		if err := s.attachCategory(ctx, product); err != nil {
			return nil, err
		}
	}

	if err := s.embed(ctx, product); err != nil {
		return nil, err
	}

	return s.store.PutProduct(ctx, product)
}

func (s *ProductService) Delete(ctx context.Context, productID int64) error {
	return s.store.DeleteProduct(ctx, productID)
}

// Embed recomputes and stores the embedding of an existing product.
func (s *ProductService) Embed(ctx context.Context, productID int64) error {
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if err := s.embed(ctx, product); err != nil {
		return err
	}
	return s.store.PutProductEmbedding(ctx, productID, product.Embedding, product.UpdatedAt)
}

func (s *ProductService) embed(ctx context.Context, product *models.Product) error {
	embedding, err := s.normalizer.Embed(ctx, search.ProductEmbeddingText(product))
	if err != nil {
		return fmt.Errorf("failed to embed product: %w", err)
	}
	product.Embedding = embedding
	return nil
}

func (s *ProductService) attachCategory(ctx context.Context, product *models.Product) error {
	product.Category = nil
	if product.CategoryID == 0 {
		return nil
	}
	category, err := s.store.GetCategory(ctx, product.CategoryID)
	if err != nil {
		return err
	}
	product.Category = category
	return nil
}

func (s *ProductService) generateDescription(
	ctx context.Context,
	product *models.Product,
) (string, error) {
	if s.llm == nil {
		return "", nil
	}

	data := ProductDescriptionPromptTemplateData{
		Title:              product.Title,
		Brand:              product.Brand,
		Price:              product.Price,
		DiscountPercentage: product.DiscountPercentage,
		Rating:             product.Rating,
		Stock:              product.Stock,
	}
	if product.Category != nil {
		data.CategoryName = product.Category.Name
	}

	prompt, err := internal.ParsePrompt(s.descriptionPrompt, data)
	if err != nil {
		return "", fmt.Errorf("failed to parse product description prompt: %w", err)
	}

	description, err := s.llm.Call(ctx, prompt, llms.WithMaxTokens(descriptionMaxTokens))
	if err != nil {
		return "", models.AsUpstreamServiceError("llm", err)
	}

	log.Debugf("generated description for product %q", product.Title)

	return strings.TrimSpace(description), nil
}

func applyProductUpdate(product *models.Product, req *models.UpdateProductRequest) {
	if req.Title != nil {
		product.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Brand != nil {
		product.Brand = *req.Brand
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.DiscountPercentage != nil {
		product.DiscountPercentage = *req.DiscountPercentage
	}
	if req.Rating != nil {
		product.Rating = *req.Rating
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.Thumbnail != nil {
		product.Thumbnail = *req.Thumbnail
	}
	if req.Images != nil {
		product.Images = *req.Images
	}
	if req.IsPublished != nil {
		product.IsPublished = *req.IsPublished
	}
	if req.CategoryID != nil {
		product.CategoryID = *req.CategoryID
	}
}
