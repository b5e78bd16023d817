package search

import (
	"fmt"

	"github.com/vitrinhq/vitrin/pkg/models"
)

// ProductEmbeddingText returns the text a product's embedding is computed from.
func ProductEmbeddingText(p *models.Product) string {
	return fmt.Sprintf(productEmbeddingTextTemplate, p.Title, p.Description, p.Brand)
}
