package llms

import (
	"context"
	"fmt"

	"github.com/vitrinhq/vitrin/config"
	"github.com/vitrinhq/vitrin/pkg/models"
)

const InvalidEmbeddingsClientError = "embeddings client is not set or is invalid"

type EmbeddingsClientError struct {
	message       string
	originalError error
}

func (e *EmbeddingsClientError) Error() string {
	return fmt.Sprintf("embeddings client error: %s (original error: %v)", e.message, e.originalError)
}

func (e *EmbeddingsClientError) Unwrap() error {
	return e.originalError
}

func NewEmbeddingsClientError(message string, originalError error) *EmbeddingsClientError {
	return &EmbeddingsClientError{message: message, originalError: originalError}
}

func NewEmbeddingsClient(ctx context.Context, cfg *config.Config) (models.EmbeddingsClient, error) {
	switch cfg.EmbeddingsClient.Service {
	case "openai":
		return NewOpenAIEmbeddingsClient(ctx, cfg)
	case "local", "":
		return NewLocalEmbeddingsClient(cfg)
	default:
		return nil, fmt.Errorf("invalid embeddings service: %s", cfg.EmbeddingsClient.Service)
	}
}
