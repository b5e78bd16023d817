package llms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vitrinhq/vitrin/config"
	"github.com/vitrinhq/vitrin/pkg/models"
)

var _ models.EmbeddingsClient = &LocalEmbeddingsClient{}

type localEmbeddingsRequest struct {
	Model string   `json:"model,omitempty"`
	Texts []string `json:"texts"`
}

type localEmbeddingsResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// LocalEmbeddingsClient calls a sentence-transformers model server.
type LocalEmbeddingsClient struct {
	client *serviceClient
	model  string
}

func NewLocalEmbeddingsClient(cfg *config.Config) (*LocalEmbeddingsClient, error) {
	if cfg.EmbeddingsClient.ServerURL == "" {
		return nil, NewEmbeddingsClientError(
			InvalidEmbeddingsClientError,
			errors.New("embeddings.server_url must be set"),
		)
	}
	url := strings.TrimRight(cfg.EmbeddingsClient.ServerURL, "/") + "/embeddings"
	return &LocalEmbeddingsClient{
		client: newServiceClient("embeddings", url, "", cfg.EmbeddingsClient.Timeout),
		model:  cfg.EmbeddingsClient.Model,
	}, nil
}

func (c *LocalEmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp localEmbeddingsResponse
	err := c.client.postJSON(ctx, localEmbeddingsRequest{Model: c.model, Texts: texts}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, models.NewUpstreamServiceError(
			"embeddings",
			models.UpstreamMalformedResponse,
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings)),
		)
	}

	return resp.Embeddings, nil
}
