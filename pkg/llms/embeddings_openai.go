package llms

import (
	"context"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/vitrinhq/vitrin/config"
	"github.com/vitrinhq/vitrin/pkg/models"
)

const defaultOpenAIEmbeddingsModel = "text-embedding-3-small"

var _ models.EmbeddingsClient = &VitrinOpenAIEmbeddingsClient{}

func NewOpenAIEmbeddingsClient(
	ctx context.Context,
	cfg *config.Config,
) (*VitrinOpenAIEmbeddingsClient, error) {
	zembeddings := &VitrinOpenAIEmbeddingsClient{}
	err := zembeddings.Init(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return zembeddings, nil
}

type VitrinOpenAIEmbeddingsClient struct {
	client *openai.LLM
}

func (zembeddings *VitrinOpenAIEmbeddingsClient) Init(_ context.Context, cfg *config.Config) error {
	apiKey, err := GetOpenAIAPIKey(cfg, EmbeddingsClientType)
	if err != nil {
		return err
	}

	model := cfg.EmbeddingsClient.Model
	if model == "" {
		model = defaultOpenAIEmbeddingsModel
	}

	// the chat model is never used, the embedding model is set below
	options := GetBaseOpenAIClientOptions(apiKey, "gpt-4o-mini")
	options = ConfigureOpenAIClientOptions(options, cfg, EmbeddingsClientType)
	options = append(options, openai.WithEmbeddingModel(model))

	client, err := openai.New(options...)
	if err != nil {
		return NewEmbeddingsClientError("failed to create openai embeddings client", err)
	}
	zembeddings.client = client

	return nil
}

func (zembeddings *VitrinOpenAIEmbeddingsClient) EmbedTexts(
	ctx context.Context,
	texts []string,
) ([][]float32, error) {
	if zembeddings.client == nil {
		return nil, NewEmbeddingsClientError(InvalidEmbeddingsClientError, nil)
	}

	thisCtx, cancel := context.WithTimeout(ctx, OpenAIAPITimeout)
	defer cancel()

	embeddings, err := zembeddings.client.CreateEmbedding(thisCtx, texts)
	if err != nil {
		return nil, classifyError("embeddings", err)
	}

	return embeddings, nil
}
