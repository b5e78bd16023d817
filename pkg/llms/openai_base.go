package llms

import (
	"errors"
	"time"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/vitrinhq/vitrin/config"
)

const OpenAIAPITimeout = 90 * time.Second
const MaxOpenAIAPIRequestAttempts = 5

const OpenAIAPIKeyNotSetError = "VITRIN_OPENAI_API_KEY is not set"                      //nolint:gosec
const EmbeddingsOpenAIAPIKeyNotSetError = "VITRIN_EMBEDDINGS_OPENAI_API_KEY is not set" //nolint:gosec

type ClientType string

const (
	EmbeddingsClientType ClientType = "embeddings"
	LLMClientType        ClientType = "llm"
)

// GetOpenAIAPIKey returns the key for the client type. The embeddings client
// falls back to the LLM key.
func GetOpenAIAPIKey(cfg *config.Config, clientType ClientType) (string, error) {
	if clientType == EmbeddingsClientType {
		apiKey := cfg.EmbeddingsClient.OpenAIAPIKey
		if apiKey == "" {
			apiKey = cfg.LLM.OpenAIAPIKey
		}
		if apiKey == "" {
			return "", errors.New(EmbeddingsOpenAIAPIKeyNotSetError)
		}
		return apiKey, nil
	}

	if cfg.LLM.OpenAIAPIKey == "" {
		return "", errors.New(OpenAIAPIKeyNotSetError)
	}
	return cfg.LLM.OpenAIAPIKey, nil
}

func GetBaseOpenAIClientOptions(apiKey, model string) []openai.Option {
	retryableHTTPClient := NewRetryableHTTPClient(MaxOpenAIAPIRequestAttempts, OpenAIAPITimeout)

	options := make([]openai.Option, 0)
	options = append(
		options,
		openai.WithHTTPClient(retryableHTTPClient.StandardClient()),
		openai.WithModel(model),
		openai.WithToken(apiKey),
	)

	return options
}

func ConfigureOpenAIClientOptions(
	options []openai.Option,
	cfg *config.Config,
	clientType ClientType,
) []openai.Option {
	var openAIEndpoint string
	var openAIOrgID string

	if clientType == EmbeddingsClientType {
		openAIEndpoint = cfg.EmbeddingsClient.OpenAIEndpoint
		openAIOrgID = cfg.EmbeddingsClient.OpenAIOrgID
		if cfg.EmbeddingsClient.Model != "" {
			options = append(options, openai.WithEmbeddingModel(cfg.EmbeddingsClient.Model))
		}
	} else {
		openAIEndpoint = cfg.LLM.OpenAIEndpoint
		openAIOrgID = cfg.LLM.OpenAIOrgID
	}

	if openAIEndpoint != "" {
		options = append(options, openai.WithBaseURL(openAIEndpoint))
	}

	if openAIOrgID != "" {
		options = append(options, openai.WithOrganization(openAIOrgID))
	}

	return options
}
