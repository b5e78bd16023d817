package llms

import (
	"context"
	"errors"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/vitrinhq/vitrin/config"
	"github.com/vitrinhq/vitrin/pkg/models"
)

const AnthropicAPITimeout = 60 * time.Second
const AnthropicAPIKeyNotSetError = "VITRIN_ANTHROPIC_API_KEY is not set" //nolint:gosec

var _ models.LLM = &VitrinAnthropicLLM{}

func NewAnthropicLLM(ctx context.Context, cfg *config.Config) (*VitrinAnthropicLLM, error) {
	zllm := &VitrinAnthropicLLM{}
	err := zllm.Init(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return zllm, nil
}

type VitrinAnthropicLLM struct {
	client *anthropic.LLM
	tkm    *tiktoken.Tiktoken
}

func (zllm *VitrinAnthropicLLM) Init(_ context.Context, cfg *config.Config) error {
	if cfg.LLM.AnthropicAPIKey == "" {
		return errors.New(AnthropicAPIKeyNotSetError)
	}

	// Anthropic does not publish a tokenizer. cl100k_base is close enough for budgeting.
	tkm, err := tiktoken.GetEncoding(tiktokenEncoding)
	if err != nil {
		return err
	}
	zllm.tkm = tkm

	httpClient := NewRetryableHTTPClient(MaxOpenAIAPIRequestAttempts, AnthropicAPITimeout)
	llm, err := anthropic.New(
		anthropic.WithModel(cfg.LLM.Model),
		anthropic.WithToken(cfg.LLM.AnthropicAPIKey),
		anthropic.WithHTTPClient(httpClient.StandardClient()),
	)
	if err != nil {
		return NewLLMError("failed to create anthropic client", err)
	}
	zllm.client = llm

	return nil
}

func (zllm *VitrinAnthropicLLM) Call(ctx context.Context,
	prompt string,
	options ...llms.CallOption,
) (string, error) {
	// If the LLM is not initialized, return an error
	if zllm.client == nil {
		return "", NewLLMError(InvalidLLMModelError, nil)
	}

	if len(options) == 0 {
		options = append(options, llms.WithTemperature(DefaultTemperature))
	}

	thisCtx, cancel := context.WithTimeout(ctx, AnthropicAPITimeout)
	defer cancel()

	completion, err := llms.GenerateFromSinglePrompt(thisCtx, zllm.client, prompt, options...)
	if err != nil {
		return "", classifyError("llm", err)
	}

	return completion, nil
}

// GetTokenCount returns an approximate number of tokens in the text
func (zllm *VitrinAnthropicLLM) GetTokenCount(text string) (int, error) {
	return len(zllm.tkm.Encode(text, nil, nil)), nil
}
