package llms

import (
	"context"
	"errors"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/vitrinhq/vitrin/config"
	"github.com/vitrinhq/vitrin/pkg/models"
)

const GoogleAIAPITimeout = 90 * time.Second
const GoogleAIAPIKeyNotSetError = "VITRIN_GOOGLE_API_KEY is not set" //nolint:gosec

var _ models.LLM = &VitrinGoogleAILLM{}

func NewGoogleAILLM(ctx context.Context, cfg *config.Config) (*VitrinGoogleAILLM, error) {
	zllm := &VitrinGoogleAILLM{}
	err := zllm.Init(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return zllm, nil
}

type VitrinGoogleAILLM struct {
	client *googleai.GoogleAI
	tkm    *tiktoken.Tiktoken
}

func (zllm *VitrinGoogleAILLM) Init(ctx context.Context, cfg *config.Config) error {
	if cfg.LLM.GoogleAPIKey == "" {
		return errors.New(GoogleAIAPIKeyNotSetError)
	}

	tkm, err := tiktoken.GetEncoding(tiktokenEncoding)
	if err != nil {
		return err
	}
	zllm.tkm = tkm

	client, err := googleai.New(
		ctx,
		googleai.WithAPIKey(cfg.LLM.GoogleAPIKey),
		googleai.WithDefaultModel(cfg.LLM.Model),
	)
	if err != nil {
		return NewLLMError("failed to create googleai client", err)
	}
	zllm.client = client

	return nil
}

func (zllm *VitrinGoogleAILLM) Call(ctx context.Context,
	prompt string,
	options ...llms.CallOption,
) (string, error) {
	if zllm.client == nil {
		return "", NewLLMError(InvalidLLMModelError, nil)
	}

	if len(options) == 0 {
		options = append(options, llms.WithTemperature(DefaultTemperature))
	}

	thisCtx, cancel := context.WithTimeout(ctx, GoogleAIAPITimeout)
	defer cancel()

	completion, err := llms.GenerateFromSinglePrompt(thisCtx, zllm.client, prompt, options...)
	if err != nil {
		return "", classifyError("llm", err)
	}

	return completion, nil
}

// GetTokenCount returns an approximate number of tokens in the text
func (zllm *VitrinGoogleAILLM) GetTokenCount(text string) (int, error) {
	return len(zllm.tkm.Encode(text, nil, nil)), nil
}
