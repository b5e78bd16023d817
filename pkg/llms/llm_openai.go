package llms

import (
	"context"

	"github.com/pkoukk/tiktoken-go"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/vitrinhq/vitrin/config"
	"github.com/vitrinhq/vitrin/pkg/models"
)

const tiktokenEncoding = "cl100k_base"

var _ models.LLM = &VitrinOpenAILLM{}

func NewOpenAILLM(ctx context.Context, cfg *config.Config) (*VitrinOpenAILLM, error) {
	zllm := &VitrinOpenAILLM{}
	err := zllm.Init(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return zllm, nil
}

type VitrinOpenAILLM struct {
	llm *openai.LLM
	tkm *tiktoken.Tiktoken
}

func (zllm *VitrinOpenAILLM) Init(_ context.Context, cfg *config.Config) error {
	// Initialize the Tiktoken client
	tkm, err := tiktoken.GetEncoding(tiktokenEncoding)
	if err != nil {
		return err
	}
	zllm.tkm = tkm

	options, err := zllm.configureClient(cfg)
	if err != nil {
		return err
	}

	llm, err := openai.New(options...)
	if err != nil {
		return NewLLMError("failed to create openai client", err)
	}
	zllm.llm = llm

	return nil
}

func (zllm *VitrinOpenAILLM) Call(ctx context.Context,
	prompt string,
	options ...llms.CallOption,
) (string, error) {
	// If the LLM is not initialized, return an error
	if zllm.llm == nil {
		return "", NewLLMError(InvalidLLMModelError, nil)
	}

	if len(options) == 0 {
		options = append(options, llms.WithTemperature(DefaultTemperature))
	}

	thisCtx, cancel := context.WithTimeout(ctx, OpenAIAPITimeout)
	defer cancel()

	completion, err := llms.GenerateFromSinglePrompt(thisCtx, zllm.llm, prompt, options...)
	if err != nil {
		return "", classifyError("llm", err)
	}

	return completion, nil
}

// GetTokenCount returns the number of tokens in the text
func (zllm *VitrinOpenAILLM) GetTokenCount(text string) (int, error) {
	return len(zllm.tkm.Encode(text, nil, nil)), nil
}

func (zllm *VitrinOpenAILLM) configureClient(cfg *config.Config) ([]openai.Option, error) {
	apiKey, err := GetOpenAIAPIKey(cfg, LLMClientType)
	if err != nil {
		return nil, err
	}

	options := GetBaseOpenAIClientOptions(apiKey, cfg.LLM.Model)

	options = ConfigureOpenAIClientOptions(options, cfg, LLMClientType)

	return options, nil
}
