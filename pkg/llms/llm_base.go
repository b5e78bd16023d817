package llms

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/vitrinhq/vitrin/config"
	"github.com/vitrinhq/vitrin/internal"
	"github.com/vitrinhq/vitrin/pkg/models"
)

const DefaultTemperature = 0.0
const InvalidLLMModelError = "llm model is not set or is invalid"

var log = internal.GetLogger()

// NewLLMClient returns the LLM configured in cfg. When cfg.LLM.MaxRetries is set,
// the client retries rate limited and timed out calls.
func NewLLMClient(ctx context.Context, cfg *config.Config) (models.LLM, error) {
	var (
		llm models.LLM
		err error
	)
	switch cfg.LLM.Service {
	case "openai", "":
		// if custom OpenAI Endpoint is set, do not validate model name
		if cfg.LLM.OpenAIEndpoint == "" {
			if _, ok := ValidOpenAILLMs[cfg.LLM.Model]; !ok {
				return nil, invalidModelError(cfg)
			}
		}
		llm, err = NewOpenAILLM(ctx, cfg)
	case "anthropic":
		if _, ok := ValidAnthropicLLMs[cfg.LLM.Model]; !ok {
			return nil, invalidModelError(cfg)
		}
		llm, err = NewAnthropicLLM(ctx, cfg)
	case "googleai":
		if _, ok := ValidGoogleAILLMs[cfg.LLM.Model]; !ok {
			return nil, invalidModelError(cfg)
		}
		llm, err = NewGoogleAILLM(ctx, cfg)
	default:
		return nil, fmt.Errorf("invalid LLM service: %s", cfg.LLM.Service)
	}
	if err != nil {
		return nil, err
	}

	if cfg.LLM.MaxRetries > 0 {
		llm = NewRetryingLLM(llm, cfg.LLM.MaxRetries)
	}
	return llm, nil
}

func invalidModelError(cfg *config.Config) error {
	return fmt.Errorf(
		"invalid llm model \"%s\" for %s",
		cfg.LLM.Model,
		cfg.LLM.Service,
	)
}

type LLMError struct {
	message       string
	originalError error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("llm error: %s (original error: %v)", e.message, e.originalError)
}

func (e *LLMError) Unwrap() error {
	return e.originalError
}

func NewLLMError(message string, originalError error) *LLMError {
	return &LLMError{message: message, originalError: originalError}
}

var ValidOpenAILLMs = map[string]bool{
	"gpt-3.5-turbo": true,
	"gpt-4":         true,
	"gpt-4-turbo":   true,
	"gpt-4o":        true,
	"gpt-4o-mini":   true,
}

var ValidAnthropicLLMs = map[string]bool{
	"claude-3-haiku-20240307":    true,
	"claude-3-sonnet-20240229":   true,
	"claude-3-opus-20240229":     true,
	"claude-3-5-sonnet-20240620": true,
}

var ValidGoogleAILLMs = map[string]bool{
	"gemini-1.5-flash": true,
	"gemini-1.5-pro":   true,
	"gemini-2.5-pro":   true,
}

var ValidLLMMap = internal.MergeMaps(ValidOpenAILLMs, ValidAnthropicLLMs, ValidGoogleAILLMs)

var MaxLLMTokensMap = map[string]int{
	"gpt-3.5-turbo":              16_385,
	"gpt-4":                      8192,
	"gpt-4-turbo":                128_000,
	"gpt-4o":                     128_000,
	"gpt-4o-mini":                128_000,
	"claude-3-haiku-20240307":    200_000,
	"claude-3-sonnet-20240229":   200_000,
	"claude-3-opus-20240229":     200_000,
	"claude-3-5-sonnet-20240620": 200_000,
	"gemini-1.5-flash":           1_048_576,
	"gemini-1.5-pro":             2_097_152,
	"gemini-2.5-pro":             1_048_576,
}

// MaxTokens returns the context window of model, or 0 if unknown.
func MaxTokens(model string) int {
	return MaxLLMTokensMap[model]
}

func NewRetryableHTTPClient(retryMax int, timeout time.Duration) *retryablehttp.Client {
	retryableHTTPClient := retryablehttp.NewClient()
	retryableHTTPClient.RetryMax = retryMax
	retryableHTTPClient.HTTPClient.Timeout = timeout
	retryableHTTPClient.Logger = internal.NewLeveledLogrus(log)
	retryableHTTPClient.Backoff = retryablehttp.DefaultBackoff
	retryableHTTPClient.CheckRetry = retryPolicy

	return retryableHTTPClient
}

// retryPolicy is a retryablehttp.CheckRetry function. It is used to determine
// whether a request should be retried or not.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	// do not retry on context.Canceled or context.DeadlineExceeded
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	// Do not retry 400 errors as they're used by OpenAI to indicate maximum
	// context length exceeded
	if resp != nil && resp.StatusCode == http.StatusBadRequest {
		return false, err
	}

	shouldRetry, _ := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	return shouldRetry, nil
}
