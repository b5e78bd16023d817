package llms

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/tmc/langchaingo/llms"

	"github.com/vitrinhq/vitrin/pkg/models"
)

var _ models.LLM = &RetryingLLM{}

// RetryingLLM retries calls that failed with a rate limited or timed out
// upstream error. Other failures are returned immediately.
type RetryingLLM struct {
	llm    models.LLM
	policy retrypolicy.RetryPolicy[string]
}

func NewRetryingLLM(llm models.LLM, maxRetries int) *RetryingLLM {
	policy := retrypolicy.Builder[string]().
		HandleIf(func(_ string, err error) bool {
			var upstreamErr *models.UpstreamServiceError
			return errors.As(err, &upstreamErr) && upstreamErr.Retryable()
		}).
		WithBackoff(500*time.Millisecond, 10*time.Second).
		WithMaxRetries(maxRetries).
		Build()

	return &RetryingLLM{llm: llm, policy: policy}
}

func (r *RetryingLLM) Call(
	ctx context.Context,
	prompt string,
	options ...llms.CallOption,
) (string, error) {
	return failsafe.NewExecutor[string](r.policy).
		WithContext(ctx).
		Get(func() (string, error) {
			return r.llm.Call(ctx, prompt, options...)
		})
}

func (r *RetryingLLM) GetTokenCount(text string) (int, error) {
	return r.llm.GetTokenCount(text)
}
