package models

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"not found", NewNotFoundError("product 1"), ErrNotFound},
		{"validation", NewValidationError("limit", "must be >= 1"), ErrValidation},
		{"empty input", NewEmptyInputError("text"), ErrValidation},
		{"dimension mismatch", NewDimensionMismatchError(384, 3, 7), ErrDimensionMismatch},
		{"upstream", NewUpstreamServiceError("llm", UpstreamTimeout, context.DeadlineExceeded), ErrUpstreamService},
		{"empty corpus", NewEmptyCorpusError(3), ErrEmptyCorpus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("wrapped: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
		})
	}
}

func TestUpstreamServiceErrorUnwrapsCause(t *testing.T) {
	err := NewUpstreamServiceError("llm", UpstreamTimeout, context.DeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var upstreamErr *UpstreamServiceError
	assert.True(t, errors.As(err, &upstreamErr))
	assert.True(t, upstreamErr.Retryable())
	assert.Equal(t, "llm service error (timeout): context deadline exceeded", err.Error())

	err = NewUpstreamServiceError("embeddings", UpstreamMalformedResponse, nil)
	assert.ErrorIs(t, err, ErrUpstreamService)
	assert.False(t, err.(*UpstreamServiceError).Retryable())
}

func TestDimensionMismatchErrorMessage(t *testing.T) {
	assert.Equal(
		t,
		"embedding dimension mismatch: expected 384, got 3",
		NewDimensionMismatchError(384, 3, 0).Error(),
	)
	assert.Equal(
		t,
		"embedding dimension mismatch for product 9: expected 384, got 3",
		NewDimensionMismatchError(384, 3, 9).Error(),
	)
}

func TestAsUpstreamServiceError(t *testing.T) {
	assert.NoError(t, AsUpstreamServiceError("llm", nil))

	err := AsUpstreamServiceError("llm", fmt.Errorf("call: %w", context.DeadlineExceeded))
	var upstreamErr *UpstreamServiceError
	assert.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, UpstreamTimeout, upstreamErr.Kind)
	assert.Equal(t, "llm", upstreamErr.Service)

	original := NewUpstreamServiceError("embeddings", UpstreamRateLimited, nil)
	assert.Same(t, original, AsUpstreamServiceError("llm", original))

	err = AsUpstreamServiceError("sentiment", errors.New("connection refused"))
	assert.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, UpstreamUnavailable, upstreamErr.Kind)

	err = AsUpstreamServiceError("embeddings", fmt.Errorf("call: %w", context.Canceled))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUpstreamService)
}
