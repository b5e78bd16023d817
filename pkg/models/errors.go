package models

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrBadRequest        = errors.New("bad request")
	ErrValidation        = errors.New("validation error")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrUpstreamService   = errors.New("upstream service error")
	ErrEmptyCorpus       = errors.New("empty corpus")
	ErrConflict          = errors.New("conflict")
)

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

// ValidationError is returned when caller supplied input is malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Reason)
	}
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// EmptyInputError is a ValidationError raised for empty or whitespace-only text.
type EmptyInputError struct {
	Field string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("validation error: %s must not be empty", e.Field)
}

func (e *EmptyInputError) Unwrap() error {
	return ErrValidation
}

func NewEmptyInputError(field string) error {
	return &EmptyInputError{Field: field}
}

// DimensionMismatchError is returned when a vector does not have the configured length.
// ProductID is zero for query vectors.
type DimensionMismatchError struct {
	Expected  int
	Actual    int
	ProductID int64
}

func (e *DimensionMismatchError) Error() string {
	if e.ProductID != 0 {
		return fmt.Sprintf(
			"embedding dimension mismatch for product %d: expected %d, got %d",
			e.ProductID,
			e.Expected,
			e.Actual,
		)
	}
	return fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error {
	return ErrDimensionMismatch
}

func NewDimensionMismatchError(expected, actual int, productID int64) error {
	return &DimensionMismatchError{Expected: expected, Actual: actual, ProductID: productID}
}

// UpstreamErrorKind classifies failures of external services.
type UpstreamErrorKind string

const (
	UpstreamTimeout           UpstreamErrorKind = "timeout"
	UpstreamRateLimited       UpstreamErrorKind = "rate_limited"
	UpstreamInvalidInput      UpstreamErrorKind = "invalid_input"
	UpstreamContentFiltered   UpstreamErrorKind = "content_filtered"
	UpstreamMalformedResponse UpstreamErrorKind = "malformed_response"
	UpstreamUnavailable       UpstreamErrorKind = "unavailable"
)

// UpstreamServiceError wraps failures of the embeddings, sentiment or LLM services.
type UpstreamServiceError struct {
	Service string
	Kind    UpstreamErrorKind
	Err     error
}

func (e *UpstreamServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s service error (%s)", e.Service, e.Kind)
	}
	return fmt.Sprintf("%s service error (%s): %v", e.Service, e.Kind, e.Err)
}

func (e *UpstreamServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstreamService}
	}
	return []error{ErrUpstreamService, e.Err}
}

// Retryable reports whether the failure is transient.
func (e *UpstreamServiceError) Retryable() bool {
	return e.Kind == UpstreamTimeout || e.Kind == UpstreamRateLimited
}

func NewUpstreamServiceError(service string, kind UpstreamErrorKind, err error) error {
	return &UpstreamServiceError{Service: service, Kind: kind, Err: err}
}

// AsUpstreamServiceError returns err unchanged if it already is an UpstreamServiceError
// or a cancellation, otherwise it wraps err for the named service.
func AsUpstreamServiceError(service string, err error) error {
	if err == nil {
		return nil
	}
	var upstreamErr *UpstreamServiceError
	if errors.As(err, &upstreamErr) || errors.Is(err, context.Canceled) {
		return err
	}
	kind := UpstreamUnavailable
	if errors.Is(err, context.DeadlineExceeded) {
		kind = UpstreamTimeout
	}
	return NewUpstreamServiceError(service, kind, err)
}

// EmptyCorpusError is returned when a product has no reviews to analyze.
type EmptyCorpusError struct {
	ProductID int64
}

func (e *EmptyCorpusError) Error() string {
	return fmt.Sprintf("product %d has no reviews", e.ProductID)
}

func (e *EmptyCorpusError) Unwrap() error {
	return ErrEmptyCorpus
}

func NewEmptyCorpusError(productID int64) error {
	return &EmptyCorpusError{ProductID: productID}
}

// StaleProductError is returned when a product changed after the version a
// write was computed from.
type StaleProductError struct {
	ProductID int64
}

func (e *StaleProductError) Error() string {
	return fmt.Sprintf("product %d was updated concurrently", e.ProductID)
}

func (e *StaleProductError) Unwrap() error {
	return ErrConflict
}

func NewStaleProductError(productID int64) error {
	return &StaleProductError{ProductID: productID}
}
