package llms

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/vitrinhq/vitrin/pkg/models"
)

// classifyError maps a client error onto an UpstreamServiceError. Provider SDKs
// do not expose typed errors, so their messages are matched. Cancellation is
// returned as is.
func classifyError(service string, err error) error {
	if err == nil {
		return nil
	}
	var upstreamErr *models.UpstreamServiceError
	if errors.As(err, &upstreamErr) || errors.Is(err, context.Canceled) {
		return err
	}

	kind := models.UpstreamUnavailable
	msg := strings.ToLower(err.Error())
	status := statusFromMessage(msg)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = models.UpstreamTimeout
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		kind = models.UpstreamUnavailable
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "quota"):
		kind = models.UpstreamRateLimited
	case strings.Contains(msg, "content_filter"), strings.Contains(msg, "safety"),
		strings.Contains(msg, "blocked"):
		kind = models.UpstreamContentFiltered
	case strings.Contains(msg, "context_length"), strings.Contains(msg, "invalid_request"):
		kind = models.UpstreamInvalidInput
	case status != 0:
		kind = classifyHTTPStatus(status)
	case strings.Contains(msg, "timeout"):
		kind = models.UpstreamTimeout
	}

	return models.NewUpstreamServiceError(service, kind, err)
}

// statusPattern matches the status code in SDK messages such as
// "unexpected status code: 429" or "googleapi: Error 400: ...".
var statusPattern = regexp.MustCompile(`\b(?:status code|status|error)\s*:?\s*([1-5]\d{2})\b`)

// statusFromMessage returns the HTTP status named in a lowercased error message, or 0.
func statusFromMessage(msg string) int {
	m := statusPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	status, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return status
}

// classifyHTTPStatus maps a non-2xx response status onto an UpstreamErrorKind.
func classifyHTTPStatus(status int) models.UpstreamErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return models.UpstreamRateLimited
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return models.UpstreamTimeout
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity,
		status == http.StatusRequestEntityTooLarge:
		return models.UpstreamInvalidInput
	default:
		return models.UpstreamUnavailable
	}
}
