package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"

	"github.com/vitrinhq/vitrin/internal"
	"github.com/vitrinhq/vitrin/pkg/models"
)

const MaxLocalServiceRequestAttempts = 2

// serviceClient posts requests to a model server behind a circuit breaker.
type serviceClient struct {
	service string
	url     string
	apiKey  string
	http    *retryablehttp.Client
	breaker *gobreaker.CircuitBreaker
}

func newServiceClient(service, url, apiKey string, timeout time.Duration) *serviceClient {
	httpClient := NewRetryableHTTPClient(MaxLocalServiceRequestAttempts, timeout)
	// return the last response so the status can be classified
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &serviceClient{
		service: service,
		url:     url,
		apiKey:  apiKey,
		http:    httpClient,
		breaker: NewServiceBreaker(service),
	}
}

func (c *serviceClient) postJSON(ctx context.Context, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", c.service, err)
	}
	return c.post(ctx, jsonBody, "application/json", out)
}

// postMultipart uploads data as the file form field along with fields and
// decodes the JSON response into out.
func (c *serviceClient) postMultipart(
	ctx context.Context,
	fields map[string]string,
	file models.Audio,
	out any,
) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := mw.WriteField(name, value); err != nil {
			return fmt.Errorf("failed to write %s form field %s: %w", c.service, name, err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set(
		"Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Filename),
	)
	header.Set("Content-Type", internal.FirstNonEmpty(file.ContentType, "application/octet-stream"))
	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create %s form file: %w", c.service, err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return fmt.Errorf("failed to write %s form file: %w", c.service, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to close %s form: %w", c.service, err)
	}

	return c.post(ctx, buf.Bytes(), mw.FormDataContentType(), out)
}

func (c *serviceClient) post(ctx context.Context, body []byte, contentType string, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.doPost(ctx, body, contentType, out)
	})
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
			return ctxErr
		}
		return classifyError(c.service, err)
	}
	return nil
}

func (c *serviceClient) doPost(ctx context.Context, body []byte, contentType string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.url,
		bytes.NewReader(body),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.NewUpstreamServiceError(c.service, models.UpstreamUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return models.NewUpstreamServiceError(
			c.service,
			classifyHTTPStatus(resp.StatusCode),
			fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(bodyBytes)),
		)
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return models.NewUpstreamServiceError(c.service, models.UpstreamMalformedResponse, err)
	}

	return nil
}
