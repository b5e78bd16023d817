package llms

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/vitrinhq/vitrin/config"
	"github.com/vitrinhq/vitrin/pkg/models"
)

var _ models.SentimentClassifier = &LocalSentimentClient{}

type sentimentRequest struct {
	Inputs string `json:"inputs"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// LocalSentimentClient calls a text-classification model server that speaks
// the Hugging Face inference format.
type LocalSentimentClient struct {
	client *serviceClient
}

func NewSentimentClient(cfg *config.Config) (*LocalSentimentClient, error) {
	if cfg.Sentiment.ServerURL == "" {
		return nil, errors.New("sentiment.server_url must be set")
	}
	return &LocalSentimentClient{
		client: newServiceClient(
			"sentiment",
			cfg.Sentiment.ServerURL,
			cfg.Sentiment.APIKey,
			cfg.Sentiment.Timeout,
		),
	}, nil
}

func (c *LocalSentimentClient) Classify(ctx context.Context, text string) (models.Sentiment, error) {
	var raw json.RawMessage
	if err := c.client.postJSON(ctx, sentimentRequest{Inputs: text}, &raw); err != nil {
		return models.Sentiment{}, err
	}
	return parseSentimentResponse(raw)
}

// parseSentimentResponse accepts both [[{label, score}]] and [{label, score}]
// and returns the highest scoring label.
func parseSentimentResponse(raw json.RawMessage) (models.Sentiment, error) {
	var candidates []labelScore

	var nested [][]labelScore
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 {
		candidates = nested[0]
	} else if err := json.Unmarshal(raw, &candidates); err != nil {
		return models.Sentiment{}, models.NewUpstreamServiceError(
			"sentiment",
			models.UpstreamMalformedResponse,
			err,
		)
	}

	if len(candidates) == 0 {
		return models.Sentiment{}, models.NewUpstreamServiceError(
			"sentiment",
			models.UpstreamMalformedResponse,
			errors.New("no labels in response"),
		)
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}

	if best.Score < 0 || best.Score > 1 {
		return models.Sentiment{}, models.NewUpstreamServiceError(
			"sentiment",
			models.UpstreamMalformedResponse,
			errors.New("confidence out of range"),
		)
	}

	return models.Sentiment{
		Label:      models.ParseSentimentLabel(best.Label),
		Confidence: best.Score,
	}, nil
}
