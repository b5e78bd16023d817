package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/viterin/vek"

	"github.com/vitrinhq/vitrin/pkg/models"
)

// Normalizer turns text into unit-length embeddings of a fixed dimension.
type Normalizer struct {
	client     models.EmbeddingsClient
	dimensions int
}

func NewNormalizer(client models.EmbeddingsClient, dimensions int) *Normalizer {
	return &Normalizer{client: client, dimensions: dimensions}
}

func (n *Normalizer) Dimensions() int {
	return n.dimensions
}

// Embed returns the normalized embedding of text. Empty or whitespace-only
// text is rejected without calling the embeddings service.
func (n *Normalizer) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := n.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in a single call. Any empty text fails the batch.
func (n *Normalizer) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, models.NewEmptyInputError("texts")
	}
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, models.NewEmptyInputError("text")
		}
	}

	raw, err := n.client.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, models.AsUpstreamServiceError("embeddings", err)
	}
	if len(raw) != len(texts) {
		return nil, models.NewUpstreamServiceError(
			"embeddings",
			models.UpstreamMalformedResponse,
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(raw)),
		)
	}

	out := make([][]float32, len(raw))
	for i, v := range raw {
		if len(v) != n.dimensions {
			return nil, models.NewDimensionMismatchError(n.dimensions, len(v), 0)
		}
		normalized, err := Normalize(v)
		if err != nil {
			return nil, models.NewUpstreamServiceError(
				"embeddings",
				models.UpstreamMalformedResponse,
				err,
			)
		}
		out[i] = normalized
	}

	return out, nil
}

var ErrZeroNorm = errors.New("vector has zero or non-finite norm")

// Normalize returns v scaled to unit Euclidean length. The norm is computed in
// float64 so the result is within 1e-6 of unit length.
func Normalize(v []float32) ([]float32, error) {
	v64 := vek.FromFloat32(v)
	norm := vek.Norm(v64)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, ErrZeroNorm
	}
	vek.DivNumber_Inplace(v64, norm)
	return vek.ToFloat32(v64), nil
}
