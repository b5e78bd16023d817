package models

import (
	"context"

	"github.com/tmc/langchaingo/llms"
)

type LLM interface {
	// Call runs a completion against a simple string prompt
	Call(
		ctx context.Context,
		prompt string,
		options ...llms.CallOption,
	) (string, error)
	// GetTokenCount returns the number of tokens in the given text
	GetTokenCount(text string) (int, error)
}

type EmbeddingsClient interface {
	// EmbedTexts returns one raw, possibly unnormalized, vector per text
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

type SentimentClassifier interface {
	Classify(ctx context.Context, text string) (Sentiment, error)
}

// Audio is an uploaded recording.
type Audio struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Transcriber interface {
	// Transcribe returns the recognized text, empty if no speech was found
	Transcribe(ctx context.Context, audio Audio) (string, error)
}
