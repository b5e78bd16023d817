package llms

import (
	"context"
	"strings"

	"github.com/vitrinhq/vitrin/config"
	"github.com/vitrinhq/vitrin/internal"
	"github.com/vitrinhq/vitrin/pkg/models"
)

var _ models.Transcriber = &WhisperTranscriber{}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// WhisperTranscriber calls an OpenAI compatible audio transcription endpoint.
// Browsers record webm/opus, which Whisper accepts as is.
type WhisperTranscriber struct {
	client   *serviceClient
	model    string
	language string
}

// NewTranscriber returns nil when no transcription server is configured.
func NewTranscriber(cfg *config.Config) *WhisperTranscriber {
	if cfg.Transcription.ServerURL == "" {
		log.Info("transcription.server_url not set, voice search disabled")
		return nil
	}
	url := strings.TrimRight(cfg.Transcription.ServerURL, "/") + "/audio/transcriptions"
	return &WhisperTranscriber{
		client: newServiceClient(
			"transcription",
			url,
			cfg.Transcription.APIKey,
			cfg.Transcription.Timeout,
		),
		model:    cfg.Transcription.Model,
		language: cfg.Transcription.Language,
	}
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, audio models.Audio) (string, error) {
	if len(audio.Data) == 0 {
		return "", models.NewEmptyInputError("file")
	}

	// the server infers the format from the extension
	audio.Filename = internal.FirstNonEmpty(audio.Filename, "audio.webm")

	fields := map[string]string{
		"model":           t.model,
		"language":        t.language,
		"response_format": "json",
	}

	var resp transcriptionResponse
	if err := t.client.postMultipart(ctx, fields, audio, &resp); err != nil {
		return "", models.AsUpstreamServiceError("transcription", err)
	}

	return strings.TrimSpace(resp.Text), nil
}
