package testutils

import (
	"context"
	"hash/fnv"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/vitrinhq/vitrin/pkg/models"
)

// FakeEmbeddingsClient returns fixed vectors for known texts and a
// deterministic pseudo-random, unnormalized vector otherwise.
type FakeEmbeddingsClient struct {
	Dimensions int
	Vectors    map[string][]float32
	Err        error
	calls      atomic.Int32
}

func NewFakeEmbeddingsClient(dimensions int) *FakeEmbeddingsClient {
	return &FakeEmbeddingsClient{Dimensions: dimensions, Vectors: map[string][]float32{}}
}

func (f *FakeEmbeddingsClient) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := f.Vectors[text]; ok {
			out[i] = v
			continue
		}
		out[i] = HashVector(text, f.Dimensions)
	}
	return out, nil
}

func (f *FakeEmbeddingsClient) Calls() int {
	return int(f.calls.Load())
}

// HashVector returns a deterministic vector for text with components in [-5, 5).
func HashVector(text string, dimensions int) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	r := rand.New(rand.NewSource(int64(h.Sum64()))) //nolint:gosec
	v := make([]float32, dimensions)
	for i := range v {
		v[i] = r.Float32()*10 - 5
	}
	return v
}

// FakeSentimentClassifier labels texts containing "bad" as negative, "ok" as
// neutral and everything else as positive unless Results has an entry.
type FakeSentimentClassifier struct {
	Results map[string]models.Sentiment
	Err     error
	calls   atomic.Int32
}

func (f *FakeSentimentClassifier) Classify(_ context.Context, text string) (models.Sentiment, error) {
	f.calls.Add(1)
	if f.Err != nil {
		return models.Sentiment{}, f.Err
	}
	if s, ok := f.Results[text]; ok {
		return s, nil
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "bad"):
		return models.Sentiment{Label: models.SentimentNegative, Confidence: 0.9}, nil
	case strings.Contains(lower, "ok"):
		return models.Sentiment{Label: models.SentimentNeutral, Confidence: 0.6}, nil
	default:
		return models.Sentiment{Label: models.SentimentPositive, Confidence: 0.8}, nil
	}
}

// FakeTranscriber returns Transcript for every recording. Use Set to change
// the result while a server is running.
type FakeTranscriber struct {
	Transcript string
	Err        error
	mu         sync.Mutex
	received   []models.Audio
}

func (f *FakeTranscriber) Transcribe(_ context.Context, audio models.Audio) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, audio)
	if f.Err != nil {
		return "", f.Err
	}
	return f.Transcript, nil
}

func (f *FakeTranscriber) Set(transcript string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Transcript = transcript
	f.Err = err
}

// Received returns the recordings passed to Transcribe.
func (f *FakeTranscriber) Received() []models.Audio {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Audio(nil), f.received...)
}

func (f *FakeSentimentClassifier) Calls() int {
	return int(f.calls.Load())
}

// FakeLLM records prompts and answers them with Responder.
type FakeLLM struct {
	Responder func(ctx context.Context, prompt string) (string, error)
	// Delay is waited before answering unless the context is done first
	Delay time.Duration

	mu       sync.Mutex
	prompts  []string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *FakeLLM) Call(ctx context.Context, prompt string, _ ...llms.CallOption) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if f.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.Delay):
		}
	}

	if f.Responder == nil {
		return "summary", nil
	}
	return f.Responder(ctx, prompt)
}

func (f *FakeLLM) GetTokenCount(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

// Prompts returns every prompt received so far.
func (f *FakeLLM) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func (f *FakeLLM) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// MaxConcurrency returns the highest number of simultaneous calls observed.
func (f *FakeLLM) MaxConcurrency() int {
	return int(f.maxSeen.Load())
}
