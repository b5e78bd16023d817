package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	llms2 "github.com/tmc/langchaingo/llms"
	"golang.org/x/sync/errgroup"

	"github.com/vitrinhq/vitrin/config"
	"github.com/vitrinhq/vitrin/internal"
	"github.com/vitrinhq/vitrin/pkg/llms"
	"github.com/vitrinhq/vitrin/pkg/models"
)

var log = internal.GetLogger()

const SummaryMaxOutputTokens = 1024

// Summarizer condenses review texts with a map-reduce over the LLM. Each chunk
// is summarized independently, then all chunk summaries are merged in a single
// call.
type Summarizer struct {
	llm         models.LLM
	cfg         config.AnalysisConfig
	model       string
	chunkPrompt string
	mergePrompt string
}

func NewSummarizer(appState *models.AppState) *Summarizer {
	cfg := appState.Config
	return &Summarizer{
		llm:   appState.LLMClient,
		cfg:   cfg.Analysis,
		model: cfg.LLM.Model,
		chunkPrompt: internal.FirstNonEmpty(
			cfg.CustomPrompts.ChunkSummary,
			defaultChunkSummaryPromptTemplate,
		),
		mergePrompt: internal.FirstNonEmpty(
			cfg.CustomPrompts.MergeSummaries,
			defaultMergeSummariesPromptTemplate,
		),
	}
}

// Summarize returns the merged summary of texts, or models.NoReviewsSummary if
// there is nothing to summarize. The first failed chunk cancels the others and
// the merge is never attempted.
func (s *Summarizer) Summarize(ctx context.Context, texts []string) (string, error) {
	chunks, err := ChunkTexts(texts, s.chunkSize())
	if err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		return models.NoReviewsSummary, nil
	}

	summaries, err := s.summarizeChunks(ctx, chunks)
	if err != nil {
		return "", err
	}

	// cancellation between the stages still prevents the merge
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return s.mergeSummaries(ctx, summaries)
}

func (s *Summarizer) summarizeChunks(ctx context.Context, chunks [][]string) ([]string, error) {
	summaries := make([]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency())

	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			// a sibling already failed
			if err := gctx.Err(); err != nil {
				return err
			}

			prompt, err := internal.ParsePrompt(
				s.chunkPrompt,
				ChunkSummaryPromptTemplateData{Reviews: chunk},
			)
			if err != nil {
				return fmt.Errorf("failed to parse chunk summary prompt: %w", err)
			}

			summary, err := s.call(gctx, prompt)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			summaries[i] = summary

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	log.Debugf("summarized %d review chunks", len(chunks))

	return summaries, nil
}

func (s *Summarizer) mergeSummaries(ctx context.Context, summaries []string) (string, error) {
	prompt, err := internal.ParsePrompt(
		s.mergePrompt,
		MergeSummariesPromptTemplateData{Summaries: strings.Join(summaries, "\n\n")},
	)
	if err != nil {
		return "", fmt.Errorf("failed to parse merge summaries prompt: %w", err)
	}

	merged, err := s.call(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("merge: %w", err)
	}

	return strings.TrimSpace(merged), nil
}

// call runs a single LLM completion under the configured per-call timeout.
func (s *Summarizer) call(ctx context.Context, prompt string) (string, error) {
	s.checkTokenBudget(prompt)

	if s.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()
	}

	out, err := s.llm.Call(ctx, prompt, llms2.WithMaxTokens(SummaryMaxOutputTokens))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", models.AsUpstreamServiceError("llm", err)
	}

	return out, nil
}

func (s *Summarizer) checkTokenBudget(prompt string) {
	maxTokens := llms.MaxTokens(s.model)
	if maxTokens == 0 {
		return
	}
	tokens, err := s.llm.GetTokenCount(prompt)
	if err != nil {
		log.Debugf("failed to count prompt tokens: %v", err)
		return
	}
	if tokens+SummaryMaxOutputTokens > maxTokens {
		log.Warnf(
			"summary prompt of %d tokens exceeds the %d token budget of %s, consider a smaller chunk size",
			tokens,
			maxTokens,
			s.model,
		)
	}
}

func (s *Summarizer) chunkSize() int {
	if s.cfg.ChunkSize == 0 {
		return DefaultChunkSize
	}
	return s.cfg.ChunkSize
}

func (s *Summarizer) maxConcurrency() int {
	if s.cfg.MaxConcurrency < 1 {
		return 1
	}
	return s.cfg.MaxConcurrency
}
