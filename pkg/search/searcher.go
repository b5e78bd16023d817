package search

import (
	"context"
	"errors"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/vitrinhq/vitrin/config"
	"github.com/vitrinhq/vitrin/internal"
	"github.com/vitrinhq/vitrin/pkg/models"
)

var log = internal.GetLogger()

const refineQueryMaxTokens = 64

// ProductSearcher answers free-text product searches.
type ProductSearcher struct {
	store        models.CatalogStore
	normalizer   *Normalizer
	ranker       *Ranker
	llm          models.LLM
	transcriber  models.Transcriber
	cfg          config.SearchConfig
	refinePrompt string
}

func NewProductSearcher(appState *models.AppState) *ProductSearcher {
	dims := appState.Config.EmbeddingsClient.Dimensions
	return &ProductSearcher{
		store:       appState.CatalogStore,
		normalizer:  NewNormalizer(appState.EmbeddingsClient, dims),
		ranker:      NewRanker(dims),
		llm:         appState.LLMClient,
		transcriber: appState.Transcriber,
		cfg:         appState.Config.Search,
		refinePrompt: internal.FirstNonEmpty(
			appState.Config.CustomPrompts.RefineQuery,
			defaultRefineQueryPromptTemplate,
		),
	}
}

// Search embeds the query and returns the nearest products. Searches across
// the whole catalog are delegated to the store's index. Filtered searches are
// ranked in process over the filtered candidate set.
func (s *ProductSearcher) Search(
	ctx context.Context,
	req *models.ProductSearchRequest,
) (*models.ProductSearchResponse, error) {
	if strings.TrimSpace(req.Search) == "" {
		return nil, models.NewEmptyInputError("search")
	}

	limit, err := s.limit(req.Limit)
	if err != nil {
		return nil, err
	}

	resp := &models.ProductSearchResponse{Query: req.Search}

	query := req.Search
	if s.cfg.RefineQuery && s.llm != nil {
		if refined := s.refineQuery(ctx, req.Search); refined != "" {
			query = refined
			resp.RefinedQuery = refined
		}
	}

	embedding, err := s.normalizer.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	if req.CategoryID == 0 {
		resp.Results, err = s.store.SearchProducts(ctx, embedding, limit)
		if err != nil {
			return nil, err
		}
		return resp, nil
	}

	candidates, err := s.store.GetProductVectors(
		ctx,
		models.ProductVectorFilter{CategoryID: req.CategoryID},
	)
	if err != nil {
		return nil, err
	}

	resp.Results, err = s.ranker.Rank(embedding, candidates, limit)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// VoiceSearch transcribes a spoken query and searches with the transcript. The
// Search field of req is ignored.
func (s *ProductSearcher) VoiceSearch(
	ctx context.Context,
	audio models.Audio,
	req *models.ProductSearchRequest,
) (*models.ProductSearchResponse, error) {
	if s.transcriber == nil {
		return nil, models.NewUpstreamServiceError(
			"transcription",
			models.UpstreamUnavailable,
			errors.New("voice search is not configured"),
		)
	}

	if len(audio.Data) == 0 {
		return nil, models.NewEmptyInputError("file")
	}

	transcript, err := s.transcriber.Transcribe(ctx, audio)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			return nil, err
		}
		return nil, models.AsUpstreamServiceError("transcription", err)
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, models.NewValidationError("file", "no speech recognized")
	}
	log.Debugf("voice search transcript: %q", transcript)

	voiceReq := *req
	voiceReq.Search = transcript
	return s.Search(ctx, &voiceReq)
}

func (s *ProductSearcher) limit(requested int) (int, error) {
	switch {
	case requested < 0:
		return 0, models.NewValidationError("limit", "must be at least 1")
	case requested == 0:
		return s.cfg.DefaultLimit, nil
	case s.cfg.MaxLimit > 0 && requested > s.cfg.MaxLimit:
		return s.cfg.MaxLimit, nil
	default:
		return requested, nil
	}
}

// refineQuery asks the LLM to clean up the user's query. Failures fall back to
// the raw query.
func (s *ProductSearcher) refineQuery(ctx context.Context, query string) string {
	prompt, err := internal.ParsePrompt(s.refinePrompt, struct{ Query string }{Query: query})
	if err != nil {
		log.Errorf("failed to parse refine query prompt: %v", err)
		return ""
	}

	refined, err := s.llm.Call(ctx, prompt, llms.WithMaxTokens(refineQueryMaxTokens))
	if err != nil {
		log.Warnf("query refinement failed, using raw query: %v", err)
		return ""
	}

	return strings.Trim(strings.TrimSpace(refined), `"`)
}
