package analysis

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vitrinhq/vitrin/pkg/models"
)

// ReviewAnalyzer builds the sentiment report of a product from its stored reviews.
type ReviewAnalyzer struct {
	catalog    models.CatalogStore
	reviews    models.ReviewStore
	summarizer *Summarizer
}

func NewReviewAnalyzer(appState *models.AppState) *ReviewAnalyzer {
	return &ReviewAnalyzer{
		catalog:    appState.CatalogStore,
		reviews:    appState.ReviewStore,
		summarizer: NewSummarizer(appState),
	}
}

// Analyze returns the product with its sentiment aggregate and review
// summary. A product without reviews yields an EmptyCorpusError before any
// LLM call is made.
func (a *ReviewAnalyzer) Analyze(ctx context.Context, productID int64) (*models.ProductAnalysis, error) {
	product, err := a.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	reviews, err := a.reviews.GetReviews(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews for product %d: %w", productID, err)
	}
	if len(reviews) == 0 {
		return nil, models.NewEmptyCorpusError(productID)
	}

	texts := make([]string, len(reviews))
	for i, r := range reviews {
		texts[i] = r.Content
	}

	var (
		aggregate *models.SentimentAggregate
		summary   string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		aggregate, err = AggregateSentiment(productID, reviews)
		return err
	})
	g.Go(func() error {
		var err error
		summary, err = a.summarizer.Summarize(gctx, texts)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debugf("analyzed %d reviews for product %d", len(reviews), productID)

	return &models.ProductAnalysis{
		Product: product,
		SentimentReport: models.SentimentReport{
			ProductID:            productID,
			ReviewCount:          aggregate.ReviewCount,
			SentimentScoreAvg:    aggregate.ScoreAvg,
			SentimentLabelCounts: aggregate.LabelCounts,
			CommentsSummary:      summary,
		},
	}, nil
}
