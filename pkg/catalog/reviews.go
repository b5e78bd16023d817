package catalog

import (
	"context"
	"strings"

	"github.com/vitrinhq/vitrin/pkg/models"
)

// ReviewService manages product reviews and their derived sentiment.
type ReviewService struct {
	catalog    models.CatalogStore
	store      models.ReviewStore
	classifier models.SentimentClassifier
}

func NewReviewService(appState *models.AppState) *ReviewService {
	return &ReviewService{
		catalog:    appState.CatalogStore,
		store:      appState.ReviewStore,
		classifier: appState.SentimentClient,
	}
}

func (s *ReviewService) List(ctx context.Context, productID int64) ([]models.Review, error) {
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.store.GetReviews(ctx, productID)
}

func (s *ReviewService) Get(ctx context.Context, productID, reviewID int64) (*models.Review, error) {
	return s.store.GetReview(ctx, productID, reviewID)
}

// Create classifies the review's content and stores it.
func (s *ReviewService) Create(
	ctx context.Context,
	productID int64,
	req *models.CreateReviewRequest,
) (*models.Review, error) {
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	review := &models.Review{
		ProductID: productID,
		UserID:    req.UserID,
		Content:   strings.TrimSpace(req.Content),
		Rating:    req.Rating,
	}
	if err := s.classify(ctx, review); err != nil {
		return nil, err
	}

	return s.store.PutReview(ctx, review)
}

// Update changes the review. Sentiment is only recomputed when the content changes.
func (s *ReviewService) Update(
	ctx context.Context,
	productID, reviewID int64,
	req *models.UpdateReviewRequest,
) (*models.Review, error) {
	review, err := s.store.GetReview(ctx, productID, reviewID)
	if err != nil {
		return nil, err
	}

	if req.Content != nil {
		content := strings.TrimSpace(*req.Content)
		if content != review.Content {
			review.Content = content
			if err := s.classify(ctx, review); err != nil {
				return nil, err
			}
		}
	}
	if req.Rating != nil {
		review.Rating = *req.Rating
	}

	return s.store.PutReview(ctx, review)
}

func (s *ReviewService) Delete(ctx context.Context, productID, reviewID int64) error {
	return s.store.DeleteReview(ctx, productID, reviewID)
}

func (s *ReviewService) classify(ctx context.Context, review *models.Review) error {
	if review.Content == "" {
		return models.NewEmptyInputError("content")
	}

	sentiment, err := s.classifier.Classify(ctx, review.Content)
	if err != nil {
		return models.AsUpstreamServiceError("sentiment", err)
	}

	sentiment.Label = models.ParseSentimentLabel(string(sentiment.Label))
	review.SentimentLabel = sentiment.Label
	review.SentimentScore = sentiment.SignedScore()

	return nil
}
