package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/vitrinhq/vitrin/pkg/models"
	"github.com/vitrinhq/vitrin/pkg/store"
)

type ReviewDAO struct {
	db *bun.DB
}

func NewReviewDAO(db *bun.DB) *ReviewDAO {
	return &ReviewDAO{db: db}
}

func (dao *ReviewDAO) GetReviews(ctx context.Context, productID int64) ([]models.Review, error) {
	var reviews []ReviewSchema
	err := dao.db.NewSelect().
		Model(&reviews).
		Where("r.product_id = ?", productID).
		Order("r.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, store.NewStorageError("failed to get reviews", err)
	}

	result := make([]models.Review, len(reviews))
	if err := copier.Copy(&result, &reviews); err != nil {
		return nil, store.NewStorageError("failed to copy reviews", err)
	}
	return result, nil
}

func (dao *ReviewDAO) GetReview(ctx context.Context, productID, reviewID int64) (*models.Review, error) {
	review := new(ReviewSchema)
	err := dao.db.NewSelect().
		Model(review).
		Where("r.id = ?", reviewID).
		Where("r.product_id = ?", productID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFoundError(fmt.Sprintf("review %d", reviewID))
		}
		return nil, store.NewStorageError("failed to get review", err)
	}
	return reviewSchemaToReview(review)
}

func (dao *ReviewDAO) PutReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	reviewDB := &ReviewSchema{}
	if err := copier.Copy(reviewDB, review); err != nil {
		return nil, store.NewStorageError("failed to copy review", err)
	}

	if reviewDB.ID == 0 {
		_, err := dao.db.NewInsert().
			Model(reviewDB).
			ExcludeColumn("created_at", "updated_at").
			Returning("*").
			Exec(ctx)
		if err != nil {
			var pgErr pgdriver.Error
			if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
				return nil, models.NewNotFoundError(fmt.Sprintf("product %d", review.ProductID))
			}
			return nil, store.NewStorageError("failed to create review", err)
		}
		return reviewSchemaToReview(reviewDB)
	}

	r, err := dao.db.NewUpdate().
		Model(reviewDB).
		Column("content", "rating", "sentiment_label", "sentiment_score", "updated_at").
		Where("id = ?", reviewDB.ID).
		Where("product_id = ?", reviewDB.ProductID).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, store.NewStorageError("failed to update review", err)
	}
	rowsAffected, err := r.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, models.NewNotFoundError(fmt.Sprintf("review %d", reviewDB.ID))
	}

	return reviewSchemaToReview(reviewDB)
}

func (dao *ReviewDAO) DeleteReview(ctx context.Context, productID, reviewID int64) error {
	r, err := dao.db.NewDelete().
		Model((*ReviewSchema)(nil)).
		Where("id = ?", reviewID).
		Where("product_id = ?", productID).
		Exec(ctx)
	if err != nil {
		return store.NewStorageError("failed to delete review", err)
	}
	rowsAffected, err := r.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return models.NewNotFoundError(fmt.Sprintf("review %d", reviewID))
	}
	return nil
}

func reviewSchemaToReview(s *ReviewSchema) (*models.Review, error) {
	review := &models.Review{}
	if err := copier.Copy(review, s); err != nil {
		return nil, store.NewStorageError("failed to copy review", err)
	}
	return review, nil
}
