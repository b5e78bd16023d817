package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/vitrinhq/vitrin/internal"
	"github.com/vitrinhq/vitrin/pkg/models"
)

var log = internal.GetLogger()

var _ models.CatalogStore = &PostgresStore{}
var _ models.ReviewStore = &PostgresStore{}

// PostgresStore is the pgvector backed CatalogStore and ReviewStore.
type PostgresStore struct {
	*CatalogDAO
	*ReviewDAO
	db       *bun.DB
	appState *models.AppState
}

// NewPostgresStore returns a new PostgresStore and ensures the schema exists.
func NewPostgresStore(
	appState *models.AppState,
	db *bun.DB,
) (*PostgresStore, error) {
	if appState == nil {
		return nil, errors.New("nil appState received")
	}

	s := &PostgresStore{
		CatalogDAO: NewCatalogDAO(
			db,
			appState.Config.EmbeddingsClient.Dimensions,
			appState.Config.Store.Postgres.AvailableIndexes.HNSW,
		),
		ReviewDAO: NewReviewDAO(db),
		db:        db,
		appState:  appState,
	}

	if err := s.OnStart(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *PostgresStore) OnStart(ctx context.Context) error {
	if err := CreateSchema(ctx, s.appState, s.db); err != nil {
		return fmt.Errorf("failed to ensure postgres schema setup: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetClient() *bun.DB {
	return s.db
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func rollbackOnError(tx bun.Tx) {
	if rollBackErr := tx.Rollback(); rollBackErr != nil && !errors.Is(rollBackErr, sql.ErrTxDone) {
		log.Error("failed to rollback transaction", rollBackErr)
	}
}
