package postgres

import (
	"database/sql"

	// registers the pgx database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vitrinhq/vitrin/pkg/models"
)

// NewPostgresConnForQueue opens a plain database/sql connection for the task queue.
// bun's pgdriver runs at an isolation level watermill's SQL subscriber can't use.
func NewPostgresConnForQueue(appState *models.AppState) (*sql.DB, error) {
	db, err := sql.Open("pgx", appState.Config.Store.Postgres.DSN)
	if err != nil {
		return nil, err
	}

	return db, nil
}
