package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/vitrinhq/vitrin/pkg/models"
)

type CategorySchema struct {
	bun.BaseModel `bun:"table:category,alias:c" yaml:"-"`

	ID   int64  `bun:",pk,autoincrement"  yaml:"id"`
	Name string `bun:",unique,notnull"    yaml:"name"`
}

func (s *CategorySchema) BeforeCreateTable(
	_ context.Context,
	_ *bun.CreateTableQuery,
) error {
	return nil
}

// ProductSchema holds a product and its unit-length embedding. The embedding
// column is created with the default width and migrated to the configured
// width by CreateSchema.
type ProductSchema struct {
	bun.BaseModel `bun:"table:product,alias:p" yaml:"-"`

	ID                 int64            `bun:",pk,autoincrement"                                           yaml:"id"`
	Title              string           `bun:",notnull"                                                    yaml:"title"`
	Description        string           `bun:",notnull,default:''"                                         yaml:"description"`
	Brand              string           `bun:",notnull,default:''"                                         yaml:"brand"`
	Price              float64          `bun:",notnull,default:0"                                          yaml:"price"`
	DiscountPercentage float64          `bun:",notnull,default:0"                                          yaml:"discount_percentage"`
	Rating             float64          `bun:",notnull,default:0"                                          yaml:"rating"`
	Stock              int              `bun:",notnull,default:0"                                          yaml:"stock"`
	Thumbnail          string           `bun:",nullzero"                                                   yaml:"thumbnail,omitempty"`
	Images             []string         `bun:",array"                                                      yaml:"images,omitempty"`
	IsPublished        bool             `bun:",notnull,default:false"                                      yaml:"is_published"`
	CategoryID         int64            `bun:",nullzero"                                                   yaml:"category_id,omitempty"`
	CreatedAt          time.Time        `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp" yaml:"created_at,omitempty"`
	UpdatedAt          time.Time        `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp" yaml:"updated_at,omitempty"`
	Vector             *pgvector.Vector `bun:"embedding,type:vector(384)"                                  yaml:"-"`
	Category           *CategorySchema  `bun:"rel:belongs-to,join:category_id=id,on_delete:set null"       yaml:"-"`
}

var _ bun.BeforeAppendModelHook = (*ProductSchema)(nil)

func (s *ProductSchema) BeforeAppendModel(_ context.Context, query bun.Query) error {
	if _, ok := query.(*bun.UpdateQuery); ok {
		s.UpdatedAt = time.Now()
	}
	return nil
}

func (s *ProductSchema) BeforeCreateTable(
	_ context.Context,
	_ *bun.CreateTableQuery,
) error {
	return nil
}

type ReviewSchema struct {
	bun.BaseModel `bun:"table:review,alias:r" yaml:"-"`

	ID             int64                 `bun:",pk,autoincrement"                                           yaml:"id"`
	ProductID      int64                 `bun:",notnull"                                                    yaml:"product_id"`
	UserID         string                `bun:",nullzero"                                                   yaml:"user_id,omitempty"`
	Content        string                `bun:",notnull"                                                    yaml:"content"`
	Rating         int                   `bun:",notnull"                                                    yaml:"rating"`
	SentimentLabel models.SentimentLabel `bun:",notnull"                                                    yaml:"sentiment_label"`
	SentimentScore float64               `bun:",notnull"                                                    yaml:"sentiment_score"`
	CreatedAt      time.Time             `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp" yaml:"created_at,omitempty"`
	UpdatedAt      time.Time             `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp" yaml:"updated_at,omitempty"`
	Product        *ProductSchema        `bun:"rel:belongs-to,join:product_id=id,on_delete:cascade"        yaml:"-"`
}

var _ bun.BeforeAppendModelHook = (*ReviewSchema)(nil)

func (s *ReviewSchema) BeforeAppendModel(_ context.Context, query bun.Query) error {
	if _, ok := query.(*bun.UpdateQuery); ok {
		s.UpdatedAt = time.Now()
	}
	return nil
}

func (s *ReviewSchema) BeforeCreateTable(
	_ context.Context,
	_ *bun.CreateTableQuery,
) error {
	return nil
}

var _ bun.AfterCreateTableHook = (*ProductSchema)(nil)
var _ bun.AfterCreateTableHook = (*ReviewSchema)(nil)

func (*ProductSchema) AfterCreateTable(
	ctx context.Context,
	query *bun.CreateTableQuery,
) error {
	_, err := query.DB().NewCreateIndex().
		Model((*ProductSchema)(nil)).
		Index("product_category_id_idx").
		Column("category_id").
		IfNotExists().
		Exec(ctx)
	return err
}

func (*ReviewSchema) AfterCreateTable(
	ctx context.Context,
	query *bun.CreateTableQuery,
) error {
	_, err := query.DB().NewCreateIndex().
		Model((*ReviewSchema)(nil)).
		Index("review_product_id_idx").
		Column("product_id").
		IfNotExists().
		Exec(ctx)
	return err
}

// tableList is ordered so that referenced tables come first
var tableList = []bun.BeforeCreateTableHook{
	&CategorySchema{},
	&ProductSchema{},
	&ReviewSchema{},
}

// enablePgVectorExtension creates the pgvector extension if it does not exist and updates it if it is out of date.
func enablePgVectorExtension(ctx context.Context, db *bun.DB) error {
	_, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("error creating pgvector extension: %w", err)
	}

	// no-op if the extension is already up to date
	_, err = db.ExecContext(ctx, "ALTER EXTENSION vector UPDATE")
	if err != nil {
		return fmt.Errorf("error updating pgvector extension: %w", err)
	}

	return nil
}

// CreateSchema creates the db schema if it does not exist.
func CreateSchema(
	ctx context.Context,
	appState *models.AppState,
	db *bun.DB,
) error {
	for _, schema := range tableList {
		_, err := db.NewCreateTable().
			Model(schema).
			IfNotExists().
			WithForeignKeys().
			Exec(ctx)
		if err != nil {
			// bun still trying to create indexes despite IfNotExists flag
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			return fmt.Errorf("error creating table for schema %T: %w", schema, err)
		}
	}

	if err := checkProductEmbeddingDims(ctx, appState, db); err != nil {
		return fmt.Errorf("error checking product embedding dimensions: %w", err)
	}

	if appState.Config.Store.Postgres.AvailableIndexes.HNSW {
		if err := createHNSWIndex(ctx, db, "product", "embedding"); err != nil {
			return fmt.Errorf("error creating hnsw index: %w", err)
		}
	}

	return nil
}

// createHNSWIndex creates an HNSW index on the given table and column if it does not exist.
// The index is created with the default M and efConstruction values. Only vector_cosine_ops is supported.
func createHNSWIndex(ctx context.Context, db *bun.DB, table, column string) error {
	const (
		m              = 16
		efConstruction = 64
	)

	idx := table + "_" + column + "_hnsw_idx"

	log.Infof("creating hnsw index on %s.%s if it does not exist", table, column)

	_, err := db.ExecContext(
		ctx,
		"CREATE INDEX CONCURRENTLY IF NOT EXISTS ? ON ? USING hnsw (? vector_cosine_ops) WITH (M = ?, ef_construction = ?);",
		bun.Safe(idx),
		bun.Ident(table),
		bun.Ident(column),
		m,
		efConstruction,
	)
	if err != nil {
		return err
	}

	log.Infof("created hnsw index successfully on %s.%s if it did not exist", table, column)

	return nil
}

// checkProductEmbeddingDims migrates the product embedding column if its width
// differs from the configured embeddings dimensions.
func checkProductEmbeddingDims(ctx context.Context, appState *models.AppState, db *bun.DB) error {
	dimensions := appState.Config.EmbeddingsClient.Dimensions
	width, err := getEmbeddingColumnWidth(ctx, "product", db)
	if err != nil {
		return err
	}

	if width != dimensions {
		log.Warnf(
			"product embedding dimensions are %d, expected %d.\n migrating product embedding column width to %d. existing embeddings will be dropped and regenerated",
			width,
			dimensions,
			dimensions,
		)
		if err := MigrateProductEmbeddingDims(ctx, db, dimensions); err != nil {
			return fmt.Errorf("error migrating product embedding dimensions: %w", err)
		}
	}
	return nil
}

// getEmbeddingColumnWidth returns the width of the embedding column in the provided table.
func getEmbeddingColumnWidth(ctx context.Context, tableName string, db *bun.DB) (int, error) {
	var width int
	err := db.NewSelect().
		Table("pg_attribute").
		ColumnExpr("atttypmod"). // vector width is stored in atttypmod
		Where("attrelid = ?::regclass", tableName).
		Where("attname = 'embedding'").
		Scan(ctx, &width)
	if err != nil {
		return 0, fmt.Errorf("error getting embedding column width: %w", err)
	}
	return width, nil
}

// MigrateProductEmbeddingDims drops the embedding column and recreates it with
// the given width. Products are left unembedded.
func MigrateProductEmbeddingDims(
	ctx context.Context,
	db *bun.DB,
	dimensions int,
) error {
	_, err := db.ExecContext(ctx, "DROP INDEX IF EXISTS product_embedding_hnsw_idx")
	if err != nil {
		return fmt.Errorf("error dropping embedding index: %w", err)
	}
	_, err = db.ExecContext(ctx, "ALTER TABLE product DROP COLUMN IF EXISTS embedding")
	if err != nil {
		return fmt.Errorf("error dropping column embedding: %w", err)
	}
	_, err = db.NewAddColumn().
		Model((*ProductSchema)(nil)).
		ColumnExpr("embedding vector(?)", dimensions).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("error adding column embedding: %w", err)
	}

	return nil
}

// NewPostgresConn creates a new bun.DB connection to a postgres database using the provided DSN.
// The connection is configured to pool connections based on the number of PROCs available.
func NewPostgresConn(appState *models.AppState) (*bun.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	maxOpenConns := 4 * runtime.GOMAXPROCS(0)

	// WithReadTimeout is 10 minutes to avoid timeouts when creating indexes.
	sqldb := sql.OpenDB(
		pgdriver.NewConnector(
			pgdriver.WithDSN(appState.Config.Store.Postgres.DSN),
			pgdriver.WithReadTimeout(10*time.Minute),
		),
	)
	sqldb.SetMaxOpenConns(maxOpenConns)
	sqldb.SetMaxIdleConns(maxOpenConns)

	db := bun.NewDB(sqldb, pgdialect.New())

	if err := enablePgVectorExtension(ctx, db); err != nil {
		log.Error("error enabling pgvector extension: ", err)
		return nil, err
	}

	// IVFFLAT indexes are always available
	appState.Config.Store.Postgres.AvailableIndexes.IVFFLAT = true

	isHNSW, err := isHNSWAvailable(ctx, db)
	if err != nil {
		log.Error("error checking if hnsw indexes are available: ", err)
		return nil, err
	}
	appState.Config.Store.Postgres.AvailableIndexes.HNSW = isHNSW

	return db, nil
}

// isHNSWAvailable checks if the vector extension version is 0.5.0+.
func isHNSWAvailable(ctx context.Context, db *bun.DB) (bool, error) {
	var version string
	err := db.NewSelect().
		Column("extversion").
		TableExpr("pg_extension").
		Where("extname = 'vector'").
		Scan(ctx, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("vector extension not installed")
			return false, nil
		}
		return false, fmt.Errorf("error checking vector extension version: %w", err)
	}

	return supportsHNSW(version)
}

const minHNSWVersion = "0.5.0"

func supportsHNSW(version string) (bool, error) {
	requiredVersion, err := semver.NewVersion(minHNSWVersion)
	if err != nil {
		return false, fmt.Errorf("error parsing required vector extension version: %w", err)
	}

	thisVersion, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("error parsing vector extension version: %w", err)
	}

	if requiredVersion.GreaterThan(thisVersion) {
		log.Infof("vector extension version is < %s. hnsw indexing not available", minHNSWVersion)
		return false, nil
	}

	log.Infof("vector extension version is >= %s. hnsw indexing available", minHNSWVersion)

	return true, nil
}
