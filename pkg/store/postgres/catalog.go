package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"

	"github.com/vitrinhq/vitrin/pkg/models"
	"github.com/vitrinhq/vitrin/pkg/store"
)

const (
	// pgvector's default hnsw.ef_search and its upper bound
	defaultEFSearch = 40
	maxEFSearch     = 1000
)

type CatalogDAO struct {
	db         *bun.DB
	dimensions int
	// hnsw is set when product.embedding has an hnsw index
	hnsw bool
}

func NewCatalogDAO(db *bun.DB, dimensions int, hnsw bool) *CatalogDAO {
	return &CatalogDAO{db: db, dimensions: dimensions, hnsw: hnsw}
}

// efSearch returns the hnsw candidate list size needed to return limit rows.
// An index scan never returns more than ef_search rows.
func efSearch(limit int) int {
	return min(max(limit, defaultEFSearch), maxEFSearch)
}

// productSearchRow is a product with its cosine distance to the query.
type productSearchRow struct {
	ProductSchema `bun:",extend"`
	Distance      float64 `bun:"distance"`
}

func (dao *CatalogDAO) GetCategory(ctx context.Context, categoryID int64) (*models.Category, error) {
	category := new(CategorySchema)
	err := dao.db.NewSelect().Model(category).Where("c.id = ?", categoryID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFoundError(fmt.Sprintf("category %d", categoryID))
		}
		return nil, store.NewStorageError("failed to get category", err)
	}
	return &models.Category{ID: category.ID, Name: category.Name}, nil
}

func (dao *CatalogDAO) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	product := new(ProductSchema)
	err := dao.db.NewSelect().
		Model(product).
		Relation("Category").
		Where("p.id = ?", productID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFoundError(fmt.Sprintf("product %d", productID))
		}
		return nil, store.NewStorageError("failed to get product", err)
	}
	return productSchemaToProduct(product)
}

func (dao *CatalogDAO) PutProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	productDB := &ProductSchema{}
	if err := copier.Copy(productDB, product); err != nil {
		return nil, store.NewStorageError("failed to copy product", err)
	}
	productDB.Category = nil
	if len(product.Embedding) > 0 {
		v := pgvector.NewVector(product.Embedding)
		productDB.Vector = &v
	}

	if productDB.ID == 0 {
		_, err := dao.db.NewInsert().
			Model(productDB).
			ExcludeColumn("created_at", "updated_at").
			Returning("id").
			Exec(ctx)
		if err != nil {
			return nil, store.NewStorageError("failed to create product", err)
		}
		return dao.GetProduct(ctx, productDB.ID)
	}

	query := dao.db.NewUpdate().
		Model(productDB).
		ExcludeColumn("id", "created_at").
		WherePK()
	if productDB.Vector == nil {
		query = query.ExcludeColumn("embedding")
	}
	r, err := query.Exec(ctx)
	if err != nil {
		return nil, store.NewStorageError("failed to update product", err)
	}
	rowsAffected, err := r.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, models.NewNotFoundError(fmt.Sprintf("product %d", productDB.ID))
	}

	return dao.GetProduct(ctx, productDB.ID)
}

// DeleteProduct deletes the product and its reviews.
func (dao *CatalogDAO) DeleteProduct(ctx context.Context, productID int64) error {
	tx, err := dao.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollbackOnError(tx)

	_, err = tx.NewDelete().
		Model((*ReviewSchema)(nil)).
		Where("product_id = ?", productID).
		Exec(ctx)
	if err != nil {
		return store.NewStorageError("failed to delete reviews", err)
	}

	r, err := tx.NewDelete().
		Model((*ProductSchema)(nil)).
		Where("id = ?", productID).
		Exec(ctx)
	if err != nil {
		return store.NewStorageError("failed to delete product", err)
	}
	rowsAffected, err := r.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return models.NewNotFoundError(fmt.Sprintf("product %d", productID))
	}

	return tx.Commit()
}

// SearchProducts ranks embedded products by pgvector cosine distance, which
// equals 1 - dot product for unit-length vectors. Without an hnsw index the scan
// is exact. With one, hnsw.ef_search is raised to the limit for the query.
func (dao *CatalogDAO) SearchProducts(
	ctx context.Context,
	query []float32,
	limit int,
) ([]models.SearchResult, error) {
	if limit < 1 {
		return nil, models.NewValidationError("limit", "must be at least 1")
	}
	if len(query) != dao.dimensions {
		return nil, models.NewDimensionMismatchError(dao.dimensions, len(query), 0)
	}

	tx, err := dao.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, store.NewStorageError("failed to begin search", err)
	}
	defer rollbackOnError(tx)

	if dao.hnsw {
		_, err = tx.ExecContext(ctx, "SET LOCAL hnsw.ef_search = ?", efSearch(limit))
		if err != nil {
			return nil, store.NewStorageError("failed to set hnsw.ef_search", err)
		}
	}

	var rows []productSearchRow
	err = tx.NewSelect().
		Model(&rows).
		ColumnExpr("p.*").
		ColumnExpr("(p.embedding <=> ?) AS distance", pgvector.NewVector(query)).
		Where("p.embedding IS NOT NULL").
		OrderExpr("distance ASC, p.id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, store.NewStorageError("failed to search products", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, store.NewStorageError("failed to commit search", err)
	}

	categories, err := dao.categoriesFor(ctx, rows)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, len(rows))
	for i := range rows {
		product, err := productSchemaToProduct(&rows[i].ProductSchema)
		if err != nil {
			return nil, err
		}
		product.Category = categories[product.CategoryID]
		results[i] = models.SearchResult{
			ProductID: product.ID,
			Distance:  rows[i].Distance,
			Product:   product,
		}
	}

	return results, nil
}

func (dao *CatalogDAO) GetProductVectors(
	ctx context.Context,
	filter models.ProductVectorFilter,
) ([]models.ProductVectorRecord, error) {
	var products []ProductSchema
	query := dao.db.NewSelect().
		Model(&products).
		Relation("Category").
		Where("p.embedding IS NOT NULL").
		Order("p.id ASC")
	if filter.CategoryID != 0 {
		query = query.Where("p.category_id = ?", filter.CategoryID)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, store.NewStorageError("failed to get product vectors", err)
	}

	records := make([]models.ProductVectorRecord, len(products))
	for i := range products {
		product, err := productSchemaToProduct(&products[i])
		if err != nil {
			return nil, err
		}
		records[i] = models.ProductVectorRecord{
			ProductID: product.ID,
			Embedding: product.Embedding,
			Product:   product,
		}
	}

	return records, nil
}

func (dao *CatalogDAO) GetUnembeddedProductIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := dao.db.NewSelect().
		Model((*ProductSchema)(nil)).
		Column("p.id").
		Where("p.embedding IS NULL").
		Order("p.id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, store.NewStorageError("failed to get unembedded products", err)
	}
	return ids, nil
}

func (dao *CatalogDAO) PutProductEmbedding(
	ctx context.Context,
	productID int64,
	embedding []float32,
	version time.Time,
) error {
	if len(embedding) != dao.dimensions {
		return models.NewDimensionMismatchError(dao.dimensions, len(embedding), productID)
	}

	query := dao.db.NewUpdate().
		Model((*ProductSchema)(nil)).
		Set("embedding = ?", pgvector.NewVector(embedding)).
		Set("updated_at = current_timestamp").
		Where("id = ?", productID)
	if !version.IsZero() {
		query = query.Where("updated_at = ?", version)
	}
	r, err := query.Exec(ctx)
	if err != nil {
		return store.NewStorageError("failed to update product embedding", err)
	}
	rowsAffected, err := r.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected > 0 {
		return nil
	}

	if !version.IsZero() {
		exists, err := dao.db.NewSelect().
			Model((*ProductSchema)(nil)).
			Where("id = ?", productID).
			Exists(ctx)
		if err != nil {
			return store.NewStorageError("failed to check product", err)
		}
		if exists {
			return models.NewStaleProductError(productID)
		}
	}
	return models.NewNotFoundError(fmt.Sprintf("product %d", productID))
}

func (dao *CatalogDAO) categoriesFor(
	ctx context.Context,
	rows []productSearchRow,
) (map[int64]*models.Category, error) {
	categories := make(map[int64]*models.Category)
	var ids []int64
	for _, row := range rows {
		if row.CategoryID != 0 {
			ids = append(ids, row.CategoryID)
		}
	}
	if len(ids) == 0 {
		return categories, nil
	}

	var schemas []CategorySchema
	err := dao.db.NewSelect().
		Model(&schemas).
		Where("c.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, store.NewStorageError("failed to get categories", err)
	}
	for _, c := range schemas {
		categories[c.ID] = &models.Category{ID: c.ID, Name: c.Name}
	}
	return categories, nil
}

func productSchemaToProduct(s *ProductSchema) (*models.Product, error) {
	product := &models.Product{}
	if err := copier.Copy(product, s); err != nil {
		return nil, store.NewStorageError("failed to copy product", err)
	}
	product.Category = nil
	if s.Category != nil {
		product.Category = &models.Category{ID: s.Category.ID, Name: s.Category.Name}
	}
	if s.Vector != nil {
		product.Embedding = s.Vector.Slice()
	}
	return product, nil
}
