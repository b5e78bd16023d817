package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dbfixture"
	"github.com/uptrace/bun/extra/bundebug"
	"gopkg.in/yaml.v3"

	"github.com/vitrinhq/vitrin/pkg/models"
)

type Row interface {
	CategorySchema | ProductSchema | ReviewSchema
}

type FixtureModel[T Row] struct {
	Model string `yaml:"model"`
	Rows  []T    `yaml:"rows"`
}

type Fixtures[T Row] []FixtureModel[T]

var fixtureSentiments = []models.SentimentLabel{
	models.SentimentPositive,
	models.SentimentPositive,
	models.SentimentNegative,
	models.SentimentNeutral,
}

func generateTimeLastNDays(nDays int) time.Time {
	now := time.Now()
	start := now.Add(time.Duration(-nDays) * 24 * time.Hour)
	return gofakeit.DateRange(start, now)
}

// GenerateFixtureData writes category, product and review fixtures to
// outputDir. Products are written without embeddings.
func GenerateFixtureData(fixtureCount int, outputDir string) error {
	fakerGlobal := gofakeit.NewUnlocked(0)
	gofakeit.SetGlobalFaker(fakerGlobal)

	categoryNames := []string{"smartphones", "laptops", "fragrances", "skincare", "groceries", "home-decoration"}
	categories := make([]CategorySchema, len(categoryNames))
	for i, name := range categoryNames {
		categories[i] = CategorySchema{ID: int64(i + 1), Name: name}
	}

	products := make([]ProductSchema, fixtureCount)
	for i := 0; i < fixtureCount; i++ {
		dateCreated := generateTimeLastNDays(30)
		products[i] = ProductSchema{
			ID:                 int64(i + 1),
			Title:              gofakeit.Adjective() + " " + gofakeit.Noun(),
			Description:        gofakeit.Sentence(gofakeit.Number(10, 30)),
			Brand:              gofakeit.Company(),
			Price:              gofakeit.Price(5, 2000),
			DiscountPercentage: gofakeit.Float64Range(0, 30),
			Rating:             gofakeit.Float64Range(1, 5),
			Stock:              gofakeit.Number(0, 200),
			Thumbnail:          gofakeit.ImageURL(300, 300),
			IsPublished:        gofakeit.Bool(),
			CategoryID:         categories[gofakeit.Number(0, len(categories)-1)].ID,
			CreatedAt:          dateCreated,
			UpdatedAt:          dateCreated,
		}
	}

	var reviews []ReviewSchema
	for _, product := range products {
		reviewCount := gofakeit.Number(0, 120)
		for j := 0; j < reviewCount; j++ {
			label := fixtureSentiments[gofakeit.Number(0, len(fixtureSentiments)-1)]
			confidence := gofakeit.Float64Range(0.5, 1)
			dateCreated := generateTimeLastNDays(14)
			reviews = append(reviews, ReviewSchema{
				ID:             int64(len(reviews) + 1),
				ProductID:      product.ID,
				UserID:         strings.ToLower(gofakeit.Username()),
				Content:        gofakeit.Sentence(gofakeit.Number(5, 40)),
				Rating:         gofakeit.Number(1, 5),
				SentimentLabel: label,
				SentimentScore: models.Sentiment{Label: label, Confidence: confidence}.SignedScore(),
				CreatedAt:      dateCreated,
				UpdatedAt:      dateCreated,
			})
		}
	}

	if outputDir == "" {
		outputDir = "./"
	} else if _, err := os.Stat(outputDir); os.IsNotExist(err) {
		if err := os.Mkdir(outputDir, 0755); err != nil {
			return fmt.Errorf("unable to create %s: %w", outputDir, err)
		}
	}

	if err := writeFixtureToYAML(
		Fixtures[CategorySchema]{{Model: "CategorySchema", Rows: categories}},
		outputDir,
		"01_category_fixtures.yaml",
	); err != nil {
		return err
	}
	if err := writeFixtureToYAML(
		Fixtures[ProductSchema]{{Model: "ProductSchema", Rows: products}},
		outputDir,
		"02_product_fixtures.yaml",
	); err != nil {
		return err
	}
	return writeFixtureToYAML(
		Fixtures[ReviewSchema]{{Model: "ReviewSchema", Rows: reviews}},
		outputDir,
		"03_review_fixtures.yaml",
	)
}

func writeFixtureToYAML[T Row](fixtures Fixtures[T], outputDir, filename string) error {
	data, err := yaml.Marshal(&fixtures)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filename, err)
	}

	if err := os.WriteFile(filepath.Join(outputDir, filename), data, 0644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}

	log.Infof("fixtures generated successfully in %s", filename)

	return nil
}

// LoadFixtures recreates the schema and loads every yaml fixture in
// fixturePath in file name order.
func LoadFixtures(
	ctx context.Context,
	appState *models.AppState,
	db *bun.DB,
	fixturePath string,
) error {
	db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))

	dropSchemaQuery := `DROP SCHEMA public CASCADE;
CREATE SCHEMA public;
GRANT ALL ON SCHEMA public TO postgres;
GRANT ALL ON SCHEMA public TO public;`

	if _, err := db.ExecContext(ctx, dropSchemaQuery); err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}

	if err := enablePgVectorExtension(ctx, db); err != nil {
		return fmt.Errorf("failed to enable pg_vector extension: %w", err)
	}

	if err := CreateSchema(ctx, appState, db); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	db.RegisterModel(
		(*CategorySchema)(nil),
		(*ProductSchema)(nil),
		(*ReviewSchema)(nil),
	)

	// tables already exist with the configured embedding width
	fixture := dbfixture.New(db)

	files, err := os.ReadDir(fixturePath)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		switch filepath.Ext(file.Name()) {
		case ".yaml", ".yml":
			if err := fixture.Load(ctx, os.DirFS(fixturePath), file.Name()); err != nil {
				return fmt.Errorf("failed to load fixture %s: %w", file.Name(), err)
			}
		}
	}

	return resetSequences(ctx, db)
}

// resetSequences moves the id sequences past the ids loaded from fixtures.
func resetSequences(ctx context.Context, db *bun.DB) error {
	for _, table := range []string{"category", "product", "review"} {
		_, err := db.ExecContext(
			ctx,
			"SELECT setval(pg_get_serial_sequence(?, 'id'), COALESCE((SELECT MAX(id) FROM ?), 0) + 1, false)",
			table,
			bun.Ident(table),
		)
		if err != nil {
			return fmt.Errorf("failed to reset %s id sequence: %w", table, err)
		}
	}
	return nil
}
