package testutils

import "github.com/vitrinhq/vitrin/pkg/models"

var TestCategories = []models.Category{
	{ID: 1, Name: "smartphones"},
	{ID: 2, Name: "laptops"},
	{ID: 3, Name: "fragrances"},
}

var TestProducts = []models.Product{
	{
		Title:              "iPhone 9",
		Description:        "An apple mobile which is nothing like apple",
		Brand:              "Apple",
		Price:              549,
		DiscountPercentage: 12.96,
		Rating:             4.69,
		Stock:              94,
		IsPublished:        true,
		CategoryID:         1,
	},
	{
		Title:              "Samsung Universe 9",
		Description:        "Samsung's new variant which goes beyond Galaxy to the Universe",
		Brand:              "Samsung",
		Price:              1249,
		DiscountPercentage: 15.46,
		Rating:             4.09,
		Stock:              36,
		IsPublished:        true,
		CategoryID:         1,
	},
	{
		Title:              "MacBook Pro",
		Description:        "MacBook Pro 2021 with mini-LED display may launch between September, November",
		Brand:              "Apple",
		Price:              1749,
		DiscountPercentage: 11.02,
		Rating:             4.57,
		Stock:              83,
		IsPublished:        true,
		CategoryID:         2,
	},
	{
		Title:              "Brown Perfume",
		Description:        "Royal_Mirage Sport Brown Perfume for Men & Women - 120ml",
		Brand:              "Royal_Mirage",
		Price:              40,
		DiscountPercentage: 15.66,
		Rating:             4,
		Stock:              52,
		IsPublished:        true,
		CategoryID:         3,
	},
}

var TestReviews = []models.Review{
	{
		Content:        "Battery lasts two days, camera is excellent.",
		Rating:         5,
		SentimentLabel: models.SentimentPositive,
		SentimentScore: 0.97,
	},
	{
		Content:        "Screen scratched within a week.",
		Rating:         2,
		SentimentLabel: models.SentimentNegative,
		SentimentScore: -0.91,
	},
	{
		Content:        "Does what it says.",
		Rating:         3,
		SentimentLabel: models.SentimentNeutral,
		SentimentScore: 0,
	},
	{
		Content:        "Fast delivery and great packaging.",
		Rating:         5,
		SentimentLabel: models.SentimentPositive,
		SentimentScore: 0.88,
	},
}
