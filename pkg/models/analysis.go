package models

// NoReviewsSummary is returned by the summarizer when there is nothing to summarize.
const NoReviewsSummary = "no reviews available"

// SentimentAggregate is the polarity mean and label histogram of a review set.
type SentimentAggregate struct {
	ReviewCount int                    `json:"review_count"`
	ScoreAvg    float64                `json:"sentiment_score_avg"`
	LabelCounts map[SentimentLabel]int `json:"sentiment_label_counts"`
}

type SentimentReport struct {
	ProductID            int64                  `json:"product_id"`
	ReviewCount          int                    `json:"review_count"`
	SentimentScoreAvg    float64                `json:"sentiment_score_avg"`
	SentimentLabelCounts map[SentimentLabel]int `json:"sentiment_label_counts"`
	CommentsSummary      string                 `json:"comments_summary"`
}

type ProductAnalysis struct {
	Product *Product `json:"product"`
	SentimentReport
}
