package models

import (
	"strings"
	"time"
)

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// Value maps a label onto the polarity scale. Unknown labels are neutral.
func (l SentimentLabel) Value() float64 {
	switch l {
	case SentimentPositive:
		return 1
	case SentimentNegative:
		return -1
	default:
		return 0
	}
}

// ParseSentimentLabel normalizes classifier labels such as "POSITIVE" or "LABEL_NEGATIVE".
// Anything else is neutral.
func ParseSentimentLabel(s string) SentimentLabel {
	l := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(l, "pos"):
		return SentimentPositive
	case strings.Contains(l, "neg"):
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// Sentiment is a single classification. Confidence is in [0, 1].
type Sentiment struct {
	Label      SentimentLabel `json:"label"`
	Confidence float64        `json:"confidence"`
}

// SignedScore returns the confidence signed by the label's polarity.
func (s Sentiment) SignedScore() float64 {
	return s.Label.Value() * s.Confidence
}

type Review struct {
	ID             int64          `json:"id"`
	ProductID      int64          `json:"product_id"`
	UserID         string         `json:"user_id,omitempty"`
	Content        string         `json:"content"`
	Rating         int            `json:"rating"`
	SentimentLabel SentimentLabel `json:"sentiment_label"`
	SentimentScore float64        `json:"sentiment_score"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type CreateReviewRequest struct {
	UserID  string `json:"user_id"`
	Content string `json:"content" validate:"required"`
	Rating  int    `json:"rating"  validate:"gte=1,lte=5"`
}

type UpdateReviewRequest struct {
	Content *string `json:"content" validate:"omitempty,min=1"`
	Rating  *int    `json:"rating"  validate:"omitempty,gte=1,lte=5"`
}
