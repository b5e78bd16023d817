package analysis

import "github.com/vitrinhq/vitrin/pkg/models"

// AggregateSentiment averages the label polarity of reviews and counts the
// reviews per label. Labels other than positive and negative count as 0.
func AggregateSentiment(productID int64, reviews []models.Review) (*models.SentimentAggregate, error) {
	if len(reviews) == 0 {
		return nil, models.NewEmptyCorpusError(productID)
	}

	counts := make(map[models.SentimentLabel]int)
	var total float64
	for _, r := range reviews {
		label := r.SentimentLabel
		if label == "" {
			label = models.SentimentNeutral
		}
		counts[label]++
		total += label.Value()
	}

	return &models.SentimentAggregate{
		ReviewCount: len(reviews),
		ScoreAvg:    total / float64(len(reviews)),
		LabelCounts: counts,
	}, nil
}
