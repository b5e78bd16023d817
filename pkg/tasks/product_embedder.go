package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/vitrinhq/vitrin/pkg/models"
	"github.com/vitrinhq/vitrin/pkg/search"
)

// ProductEmbedderBatchSize caps the number of products embedded per message.
const ProductEmbedderBatchSize = 100

var _ models.Task = &ProductEmbedderTask{}

func NewProductEmbedderTask(appState *models.AppState) *ProductEmbedderTask {
	return &ProductEmbedderTask{
		BaseTask: BaseTask{
			appState: appState,
		},
		normalizer: search.NewNormalizer(
			appState.EmbeddingsClient,
			appState.Config.EmbeddingsClient.Dimensions,
		),
	}
}

// ProductEmbedderTask (re)computes the embeddings of the products named in the message.
type ProductEmbedderTask struct {
	BaseTask
	normalizer *search.Normalizer
}

func (pt *ProductEmbedderTask) Execute(
	ctx context.Context,
	msg *message.Message,
) error {
	ctx, done := context.WithTimeout(ctx, TaskTimeout*time.Second)
	defer done()

	var task models.ProductEmbeddingTask
	if err := json.Unmarshal(msg.Payload, &task); err != nil {
		return fmt.Errorf("ProductEmbedderTask unmarshal failed: %w", err)
	}
	log.Debugf("ProductEmbedderTask called for %d products", len(task.ProductIDs))

	if err := pt.Process(ctx, task.ProductIDs); err != nil {
		return err
	}

	msg.Ack()

	return nil
}

// Process embeds the given products in a single embeddings call. Products deleted
// since the task was queued, or updated while it ran, are skipped.
func (pt *ProductEmbedderTask) Process(ctx context.Context, productIDs []int64) error {
	store := pt.appState.CatalogStore

	products := make([]*models.Product, 0, len(productIDs))
	for _, id := range productIDs {
		p, err := store.GetProduct(ctx, id)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				log.Warnf("ProductEmbedderTask product %d not found. Was it deleted?", id)
				continue
			}
			return fmt.Errorf("ProductEmbedderTask get product failed: %w", err)
		}
		products = append(products, p)
	}
	if len(products) == 0 {
		return nil
	}

	texts := make([]string, len(products))
	for i, p := range products {
		texts[i] = search.ProductEmbeddingText(p)
	}

	embeddings, err := pt.normalizer.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("ProductEmbedderTask embed failed: %w", err)
	}

	for i, p := range products {
		err := store.PutProductEmbedding(ctx, p.ID, embeddings[i], p.UpdatedAt)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				log.Warnf("ProductEmbedderTask product %d not found. Was it deleted?", p.ID)
				continue
			}
			if errors.Is(err, models.ErrConflict) {
				log.Debugf("ProductEmbedderTask product %d changed while embedding, skipping", p.ID)
				continue
			}
			return fmt.Errorf("ProductEmbedderTask save embedding failed: %w", err)
		}
	}

	return nil
}

// QueueUnembeddedProducts publishes embedder tasks for every product without an embedding.
func QueueUnembeddedProducts(ctx context.Context, appState *models.AppState) error {
	ids, err := appState.CatalogStore.GetUnembeddedProductIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get unembedded products: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	log.Infof("queueing %d products for embedding", len(ids))
	for start := 0; start < len(ids); start += ProductEmbedderBatchSize {
		end := min(start+ProductEmbedderBatchSize, len(ids))
		err := appState.TaskPublisher.Publish(
			models.ProductEmbedderTopic,
			nil,
			models.ProductEmbeddingTask{ProductIDs: ids[start:end]},
		)
		if err != nil {
			return err
		}
	}

	return nil
}
