package models

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

type TaskTopic string

const (
	ProductEmbedderTopic TaskTopic = "product_embedder"
)

type Task interface {
	Execute(ctx context.Context, event *message.Message) error
	HandleError(err error)
}

type TaskRouter interface {
	Run(ctx context.Context) error
	AddTask(ctx context.Context, name string, taskType TaskTopic, task Task)
	RunHandlers(ctx context.Context) error
	IsRunning() bool
	Close() error
}

type TaskPublisher interface {
	Publish(taskType TaskTopic, metadata map[string]string, payload any) error
	Close() error
}

// ProductEmbeddingTask asks the embedder to (re)generate product embeddings.
type ProductEmbeddingTask struct {
	ProductIDs []int64 `json:"product_ids"`
}
