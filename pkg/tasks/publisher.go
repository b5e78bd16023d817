package tasks

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
	wla "github.com/ma-hartma/watermill-logrus-adapter"

	"github.com/vitrinhq/vitrin/pkg/models"
)

var _ models.TaskPublisher = &TaskPublisher{}

type TaskPublisher struct {
	publisher message.Publisher
}

func NewTaskPublisher(publisher message.Publisher) *TaskPublisher {
	return &TaskPublisher{
		publisher: publisher,
	}
}

func NewSQLTaskPublisher(db *sql.DB) (*TaskPublisher, error) {
	wlog := wla.NewLogrusLogger(log)
	publisher, err := NewSQLQueuePublisher(db, wlog)
	if err != nil {
		return nil, fmt.Errorf("failed to create task publisher: %w", err)
	}
	return NewTaskPublisher(publisher), nil
}

func (t *TaskPublisher) Publish(
	taskType models.TaskTopic,
	metadata map[string]string,
	payload any,
) error {
	p, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	log.Debugf("Publishing message: %s", p)

	m := message.NewMessage(watermill.NewUUID(), p)
	for k, v := range metadata {
		m.Metadata.Set(k, v)
	}
	if middleware.MessageCorrelationID(m) == "" {
		middleware.SetCorrelationID(uuid.NewString(), m)
	}

	err = t.publisher.Publish(string(taskType), m)
	if err != nil {
		return fmt.Errorf("failed to publish task message: %w", err)
	}

	return nil
}

func (t *TaskPublisher) Close() error {
	err := t.publisher.Close()
	if err != nil {
		return fmt.Errorf("failed to close task publisher: %w", err)
	}

	return nil
}
