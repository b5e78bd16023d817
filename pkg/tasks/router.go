package tasks

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	wla "github.com/ma-hartma/watermill-logrus-adapter"

	"github.com/vitrinhq/vitrin/pkg/models"
)

const TaskCountThrottle = 50 // messages per second
const MaxQueueRetries = 5
const TaskTimeout = 60 // seconds

var onceRouter sync.Once

// SubscriberFactory returns a new subscriber for a single handler.
type SubscriberFactory func() (message.Subscriber, error)

// TaskRouter is a wrapper around watermill's Router that adds some
// functionality for managing tasks and handlers.
type TaskRouter struct {
	*message.Router
	appState      *models.AppState
	logger        watermill.LoggerAdapter
	newSubscriber SubscriberFactory
	db            *sql.DB
}

// NewTaskRouter creates a TaskRouter whose handlers each get a subscriber from newSubscriber.
// If db is not nil it is closed together with the router.
func NewTaskRouter(
	appState *models.AppState,
	newSubscriber SubscriberFactory,
	db *sql.DB,
) (*TaskRouter, error) {
	wlog := wla.NewLogrusLogger(log)

	router, err := message.NewRouter(message.RouterConfig{}, wlog)
	if err != nil {
		return nil, err
	}

	router.AddMiddleware(
		// CorrelationID will copy the correlation id from the incoming message's metadata to the produced messages
		middleware.CorrelationID,

		middleware.NewThrottle(TaskCountThrottle, time.Second).Middleware,

		// Recoverer passes panics to the Retry middleware as errors
		middleware.Recoverer,

		// After MaxRetries, the message is Nacked and it's up to the PubSub to resend it.
		middleware.Retry{
			MaxRetries:      MaxQueueRetries,
			InitialInterval: 1 * time.Second,
			Multiplier:      0.5,
			Logger:          wlog,
		}.Middleware,
	)

	return &TaskRouter{
		Router:        router,
		appState:      appState,
		logger:        wlog,
		newSubscriber: newSubscriber,
		db:            db,
	}, nil
}

// NewSQLTaskRouter creates a TaskRouter backed by the Postgres queue. Note that db should
// not be a bun.DB instance as bun runs at an isolation level that is incompatible with
// watermill's SQL subscriber.
func NewSQLTaskRouter(appState *models.AppState, db *sql.DB) (*TaskRouter, error) {
	wlog := wla.NewLogrusLogger(log)
	return NewTaskRouter(
		appState,
		func() (message.Subscriber, error) { return NewSQLQueueSubscriber(db, wlog) },
		db,
	)
}

// AddTask adds a task handler to the router.
func (tr *TaskRouter) AddTask(
	_ context.Context,
	name string,
	taskType models.TaskTopic,
	task models.Task,
) {
	subscriber, err := tr.newSubscriber()
	if err != nil {
		log.Fatalf("Failed to create subscriber for task %s: %v", taskType, err)
	}
	tr.AddNoPublisherHandler(
		name,
		string(taskType),
		subscriber,
		TaskHandler(task),
	)
}

func (tr *TaskRouter) Close() (err error) {
	err = tr.Router.Close()
	if tr.db == nil {
		return err
	}
	if dbErr := tr.db.Close(); err == nil {
		err = dbErr
	}
	return err
}

// TaskHandler returns a message handler function for the given task.
// Handlers are NoPublishHandlerFuncs i.e. do not publish messages.
func TaskHandler(task models.Task) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		err := task.Execute(msg.Context(), msg)
		if err != nil {
			task.HandleError(err)
			return err
		}
		return nil
	}
}

// RunTaskRouter registers the tasks, stores router and publisher on appState and
// starts the router in the background.
func RunTaskRouter(
	ctx context.Context,
	appState *models.AppState,
	router *TaskRouter,
	publisher models.TaskPublisher,
) {
	// Run once to avoid test situations where the router is initialized multiple times
	onceRouter.Do(func() {
		Initialize(ctx, appState, router)

		appState.TaskRouter = router
		appState.TaskPublisher = publisher

		go func() {
			log.Info("running task router")
			err := router.Run(ctx)
			if err != nil {
				log.Fatalf("failed to run task router %v", err)
			}
		}()

		if appState.Config.Tasks.EmbedOnStart {
			go func() {
				select {
				case <-router.Running():
				case <-ctx.Done():
					return
				}
				if err := QueueUnembeddedProducts(ctx, appState); err != nil {
					log.Errorf("failed to queue unembedded products: %v", err)
				}
			}()
		}
	})
}
