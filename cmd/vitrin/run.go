package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	wla "github.com/ma-hartma/watermill-logrus-adapter"
	"github.com/oiime/logrusbun"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/vitrinhq/vitrin/config"
	"github.com/vitrinhq/vitrin/pkg/auth"
	"github.com/vitrinhq/vitrin/pkg/llms"
	"github.com/vitrinhq/vitrin/pkg/models"
	"github.com/vitrinhq/vitrin/pkg/server"
	"github.com/vitrinhq/vitrin/pkg/store/memory"
	"github.com/vitrinhq/vitrin/pkg/store/postgres"
	"github.com/vitrinhq/vitrin/pkg/tasks"
)

const (
	StoreTypePostgres = "postgres"
	StoreTypeMemory   = "memory"

	ShutdownTimeout = 10 * time.Second
)

var ErrPostgresDSNNotSet = errors.New("store.postgres.dsn must be set")

// run is the entrypoint for the vitrin server
func run() {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		log.Fatalf("Error configuring vitrin: %s", err)
	}

	handleCLIOptions(cfg)

	log.Infof("Starting vitrin server version %s", config.VersionString)

	config.SetLogLevel(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appState, err := NewAppState(ctx, cfg)
	if err != nil {
		log.Fatalf("Error initializing vitrin: %s", err)
	}

	srv, err := server.Create(appState)
	if err != nil {
		log.Fatal(err)
	}

	setupSignalHandler(appState, srv, cancel)

	log.Infof("Listening on: %s", srv.Addr)
	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// NewAppState creates an AppState struct from the config file / ENV, initializes the
// stores and the external service clients, and starts the task router.
func NewAppState(ctx context.Context, cfg *config.Config) (*models.AppState, error) {
	appState := &models.AppState{
		Config: cfg,
	}

	llmClient, err := llms.NewLLMClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	appState.LLMClient = llmClient

	embeddingsClient, err := llms.NewEmbeddingsClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	appState.EmbeddingsClient = embeddingsClient

	sentimentClient, err := llms.NewSentimentClient(cfg)
	if err != nil {
		return nil, err
	}
	appState.SentimentClient = sentimentClient

	if transcriber := llms.NewTranscriber(cfg); transcriber != nil {
		appState.Transcriber = transcriber
	}

	if err := initializeStore(ctx, appState); err != nil {
		return nil, err
	}

	return appState, nil
}

// handleCLIOptions handles CLI options that don't require the server to run
func handleCLIOptions(cfg *config.Config) {
	if showVersion {
		fmt.Println(config.VersionString)
		os.Exit(0)
	}
	if dumpConfig {
		b, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			log.Fatalf("Error dumping config: %s", err)
		}
		fmt.Println(string(b))
		os.Exit(0)
	}
	if generateKey {
		token, err := auth.GenerateJWT(cfg, "", 0)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(token)
		os.Exit(0)
	}
}

// initializeStore sets up the catalog and review stores and the task queue that
// matches them.
func initializeStore(ctx context.Context, appState *models.AppState) error {
	switch appState.Config.Store.Type {
	case StoreTypePostgres, "":
		if appState.Config.Store.Postgres.DSN == "" {
			return ErrPostgresDSNNotSet
		}
		db, err := postgres.NewPostgresConn(appState)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if appState.Config.Log.Level == "debug" {
			pgDebugLogging(db)
		}
		store, err := postgres.NewPostgresStore(appState, db)
		if err != nil {
			return err
		}
		appState.CatalogStore = store
		appState.ReviewStore = store

		queueDB, err := postgres.NewPostgresConnForQueue(appState)
		if err != nil {
			return fmt.Errorf("failed to connect to queue database: %w", err)
		}
		router, err := tasks.NewSQLTaskRouter(appState, queueDB)
		if err != nil {
			return err
		}
		publisher, err := tasks.NewSQLTaskPublisher(queueDB)
		if err != nil {
			return err
		}
		tasks.RunTaskRouter(ctx, appState, router, publisher)
	case StoreTypeMemory:
		store := memory.NewStore(appState.Config.EmbeddingsClient.Dimensions)
		appState.CatalogStore = store
		appState.ReviewStore = store

		queue := tasks.NewInMemoryQueue(wla.NewLogrusLogger(log))
		router, err := tasks.NewTaskRouter(appState, tasks.InMemorySubscriber(queue), nil)
		if err != nil {
			return err
		}
		tasks.RunTaskRouter(ctx, appState, router, tasks.NewTaskPublisher(queue))
	default:
		return fmt.Errorf("store.type (%s) is not supported", appState.Config.Store.Type)
	}

	log.Info("Using store: ", appState.Config.Store.Type)
	return nil
}

func pgDebugLogging(db *bun.DB) {
	db.AddQueryHook(logrusbun.NewQueryHook(logrusbun.QueryHookOptions{
		LogSlow:         time.Second,
		Logger:          log,
		QueryLevel:      logrus.DebugLevel,
		ErrorLevel:      logrus.ErrorLevel,
		SlowLevel:       logrus.WarnLevel,
		MessageTemplate: "{{.Operation}}[{{.Duration}}]: {{.Query}}",
		ErrorTemplate:   "{{.Operation}}[{{.Duration}}]: {{.Query}}: {{.Error}}",
	}))
}

// setupSignalHandler shuts down the server, the task router and the stores on termination
func setupSignalHandler(appState *models.AppState, srv *http.Server, cancel context.CancelFunc) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		log.Info("Shutting down")

		ctx, done := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer done()
		if err := srv.Shutdown(ctx); err != nil {
			log.Errorf("Error shutting down server: %v", err)
		}
		cancel()

		if appState.TaskRouter != nil {
			if err := appState.TaskRouter.Close(); err != nil {
				log.Errorf("Error closing task router: %v", err)
			}
		}
		if appState.TaskPublisher != nil {
			if err := appState.TaskPublisher.Close(); err != nil {
				log.Errorf("Error closing task publisher: %v", err)
			}
		}
		if err := appState.CatalogStore.Close(); err != nil {
			log.Errorf("Error closing store: %v", err)
		}
	}()
}
