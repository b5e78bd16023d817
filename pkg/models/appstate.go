package models

import (
	"github.com/vitrinhq/vitrin/config"
)

// AppState is a struct that holds the state of the application
// Use cmd.NewAppState to create a new instance
type AppState struct {
	LLMClient        LLM
	EmbeddingsClient EmbeddingsClient
	SentimentClient  SentimentClassifier
	Transcriber      Transcriber
	CatalogStore     CatalogStore
	ReviewStore      ReviewStore
	TaskRouter       TaskRouter
	TaskPublisher    TaskPublisher
	Config           *config.Config
}
