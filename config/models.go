package config

import "time"

// Config holds the configuration of the application
// Use cmd.NewAppState to wire it into the running server
type Config struct {
	LLM              LLM                    `mapstructure:"llm"            json:"llm"`
	EmbeddingsClient EmbeddingsClientConfig `mapstructure:"embeddings"     json:"embeddings"`
	Sentiment        SentimentConfig        `mapstructure:"sentiment"      json:"sentiment"`
	Transcription    TranscriptionConfig    `mapstructure:"transcription"  json:"transcription"`
	Search           SearchConfig           `mapstructure:"search"         json:"search"`
	Analysis         AnalysisConfig         `mapstructure:"analysis"       json:"analysis"`
	Store            StoreConfig            `mapstructure:"store"          json:"store"`
	Server           ServerConfig           `mapstructure:"server"         json:"server"`
	Log              LogConfig              `mapstructure:"log"            json:"log"`
	Auth             AuthConfig             `mapstructure:"auth"           json:"auth"`
	Tasks            TasksConfig            `mapstructure:"tasks"          json:"tasks"`
	CustomPrompts    CustomPromptsConfig    `mapstructure:"custom_prompts" json:"custom_prompts"`
}

type LLM struct {
	// Service is one of openai, anthropic or googleai
	Service string `mapstructure:"service"         json:"service"`
	Model   string `mapstructure:"model"           json:"model"`
	// API keys are loaded from ENV not the config file.
	OpenAIAPIKey    string `mapstructure:"openai_api_key"    json:"-"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key" json:"-"`
	GoogleAPIKey    string `mapstructure:"google_api_key"    json:"-"`
	OpenAIEndpoint  string `mapstructure:"openai_endpoint"   json:"openai_endpoint"`
	OpenAIOrgID     string `mapstructure:"openai_org_id"     json:"openai_org_id"`
	// MaxRetries enables retries of rate limited or timed out calls when > 0
	MaxRetries int `mapstructure:"max_retries" json:"max_retries"`
}

type EmbeddingsClientConfig struct {
	// Service is one of openai or local
	Service        string        `mapstructure:"service"         json:"service"`
	Model          string        `mapstructure:"model"           json:"model"`
	Dimensions     int           `mapstructure:"dimensions"      json:"dimensions"`
	ServerURL      string        `mapstructure:"server_url"      json:"server_url"`
	OpenAIAPIKey   string        `mapstructure:"openai_api_key"  json:"-"`
	OpenAIEndpoint string        `mapstructure:"openai_endpoint" json:"openai_endpoint"`
	OpenAIOrgID    string        `mapstructure:"openai_org_id"   json:"openai_org_id"`
	Timeout        time.Duration `mapstructure:"timeout"         json:"timeout"`
}

// SentimentConfig configures the remote sentiment classification service
type SentimentConfig struct {
	ServerURL string        `mapstructure:"server_url" json:"server_url"`
	APIKey    string        `mapstructure:"api_key"    json:"-"`
	Timeout   time.Duration `mapstructure:"timeout"    json:"timeout"`
}

// TranscriptionConfig configures the speech to text service used by voice search.
// Voice search is disabled when ServerURL is empty.
type TranscriptionConfig struct {
	// ServerURL is the base URL of a Whisper compatible API, e.g. https://api.openai.com/v1
	ServerURL string        `mapstructure:"server_url" json:"server_url"`
	APIKey    string        `mapstructure:"api_key"    json:"-"`
	Model     string        `mapstructure:"model"      json:"model"`
	Language  string        `mapstructure:"language"   json:"language"`
	Timeout   time.Duration `mapstructure:"timeout"    json:"timeout"`
}

type SearchConfig struct {
	DefaultLimit int  `mapstructure:"default_limit" json:"default_limit"`
	MaxLimit     int  `mapstructure:"max_limit"     json:"max_limit"`
	RefineQuery  bool `mapstructure:"refine_query"  json:"refine_query"`
}

type AnalysisConfig struct {
	ChunkSize      int           `mapstructure:"chunk_size"      json:"chunk_size"`
	MaxConcurrency int           `mapstructure:"max_concurrency" json:"max_concurrency"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"    json:"call_timeout"`
}

type StoreConfig struct {
	// Type is one of postgres or memory
	Type     string         `mapstructure:"type"     json:"type"`
	Postgres PostgresConfig `mapstructure:"postgres" json:"postgres"`
}

type PostgresConfig struct {
	DSN              string           `mapstructure:"dsn"               json:"dsn"`
	AvailableIndexes AvailableIndexes `mapstructure:"available_indexes" json:"available_indexes"`
}

type AvailableIndexes struct {
	IVFFLAT bool `mapstructure:"ivfflat" json:"ivfflat"`
	HNSW    bool `mapstructure:"hnsw"    json:"hnsw"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"             json:"port"`
	MaxRequestSize int `mapstructure:"max_request_size" json:"max_request_size"`
}

type LogConfig struct {
	Level string `mapstructure:"level" json:"level"`
}

type AuthConfig struct {
	Secret   string `mapstructure:"secret"   json:"-"`
	Required bool   `mapstructure:"required" json:"required"`
}

type TasksConfig struct {
	// EmbedOnStart queues every product without an embedding when the server starts
	EmbedOnStart bool `mapstructure:"embed_on_start" json:"embed_on_start"`
}

// CustomPromptsConfig overrides the built-in prompt templates when set
type CustomPromptsConfig struct {
	ChunkSummary       string `mapstructure:"chunk_summary"       json:"chunk_summary"`
	MergeSummaries     string `mapstructure:"merge_summaries"     json:"merge_summaries"`
	RefineQuery        string `mapstructure:"refine_query"        json:"refine_query"`
	ProductDescription string `mapstructure:"product_description" json:"product_description"`
}
