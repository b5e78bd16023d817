package config

import (
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/vitrinhq/vitrin/internal"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// We're bootstrapping so avoid any imports from other packages
var log = logrus.New()

var defaultConfig = Config{
	LLM: LLM{
		Service: "openai",
		Model:   "gpt-4o-mini",
	},
	EmbeddingsClient: EmbeddingsClientConfig{
		Service:    "local",
		Model:      "all-MiniLM-L6-v2",
		Dimensions: 384,
		Timeout:    30 * time.Second,
	},
	Sentiment: SentimentConfig{
		Timeout: 30 * time.Second,
	},
	Transcription: TranscriptionConfig{
		Model:    "whisper-1",
		Language: "tr",
		Timeout:  60 * time.Second,
	},
	Search: SearchConfig{
		DefaultLimit: 10,
		MaxLimit:     100,
	},
	Analysis: AnalysisConfig{
		ChunkSize:      50,
		MaxConcurrency: 4,
		CallTimeout:    60 * time.Second,
	},
	Store: StoreConfig{
		Type: "postgres",
	},
	Server: ServerConfig{
		Port:           8000,
		MaxRequestSize: 5 << 20,
	},
	Log: LogConfig{
		Level: "info",
	},
}

// envBindings maps secrets to the env vars they are read from
var envBindings = map[string]string{
	"llm.openai_api_key":        "VITRIN_OPENAI_API_KEY",
	"llm.anthropic_api_key":     "VITRIN_ANTHROPIC_API_KEY",
	"llm.google_api_key":        "VITRIN_GOOGLE_API_KEY",
	"embeddings.openai_api_key": "VITRIN_EMBEDDINGS_OPENAI_API_KEY",
	"embeddings.server_url":     "VITRIN_EMBEDDINGS_SERVER_URL",
	"sentiment.api_key":         "VITRIN_SENTIMENT_API_KEY",
	"sentiment.server_url":      "VITRIN_SENTIMENT_SERVER_URL",
	"transcription.api_key":     "VITRIN_TRANSCRIPTION_API_KEY",
	"transcription.server_url":  "VITRIN_TRANSCRIPTION_SERVER_URL",
	"store.postgres.dsn":        "VITRIN_STORE_POSTGRES_DSN",
	"auth.secret":               "VITRIN_AUTH_SECRET",
}

// LoadConfig loads the config file and ENV variables into a Config struct
func LoadConfig(configFile string) (*Config, error) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	}

	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("VITRIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	// Environment variables take precedence over config file
	loadDotEnv()

	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("Error binding environment variable: %s", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := ApplyDefaults(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills any unset fields in cfg with their default values
func ApplyDefaults(cfg *Config) error {
	return mergo.Merge(cfg, defaultConfig)
}

// Default returns a copy of the default configuration
func Default() *Config {
	cfg := defaultConfig
	return &cfg
}

// loadDotEnv loads environment variables from .env file
func loadDotEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Warn(".env file not found or unable to load")
	}
}

// SetLogLevel sets the log level based on the config file. Defaults to INFO if not set or invalid
func SetLogLevel(cfg *Config) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	internal.SetLogLevel(level)
	log.Info("Log level set to: ", level)
}
