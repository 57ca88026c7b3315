package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	Redis struct {
		Address  string `mapstructure:"address"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Embedding struct {
		Provider     string `mapstructure:"provider"` // "openai" or "gemini"
		Model        string `mapstructure:"model"`
		OpenaiApiKey string `mapstructure:"openai_api_key"`
		GoogleApiKey string `mapstructure:"google_api_key"`
		GeminiModel  string `mapstructure:"gemini_model"`
		Dimension    int    `mapstructure:"dimension"`
	} `mapstructure:"embedding"`

	Generation struct {
		Enabled           bool   `mapstructure:"enabled"`
		Provider          string `mapstructure:"provider"` // "openai" or "gemini"
		Model             string `mapstructure:"model"`
		ResponseMaxTokens int    `mapstructure:"response_max_tokens"`
		SummaryMaxTokens  int    `mapstructure:"summary_max_tokens"`
	} `mapstructure:"generation"`

	Triage struct {
		TopK                int     `mapstructure:"top_k"`
		ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
		CallTimeoutMs       int     `mapstructure:"call_timeout_ms"`
	} `mapstructure:"triage"`

	Ingest struct {
		BatchSize    int `mapstructure:"batch_size"`
		BatchDelayMs int `mapstructure:"batch_delay_ms"`
	} `mapstructure:"ingest"`

	Worker struct {
		Concurrency int            `mapstructure:"concurrency"`
		Queues      map[string]int `mapstructure:"queues"`
	} `mapstructure:"worker"`

	Server struct {
		Addr string `mapstructure:"addr"`
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".") // Look for config.yaml in the current directory

	viper.AutomaticEnv()
	// Bind the well-known environment variables directly so keys can be
	// supplied without a config file.
	viper.BindEnv("embedding.openai_api_key", "OPENAI_API_KEY")
	viper.BindEnv("embedding.google_api_key", "GEMINI_API_KEY")
	viper.BindEnv("database.dsn", "DATABASE_URL")
	viper.BindEnv("redis.address", "REDIS_ADDR")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// The config file is optional; env vars and defaults may suffice.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults() {
	viper.SetDefault("embedding.provider", "openai")
	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.gemini_model", "models/embedding-001")
	viper.SetDefault("embedding.dimension", 1536)

	viper.SetDefault("generation.enabled", true)
	viper.SetDefault("generation.provider", "openai")
	viper.SetDefault("generation.model", "gpt-4o-mini")
	viper.SetDefault("generation.response_max_tokens", 850)
	viper.SetDefault("generation.summary_max_tokens", 120)

	viper.SetDefault("triage.top_k", 5)
	viper.SetDefault("triage.confidence_threshold", 0.65)
	viper.SetDefault("triage.call_timeout_ms", 30000)

	viper.SetDefault("ingest.batch_size", 100)
	viper.SetDefault("ingest.batch_delay_ms", 1000)

	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("worker.concurrency", 2)
	viper.SetDefault("worker.queues", map[string]int{"ingest": 1})

	viper.SetDefault("server.addr", "0.0.0.0")
	viper.SetDefault("server.port", "8000")
}
