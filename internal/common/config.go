package common

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all application configuration, read from the environment.
type Config struct {
	Database DatabaseConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	Worker   WorkerConfig
}

type DatabaseConfig struct {
	DSN              string        `env:"DB_URL"`
	MaxConns         int32         `env:"DB_MAX_CONNS" env-default:"20"`
	MinConns         int32         `env:"DB_MIN_CONNS" env-default:"5"`
	MaxConnLifetime  time.Duration `env:"DB_MAX_CONN_LIFETIME" env-default:"30m"`
	MaxConnIdleTime  time.Duration `env:"DB_MAX_CONN_IDLE_TIME" env-default:"5m"`
	DialTimeout      time.Duration `env:"DB_DIAL_TIMEOUT" env-default:"3s"`
	StatementTimeout time.Duration `env:"DB_STATEMENT_TIMEOUT" env-default:"0"`
}

type LLMConfig struct {
	BaseURL     string        `env:"LLM_BASE_URL" env-default:"https://api.openai.com/v1"`
	VisionModel string        `env:"LLM_VISION_MODEL" env-default:"gpt-4o"`
	TextModel   string        `env:"LLM_TEXT_MODEL" env-default:"gpt-4o-mini"`
	APIKey      string        `env:"OPENAI_API_KEY"`
	Temperature float32       `env:"LLM_TEMPERATURE" env-default:"0"`
	Timeout     time.Duration `env:"LLM_TIMEOUT" env-default:"90s"`
}

type PipelineConfig struct {
	OCRAttempts         int `env:"PIPELINE_OCR_ATTEMPTS" env-default:"2"`
	StructuringAttempts int `env:"PIPELINE_STRUCTURING_ATTEMPTS" env-default:"2"`
}

type WorkerConfig struct {
	Workers      int           `env:"WORKER_COUNT" env-default:"4"`
	QueueSize    int           `env:"WORKER_QUEUE_SIZE" env-default:"64"`
	PollInterval time.Duration `env:"WORKER_POLL_INTERVAL" env-default:"5s"`
	PollBatch    int           `env:"WORKER_POLL_BATCH" env-default:"16"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, WrapError(err, "read environment")
	}
	return &cfg, nil
}

// Validate checks the settings a running service cannot do without.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	return nil
}
