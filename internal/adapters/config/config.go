package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"manbo/pkg/errors"
)

type Config struct {
	App           AppConfig
	Server        ServerConfig
	AI            AIConfig
	Analysis      AnalysisConfig
	News          NewsConfig
	Social        SocialConfig
	Redis         RedisConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"manbo"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type ServerConfig struct {
	Port int `envconfig:"PORT" default:"8000"`
}

type AIConfig struct {
	OpenAIKey   string `envconfig:"OPENAI_API_KEY"`
	DeepSeekKey string `envconfig:"DEEPSEEK_API_KEY"`
	GeminiKey   string `envconfig:"GEMINI_API_KEY"`

	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4o"`
	DeepSeekModel string `envconfig:"DEEPSEEK_MODEL" default:"deepseek-chat"`
	GeminiModel   string `envconfig:"GEMINI_MODEL" default:"gemini-1.5-pro"`

	DefaultProvider string        `envconfig:"DEFAULT_AI_PROVIDER" default:"openai"`
	RequestTimeout  time.Duration `envconfig:"AI_REQUEST_TIMEOUT" default:"120s"`
	ReqPerMinute    float64       `envconfig:"AI_REQUESTS_PER_MINUTE" default:"60"`
	MaxTokens       int           `envconfig:"AI_MAX_TOKENS" default:"4096"`
	Temperature     float64       `envconfig:"AI_TEMPERATURE" default:"0.7"`
}

// AnalysisConfig bounds the job engine: pool size, queue depth and the
// round caps that guarantee every agent loop terminates.
type AnalysisConfig struct {
	Workers       int           `envconfig:"ANALYSIS_WORKERS" default:"4"`
	QueueSize     int           `envconfig:"ANALYSIS_QUEUE_SIZE" default:"64"`
	MaxToolRounds int           `envconfig:"ANALYSIS_MAX_TOOL_ROUNDS" default:"6"`
	ToolTimeout   time.Duration `envconfig:"ANALYSIS_TOOL_TIMEOUT" default:"30s"`
	Analysts      []string      `envconfig:"ANALYSIS_DEFAULT_ANALYSTS" default:"market,fundamentals,news,social"`
}

type NewsConfig struct {
	Endpoint string `envconfig:"NEWS_API_ENDPOINT" default:"https://newsapi.org/v2/everything"`
	APIKey   string `envconfig:"NEWS_API_KEY"`
}

type SocialConfig struct {
	Endpoint  string `envconfig:"SOCIAL_SEARCH_ENDPOINT" default:"https://www.reddit.com/search.json"`
	UserAgent string `envconfig:"SOCIAL_USER_AGENT" default:"manbo/1.0"`
}

type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from the environment, with .env support for
// local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Analysis.Workers < 1 {
		return errors.Wrapf(errors.ErrInvalidInput, "ANALYSIS_WORKERS must be >= 1, got %d", c.Analysis.Workers)
	}
	if c.Analysis.QueueSize < 1 {
		return errors.Wrapf(errors.ErrInvalidInput, "ANALYSIS_QUEUE_SIZE must be >= 1, got %d", c.Analysis.QueueSize)
	}
	if c.Analysis.MaxToolRounds < 1 {
		return errors.Wrapf(errors.ErrInvalidInput, "ANALYSIS_MAX_TOOL_ROUNDS must be >= 1, got %d", c.Analysis.MaxToolRounds)
	}

	switch strings.ToLower(c.AI.DefaultProvider) {
	case "openai", "deepseek", "gemini":
	default:
		return errors.Wrapf(errors.ErrInvalidInput, "unknown DEFAULT_AI_PROVIDER %q", c.AI.DefaultProvider)
	}

	return nil
}
