package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	// App
	Env      string `split_words:"true" default:"prod"`
	LogLevel string `split_words:"true" default:"info" validate:"oneof=debug info warn error"`

	// GitHub. GITHUB_TOKEN is also read without the prefix.
	GithubToken string `envconfig:"GITHUB_TOKEN"`
	BaseURL     string `split_words:"true" default:"https://api.github.com/" validate:"url"`

	// GitHub App installation, an alternative to a personal token
	GithubAppClientID       string `split_words:"true"`
	GithubAppPrivateKey     string `split_words:"true" validate:"required_with=GithubAppClientID"`
	GithubAppInstallationID int64  `split_words:"true" validate:"required_with=GithubAppClientID"`

	// Redis stream sink, disabled when RedisURL is empty
	RedisURL          string        `split_words:"true" validate:"omitempty,url"`
	RedisStream       string        `split_words:"true" default:"activity:records" validate:"required"`
	RedisStreamMaxLen int64         `split_words:"true" default:"10000" validate:"gt=0"`
	RedisConnTimeout  time.Duration `split_words:"true" default:"3s" validate:"gt=0"`

	// OpenAI summary, only needed with --summarize
	OpenaiApiKey string `split_words:"true"`
	OpenaiModel  string `split_words:"true" default:"gpt-4o" validate:"required"`

	// Performance tuning
	GithubConcurrency   int           `split_words:"true" default:"4" validate:"gt=0"`
	GithubRateLimit     int           `split_words:"true" default:"30" validate:"gt=0"`
	GithubCoreRateLimit int           `split_words:"true" default:"80" validate:"gt=0"`
	OpenaiRateLimit     int           `split_words:"true" default:"50" validate:"gt=0"`
	CacheSize           int           `split_words:"true" default:"1000" validate:"gt=0"`
	CacheTTL            time.Duration `envconfig:"CACHE_TTL" default:"10m" validate:"gt=0"`
	BackoffMin          time.Duration `split_words:"true" default:"1s" validate:"gt=0"`
	BackoffMax          time.Duration `split_words:"true" default:"30s" validate:"gtefield=BackoffMin"`
	HTTPClientTimeout   time.Duration `split_words:"true" default:"30s" validate:"gt=0"`
	MaxRetries          int           `split_words:"true" default:"3" validate:"gte=0"`
}

type Loader struct {
	Prefix   string
	Validate *validator.Validate
}
