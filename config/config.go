package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

var ErrNoCredentials = errors.New("no GitHub credentials configured")

func NewLoader(prefix string) *Loader {
	v := validator.New()
	return &Loader{Prefix: prefix, Validate: v}
}

func (l *Loader) Load() (Config, error) {
	var cfg Config

	if err := loadDotEnv(); err != nil {
		logrus.Debugf("dotenv: %v", err)
	}
	if err := envconfig.Process(l.Prefix, &cfg); err != nil {
		return cfg, fmt.Errorf("env load: %w", err)
	}

	cfg.GithubToken = strings.TrimSpace(cfg.GithubToken)
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}

	if err := l.Validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("config validation: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"env":        cfg.Env,
		"logLevel":   cfg.LogLevel,
		"token_set":  cfg.GithubToken != "",
		"app_auth":   cfg.HasAppAuth(),
		"redis_set":  cfg.RedisURL != "",
		"openai_set": cfg.OpenaiApiKey != "",
	}).Debug("config loaded")

	return cfg, nil
}

func (c Config) HasAppAuth() bool {
	return c.GithubAppClientID != "" && c.GithubAppPrivateKey != "" && c.GithubAppInstallationID != 0
}

// CheckCredentials reports ErrNoCredentials when neither a token nor a
// complete GitHub App installation is configured.
func (c Config) CheckCredentials() error {
	if c.GithubToken == "" && !c.HasAppAuth() {
		return ErrNoCredentials
	}
	return nil
}

// PrivateKey returns the PEM for GitHub App auth. The setting may hold the
// PEM itself or a path to it.
func (c Config) PrivateKey() ([]byte, error) {
	key := c.GithubAppPrivateKey
	if strings.Contains(key, "-----BEGIN") {
		return []byte(key), nil
	}
	if !fileExists(key) {
		return nil, fmt.Errorf("github app private key: %q is neither a PEM nor a readable file", key)
	}
	b, err := os.ReadFile(key)
	if err != nil {
		return nil, fmt.Errorf("github app private key: %w", err)
	}
	return b, nil
}

func loadDotEnv() error {
	files := []string{".env"}

	if appEnv := strings.TrimSpace(os.Getenv("APP_ENV")); appEnv != "" {
		files = append(files, ".env."+appEnv)
	}
	if goEnv := strings.TrimSpace(os.Getenv("GO_ENV")); goEnv != "" && goEnv != os.Getenv("APP_ENV") {
		files = append(files, ".env."+goEnv)
	}

	var loadedAny bool
	for _, f := range files {
		if fileExists(f) {
			if err := godotenv.Overload(f); err != nil {
				logrus.Warnf("dotenv: failed loading %s: %v", f, err)
				continue
			}
			loadedAny = true
		}
	}

	if !loadedAny {
		return fmt.Errorf("no .env files found (looked for: %s)", strings.Join(files, ", "))
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
