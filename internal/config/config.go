package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config carries everything the assistant and bot processes read from the
// environment. Values are immutable after Load.
type Config struct {
	Gemini struct {
		APIKey string `envconfig:"GEMINI_API_KEY"`
		Model  string `envconfig:"GEMINI_MODEL" default:"gemini-3-pro-preview"`
	}

	// Channel is the bot-side session credential. The channel bridge
	// (Telegram/WhatsApp session) authenticates its webhook calls with it.
	Channel struct {
		Token  string `envconfig:"CHANNEL_TOKEN"`
		Source string `envconfig:"CHANNEL_SOURCE" default:"telegram"`
	}

	BigQuery struct {
		ProjectID string `envconfig:"BQ_PROJECT_ID"`
		Dataset   string `envconfig:"BQ_DATASET" default:"finance"`
	}

	GCS struct {
		Bucket string `envconfig:"GCS_BUCKET"`
	}

	Server struct {
		Port    int `envconfig:"PORT" default:"8080"`
		Workers int `envconfig:"WORKERS" default:"5"`
	}

	State struct {
		Dir string `envconfig:"STATE_DIR" default:".finance-pro"`
	}
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// ValidateAssistant checks the web-channel process requirements.
func (c *Config) ValidateAssistant() error {
	return requireAll(map[string]string{
		"GEMINI_API_KEY": c.Gemini.APIKey,
	})
}

// ValidateBot checks the bot process requirements: one model-access
// credential and one channel-session credential. Either missing is a fatal
// startup condition.
func (c *Config) ValidateBot() error {
	return requireAll(map[string]string{
		"GEMINI_API_KEY": c.Gemini.APIKey,
		"CHANNEL_TOKEN":  c.Channel.Token,
	})
}

// requireAll reports every missing variable by name so the startup
// diagnostic identifies exactly what to set.
func requireAll(required map[string]string) error {
	var missing []string
	for name, value := range required {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("missing required credential(s): %s", strings.Join(missing, ", "))
}
