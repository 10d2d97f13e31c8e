package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/email-onebox/")
	v.AddConfigPath("$HOME/.email-onebox")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("ONEBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM provider defaults
	v.SetDefault("llm.provider", "openai")

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.timeout", "30s")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.timeout", "30s")

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.timeout", "30s")

	// Classification defaults
	v.SetDefault("classify.temperature", 0.3)
	v.SetDefault("classify.max_tokens", 20)

	// Reply suggestion defaults
	v.SetDefault("reply.temperature", 0.75)
	v.SetDefault("reply.max_tokens", 300)

	// IMAP defaults
	v.SetDefault("imap.host", "")
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.password", "")
	v.SetDefault("imap.folder", "INBOX")
	v.SetDefault("imap.backfill_window", "720h")
	v.SetDefault("imap.insecure_skip_verify", false)
	v.SetDefault("imap.idle_timeout", "20m")

	// Ingestion defaults
	v.SetDefault("ingest.truncate_length", 1500)
	v.SetDefault("ingest.upsert_retries", 2)
	v.SetDefault("ingest.retry_backoff", "2s")
	v.SetDefault("ingest.notify_categories", []string{"Interested", "Meeting Booked"})

	// Store defaults
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.index", "emails")
	v.SetDefault("store.search_limit", 100)
	v.SetDefault("store.elastic.addresses", []string{"http://localhost:9200"})
	v.SetDefault("store.elastic.username", "")
	v.SetDefault("store.elastic.password", "")
	v.SetDefault("store.sqlite_path", "/data/onebox.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/onebox?parseTime=true")

	// Slack defaults
	v.SetDefault("slack.token", "")
	v.SetDefault("slack.channel", "")

	// Server defaults
	v.SetDefault("server.listen_address", "0.0.0.0:8080")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
