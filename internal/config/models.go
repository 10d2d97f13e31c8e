package config

import "time"

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey    string
	ModelName string
	TopP      float32
	Timeout   time.Duration
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region  string
	ModelID string
	TopP    float32
	Timeout time.Duration
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey    string
	ModelName string
	TopP      float32
	Timeout   time.Duration
}

// IMAPConfig represents the configuration for the mailbox connection
type IMAPConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	Folder             string
	BackfillWindow     time.Duration
	InsecureSkipVerify bool
	IdleTimeout        time.Duration
}

// Enabled reports whether enough credentials are present to sync a mailbox.
func (c IMAPConfig) Enabled() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

// IngestConfig represents the configuration for the ingestion pipeline
type IngestConfig struct {
	TruncateLength   int
	UpsertRetries    int
	RetryBackoff     time.Duration
	NotifyCategories []string
}

// StoreConfig represents the configuration for the email store
type StoreConfig struct {
	Type            string
	Index           string
	SearchLimit     int
	ElasticAddrs    []string
	ElasticUsername string
	ElasticPassword string
	SQLitePath      string
	MySQLDSN        string
}

// SlackConfig represents the configuration for Slack notifications
type SlackConfig struct {
	Token   string
	Channel string
}

// Enabled reports whether Slack alerts can be delivered.
func (c SlackConfig) Enabled() bool {
	return c.Token != "" && c.Channel != ""
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	timeout, err := c.GetDuration("openai.timeout")
	if err != nil {
		timeout = 30 * time.Second
	}
	return OpenAIConfig{
		APIKey:    c.GetString("openai.api_key"),
		ModelName: c.GetString("openai.model_name"),
		TopP:      float32(c.GetFloat64("openai.top_p")),
		Timeout:   timeout,
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	timeout, err := c.GetDuration("bedrock.timeout")
	if err != nil {
		timeout = 30 * time.Second
	}
	return BedrockConfig{
		Region:  c.GetString("bedrock.region"),
		ModelID: c.GetString("bedrock.model_id"),
		TopP:    float32(c.GetFloat64("bedrock.top_p")),
		Timeout: timeout,
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	timeout, err := c.GetDuration("gemini.timeout")
	if err != nil {
		timeout = 30 * time.Second
	}
	return GeminiConfig{
		APIKey:    c.GetString("gemini.api_key"),
		ModelName: c.GetString("gemini.model_name"),
		TopP:      float32(c.GetFloat64("gemini.top_p")),
		Timeout:   timeout,
	}
}

// GetIMAP returns the mailbox configuration
func (c *Config) GetIMAP() IMAPConfig {
	window, err := c.GetDuration("imap.backfill_window")
	if err != nil {
		window = 30 * 24 * time.Hour
	}
	idle, err := c.GetDuration("imap.idle_timeout")
	if err != nil {
		idle = 20 * time.Minute
	}
	return IMAPConfig{
		Host:               c.GetString("imap.host"),
		Port:               c.GetInt("imap.port"),
		Username:           c.GetString("imap.username"),
		Password:           c.GetString("imap.password"),
		Folder:             c.GetString("imap.folder"),
		BackfillWindow:     window,
		InsecureSkipVerify: c.GetBool("imap.insecure_skip_verify"),
		IdleTimeout:        idle,
	}
}

// GetIngest returns the ingestion pipeline configuration
func (c *Config) GetIngest() IngestConfig {
	backoff, err := c.GetDuration("ingest.retry_backoff")
	if err != nil {
		backoff = 2 * time.Second
	}
	return IngestConfig{
		TruncateLength:   c.GetInt("ingest.truncate_length"),
		UpsertRetries:    c.GetInt("ingest.upsert_retries"),
		RetryBackoff:     backoff,
		NotifyCategories: c.GetStringSlice("ingest.notify_categories"),
	}
}

// GetStore returns the email store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:            c.GetString("store.type"),
		Index:           c.GetString("store.index"),
		SearchLimit:     c.GetInt("store.search_limit"),
		ElasticAddrs:    c.GetStringSlice("store.elastic.addresses"),
		ElasticUsername: c.GetString("store.elastic.username"),
		ElasticPassword: c.GetString("store.elastic.password"),
		SQLitePath:      c.GetString("store.sqlite_path"),
		MySQLDSN:        c.GetString("store.mysql_dsn"),
	}
}

// GetSlack returns the Slack configuration
func (c *Config) GetSlack() SlackConfig {
	return SlackConfig{
		Token:   c.GetString("slack.token"),
		Channel: c.GetString("slack.channel"),
	}
}
