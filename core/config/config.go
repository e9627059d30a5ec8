package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot transport settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RateLimitConfig holds settings for per-user rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	Burst          int      `yaml:"burst" envconfig:"RATE_LIMIT_BURST"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// ChannelConfig names the channel whose members may use the bot.
type ChannelConfig struct {
	Username       string `yaml:"username" envconfig:"CHANNEL_USERNAME"`
	CheckTimeoutMS int    `yaml:"check_timeout_ms" envconfig:"CHANNEL_CHECK_TIMEOUT_MS"`
}

// ExtractionConfig controls the video metadata source.
type ExtractionConfig struct {
	TimeoutMS int    `yaml:"timeout_ms" envconfig:"EXTRACTION_TIMEOUT_MS"`
	Endpoint  string `yaml:"endpoint" envconfig:"EXTRACTION_ENDPOINT"`
}

// TopicsConfig controls topic idea generation.
type TopicsConfig struct {
	APIKey    string `yaml:"api_key" envconfig:"GEMINI_API_KEY"`
	Model     string `yaml:"model" envconfig:"GEMINI_MODEL"`
	MaxTokens int    `yaml:"max_tokens" envconfig:"TOPICS_MAX_TOKENS"`
	TimeoutMS int    `yaml:"timeout_ms" envconfig:"TOPICS_TIMEOUT_MS"`
}

// DatabaseConfig holds optional Postgres connection settings.
type DatabaseConfig struct {
	Enabled        bool   `yaml:"enabled" envconfig:"DB_ENABLED"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// SessionConfig controls pending menu selections.
type SessionConfig struct {
	// TTLMinutes drops selections left unused this long; 0 keeps them until used.
	TTLMinutes int `yaml:"ttl_minutes" envconfig:"SESSION_TTL_MINUTES"`
}

// HistoryConfig sizes the in-memory interaction history used without a database.
type HistoryConfig struct {
	MemoryCapacity int `yaml:"memory_capacity" envconfig:"HISTORY_MEMORY_CAPACITY"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

const (
	defaultCheckTimeoutMS      = 3000
	defaultExtractionTimeoutMS = 10000
	defaultTopicsTimeoutMS     = 15000
	defaultTopicsMaxTokens     = 300
	defaultTopicsModel         = "gemini-2.5-flash"
	defaultInnertubeEndpoint   = "https://www.youtube.com/youtubei/v1/player"
	defaultHistoryCapacity     = 1000
)

// Config aggregates bot configuration.
type Config struct {
	Telegram   TelegramConfig   `yaml:"telegram"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Logging    LoggingConfig    `yaml:"logging"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Channel    ChannelConfig    `yaml:"channel"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Topics     TopicsConfig     `yaml:"topics"`
	Database   DatabaseConfig   `yaml:"database"`
	History    HistoryConfig    `yaml:"history"`
	Session    SessionConfig    `yaml:"session"`
}

// CoreConfig lets *Config satisfy the runner's config carrier interface.
func (c *Config) CoreConfig() *Config {
	return c
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs validation of required configuration fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if err := normalizeRunMode(cfg); err != nil {
		return err
	}
	if err := normalizeRateLimit(cfg); err != nil {
		return err
	}

	cfg.Channel.Username = ChannelUsername(cfg.Channel.Username)
	if cfg.Channel.Username == "" {
		return fmt.Errorf("channel.username is required")
	}
	if cfg.Channel.CheckTimeoutMS <= 0 {
		cfg.Channel.CheckTimeoutMS = defaultCheckTimeoutMS
	}

	if cfg.Extraction.TimeoutMS <= 0 {
		cfg.Extraction.TimeoutMS = defaultExtractionTimeoutMS
	}
	if strings.TrimSpace(cfg.Extraction.Endpoint) == "" {
		cfg.Extraction.Endpoint = defaultInnertubeEndpoint
	}

	cfg.Topics.APIKey = strings.TrimSpace(cfg.Topics.APIKey)
	if strings.TrimSpace(cfg.Topics.Model) == "" {
		cfg.Topics.Model = defaultTopicsModel
	}
	if cfg.Topics.MaxTokens <= 0 {
		cfg.Topics.MaxTokens = defaultTopicsMaxTokens
	}
	if cfg.Topics.TimeoutMS <= 0 {
		cfg.Topics.TimeoutMS = defaultTopicsTimeoutMS
	}

	if cfg.Database.Enabled {
		if strings.TrimSpace(cfg.Database.Host) == "" || strings.TrimSpace(cfg.Database.Name) == "" {
			return fmt.Errorf("database.host and database.name are required when database.enabled is true")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 5
		}
	}

	if cfg.Session.TTLMinutes < 0 {
		return fmt.Errorf("session.ttl_minutes must be >= 0")
	}

	if cfg.History.MemoryCapacity <= 0 {
		cfg.History.MemoryCapacity = defaultHistoryCapacity
	}
	return nil
}

func normalizeRunMode(cfg *Config) error {
	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm
	return nil
}

func normalizeRateLimit(cfg *Config) error {
	if cfg.RateLimit.IntervalMS < 0 {
		return fmt.Errorf("rate_limit.interval_ms must be >= 0")
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 1
	}
	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	return nil
}

// ChannelUsername strips "@", "t.me/" and URL prefixes from a channel reference.
func ChannelUsername(raw string) string {
	s := strings.TrimSpace(raw)
	for _, prefix := range []string{"https://", "http://"} {
		s = strings.TrimPrefix(s, prefix)
	}
	for _, prefix := range []string{"www.t.me/", "t.me/", "telegram.me/"} {
		if strings.HasPrefix(strings.ToLower(s), prefix) {
			s = s[len(prefix):]
			break
		}
	}
	s = strings.TrimPrefix(s, "@")
	s = strings.TrimRight(s, "/")
	return s
}

// JoinURL returns the public join link for the configured channel.
func (c ChannelConfig) JoinURL() string {
	return "https://t.me/" + c.Username
}
