package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc"},
		Channel:  ChannelConfig{Username: "@tubechannel"},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Normalize(cfg))

	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, "tubechannel", cfg.Channel.Username)
	assert.Equal(t, defaultCheckTimeoutMS, cfg.Channel.CheckTimeoutMS)
	assert.Equal(t, defaultExtractionTimeoutMS, cfg.Extraction.TimeoutMS)
	assert.Equal(t, defaultInnertubeEndpoint, cfg.Extraction.Endpoint)
	assert.Equal(t, defaultTopicsModel, cfg.Topics.Model)
	assert.Equal(t, defaultTopicsMaxTokens, cfg.Topics.MaxTokens)
	assert.Equal(t, 1, cfg.RateLimit.Burst)
	assert.Equal(t, defaultHistoryCapacity, cfg.History.MemoryCapacity)
}

func TestNormalizeRejectsMissingFields(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.Token = ""
	assert.ErrorContains(t, Normalize(cfg), "token")

	cfg = validConfig()
	cfg.Channel.Username = "  @ "
	assert.ErrorContains(t, Normalize(cfg), "channel.username")

	cfg = validConfig()
	cfg.Telegram.RunMode = "webhook"
	assert.ErrorContains(t, Normalize(cfg), "webhook.url")

	cfg = validConfig()
	cfg.Telegram.RunMode = "carrier-pigeon"
	assert.ErrorContains(t, Normalize(cfg), "invalid telegram.run_mode")

	cfg = validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{"inline_query"}
	assert.ErrorContains(t, Normalize(cfg), "rate_limit.exclude_updates")

	cfg = validConfig()
	cfg.Database.Enabled = true
	assert.ErrorContains(t, Normalize(cfg), "database.host")
}

func TestNormalizeDatabaseDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Database = DatabaseConfig{Enabled: true, Host: "db", Name: "tubebot"}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 5, cfg.Database.MaxConnections)
}

func TestChannelUsername(t *testing.T) {
	cases := map[string]string{
		"tubechannel":                   "tubechannel",
		"@tubechannel":                  "tubechannel",
		"https://t.me/tubechannel":      "tubechannel",
		"t.me/tubechannel/":             "tubechannel",
		"http://telegram.me/tubechannel": "tubechannel",
		"   ":                           "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ChannelUsername(in), "input %q", in)
	}
	assert.Equal(t, "https://t.me/tubechannel", ChannelConfig{Username: "tubechannel"}.JoinURL())
}

func TestLoadOverlaysEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := []byte(`
telegram:
  token: "from-file"
channel:
  username: "filechannel"
topics:
  model: "gemini-2.5-flash-lite"
`)
	require.NoError(t, os.WriteFile(path, yml, 0o600))

	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("CHANNEL_USERNAME", "@envchannel")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, "envchannel", cfg.Channel.Username)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.Topics.Model)
	assert.Same(t, cfg, cfg.CoreConfig())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}
