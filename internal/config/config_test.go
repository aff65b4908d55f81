package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
[server]
port = 8080

[discord]
token = "bot-token"

[vault]
root = "/tmp/vault"
`

func TestLoadAndValidateAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, []string{"cdn.discordapp.com", "media.discordapp.net"}, cfg.Discord.AllowedDownloadHosts)
	assert.Equal(t, 50, cfg.Discord.MaxDownloadSizeMB)
	assert.Equal(t, 512, cfg.Discord.DedupWindowMessages)
	assert.Equal(t, "Audio", cfg.Vault.AudioSubfolder)
	assert.Equal(t, "Inbox", cfg.Vault.NotesSubfolder)
	assert.Equal(t, "ja-JP", cfg.Speech.Language)
	assert.Equal(t, "latest_long", cfg.Speech.Model)
	assert.Equal(t, 3, cfg.Speech.RetryMaxAttempts)
	assert.Equal(t, 2000, cfg.Speech.RetryInitialBackoffMs)
	assert.Equal(t, 10000, cfg.Speech.RetryMaxBackoffMs)
	assert.Equal(t, 0.5, cfg.Speech.MinDurationSecs)
	assert.Equal(t, -60.0, cfg.Speech.MinLoudnessDBFS)
	assert.Equal(t, "data", cfg.Storage.SQLiteBasePath)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing port", func(c *Config) { c.Server.Port = 0 }, "port"},
		{"missing token", func(c *Config) { c.Discord.Token = "" }, "token"},
		{"missing vault root", func(c *Config) { c.Vault.Root = "" }, "vault root"},
		{"unknown notes provider", func(c *Config) { c.Notes.Provider = "claude" }, "provider"},
		{"openai without key", func(c *Config) { c.Notes.Provider = "openai" }, "api key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, minimalConfig))
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadSecretsFromEnv(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "env-token")
	t.Setenv("GOOGLE_SPEECH_API_KEY", "env-speech-key")

	cfg, err := Load(writeConfig(t, `
[server]
port = 8080

[vault]
root = "/tmp/vault"
`))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Discord.Token)
	assert.Equal(t, "env-speech-key", cfg.Speech.GoogleAPIKey)
}

func TestConfigFileValuesBeatEnv(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "env-token")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, "bot-token", cfg.Discord.Token)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
