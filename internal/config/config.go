package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server  ServerConfig  `toml:"server"`  // HTTP admin API settings
	Discord DiscordConfig `toml:"discord"` // Discord gateway settings
	Vault   VaultConfig   `toml:"vault"`   // Obsidian vault persistence settings
	Speech  SpeechConfig  `toml:"speech"`  // Speech-to-text pipeline settings
	Notes   NotesConfig   `toml:"notes"`   // AI summarization/classification settings
	Logging LoggingConfig `toml:"logging"` // Application logging settings
	Storage StorageConfig `toml:"storage"` // Data persistence settings
}

// ServerConfig contains HTTP admin API configuration settings
type ServerConfig struct {
	Port             int    `toml:"port"`                  // HTTP port for the admin API
	Host             string `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only)
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Maximum duration for writing the response
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request on keep-alive
}

// DiscordConfig contains Discord gateway and attachment download settings
type DiscordConfig struct {
	Token                string   `toml:"token"`                   // Bot token (falls back to DISCORD_BOT_TOKEN env var)
	AllowedDownloadHosts []string `toml:"allowed_download_hosts"`  // Hosts attachments may be downloaded from
	MaxDownloadSizeMB    int      `toml:"max_download_size_mb"`    // Maximum attachment payload size in megabytes
	DownloadTimeoutSecs  int      `toml:"download_timeout_secs"`   // HTTP timeout for attachment downloads in seconds
	DedupWindowMessages  int      `toml:"dedup_window_messages"`   // Number of recent message identities kept for dedup
	MaxIdleConns         int      `toml:"max_idle_conns"`          // Connection pool cap for the download client
	MaxIdleConnsPerHost  int      `toml:"max_idle_conns_per_host"` // Per-host connection pool cap
}

// VaultConfig contains Obsidian vault persistence settings
type VaultConfig struct {
	Root           string `toml:"root"`            // Vault root directory on disk
	AudioSubfolder string `toml:"audio_subfolder"` // Subfolder for fallback-saved audio files (default "Audio")
	NotesSubfolder string `toml:"notes_subfolder"` // Subfolder for generated notes (default "Inbox")
}

// SpeechConfig contains settings for the speech-to-text pipeline
type SpeechConfig struct {
	// Google Speech API settings
	GoogleAPIKey  string `toml:"google_api_key"`      // API key (falls back to GOOGLE_SPEECH_API_KEY env var)
	GoogleBaseURL string `toml:"google_api_base_url"` // Optional base URL override (e.g., for proxies)
	Model         string `toml:"model"`               // Recognition model (e.g., "latest_long")
	Language      string `toml:"language"`            // Primary language for transcription (e.g., "ja-JP")

	// Quota settings
	MonthlyLimitMinutes float64 `toml:"monthly_limit_minutes"` // Monthly transcription quota in minutes (0 = unlimited)

	// API retry settings
	RetryMaxAttempts      int `toml:"retry_max_attempts"`       // Maximum number of API call attempts
	RetryInitialBackoffMs int `toml:"retry_initial_backoff_ms"` // Initial backoff time in milliseconds
	RetryMaxBackoffMs     int `toml:"retry_max_backoff_ms"`     // Maximum backoff time in milliseconds
	TimeoutSeconds        int `toml:"timeout_seconds"`          // HTTP timeout for speech API requests in seconds

	// Placeholder engine used when no real engine is configured
	EnableMockEngine bool `toml:"enable_mock_engine"` // Register the local placeholder engine as lowest priority

	// Quality validation thresholds
	MinDurationSecs float64 `toml:"min_duration_secs"`  // Reject audio shorter than this (default 0.5)
	MaxDurationSecs float64 `toml:"max_duration_secs"`  // Reject audio longer than this (default 3600)
	MinLoudnessDBFS float64 `toml:"min_loudness_dbfs"`  // Reject near-silent audio quieter than this (default -60)
	MinSampleRateHz int     `toml:"min_sample_rate_hz"` // Reject audio sampled below this rate (default 8000)
}

// NotesConfig contains settings for AI summarization and note creation
type NotesConfig struct {
	Provider       string `toml:"provider"`        // "openai", "gemini", or "" to disable summarization
	OpenAIAPIKey   string `toml:"openai_api_key"`  // OpenAI key (falls back to OPENAI_API_KEY env var)
	GeminiAPIKey   string `toml:"gemini_api_key"`  // Gemini key (falls back to GEMINI_API_KEY env var)
	Model          string `toml:"model"`           // Model name for the chosen provider
	TimeoutSeconds int    `toml:"timeout_seconds"` // HTTP timeout for summarization requests in seconds
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	SQLiteBasePath string `toml:"sqlite_base_path"` // Base path for SQLite database files (filename is generated as mindbridge-YYYY-MM-DD.db)
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.loadSecretsFromEnv()

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	// A .env file beside the binary is optional; secrets may also come from the real environment
	_ = godotenv.Load()

	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// loadSecretsFromEnv fills empty secret fields from the environment so tokens
// never have to live in the TOML file
func (c *Config) loadSecretsFromEnv() {
	if c.Discord.Token == "" {
		c.Discord.Token = os.Getenv("DISCORD_BOT_TOKEN")
	}
	if c.Speech.GoogleAPIKey == "" {
		c.Speech.GoogleAPIKey = os.Getenv("GOOGLE_SPEECH_API_KEY")
	}
	if c.Notes.OpenAIAPIKey == "" {
		c.Notes.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Notes.GeminiAPIKey == "" {
		c.Notes.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
}

// Validate validates the configuration and applies defaults
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}

	// Discord config
	if c.Discord.Token == "" {
		return fmt.Errorf("discord token is required (set discord.token or DISCORD_BOT_TOKEN)")
	}
	if len(c.Discord.AllowedDownloadHosts) == 0 {
		c.Discord.AllowedDownloadHosts = []string{"cdn.discordapp.com", "media.discordapp.net"}
	}
	if c.Discord.MaxDownloadSizeMB <= 0 {
		c.Discord.MaxDownloadSizeMB = 50
	}
	if c.Discord.DownloadTimeoutSecs <= 0 {
		c.Discord.DownloadTimeoutSecs = 60
	}
	if c.Discord.DedupWindowMessages <= 0 {
		c.Discord.DedupWindowMessages = 512
	}
	if c.Discord.MaxIdleConns <= 0 {
		c.Discord.MaxIdleConns = 10
	}
	if c.Discord.MaxIdleConnsPerHost <= 0 {
		c.Discord.MaxIdleConnsPerHost = 5
	}

	// Vault config
	if c.Vault.Root == "" {
		return fmt.Errorf("vault root directory is required")
	}
	if c.Vault.AudioSubfolder == "" {
		c.Vault.AudioSubfolder = "Audio"
	}
	if c.Vault.NotesSubfolder == "" {
		c.Vault.NotesSubfolder = "Inbox"
	}

	// Speech config
	if c.Speech.Language == "" {
		c.Speech.Language = "ja-JP"
	}
	if c.Speech.Model == "" {
		c.Speech.Model = "latest_long"
	}
	if c.Speech.RetryMaxAttempts <= 0 {
		c.Speech.RetryMaxAttempts = 3
	}
	if c.Speech.RetryInitialBackoffMs <= 0 {
		c.Speech.RetryInitialBackoffMs = 2000
	}
	if c.Speech.RetryMaxBackoffMs <= 0 {
		c.Speech.RetryMaxBackoffMs = 10000
	}
	if c.Speech.TimeoutSeconds <= 0 {
		c.Speech.TimeoutSeconds = 30
	}
	if c.Speech.MinDurationSecs <= 0 {
		c.Speech.MinDurationSecs = 0.5
	}
	if c.Speech.MaxDurationSecs <= 0 {
		c.Speech.MaxDurationSecs = 3600
	}
	if c.Speech.MinLoudnessDBFS == 0 {
		c.Speech.MinLoudnessDBFS = -60
	}
	if c.Speech.MinSampleRateHz <= 0 {
		c.Speech.MinSampleRateHz = 8000
	}

	// Notes config
	switch c.Notes.Provider {
	case "", "openai", "gemini":
	default:
		return fmt.Errorf("invalid notes provider: %s (must be 'openai', 'gemini', or empty)", c.Notes.Provider)
	}
	if c.Notes.Provider == "openai" && c.Notes.OpenAIAPIKey == "" {
		return fmt.Errorf("openai api key is required when notes provider is 'openai'")
	}
	if c.Notes.Provider == "gemini" && c.Notes.GeminiAPIKey == "" {
		return fmt.Errorf("gemini api key is required when notes provider is 'gemini'")
	}
	if c.Notes.TimeoutSeconds <= 0 {
		c.Notes.TimeoutSeconds = 60
	}

	// Storage config
	if c.Storage.SQLiteBasePath == "" {
		c.Storage.SQLiteBasePath = "data"
	}

	return nil
}
