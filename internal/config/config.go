package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"spinify/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Telegram TelegramConfig `yaml:"telegram"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Backup   BackupConfig   `yaml:"backup"`
	Logging  LoggingConfig  `yaml:"logging"`
	API      APIConfig      `yaml:"api"`
	Limits   LimitsConfig   `yaml:"limits"`
	Exports  ExportConfig   `yaml:"exports"`
	Google   GoogleConfig   `yaml:"google"`
	Security SecurityConfig `yaml:"security"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken         string `yaml:"bot_token"`
	GateChannel      string `yaml:"gate_channel"`
	GateGroup        string `yaml:"gate_group"`
	LoginBotUsername string `yaml:"login_bot_username"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type LimitsConfig struct {
	FreeGroupCap     int   `yaml:"free_group_cap"`
	PremiumGroupCap  int   `yaml:"premium_group_cap"`
	GroupBatchLimit  int   `yaml:"group_batch_limit"`
	AllowedIntervals []int `yaml:"allowed_intervals"`
	NonceTTLSeconds  int   `yaml:"nonce_ttl_seconds"`
	UserRateLimit    int   `yaml:"user_rate_limit"`
	UserRateWindow   int   `yaml:"user_rate_window"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type GoogleConfig struct {
	CredentialsFile     string `yaml:"credentials_file"`
	RosterSpreadsheetID string `yaml:"roster_spreadsheet_id"`
	SyncIntervalMinutes int    `yaml:"sync_interval_minutes"`
}

type SecurityConfig struct {
	// EncryptionKey is 64 hex chars (32 bytes), used to seal session strings.
	EncryptionKey string `yaml:"encryption_key"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Expand ${VAR} references before parsing so secrets stay out of YAML.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if err := ValidateEncryptionKey(c.Security.EncryptionKey); err != nil {
		return err
	}

	for _, m := range c.Limits.AllowedIntervals {
		if m <= 0 {
			return fmt.Errorf("allowed interval must be positive, got %d", m)
		}
	}

	return nil
}

// ValidateEncryptionKey enforces the 32-byte hex key contract.
func ValidateEncryptionKey(key string) error {
	if key == "" {
		return errors.New("security.encryption_key is required")
	}
	raw, err := hex.DecodeString(key)
	if err != nil {
		return errors.New("security.encryption_key must be 64 hex chars (32 bytes)")
	}
	if len(raw) != 32 {
		return errors.New("security.encryption_key must be 32 bytes (64 hex chars)")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	if c.Limits.FreeGroupCap == 0 {
		c.Limits.FreeGroupCap = models.FreeGroupCap
	}
	if c.Limits.PremiumGroupCap == 0 {
		c.Limits.PremiumGroupCap = models.PremiumGroupCap
	}
	if c.Limits.GroupBatchLimit == 0 {
		c.Limits.GroupBatchLimit = models.GroupBatchLimit
	}
	if len(c.Limits.AllowedIntervals) == 0 {
		c.Limits.AllowedIntervals = append([]int(nil), models.DefaultAllowedIntervals...)
	}
	if c.Limits.NonceTTLSeconds == 0 {
		c.Limits.NonceTTLSeconds = models.DefaultNonceTTL
	}
	if c.Limits.UserRateLimit == 0 {
		c.Limits.UserRateLimit = models.RateLimitRequests
	}
	if c.Limits.UserRateWindow == 0 {
		c.Limits.UserRateWindow = models.RateLimitWindow
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Google.SyncIntervalMinutes == 0 {
		c.Google.SyncIntervalMinutes = 60
	}
}
