package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `json:"database" mapstructure:"database"`
	LLM      LLMConfig      `json:"llm" mapstructure:"llm"`
	Session  SessionConfig  `json:"session" mapstructure:"session"`
	Summary  SummaryConfig  `json:"summary" mapstructure:"summary"`
	Digest   DigestConfig   `json:"digest" mapstructure:"digest"`
	Batch    BatchConfig    `json:"batch" mapstructure:"batch"`
}

type DatabaseConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	User     string `json:"user" mapstructure:"user"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslmode" mapstructure:"sslmode"`
}

type LLMConfig struct {
	APIKey         string  `json:"api_key,omitempty" mapstructure:"api_key"`
	Model          string  `json:"model" mapstructure:"model"`
	MaxTokens      int     `json:"max_tokens" mapstructure:"max_tokens"`
	Temperature    float64 `json:"temperature" mapstructure:"temperature"`
	TimeoutSeconds int     `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

type SessionConfig struct {
	TTLHours             int `json:"ttl_hours" mapstructure:"ttl_hours"`
	MaxMessages          int `json:"max_messages" mapstructure:"max_messages"`
	SweepIntervalMinutes int `json:"sweep_interval_minutes" mapstructure:"sweep_interval_minutes"`
	GapHours             int `json:"gap_hours" mapstructure:"gap_hours"`
}

type SummaryConfig struct {
	MinMessages   int `json:"min_messages" mapstructure:"min_messages"`
	RetentionDays int `json:"retention_days" mapstructure:"retention_days"`
}

type DigestConfig struct {
	MinTotalMessages    int `json:"min_total_messages" mapstructure:"min_total_messages"`
	MinConversations    int `json:"min_conversations" mapstructure:"min_conversations"`
	RunHour             int `json:"run_hour" mapstructure:"run_hour"`
	RunMinute           int `json:"run_minute" mapstructure:"run_minute"`
	NotificationTTLDays int `json:"notification_ttl_days" mapstructure:"notification_ttl_days"`
}

type BatchConfig struct {
	Size                 int `json:"size" mapstructure:"size"`
	DelaySeconds         int `json:"delay_seconds" mapstructure:"delay_seconds"`
	CleanupIntervalHours int `json:"cleanup_interval_hours" mapstructure:"cleanup_interval_hours"`
}

// ErrMissingAPIKey is returned when no completion-service credential is
// configured. Callers treat this as fatal before any batch work starts.
var ErrMissingAPIKey = errors.New("llm api key is not configured")

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	// Add config paths
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Check for user config directory
	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".tutor-ai"))
	}

	setDefaults()

	// Read config; a missing file is fine, defaults plus env cover everything
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvOverrides(&cfg)

	return &cfg, nil
}

// Validate checks settings that must be present before a run touches any
// learner data.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "tutorai")
	viper.SetDefault("database.database", "tutorai")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.max_tokens", 500)
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.timeout_seconds", 30)

	viper.SetDefault("session.ttl_hours", 24)
	viper.SetDefault("session.max_messages", 20)
	viper.SetDefault("session.sweep_interval_minutes", 60)
	viper.SetDefault("session.gap_hours", 4)

	viper.SetDefault("summary.min_messages", 5)
	viper.SetDefault("summary.retention_days", 90)

	viper.SetDefault("digest.min_total_messages", 6)
	viper.SetDefault("digest.min_conversations", 2)
	viper.SetDefault("digest.run_hour", 19)
	viper.SetDefault("digest.run_minute", 0)
	viper.SetDefault("digest.notification_ttl_days", 7)

	viper.SetDefault("batch.size", 5)
	viper.SetDefault("batch.delay_seconds", 2)
	viper.SetDefault("batch.cleanup_interval_hours", 6)
}

func loadEnvOverrides(cfg *Config) {
	// Database overrides
	if dbHost := os.Getenv("POSTGRES_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("POSTGRES_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			cfg.Database.Port = port
		}
	}
	if dbUser := os.Getenv("POSTGRES_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPass := os.Getenv("POSTGRES_PASSWORD"); dbPass != "" {
		cfg.Database.Password = dbPass
	}
	if dbName := os.Getenv("POSTGRES_DB"); dbName != "" {
		cfg.Database.Database = dbName
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if model := os.Getenv("TUTOR_LLM_MODEL"); model != "" {
		cfg.LLM.Model = model
	}
}
