package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		Mode        string   `yaml:"mode"` // gin mode: debug, release or test
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`

	Gemini struct {
		APIKey            string  `yaml:"api_key"`
		ModelName         string  `yaml:"model_name"`
		Temperature       float32 `yaml:"temperature"`
		RequestsPerMinute int     `yaml:"requests_per_minute"`
		TimeoutSeconds    int     `yaml:"timeout_seconds"`
	} `yaml:"gemini"`

	// Upload ceilings in MiB
	Uploads struct {
		ImageMB int64 `yaml:"image_mb"`
		AudioMB int64 `yaml:"audio_mb"`
		VideoMB int64 `yaml:"video_mb"`
	} `yaml:"uploads"`

	Chat struct {
		SessionTimeoutMinutes int `yaml:"session_timeout_minutes"`
	} `yaml:"chat"`

	Phishing struct {
		HistorySize int `yaml:"history_size"`
	} `yaml:"phishing"`

	Database struct {
		Type    string `yaml:"type"` // "sqlite" or "postgres"
		Path    string `yaml:"path"` // SQLite path or PostgreSQL URL
		Enabled *bool  `yaml:"enabled"`
	} `yaml:"database"`

	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`

	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}

	// Expand environment variables in secrets
	c.Gemini.APIKey = strings.TrimSpace(os.ExpandEnv(c.Gemini.APIKey))
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	c.Auth.JWTSecret = os.ExpandEnv(c.Auth.JWTSecret)
	c.Telegram.BotToken = os.ExpandEnv(c.Telegram.BotToken)
	c.Database.Path = os.ExpandEnv(c.Database.Path)

	if c.Gemini.ModelName == "" {
		c.Gemini.ModelName = "gemini-2.0-flash"
	}
	if c.Gemini.Temperature == 0 {
		c.Gemini.Temperature = 0.2
	}
	if c.Gemini.RequestsPerMinute == 0 {
		c.Gemini.RequestsPerMinute = 15
	}
	if c.Gemini.TimeoutSeconds == 0 {
		c.Gemini.TimeoutSeconds = 120
	}

	if c.Uploads.ImageMB == 0 {
		c.Uploads.ImageMB = 5
	}
	if c.Uploads.AudioMB == 0 {
		c.Uploads.AudioMB = 10
	}
	if c.Uploads.VideoMB == 0 {
		c.Uploads.VideoMB = 25
	}

	if c.Chat.SessionTimeoutMinutes == 0 {
		c.Chat.SessionTimeoutMinutes = 30
	}
	if c.Phishing.HistorySize == 0 {
		c.Phishing.HistorySize = 5
	}

	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/reports.db"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.Database.Type != "sqlite" && c.Database.Type != "postgres" {
		return fmt.Errorf("database.type must be sqlite or postgres, got %q", c.Database.Type)
	}
	if c.Uploads.ImageMB < 0 || c.Uploads.AudioMB < 0 || c.Uploads.VideoMB < 0 {
		return fmt.Errorf("upload limits must be positive")
	}
	if c.Telegram.Enabled && c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id is required when telegram alerts are enabled")
	}
	return nil
}

// DatabaseEnabled reports whether the report archive should be opened
func (c *Config) DatabaseEnabled() bool {
	return c.Database.Enabled == nil || *c.Database.Enabled
}

// InferenceConfigured reports whether a Gemini key is present
func (c *Config) InferenceConfigured() bool {
	return c.Gemini.APIKey != "" && c.Gemini.APIKey != "YOUR_API_KEY_HERE"
}

// Timeout is the per-call inference deadline
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Gemini.TimeoutSeconds) * time.Second
}

// SessionTimeout is how long an idle chat session is kept; zero or less disables eviction
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.Chat.SessionTimeoutMinutes) * time.Minute
}
