// Package config loads application configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the root configuration for the auditline binaries.
type Config struct {
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Database DatabaseConfig `yaml:"database"`
	Voice    VoiceConfig    `yaml:"voice"`
}

// OpenAIConfig holds model provider settings.
type OpenAIConfig struct {
	APIKey    string `yaml:"api_key"    env:"OPENAI_API_KEY" env-required:"true"`
	ChatModel string `yaml:"chat_model" env:"OPENAI_CHAT_MODEL" env-default:"gpt-4o"`
	MaxTokens int    `yaml:"max_tokens" env:"OPENAI_MAX_TOKENS" env-default:"500"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN     string `yaml:"dsn"     env:"DATABASE_DSN" env-required:"true"`
	Migrate bool   `yaml:"migrate" env:"DATABASE_MIGRATE" env-default:"true"`
}

// VoiceConfig holds realtime voice session settings.
type VoiceConfig struct {
	Model              string `yaml:"model"               env:"VOICE_MODEL" env-default:"gpt-4o-realtime-preview"`
	Voice              string `yaml:"voice"               env:"VOICE_NAME" env-default:"alloy"`
	TranscriptionModel string `yaml:"transcription_model" env:"VOICE_TRANSCRIPTION_MODEL" env-default:"whisper-1"`
	SampleRate         int    `yaml:"sample_rate"         env:"VOICE_SAMPLE_RATE" env-default:"24000"`
}

// Load reads configuration from a .env file (if present) and the
// environment. Environment variables win over .env entries.
func Load() (*Config, error) {
	// godotenv.Load never overrides variables already set in the
	// environment. A missing .env file is not an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.OpenAI.MaxTokens <= 0 {
		return fmt.Errorf("openai.max_tokens must be > 0 (got %d)", c.OpenAI.MaxTokens)
	}
	if c.Voice.SampleRate <= 0 {
		return fmt.Errorf("voice.sample_rate must be > 0 (got %d)", c.Voice.SampleRate)
	}
	return nil
}
