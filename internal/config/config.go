// Package config loads application configuration from an optional YAML file
// layered under VOICEMOCK_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Session SessionConfig `koanf:"session"`
	STT     STTConfig     `koanf:"stt"`
	LLM     LLMConfig     `koanf:"llm"`
	TTS     TTSConfig     `koanf:"tts"`
	Safety  SafetyConfig  `koanf:"safety"`

	// SecretKey signs session tokens. Required and never logged.
	SecretKey string `koanf:"secret_key"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	MaxUploadBytes int64         `koanf:"max_upload_bytes"`
}

type SessionConfig struct {
	TTL           time.Duration `koanf:"ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

type STTConfig struct {
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

type LLMConfig struct {
	APIKey            string        `koanf:"api_key"`
	Model             string        `koanf:"model"`
	Timeout           time.Duration `koanf:"timeout"`
	MaxTokens         int           `koanf:"max_tokens"`
	PromptTokenBudget int           `koanf:"prompt_token_budget"`
}

type TTSConfig struct {
	APIKey   string        `koanf:"api_key"`
	Model    string        `koanf:"model"`
	Timeout  time.Duration `koanf:"timeout"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

type SafetyConfig struct {
	Enabled      bool   `koanf:"enabled"`
	PatternsFile string `koanf:"patterns_file"`
}

var defaults = map[string]any{
	"server.port":             8080,
	"server.request_timeout":  "60s",
	"server.max_upload_bytes": 10 << 20,
	"session.ttl":             "60m",
	"session.sweep_interval":  "5m",
	"stt.timeout":             "30s",
	"llm.model":               "llama-3.3-70b-versatile",
	"llm.timeout":             "30s",
	"llm.max_tokens":          400,
	"llm.prompt_token_budget": 6000,
	"tts.model":               "aura-2-thalia-en",
	"tts.timeout":             "30s",
	"tts.cache_ttl":           "300s",
	"safety.enabled":          true,
}

// Load reads configuration from path (skipped when empty or missing) and the
// environment, applying defaults first.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Double underscore separates nesting levels so single underscores stay
	// part of key names: VOICEMOCK_SERVER__MAX_UPLOAD_BYTES -> server.max_upload_bytes.
	if err := k.Load(env.Provider("VOICEMOCK_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "VOICEMOCK_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.SecretKey == "" {
		return errors.New("secret_key is required (VOICEMOCK_SECRET_KEY)")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}
