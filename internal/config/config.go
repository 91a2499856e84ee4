// Package config loads artifactstream settings from a YAML file, a .env file
// and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/deepankarm/artifactstream/pkg/artifact"
	"github.com/deepankarm/artifactstream/pkg/source"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ARTIFACTSTREAM_"

// Config holds the settings shared by every command.
type Config struct {
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model"`
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	ListenAddr string        `yaml:"listen_addr"`
	StorePath  string        `yaml:"store_path"`
	LogLevel   string        `yaml:"log_level"`
	MaxExcerpt int           `yaml:"max_excerpt"`
	ChunkSize  int           `yaml:"chunk_size"`
	ChunkDelay time.Duration `yaml:"chunk_delay"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Provider:   source.ProviderGemini,
		ListenAddr: ":8080",
		StorePath:  "artifactstream.db",
		LogLevel:   "info",
		MaxExcerpt: artifact.MaxExcerpt,
		ChunkSize:  32,
		ChunkDelay: 20 * time.Millisecond,
	}
}

// Load reads path (skipped when empty), then the given .env files (".env" when
// none are given; missing files are ignored), then the environment.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	c.Provider = getEnv("PROVIDER", c.Provider)
	c.Model = getEnv("MODEL", c.Model)
	c.BaseURL = getEnv("BASE_URL", c.BaseURL)
	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.StorePath = getEnv("STORE_PATH", c.StorePath)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.APIKey = getEnv("API_KEY", c.APIKey)
	if c.APIKey == "" {
		// Fall back to the variables the provider SDKs document.
		switch c.Provider {
		case source.ProviderGemini:
			c.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
		case source.ProviderOpenAI:
			c.APIKey = firstEnv("OPENAI_API_KEY")
		}
	}

	var err error
	if c.MaxExcerpt, err = getEnvInt("MAX_EXCERPT", c.MaxExcerpt); err != nil {
		return err
	}
	if c.ChunkSize, err = getEnvInt("CHUNK_SIZE", c.ChunkSize); err != nil {
		return err
	}
	if v, ok := os.LookupEnv(EnvPrefix + "CHUNK_DELAY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sCHUNK_DELAY %q: %w", EnvPrefix, v, err)
		}
		c.ChunkDelay = d
	}
	return nil
}

// Validate checks settings every command depends on. Provider credentials
// are checked separately by ValidateProvider.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MaxExcerpt <= 0 {
		return fmt.Errorf("max_excerpt must be positive, got %d", c.MaxExcerpt)
	}
	if c.ChunkDelay < 0 {
		return fmt.Errorf("chunk_delay must not be negative, got %s", c.ChunkDelay)
	}
	return nil
}

// ValidateProvider checks that the provider is known and has credentials.
func (c *Config) ValidateProvider() error {
	switch c.Provider {
	case source.ProviderGemini, source.ProviderOpenAI:
		if c.APIKey == "" {
			return fmt.Errorf("provider %s requires an API key (api_key or %sAPI_KEY)", c.Provider, EnvPrefix)
		}
	case source.ProviderReplay:
	default:
		return fmt.Errorf("%w: %q", source.ErrUnknownProvider, c.Provider)
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	l, _ := ParseLevel(c.LogLevel)
	return l
}

// SourceSettings returns the provider settings for source.NewOpener.
func (c *Config) SourceSettings() source.Settings {
	return source.Settings{
		Provider:   c.Provider,
		Model:      c.Model,
		APIKey:     c.APIKey,
		BaseURL:    c.BaseURL,
		ChunkSize:  c.ChunkSize,
		ChunkDelay: c.ChunkDelay,
	}
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q", s)
	}
	return l, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(EnvPrefix + key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, key, v, err)
	}
	return n, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
