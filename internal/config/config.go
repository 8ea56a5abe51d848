package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/quocvuong92/ai-shell/internal/constants"
)

// Environment variable names
const (
	EnvProvider      = "PROVIDER"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvGoogleAPIKey  = "GOOGLE_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvModel         = "AI_SHELL_MODEL"
	EnvTemperature   = "TEMPERATURE"
	EnvHome          = "AI_SHELL_HOME"
	EnvStorage       = "AI_SHELL_STORAGE"
	EnvLogLevel      = "AI_SHELL_LOG_LEVEL"
	EnvLogFile       = "AI_SHELL_LOG_FILE"
)

// Defaults - re-exported from constants for convenience
const (
	DefaultProvider    = constants.DefaultProvider
	DefaultTemperature = constants.DefaultTemperature
	DefaultAPITimeout  = constants.DefaultAPITimeout
)

// Errors
var (
	ErrProviderNotSet     = errors.New("provider not set. Use 'ai-shell provider' or set PROVIDER to 'openai' or 'google'")
	ErrInvalidProvider    = errors.New("invalid provider. Use 'openai' or 'google'")
	ErrAPIKeyNotFound     = errors.New("API key not found. Use 'ai-shell set-api-key' or set OPENAI_API_KEY / GOOGLE_API_KEY")
	ErrInvalidTemperature = errors.New("temperature must be a number between 0 and 1")
	ErrInvalidStorage     = errors.New("invalid storage backend. Use 'file' or 'sqlite'")
)

// Config holds the application configuration
type Config struct {
	// Provider selection: "openai" or "google". Empty until chosen.
	Provider string

	OpenAIAPIKey  string
	GoogleAPIKey  string
	OpenAIBaseURL string
	Model         string

	// Temperature is kept as text until Validate so that a bad value from
	// the environment or a flag surfaces as ErrInvalidTemperature.
	TemperatureRaw string
	Temperature    float64

	// StateDir holds the session map, transcripts and pointer documents
	StateDir string
	// Storage selects the transcript backend: "file" or "sqlite"
	Storage string

	// LogLevel is a level name (debug, info, warn, error, none); --verbose
	// overrides it. LogFile redirects log output from stderr.
	LogLevel string
	LogFile  string

	// Flags
	Render      bool
	Verbose     bool
	Interactive bool
}

// NewConfig creates a new Config with defaults
func NewConfig() *Config {
	return &Config{}
}

// Validate loads the config file and environment, fills defaults and
// reports missing or malformed settings.
func (c *Config) Validate() error {
	// Priority: flags, then environment, then config file. A broken config
	// file is ignored so that env vars and flags can still be used to recover.
	c.applyEnv()
	if fileConfig, err := LoadConfigFile(); err == nil {
		c.ApplyFileConfig(fileConfig)
	}

	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		return ErrProviderNotSet
	}
	if !ValidProvider(c.Provider) {
		return ErrInvalidProvider
	}

	if c.Model == "" {
		c.Model = DefaultModelFor(c.Provider)
	}
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = constants.DefaultOpenAIURL
	}
	c.OpenAIBaseURL = strings.TrimSuffix(c.OpenAIBaseURL, "/")

	t, err := ParseTemperature(c.TemperatureRaw)
	if err != nil {
		return err
	}
	c.Temperature = t

	if c.Storage == "" {
		c.Storage = constants.StorageFile
	}
	if c.Storage != constants.StorageFile && c.Storage != constants.StorageSQLite {
		return ErrInvalidStorage
	}

	if c.StateDir == "" {
		c.StateDir = DefaultStateDir()
	}

	if c.APIKey() == "" {
		return ErrAPIKeyNotFound
	}
	return nil
}

// applyEnv fills fields that flags left empty
func (c *Config) applyEnv() {
	fill := func(dst *string, env string) {
		if *dst == "" {
			*dst = strings.TrimSpace(os.Getenv(env))
		}
	}
	fill(&c.Provider, EnvProvider)
	fill(&c.OpenAIAPIKey, EnvOpenAIAPIKey)
	fill(&c.GoogleAPIKey, EnvGoogleAPIKey)
	fill(&c.OpenAIBaseURL, EnvOpenAIBaseURL)
	fill(&c.Model, EnvModel)
	fill(&c.TemperatureRaw, EnvTemperature)
	fill(&c.StateDir, EnvHome)
	fill(&c.Storage, EnvStorage)
	fill(&c.LogLevel, EnvLogLevel)
	fill(&c.LogFile, EnvLogFile)
}

// APIKey returns the credential for the selected provider
func (c *Config) APIKey() string {
	switch c.Provider {
	case constants.ProviderOpenAI:
		return c.OpenAIAPIKey
	case constants.ProviderGoogle:
		return c.GoogleAPIKey
	}
	return ""
}

// APIKeyEnv names the environment variable holding the provider's credential
func APIKeyEnv(provider string) string {
	if provider == constants.ProviderOpenAI {
		return EnvOpenAIAPIKey
	}
	return EnvGoogleAPIKey
}

// DefaultModelFor returns the model used when none is configured
func DefaultModelFor(provider string) string {
	if provider == constants.ProviderOpenAI {
		return constants.DefaultOpenAIModel
	}
	return constants.DefaultGoogleModel
}

// ChatCompletionsURL builds the OpenAI-compatible chat completions endpoint
func (c *Config) ChatCompletionsURL() string {
	return fmt.Sprintf("%s/chat/completions", c.OpenAIBaseURL)
}

// ParseTemperature parses a temperature in [0, 1]. Empty means the default.
func ParseTemperature(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultTemperature, nil
	}
	t, err := strconv.ParseFloat(s, 64)
	if err != nil || t < 0 || t > 1 {
		return 0, ErrInvalidTemperature
	}
	return t, nil
}

// ValidProvider reports whether name is a supported provider
func ValidProvider(name string) bool {
	return name == constants.ProviderOpenAI || name == constants.ProviderGoogle
}

// DefaultStateDir returns $XDG_DATA_HOME/ai-shell, falling back to
// ~/.local/share/ai-shell, then ./.ai-shell.
func DefaultStateDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, constants.AppName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", constants.AppName)
	}
	return filepath.Join(".", "."+constants.AppName)
}
