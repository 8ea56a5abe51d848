package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/quocvuong92/ai-shell/internal/constants"
	"github.com/quocvuong92/ai-shell/internal/storage"
)

// ConfigFileName is the name of the config file
const ConfigFileName = "config.yaml"

// FileConfig represents the configuration file structure
type FileConfig struct {
	Provider    string   `yaml:"provider,omitempty"` // "openai", "google"
	Model       string   `yaml:"model,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	StateDir    string   `yaml:"state_dir,omitempty"`

	OpenAI *OpenAIConfig `yaml:"openai,omitempty"`
	Google *GoogleConfig `yaml:"google,omitempty"`

	Storage  *StorageConfig  `yaml:"storage,omitempty"`
	Logging  *LoggingConfig  `yaml:"logging,omitempty"`
	Defaults *DefaultsConfig `yaml:"defaults,omitempty"`
}

// OpenAIConfig holds settings for OpenAI-compatible endpoints
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// GoogleConfig holds Gemini settings
type GoogleConfig struct {
	APIKey string `yaml:"api_key,omitempty"`
}

// StorageConfig selects the transcript backend
type StorageConfig struct {
	Backend string `yaml:"backend,omitempty"` // "file", "sqlite"
}

// LoggingConfig controls diagnostic logging
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
	File  string `yaml:"file,omitempty"`
}

// DefaultsConfig holds default flag values
type DefaultsConfig struct {
	Render bool `yaml:"render,omitempty"`
}

// GetConfigPaths returns the paths to check for config files (in order of priority)
func GetConfigPaths() []string {
	var paths []string

	// 1. Current directory
	paths = append(paths, filepath.Join(".", "."+constants.AppName, ConfigFileName))

	// 2. User config directory
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, constants.AppName, ConfigFileName))
	}

	// 3. Home directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", constants.AppName, ConfigFileName))
	}

	return paths
}

// LoadConfigFile loads the first config file found on the search path.
// No file yields an empty config.
func LoadConfigFile() (*FileConfig, error) {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return loadConfigFromPath(path)
		}
	}
	return &FileConfig{}, nil
}

func loadConfigFromPath(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &cfg, nil
}

// ApplyFileConfig applies file configuration to the main Config.
// File values only fill fields that are still empty.
func (c *Config) ApplyFileConfig(fc *FileConfig) {
	if fc == nil {
		return
	}

	if c.Provider == "" && fc.Provider != "" {
		c.Provider = fc.Provider
	}
	if c.Model == "" && fc.Model != "" {
		c.Model = fc.Model
	}
	if c.TemperatureRaw == "" && fc.Temperature != nil {
		c.TemperatureRaw = strconv.FormatFloat(*fc.Temperature, 'f', -1, 64)
	}
	if c.StateDir == "" && fc.StateDir != "" {
		c.StateDir = fc.StateDir
	}

	if fc.OpenAI != nil {
		if c.OpenAIAPIKey == "" && fc.OpenAI.APIKey != "" {
			c.OpenAIAPIKey = fc.OpenAI.APIKey
		}
		if c.OpenAIBaseURL == "" && fc.OpenAI.BaseURL != "" {
			c.OpenAIBaseURL = fc.OpenAI.BaseURL
		}
	}
	if fc.Google != nil && c.GoogleAPIKey == "" && fc.Google.APIKey != "" {
		c.GoogleAPIKey = fc.Google.APIKey
	}
	if fc.Storage != nil && c.Storage == "" && fc.Storage.Backend != "" {
		c.Storage = fc.Storage.Backend
	}
	if fc.Logging != nil {
		if c.LogLevel == "" {
			c.LogLevel = fc.Logging.Level
		}
		if c.LogFile == "" {
			c.LogFile = fc.Logging.File
		}
	}

	// Only "true" defaults apply; an unset flag and a false flag look the same.
	if fc.Defaults != nil && fc.Defaults.Render {
		c.Render = true
	}
}

// UserConfigPath returns the config file written by SaveFileConfig
func UserConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine config directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, constants.AppName, ConfigFileName), nil
}

// SaveFileConfig applies mutate to the user config file and writes it back.
// A missing file starts from an empty config.
func SaveFileConfig(mutate func(fc *FileConfig)) (string, error) {
	path, err := UserConfigPath()
	if err != nil {
		return "", err
	}
	return path, saveFileConfigAt(path, mutate)
}

func saveFileConfigAt(path string, mutate func(fc *FileConfig)) error {
	fc := &FileConfig{}
	if _, err := os.Stat(path); err == nil {
		loaded, err := loadConfigFromPath(path)
		if err != nil {
			return err
		}
		fc = loaded
	}

	mutate(fc)

	data, err := yaml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("failed to encode config file: %w", err)
	}
	// 0600: the file may carry API keys
	if err := storage.WriteFileAtomic(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SetProvider records the provider in fc
func SetProvider(fc *FileConfig, provider string) {
	fc.Provider = provider
}

// SetAPIKey records the credential for provider in fc
func SetAPIKey(fc *FileConfig, provider, key string) {
	switch provider {
	case constants.ProviderOpenAI:
		if fc.OpenAI == nil {
			fc.OpenAI = &OpenAIConfig{}
		}
		fc.OpenAI.APIKey = key
	default:
		if fc.Google == nil {
			fc.Google = &GoogleConfig{}
		}
		fc.Google.APIKey = key
	}
}

// SetTemperature records the temperature in fc
func SetTemperature(fc *FileConfig, t float64) {
	fc.Temperature = &t
}

// CreateDefaultConfigFile creates a commented config file at the user config directory
func CreateDefaultConfigFile() (string, error) {
	path, err := UserConfigPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config file already exists at %s", path)
	}

	defaultConfig := `# ai-shell configuration
# Location: ~/.config/ai-shell/config.yaml

# Model provider: "google" or "openai" (default: google)
# provider: google

# Model name (default: gemini-2.0-flash for google, gpt-4o-mini for openai)
# model: gemini-2.0-flash

# Sampling temperature between 0 and 1
# temperature: 0

# Where sessions are stored (default: $XDG_DATA_HOME/ai-shell)
# state_dir: ~/.local/share/ai-shell

# google:
#   api_key: your-gemini-key

# openai:
#   api_key: your-openai-key
#   base_url: https://api.openai.com/v1

# Transcript backend: "file" (one JSON document per session) or "sqlite"
# storage:
#   backend: file

# Diagnostic logging (default: warnings to stderr; --verbose means debug)
# logging:
#   level: info
#   file: ~/.local/share/ai-shell/ai-shell.log

# defaults:
#   render: true
`

	if err := storage.WriteFileAtomic(path, []byte(defaultConfig), 0600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}
