package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// GmailConfig holds settings for the mailbox client.
type GmailConfig struct {
	// PageSize is the number of messages requested per listing call.
	PageSize int `mapstructure:"page_size" yaml:"page_size"`

	// CredentialsFile is the path to the OAuth client secret JSON
	// downloaded from the Google Cloud console.
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
}

// AIConfig holds settings for the text-generation clients.
type AIConfig struct {
	Model string `mapstructure:"model" yaml:"model"`

	// MaxAttempts caps retries inside the classification and
	// summarization clients.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`

	// BaseDelayMS is the starting backoff delay in milliseconds.
	BaseDelayMS int `mapstructure:"base_delay_ms" yaml:"base_delay_ms"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	// DataDir is where the sqlite database lives.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	// Taxonomy selects the category set: "general" or "commerce".
	Taxonomy string `mapstructure:"taxonomy" yaml:"taxonomy"`

	Gmail GmailConfig `mapstructure:"gmail" yaml:"gmail"`
	AI    AIConfig    `mapstructure:"ai" yaml:"ai"`
}

// DBPath returns the location of the sqlite database file.
func (c *AppConfig) DBPath() string {
	return filepath.Join(c.DataDir, "mailtriage.db")
}

// DefaultConfigPath returns the default path for the configuration
// file, located at ~/.config/mailtriage/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "mailtriage", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dataDir := "."
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".local", "share", "mailtriage")
	}
	return &AppConfig{
		DataDir:  dataDir,
		Taxonomy: "commerce",
		Gmail: GmailConfig{
			PageSize:        20,
			CredentialsFile: "credentials.json",
		},
		AI: AIConfig{
			Model:       "gemini-1.5-flash",
			MaxAttempts: 3,
			BaseDelayMS: 1000,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. If the file does not exist, it returns a default
// configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	defaults := defaultAppConfig()
	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("taxonomy", defaults.Taxonomy)
	v.SetDefault("gmail.page_size", defaults.Gmail.PageSize)
	v.SetDefault("gmail.credentials_file", defaults.Gmail.CredentialsFile)
	v.SetDefault("ai.model", defaults.AI.Model)
	v.SetDefault("ai.max_attempts", defaults.AI.MaxAttempts)
	v.SetDefault("ai.base_delay_ms", defaults.AI.BaseDelayMS)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaults, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
