// Copyright 2026 DataChat
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DefaultConfigFileName is the name of the config file (datachat.yaml).
const DefaultConfigFileName = "datachat"

// Config holds all configuration for the datachat CLI.
// Priority: CLI flags > config file > env vars > defaults
type Config struct {
	// DataDir is the datachat data directory. It is computed from the
	// DATACHAT_DATA_DIR environment variable (default ~/.datachat) and is
	// not loaded from the config file.
	DataDir string `mapstructure:"-"`

	// Store configuration
	Store StoreConfig `mapstructure:"store"`

	// LLM provider configuration
	LLM LLMConfig `mapstructure:"llm"`

	// Embeddings provider configuration
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// StoreConfig holds the application store configuration.
type StoreConfig struct {
	// Path is the SQLite file backing conversations, queries and
	// predictions (default: $DATACHAT_DATA_DIR/datachat.db).
	Path string `mapstructure:"path"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	// Provider selects the backend (openai, anthropic).
	Provider string `mapstructure:"provider"`

	// Model is the model identifier sent to the provider.
	Model string `mapstructure:"model"`

	// APIKey overrides the provider's conventional environment variable.
	APIKey string `mapstructure:"api_key"`

	// BaseURL overrides the provider's API endpoint.
	BaseURL string `mapstructure:"base_url"`

	// MaxTokens caps the tokens per response.
	MaxTokens int `mapstructure:"max_tokens"`

	// Temperature tunes sampling.
	Temperature float64 `mapstructure:"temperature"`
}

// EmbeddingsConfig holds the embedding provider configuration.
type EmbeddingsConfig struct {
	// APIKey overrides OPENAI_API_KEY for embeddings.
	APIKey string `mapstructure:"api_key"`

	// Model selects the embedding model (default: text-embedding-ada-002).
	Model string `mapstructure:"model"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`

	// Format is console or json.
	Format string `mapstructure:"format"`
}

// GetDataDir returns the datachat data directory, respecting the
// DATACHAT_DATA_DIR environment variable.
func GetDataDir() string {
	if dir := os.Getenv("DATACHAT_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".datachat"
	}
	return filepath.Join(home, ".datachat")
}

// LoadConfig loads the configuration from the file, environment and
// defaults.
func LoadConfig(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(GetDataDir())
		viper.AddConfigPath(".")
		viper.SetConfigName(DefaultConfigFileName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file %s: %w", viper.ConfigFileUsed(), err)
		}
		// Config file not found; using defaults + env vars + flags
	}

	viper.SetEnvPrefix("DATACHAT")
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.DataDir = GetDataDir()
	if config.Store.Path == "" {
		config.Store.Path = filepath.Join(config.DataDir, "datachat.db")
	}
	return &config, nil
}

func setDefaults() {
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4")
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("llm.temperature", 0.0)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
}
