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
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/datachat-io/datachat/internal/log"
	"github.com/datachat-io/datachat/pkg/datalake"
	"github.com/datachat-io/datachat/pkg/llm"
	"github.com/datachat-io/datachat/pkg/store"
	"github.com/datachat-io/datachat/pkg/types"
)

var (
	cfgFile string
	config  *Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "datachat",
	Short: "DataChat - converse with your relational databases",
	Long: `DataChat lets you ask questions about a relational database in plain
language. An LLM agent writes and runs the SQL, corrects itself on
failures and answers with the results.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $DATACHAT_DATA_DIR/datachat.yaml)")

	// Store flags
	rootCmd.PersistentFlags().String("store", "", "application store path (default: $DATACHAT_DATA_DIR/datachat.db)")

	// LLM flags
	rootCmd.PersistentFlags().String("llm-provider", "openai", "LLM provider (openai, anthropic)")
	rootCmd.PersistentFlags().String("model", "gpt-4", "model identifier")
	rootCmd.PersistentFlags().String("api-key", "", "LLM API key (or use the provider's env var)")
	rootCmd.PersistentFlags().Int("max-tokens", 4096, "maximum tokens per response")
	rootCmd.PersistentFlags().Float64("temperature", 0.0, "sampling temperature")

	// Logging flags
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("store"))

	_ = viper.BindPFlag("llm.provider", rootCmd.PersistentFlags().Lookup("llm-provider"))
	_ = viper.BindPFlag("llm.model", rootCmd.PersistentFlags().Lookup("model"))
	_ = viper.BindPFlag("llm.api_key", rootCmd.PersistentFlags().Lookup("api-key"))
	_ = viper.BindPFlag("llm.max_tokens", rootCmd.PersistentFlags().Lookup("max-tokens"))
	_ = viper.BindPFlag("llm.temperature", rootCmd.PersistentFlags().Lookup("temperature"))

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	var err error
	config, err = LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	configureLogging(config.Logging)
}

func configureLogging(cfg LoggingConfig) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		_ = level.Set(cfg.Level)
	}
	zcfg := zap.NewDevelopmentConfig()
	if cfg.Format == "json" {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zcfg.Build()
	if err != nil {
		return
	}
	log.SetLogger(logger)
}

// fatalf prints the error and exits.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// mustStore opens the application store or exits.
func mustStore(ctx context.Context) *store.Store {
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		fatalf("creating data directory: %v", err)
	}
	s, err := store.Open(ctx, config.Store.Path)
	if err != nil {
		fatalf("opening store: %v", err)
	}
	return s
}

// mustDatabase resolves a database by id or name.
func mustDatabase(ctx context.Context, s *store.Store, ref string) *types.Database {
	if ref == "" {
		fatalf("a database is required, pass --database")
	}
	if db, err := s.GetDatabase(ctx, ref); err == nil {
		return db
	}
	dbs, err := s.ListDatabases(ctx)
	if err != nil {
		fatalf("listing databases: %v", err)
	}
	for _, db := range dbs {
		if strings.EqualFold(db.Name, ref) {
			return db
		}
	}
	fatalf("unknown database %q, run 'datachat db list'", ref)
	return nil
}

// mustLake connects to a database's engine or exits.
func mustLake(db *types.Database) datalake.Datalake {
	lake, err := datalake.FromDatabase(db, nil)
	if err != nil {
		fatalf("connecting to %s: %v", db.Name, err)
	}
	return lake
}

// mustProvider builds the configured LLM provider or exits.
func mustProvider() llm.Provider {
	provider, err := llm.New(llm.Config{
		Provider:    config.LLM.Provider,
		Model:       config.LLM.Model,
		APIKey:      config.LLM.APIKey,
		BaseURL:     config.LLM.BaseURL,
		MaxTokens:   config.LLM.MaxTokens,
		Temperature: float32(config.LLM.Temperature),
	})
	if err != nil {
		fatalf("configuring LLM provider: %v", err)
	}
	return provider
}
