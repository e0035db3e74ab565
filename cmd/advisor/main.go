// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main provides the agri-advisor command: an HTTP advisory service
// and a one-shot CLI for asking farming questions.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/your-org/agri-advisor/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

var configPath string

// logLevel is shared by every logger built here so a config reload can
// change verbosity in place
var logLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Agricultural advisory service for Indian farmers",
	Long: `advisor answers farming questions in English and Indian languages.
It extracts location, crop and topic from the question, gathers weather,
market, soil, advisory and scheme data, and produces a grounded answer.

Run "advisor serve" for the HTTP API or "advisor ask" for a single question.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.AddCommand(serveCmd, askCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// levelFor maps a configured level name to a zap level
func levelFor(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// initializeLogger creates a logger based on configuration settings
func initializeLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapConfig zap.Config

	if cfg.Logging.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	logLevel.SetLevel(levelFor(cfg.Logging.Level))
	zapConfig.Level = logLevel

	switch cfg.Logging.Output {
	case "file":
		zapConfig.OutputPaths = []string{"advisor.log"}
		zapConfig.ErrorOutputPaths = []string{"advisor.log"}
	case "stderr":
		zapConfig.OutputPaths = []string{"stderr"}
		zapConfig.ErrorOutputPaths = []string{"stderr"}
	default:
		zapConfig.OutputPaths = []string{"stdout"}
		zapConfig.ErrorOutputPaths = []string{"stderr"}
	}

	return zapConfig.Build()
}

// loadConfigAndLogger is the shared startup of every subcommand
func loadConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := initializeLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}
