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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/agri-advisor/internal/advisory"
)

var (
	askUser string
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question and print the advisory",
	Example: `  advisor ask "Wheat prices in Punjab"
  advisor ask --json "लुधियाना में मौसम कैसा रहेगा"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askUser, "user", "", "save the answer to this user's history")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full response as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// keep stdout for the answer
	if cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
		if logger, err = initializeLogger(cfg); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), AdviseRequestTimeout)
	defer cancel()

	deps, err := initializeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	resp, err := deps.Pipeline.AdviseUser(ctx, askUser, strings.Join(args, " "))
	if err != nil {
		logger.Debug("Query rejected", zap.Error(err))
		return err
	}
	return printResponse(cmd.OutOrStdout(), resp, askJSON)
}

func printResponse(w io.Writer, resp advisory.AdvisoryResponse, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(resp)
	}

	if _, err := fmt.Fprintln(w, resp.AnswerText); err != nil {
		return err
	}
	if resp.Disclaimer != "" {
		if _, err := fmt.Fprintf(w, "\nNote: %s\n", resp.Disclaimer); err != nil {
			return err
		}
	}
	return nil
}
