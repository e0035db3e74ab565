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
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/agri-advisor/internal/config"
	"github.com/your-org/agri-advisor/internal/history"
	"github.com/your-org/agri-advisor/internal/resilience"
)

const (
	// AdviseRequestTimeout bounds one advisory request, retries and both
	// generation passes included. Keep it under the server write timeout.
	AdviseRequestTimeout = 55 * time.Second
	// HistoryRequestTimeout bounds history reads and deletes
	HistoryRequestTimeout = 5 * time.Second
	// RequestIDHeader carries the request id echoed in error responses
	RequestIDHeader = "X-Request-ID"
)

// AdviseRequest represents the JSON payload for advisory requests
type AdviseRequest struct {
	Query  string `json:"query" binding:"required"`
	UserID string `json:"user_id,omitempty"`
}

// HistoryResponse lists a user's recent queries
type HistoryResponse struct {
	UserID  string           `json:"user_id"`
	Count   int              `json:"count"`
	Records []history.Record `json:"records"`
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the advisory HTTP API",
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	maskedConfig := cfg.MaskSensitiveValues()
	logger.Info("Configuration loaded successfully",
		zap.String("service", "agri-advisor"),
		zap.String("version", version),
		zap.String("openai_endpoint", maskedConfig.OpenAI.Endpoint),
		zap.String("openai_api_key", maskedConfig.OpenAI.APIKey),
		zap.String("model", maskedConfig.Generation.Model),
		zap.String("cache_type", maskedConfig.Cache.Type),
		zap.String("redis_password", maskedConfig.Cache.RedisPassword),
		zap.String("history_db_path", maskedConfig.History.DBPath),
		zap.Int("retrieval_attempts", maskedConfig.Retrieval.MaxAttempts),
		zap.Duration("retrieval_delay", maskedConfig.Retrieval.RetryDelay),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := initializeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	if err := config.WatchConfig(configPath, logger, func(updated *config.Config) {
		logLevel.SetLevel(levelFor(updated.Logging.Level))
		logger.Info("Applied reloaded configuration", zap.String("log_level", updated.Logging.Level))
	}); err != nil {
		logger.Debug("Config hot reload disabled", zap.Error(err))
	}

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting advisory service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Graceful shutdown failed", zap.Error(err))
	}
	logger.Info("Advisory service stopped")
	return nil
}

// newRouter registers the HTTP API on a gin engine
func newRouter(deps *ServiceDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(deps.Logger))

	router.GET("/health", deps.Health.GinHandler())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.POST("/advise", createAdviseHandler(deps))
	api.GET("/history", createListHistoryHandler(deps))
	api.DELETE("/history/:id", createDeleteHistoryHandler(deps))

	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("Handled request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", c.GetHeader(RequestIDHeader)))
	}
}

func createAdviseHandler(deps *ServiceDependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AdviseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			deps.Errors.Respond(c, resilience.NewBadRequestError("Request body must include a query", err), "advise")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), AdviseRequestTimeout)
		defer cancel()

		resp, err := deps.Pipeline.AdviseUser(ctx, req.UserID, req.Query)
		if err != nil {
			deps.Errors.Respond(c, err, "advise")
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func createListHistoryHandler(deps *ServiceDependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.History == nil {
			deps.Errors.Respond(c, resilience.NewServiceUnavailableError("Query history is disabled", nil), "list history")
			return
		}

		user := c.Query("user")
		if user == "" {
			deps.Errors.Respond(c, resilience.NewBadRequestError("The user parameter is required", nil), "list history")
			return
		}

		limit := history.DefaultListLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				deps.Errors.Respond(c, resilience.NewBadRequestError("limit must be a positive integer", err), "list history")
				return
			}
			limit = n
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), HistoryRequestTimeout)
		defer cancel()

		records, err := deps.History.ListRecent(ctx, user, limit)
		if err != nil {
			deps.Errors.Respond(c, err, "list history")
			return
		}
		c.JSON(http.StatusOK, HistoryResponse{UserID: user, Count: len(records), Records: records})
	}
}

func createDeleteHistoryHandler(deps *ServiceDependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.History == nil {
			deps.Errors.Respond(c, resilience.NewServiceUnavailableError("Query history is disabled", nil), "delete history")
			return
		}

		user := c.Query("user")
		if user == "" {
			deps.Errors.Respond(c, resilience.NewBadRequestError("The user parameter is required", nil), "delete history")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), HistoryRequestTimeout)
		defer cancel()

		id := c.Param("id")
		if err := deps.History.Delete(ctx, id, user); err != nil {
			if errors.Is(err, history.ErrNotFound) {
				err = resilience.NewNotFoundError("No history entry with that id", err)
			}
			deps.Errors.Respond(c, err, "delete history")
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": id})
	}
}
