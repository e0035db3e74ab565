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
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/agri-advisor/internal/agents"
	"github.com/your-org/agri-advisor/internal/cache"
	"github.com/your-org/agri-advisor/internal/config"
	"github.com/your-org/agri-advisor/internal/health"
	"github.com/your-org/agri-advisor/internal/history"
	"github.com/your-org/agri-advisor/internal/openai"
	"github.com/your-org/agri-advisor/internal/pipeline"
	"github.com/your-org/agri-advisor/internal/resilience"
	"github.com/your-org/agri-advisor/internal/retrieve"
)

// ServiceDependencies holds initialized service dependencies
type ServiceDependencies struct {
	Config   *config.Config
	Logger   *zap.Logger
	Cache    cache.Cache
	Pipeline *pipeline.Pipeline
	History  *history.Store
	Saver    *history.Saver
	Health   *health.Manager
	Errors   *resilience.ErrorHandler

	closers []func() error
}

// initializeDependencies connects the generation client, cache and history
// store and assembles the advisory pipeline
func initializeDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*ServiceDependencies, error) {
	logger.Info("Initializing service dependencies")

	client, err := openai.NewClient(openai.Config{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     customEndpoint(cfg.OpenAI.Endpoint),
		Model:       cfg.Generation.Model,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: float32(cfg.Generation.Temperature),
		Timeout:     cfg.Generation.Timeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}

	deps, err := assembleDependencies(ctx, cfg, logger, client)
	if err != nil {
		return nil, err
	}

	logger.Info("Service dependencies initialized successfully",
		zap.String("model", client.Model()),
		zap.String("cache_type", cfg.Cache.Type),
		zap.Bool("history_enabled", cfg.History.Enabled))
	return deps, nil
}

// customEndpoint returns "" for the public OpenAI endpoint so the client
// keeps its own default and key checks
func customEndpoint(endpoint string) string {
	if endpoint == "" || endpoint == "https://api.openai.com/v1" {
		return ""
	}
	return endpoint
}

// assembleDependencies wires everything downstream of the generator
func assembleDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger, generator pipeline.Generator) (*ServiceDependencies, error) {
	deps := &ServiceDependencies{
		Config: cfg,
		Logger: logger,
		Health: health.NewManager("agri-advisor", version, logger),
		Errors: resilience.NewErrorHandler(logger),
	}

	if err := deps.initCache(ctx); err != nil {
		deps.Close()
		return nil, err
	}

	seed := cfg.Retrieval.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	orchestrator := retrieve.NewOrchestrator(
		agents.NewDefaultAgents(agents.Deps{
			Cache:  deps.Cache,
			Random: agents.NewRandom(seed),
			Logger: logger,
		}),
		retrieve.WithRetryConfig(resilience.RetryConfig{
			Attempts: cfg.Retrieval.MaxAttempts,
			Delay:    cfg.Retrieval.RetryDelay,
		}),
		retrieve.WithLogger(logger),
	)

	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if cfg.History.Enabled {
		if err := deps.initHistory(); err != nil {
			deps.Close()
			return nil, err
		}
		opts = append(opts, pipeline.WithSaver(deps.Saver))
	}

	deps.Pipeline = pipeline.New(orchestrator, generator, opts...)
	return deps, nil
}

func (d *ServiceDependencies) initCache(ctx context.Context) error {
	switch d.Config.Cache.Type {
	case cache.TypeRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Address:  d.Config.Cache.RedisAddress,
			Password: d.Config.Cache.RedisPassword,
			DB:       d.Config.Cache.RedisDB,
		}, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize redis cache: %w", err)
		}
		d.Cache = rc
		d.closers = append(d.closers, rc.Close)
		d.Health.AddChecker("cache", health.CacheHealthChecker(cache.TypeRedis, rc.Ping))
	default:
		d.Cache = cache.NewMemoryCache(d.Config.Cache.Capacity)
	}
	return nil
}

func (d *ServiceDependencies) initHistory() error {
	store, err := history.NewStore(d.Config.History.DBPath, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize history store: %w", err)
	}
	d.History = store

	saverConfig := history.DefaultSaverConfig()
	saverConfig.Attempts = uint(d.Config.History.SaveAttempts)
	saverConfig.Delay = d.Config.History.SaveDelay
	d.Saver = history.NewSaver(store, saverConfig, d.Logger)

	// pending saves must finish before the database closes
	d.closers = append(d.closers, func() error {
		d.Saver.Wait()
		return store.Close()
	})
	d.Health.AddChecker("history", health.DatabaseHealthChecker("history", store.Ping))
	return nil
}

// Close releases resources in reverse order of acquisition
func (d *ServiceDependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.Logger.Warn("Failed to close dependency", zap.Error(err))
		}
	}
	d.closers = nil
}
