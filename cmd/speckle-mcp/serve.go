package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benregnier/speckle-mcp-gpt/internal/cli/config"
	"github.com/benregnier/speckle-mcp-gpt/internal/graph"
	"github.com/benregnier/speckle-mcp-gpt/internal/speckle"
	"github.com/benregnier/speckle-mcp-gpt/internal/store"
	"github.com/benregnier/speckle-mcp-gpt/internal/web/handlers"
	"github.com/benregnier/speckle-mcp-gpt/internal/web/middleware"
	"github.com/benregnier/speckle-mcp-gpt/internal/web/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Load speckle.yml, connect to the configured Speckle server and object store, and serve the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Speckle.Token == "" {
			return fmt.Errorf("no Speckle token configured: set speckle.token in speckle.yml or the SPECKLE_TOKEN environment variable")
		}

		logger, err := buildLogger(cfg.Log.Level)
		if err != nil {
			return err
		}
		defer logger.Sync()

		objectStore, err := buildStore(cfg.Store)
		if err != nil {
			return err
		}

		client, err := speckle.New(speckle.Config{
			ServerURL:    cfg.Speckle.ServerURL,
			Token:        cfg.Speckle.Token,
			FetchTimeout: cfg.Speckle.FetchTimeout,
			MaxRetries:   cfg.Speckle.MaxRetries,
			Logger:       logger,
		})
		if err != nil {
			return err
		}

		var wrap handlers.FetcherWrapper
		if objectStore != nil {
			wrap = func(next graph.Fetcher) graph.Fetcher {
				return store.NewCachedFetcher(objectStore, next, logger)
			}
		}

		handler := handlers.New(client, wrap, logger)

		chain := middleware.NewChain(
			middleware.RequestID(),
			middleware.LoggingWithConfig(middleware.LoggingConfig{
				Logger:    logger,
				SkipPaths: []string{"/health"},
			}),
			middleware.Recovery(logger),
			middleware.Timeout(cfg.Server.RequestTimeout),
		)

		serverConfig := server.DefaultConfig(chain.Then(handler.Routes()))
		serverConfig.Address = cfg.Server.Addr()
		// The write timeout must outlive the slowest permitted request.
		serverConfig.WriteTimeout = cfg.Server.RequestTimeout + 5*time.Second

		srv, err := server.New(serverConfig)
		if err != nil {
			return err
		}

		gs := server.NewGracefulShutdown(srv, &server.ShutdownConfig{
			Timeout: 30 * time.Second,
			Logger:  logger,
		})
		if objectStore != nil {
			gs.RegisterHook(func(ctx context.Context) error {
				return objectStore.Close()
			})
		}
		gs.RegisterHook(func(ctx context.Context) error {
			logger.Sync()
			return nil
		})

		logger.Info("serving Speckle object graph API",
			zap.String("address", cfg.Server.Addr()),
			zap.String("speckle_server", cfg.Speckle.ServerURL),
			zap.String("store_backend", cfg.Store.Backend),
		)
		return gs.Start()
	},
}

func buildLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(parsed)
	return zapConfig.Build()
}

func buildStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.StoreNone:
		return nil, nil
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	case config.StoreRedis:
		redisConfig := store.DefaultRedisConfig()
		redisConfig.Addr = cfg.Redis.Addr
		redisConfig.Password = cfg.Redis.Password
		redisConfig.DB = cfg.Redis.DB
		if cfg.Redis.TTL > 0 {
			redisConfig.Config.TTL = cfg.Redis.TTL
		}
		return store.NewRedisStore(redisConfig)
	case config.StoreSQLite:
		return store.NewSQLiteStore(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}
