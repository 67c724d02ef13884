package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ha1tch/tabgraph/pkg/cache"
	"github.com/ha1tch/tabgraph/pkg/config"
	"github.com/ha1tch/tabgraph/pkg/metrics"
	"github.com/ha1tch/tabgraph/pkg/server"
	"github.com/ha1tch/tabgraph/pkg/storage"
)

func main() {
	// Setup logger
	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Logger().
		Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger = logger.Level(cfg.Level())

	printBanner(cfg)

	// Initialize cache
	ttl := time.Duration(cfg.CacheTTL) * time.Second
	var cacheInstance cache.Cache
	if cfg.CacheType == "redis" {
		redisCache, err := cache.NewRedisCache(cfg.RedisHost, cfg.RedisPort, ttl)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to Redis, falling back to memory cache")
			cacheInstance = cache.NewMemoryCache(cfg.CacheSize, ttl)
		} else {
			cacheInstance = redisCache
			logger.Info().Msg("Using Redis cache")
		}
	} else {
		cacheInstance = cache.NewMemoryCache(cfg.CacheSize, ttl)
		logger.Info().Msg("Using in-memory cache")
	}
	defer cacheInstance.Close()

	registry := metrics.NewRegistry()

	srv := server.New(cfg, cacheInstance, registry, logger)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info().Msg("Shutting down gracefully...")
		if err := cacheInstance.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close cache")
		}
		os.Exit(0)
	}()

	logger.Info().Msg("Server ready to accept requests")
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func printBanner(cfg *config.Config) {
	fmt.Println()
	fmt.Println("//////////////////////////// tabgraph " + config.Version + " ////////////////////////////")
	fmt.Println("----------------------------------------------------------------------")
	fmt.Println("Server Configuration:")
	fmt.Printf("  Host: %s\n", cfg.Host)
	fmt.Printf("  Port: %d\n", cfg.Port)
	fmt.Printf("  Max upload size: %d bytes\n", cfg.MaxUploadSize)
	fmt.Println()
	fmt.Println("Cache Configuration:")
	fmt.Printf("  Type: %s\n", cfg.CacheType)
	fmt.Printf("  TTL: %d seconds\n", cfg.CacheTTL)
	if cfg.CacheType == "redis" {
		fmt.Printf("  Redis: %s:%d\n", cfg.RedisHost, cfg.RedisPort)
	}
	fmt.Println()
	fmt.Println("Conversion:")
	fmt.Printf("  Available sinks: %s\n", strings.Join(storage.ListSinks(), ", "))
	fmt.Printf("  Log level: %s\n", cfg.Level())
	fmt.Println("----------------------------------------------------------------------")
	fmt.Println()
}
