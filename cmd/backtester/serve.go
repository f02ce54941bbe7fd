package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/chidi150c/backtestkit/internal/api"
	"github.com/chidi150c/backtestkit/internal/config"
	"github.com/chidi150c/backtestkit/internal/marketdata"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server (POST /run, GET /run/stream)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "config.yaml", "path to the service config file")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadService(serveConfigPath)
	if err != nil {
		return fmt.Errorf("loading service config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid service config: %w", err)
	}

	var cache *marketdata.Cache
	if cfg.MarketData.RedisAddr != "" {
		cache, err = marketdata.NewCache(cfg.MarketData.RedisAddr, cfg.MarketData.CacheTTL)
		if err != nil {
			log.Printf("serve: redis cache unavailable, continuing uncached: %v", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	provider := marketdata.NewProvider(cfg.MarketData.PolygonAPIKey, marketdata.BreakerConfig{
		MaxFailures: cfg.MarketData.BreakerMaxFails,
		OpenDelay:   cfg.MarketData.BreakerOpenDelay,
	}, cache)

	srv := api.NewServer(cfg, provider)
	log.Printf("serve: listening on :%d", cfg.HTTP.Port)
	return srv.ListenAndServe()
}
