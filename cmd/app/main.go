package main

import (
	"flag"
	"log"
	"os"

	"HourCast/internal/di"
	"HourCast/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s coin=%s vs=%s", cfg.Environment, cfg.Feed.CoinID, cfg.Feed.VsCurrency)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("postgres: connected and schema ready - db: %s", cfg.Postgres.Database)
	if cfg.ClickHouse.Enabled {
		log.Printf("clickhouse: price archive ready - db: %s", cfg.ClickHouse.Database)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
