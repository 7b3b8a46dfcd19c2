package main

import (
	"ToonForest/internal/config"
	"ToonForest/internal/engine"
	"ToonForest/internal/logger"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or TOML scene configuration")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if err := logger.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			logger.Log.Fatal("Could not load configuration", zap.String("path", *configPath), zap.Error(err))
		}
		logger.Log.Info("Configuration loaded", zap.String("path", *configPath))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.New(cfg).Run(ctx); err != nil {
		logger.Log.Fatal("ToonForest stopped", zap.Error(err))
	}
}
