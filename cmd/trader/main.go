// ====================================
// File: cmd/trader/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpswap-engine/internal/config"
	"github.com/rovshanmuradov/pumpswap-engine/internal/engine"
	"github.com/rovshanmuradov/pumpswap-engine/internal/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Development = cfg.DebugLogging
	if cfg.LogFile != "" {
		logCfg.LogFile = cfg.LogFile
	}
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting PumpSwap trading engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := engine.New(cfg, log.Logger)
	if err != nil {
		log.Fatal("Failed to initialize engine", zap.Error(err))
	}

	if err := eng.Run(ctx); err != nil {
		log.Error("Engine finished with errors", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}

	log.Info("Engine finished")
}
