// Command bot is the trading bot's entrypoint: load config, build the
// exchange signer/client the way the teacher's cmd/trader/main.go did,
// then hand off to internal/app for the full pipeline. Replaces
// cmd/trader/main.go, whose config.BuilderKey/cfg.Maker/cfg.Risk.MaxOpenOrders
// references predate this rewrite and no longer compile against it.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"

	polymarket "github.com/GoPolymarket/polymarket-go-sdk"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob"

	"github.com/polybot/arb-trader/internal/app"
	"github.com/polybot/arb-trader/internal/config"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFile(*cfgPath)
	if err != nil {
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	logLevel := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	var clobClient clob.Client
	var signer auth.Signer
	if !cfg.DryRun {
		if cfg.PrivateKey == "" || cfg.APIKey == "" {
			logger.Error("private_key and api_key are required outside dry_run")
			os.Exit(1)
		}
		signer, err = auth.NewPrivateKeySigner(strings.TrimSpace(cfg.PrivateKey), 137)
		if err != nil {
			logger.Error("build signer failed", "err", err)
			os.Exit(1)
		}
		apiKey := &auth.APIKey{
			Key:        strings.TrimSpace(cfg.APIKey),
			Secret:     strings.TrimSpace(cfg.APISecret),
			Passphrase: strings.TrimSpace(cfg.APIPassphrase),
		}
		sdkClient := polymarket.NewClient()
		clobClient = sdkClient.CLOB.WithAuth(signer, apiKey)
	}

	a, err := app.New(cfg, clobClient, signer, logger)
	if err != nil {
		logger.Error("build app failed", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	if err := a.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("bot stopped with error", "err", err)
		os.Exit(1)
	}
}
