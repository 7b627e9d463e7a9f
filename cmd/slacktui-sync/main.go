package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cwaldbieser/slack-tui/internal/app"
	"github.com/cwaldbieser/slack-tui/pkg/config"
	"github.com/cwaldbieser/slack-tui/pkg/logger"
)

// build metadata - set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")
	cfgVal, dbVal, wsVal, setFlags := config.ParseCommandFlags()

	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])
	cfg, _, err := config.LoadEffective(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	// Flags explicitly set win over env/config.
	if setFlags["db"] {
		cfg.Storage.DBPath = dbVal
	}
	if setFlags["workspace"] {
		cfg.Workspace = wsVal
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	defer logger.Sync()

	a, err := app.New(cfg, version, commit, buildDate)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		log.Fatalf("daemon exited: %v", err)
	}
}
