package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/perkbase/loyalty-admin/internal/app"
	"github.com/perkbase/loyalty-admin/internal/config"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config.yaml")
	flag.Parse()

	setupLogging(configPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := app.Options{ConfigPath: configPath}

	switch flag.Arg(0) {
	case "migrate":
		if errMigrate := app.Migrate(ctx, opts); errMigrate != nil {
			log.Fatalf("migrate: %v", errMigrate)
		}
		log.Info("migrations applied")
	case "", "serve":
		if errRun := app.RunServer(ctx, opts); errRun != nil {
			log.Fatalf("server: %v", errRun)
		}
	default:
		log.Fatalf("unknown command: %s", flag.Arg(0))
	}
}

// setupLogging configures logrus from the config file's log section.
// Logging falls back to stderr defaults when the config is unreadable
// so startup errors still surface.
func setupLogging(configPath string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, errLoad := config.Load(config.ResolveConfigPath(configPath))
	if errLoad != nil {
		return
	}

	if level, errParse := log.ParseLevel(strings.TrimSpace(cfg.Log.Level)); errParse == nil {
		log.SetLevel(level)
	}
	if cfg.Log.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			Compress:   true,
		}
		log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	}
}
