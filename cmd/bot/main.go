package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	appMiddleware "github.com/markdave123-py/fieldreport/internal/api/middlewares"
	"github.com/markdave123-py/fieldreport/internal/app"
	"github.com/markdave123-py/fieldreport/internal/config"
	"github.com/markdave123-py/fieldreport/internal/logger"
)

func main() {
	issueFor := flag.String("issue-token", "", "print an admin API token for this subject and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the token printed by -issue-token")
	flag.Parse()

	// Handle SIGINT/SIGTERM for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	if *issueFor != "" {
		if cfg.JWTSecret == "" {
			log.Fatal("JWT_SECRET is not set")
		}
		tok, err := appMiddleware.IssueToken(cfg.JWTSecret, *issueFor, *tokenTTL)
		if err != nil {
			log.Fatalf("issue token: %v", err)
		}
		fmt.Println(tok)
		return
	}

	zl := logger.NewZapLogger(cfg.LogFilePath, cfg.LogLevel, cfg.Environment == "production")
	defer func() { _ = zl.Sync() }()

	application, err := app.NewApp(ctx, cfg, zl)
	if err != nil {
		zl.Error("main", "Startup failed", map[string]interface{}{"error": err})
		os.Exit(1)
	}
	defer application.Close()

	zl.Info("main", "Field report bot is running", map[string]interface{}{"mode": cfg.TelegramMode})
	if err := application.Run(ctx); err != nil {
		zl.Error("main", "Stopped with error", map[string]interface{}{"error": err})
		return
	}
	zl.Info("main", "Shut down cleanly", nil)
}
