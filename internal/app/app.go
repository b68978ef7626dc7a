package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/markdave123-py/fieldreport/internal/api/handlers"
	"github.com/markdave123-py/fieldreport/internal/bot"
	"github.com/markdave123-py/fieldreport/internal/config"
	"github.com/markdave123-py/fieldreport/internal/core"
	db "github.com/markdave123-py/fieldreport/internal/core/database"
	"github.com/markdave123-py/fieldreport/internal/core/extractor"
	"github.com/markdave123-py/fieldreport/internal/core/llm"
	objectclient "github.com/markdave123-py/fieldreport/internal/core/object-client"
	"github.com/markdave123-py/fieldreport/internal/core/quota"
	"github.com/markdave123-py/fieldreport/internal/core/render"
	"github.com/markdave123-py/fieldreport/internal/core/report"
	"github.com/markdave123-py/fieldreport/internal/core/session"
	"github.com/markdave123-py/fieldreport/internal/logger"
	"github.com/markdave123-py/fieldreport/internal/metrics"
	"github.com/markdave123-py/fieldreport/internal/models"
	"github.com/markdave123-py/fieldreport/internal/services"
)

const (
	module          = "app"
	shutdownTimeout = 30 * time.Second
	queueSize       = 64
)

type App struct {
	cfg        *config.Config
	log        logger.ILogger
	DBClient   core.DbClient
	redis      *redis.Client
	gemini     *llm.GeminiLLM
	telegram   *bot.TelegramClient
	dispatcher *bot.Dispatcher
	scheduler  *quota.Scheduler
	Server     *Server
}

func NewApp(ctx context.Context, cfg *config.Config, log logger.ILogger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{cfg: cfg, log: log}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBClient = dbClient
	log.Info(module, "Database initialized and ready", nil)

	objClient, err := objectclient.NewS3Client(appCtx, cfg, log)
	if err != nil {
		return nil, err
	}
	log.Info(module, "Object client initialized and ready", map[string]interface{}{"bucket": cfg.BucketName})

	store, err := a.sessionStore(appCtx)
	if err != nil {
		return nil, err
	}

	var (
		normalizer core.TextNormalizer
		titles     core.TitleGenerator
	)
	if cfg.AIEnabled() {
		a.gemini, err = llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the text model, %w", err)
		}
		if cfg.AICleaningEnabled {
			normalizer = llm.NewCleaner(a.gemini)
		}
		if cfg.AITitlesEnabled {
			titles = llm.NewTitleGenerator(a.gemini.WithJSON(0.4))
		}
	} else {
		log.Warn(module, "AI cleaning disabled, notes are reported verbatim", nil)
	}

	compiler := report.NewCompiler(report.Options{
		Bucket:           cfg.BucketName,
		SummaryWindow:    cfg.SummaryWindow,
		Placement:        report.Placement(cfg.UncategorizedPlacement),
		NormalizeTimeout: cfg.NormalizeTimeout,
		RenderTimeout:    cfg.RenderTimeout,
		UploadTimeout:    cfg.UploadTimeout,
		RetryAttempts:    cfg.RetryMaxAttempts,
	}, normalizer, titles, objClient, log, m)
	compiler.Register(models.FormatPDF, render.NewPDFRenderer(log))
	compiler.Register(models.FormatDOCX, render.NewDOCXRenderer(log))
	if cfg.PDFEngine == "chrome" {
		compiler.Register(models.FormatFramedPDF, render.NewChromeRenderer(cfg.ChromePath, log))
	}

	limiter := quota.NewLimiter(dbClient, cfg.DailyReportLimit)
	a.scheduler = quota.NewScheduler(limiter, log)

	memory := services.NewMemoryService(dbClient, cfg.MaxMemoryFacts, log)
	splitter := extractor.NewNoteSplitter(extractor.NewDocconvExtractor(false), extractor.DefaultNoteTokens)
	sessions := services.NewSessionService(store, splitter, log, m)
	reports := services.NewReportService(store, limiter, compiler, memory, dbClient, objClient,
		cfg.BucketName, models.Units(cfg.DefaultUnits), log, m)

	a.telegram, err = bot.NewTelegramClient(cfg.TelegramBotToken, cfg.SendRatePerSecond, cfg.UploadTimeout)
	if err != nil {
		return nil, err
	}
	log.Info(module, "Authorized on Telegram", map[string]interface{}{"bot": a.telegram.Username()})

	handler := bot.NewHandler(a.telegram, sessions, reports, memory, log)
	a.dispatcher = bot.NewDispatcher(handler, cfg.Workers, queueSize, updateTimeout(cfg), log, m)

	var webhook *handlers.WebhookHandler
	if cfg.TelegramMode == "webhook" {
		webhook = handlers.NewWebhookHandler(cfg.WebhookSecret, a.dispatcher, log)
	}
	a.Server = NewServer(cfg, log, reg, webhook, handlers.NewReportHandler(reports, log))

	ok = true
	return a, nil
}

func (a *App) sessionStore(ctx context.Context) (session.Store, error) {
	if a.cfg.SessionBackend != "redis" {
		return session.NewMemoryStore(a.cfg.SessionIdleTTL), nil
	}
	opt, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	a.redis = redis.NewClient(opt)
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	a.log.Info(module, "Redis session store ready", nil)
	return session.NewRedisStore(a.redis, a.cfg.SessionIdleTTL), nil
}

// updateTimeout bounds one update: a report may clean every note, render and
// upload with retries.
func updateTimeout(cfg *config.Config) time.Duration {
	return cfg.NormalizeTimeout + cfg.RenderTimeout + time.Duration(cfg.RetryMaxAttempts)*cfg.UploadTimeout
}

// drainTimeout bounds how long queued updates may run after intake stops.
func drainTimeout(cfg *config.Config) time.Duration {
	return updateTimeout(cfg) + shutdownTimeout
}

// Run serves until ctx is cancelled, then shuts down in order: intake first,
// then queued updates are drained.
func (a *App) Run(ctx context.Context) error {
	a.dispatcher.Start(context.WithoutCancel(ctx))

	if err := a.scheduler.Start(a.cfg.QuotaResetSchedule); err != nil {
		return err
	}
	defer a.scheduler.Stop()

	serverErr := make(chan error, 1)
	go func() { serverErr <- a.Server.Start() }()

	pollDone := make(chan struct{})
	switch a.cfg.TelegramMode {
	case "webhook":
		close(pollDone)
		url := strings.TrimRight(a.cfg.WebhookURL, "/") + "/telegram/webhook/" + a.cfg.WebhookSecret
		if err := a.telegram.SetWebhook(url); err != nil {
			return errors.Join(err, a.shutdown(pollDone))
		}
		a.log.Info(module, "Webhook registered", nil)
	default:
		updates, err := a.telegram.Updates()
		if err != nil {
			close(pollDone)
			return errors.Join(err, a.shutdown(pollDone))
		}
		go func() {
			defer close(pollDone)
			bot.RunPolling(ctx, updates, a.telegram.StopPolling, a.dispatcher, a.log)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info(module, "Shutting down", nil)
	case runErr = <-serverErr:
		a.log.Error(module, "HTTP server failed", map[string]interface{}{"error": runErr})
	}
	return errors.Join(runErr, a.shutdown(pollDone))
}

func (a *App) shutdown(pollDone <-chan struct{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if a.cfg.TelegramMode != "webhook" {
		a.telegram.StopPolling()
	}
	select {
	case <-pollDone:
	case <-ctx.Done():
	}

	// A running /report may need its full budget before its usage is recorded.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), drainTimeout(a.cfg))
	defer drainCancel()
	if err := a.dispatcher.Shutdown(drainCtx); err != nil {
		errs = append(errs, fmt.Errorf("drain updates: %w", err))
	}
	return errors.Join(errs...)
}

func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.gemini != nil {
		_ = a.gemini.Close()
	}
}
