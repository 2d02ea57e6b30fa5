package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"grana/internal/amqp"
	"grana/internal/backend"
	"grana/internal/bot"
	"grana/internal/classify"
	"grana/internal/config"
	"grana/internal/extract"
	"grana/internal/guard"
	ghttp "grana/internal/http"
	"grana/internal/report"
	"grana/internal/schedule"
)

func main() {
	// Load .env for local development; production sets real env vars.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	loc := cfg.Location()

	result, err := backend.NewFactory(logger).Create(cfg)
	if err != nil {
		logger.Error("Failed to initialize storage backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	// AMQP is optional; without a broker the export worker never sees events.
	var publisher extract.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without export events", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	classifier := classify.NewClient(cfg.GroqURL, cfg.GroqAPIKey, cfg.GroqModel)
	g := guard.New(guard.Config{
		AllowedUsers:  cfg.AllowedUsers,
		RateLimitMsgs: cfg.RateLimitMsgs,
		RateWindow:    cfg.RateLimitWindow,
		MaxTextLength: cfg.MaxTextLength,
	})
	extractor := extract.New(classifier, result.Store, publisher, cfg.MaxAmount)
	engine := report.NewEngine(result.Store, loc)
	service := bot.NewService(g, extractor, engine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sender schedule.Sender = schedule.LogSender{}
	if cfg.ReportWebhookURL != "" {
		sender = schedule.NewWebhookSender(cfg.ReportWebhookURL)
	}
	daily := schedule.NewDailyReport(result.Store, engine, sender, cfg.ReportHour, loc)
	go func() {
		if err := daily.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("Scheduler stopped", "error", err)
		}
	}()

	srv := ghttp.NewServer(":"+cfg.Port, service)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting grana server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", cfg.Timezone,
		"report_hour", cfg.ReportHour)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
