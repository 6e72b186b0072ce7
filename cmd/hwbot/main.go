package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/samims/hwbot/internal/checker"
	"github.com/samims/hwbot/internal/clock"
	"github.com/samims/hwbot/internal/config"
	appErr "github.com/samims/hwbot/internal/errors"
	"github.com/samims/hwbot/internal/handler"
	"github.com/samims/hwbot/internal/logger"
	"github.com/samims/hwbot/internal/metrics"
	"github.com/samims/hwbot/internal/practicum"
	"github.com/samims/hwbot/internal/router"
	"github.com/samims/hwbot/internal/service"
	"github.com/samims/hwbot/internal/telegram"
	"github.com/samims/hwbot/pkg/tracing"
)

const serviceVersion = "1.0.0"

func main() {
	os.Exit(realMain())
}

// realMain returns the process exit code so deferred cleanup runs before exit.
func realMain() int {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	l := logger.NewLogger(cfg.LogLevel)
	slog.SetDefault(l)
	if envErr != nil {
		l.Debug("No .env file loaded, using process environment", slog.Any("reason", envErr))
	}
	if err != nil {
		logger.Critical(l, "Failed to read configuration", slog.Any("error", err))
		return 1
	}
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, l); err != nil {
		if appErr.IsFatal(err) {
			logger.Critical(l, "Bot cannot start", slog.Any("error", err))
		} else {
			l.Error("Bot stopped with error", slog.Any("error", err))
		}
		return 1
	}
	l.Info("Bot stopped")
	return 0
}

// run validates cfg before anything that can touch the network is built,
// then runs the poll loop and the ops server until ctx is cancelled.
func run(ctx context.Context, cfg config.Config, l *slog.Logger) error {
	l.Debug("Checking required configuration")
	if err := cfg.Validate(); err != nil {
		return err
	}
	chatID, channel, _ := cfg.Chat()
	l.Debug("Configuration complete, starting bot")

	shutdownTracing, err := tracing.SetupTracing(ctx, &tracing.Config{
		ServiceName:          cfg.ServiceName,
		ServiceVersion:       serviceVersion,
		Environment:          cfg.Environment,
		OTLPExporterEndpoint: cfg.OTLPEndpoint,
		OTLPExporterInsecure: true,
		SamplingRatio:        1.0,
	}, l)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			l.Error("Failed to shutdown tracing", slog.Any("error", err))
		}
	}()
	tracer := tracing.NewTracer(tracing.GetTracer(cfg.ServiceName))

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}

	bot := telegram.NewBot(cfg.TelegramToken, cfg.TelegramAPIEndpoint, httpClient)
	telegram.VerifyBot(bot, l)

	fetcher := practicum.NewClient(cfg.PracticumEndpoint, cfg.PracticumToken, httpClient, l, tracer)
	notifier := telegram.NewNotifier(bot, chatID, channel, l, tracer)
	clk := clock.Real()
	chkr := checker.NewHomeworkChecker(fetcher, notifier, clk, cfg.RetryPeriod, l, tracer)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := chkr.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if cfg.HTTPAddr != "" {
		healthHandler := handler.NewHealthHandler(service.NewHealthService(chkr, clk, l), l)
		server := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router.NewRouter(healthHandler),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			l.Info("Ops server started", "addr", cfg.HTTPAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				// polling carries on without the ops endpoints
				l.Error("Ops server failed", slog.Any("error", err))
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			l.Info("Shutting down ops server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
