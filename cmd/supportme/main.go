// Package main запускает HTTP-сервер сервиса Support Me.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/support-me/internal/cache"
	"github.com/mmeshcher/support-me/internal/config"
	"github.com/mmeshcher/support-me/internal/gateway"
	"github.com/mmeshcher/support-me/internal/handler"
	"github.com/mmeshcher/support-me/internal/metrics"
	"github.com/mmeshcher/support-me/internal/middleware"
	"github.com/mmeshcher/support-me/internal/notify"
	"github.com/mmeshcher/support-me/internal/reconciler"
	"github.com/mmeshcher/support-me/internal/repository"
	"github.com/mmeshcher/support-me/internal/service"
	"github.com/mmeshcher/support-me/internal/storage"
)

const catalogCacheTTL = 5 * time.Minute

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Development() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewPostgresRepository(ctx, cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	files, err := storage.NewLocal(cfg.StaticDir)
	if err != nil {
		sugar.Fatalw("storage initialization error", "error", err.Error())
	}

	// Без AMQP_URL письма только пишутся в лог. Publisher передаётся нетипизированным nil.
	var publisher notify.Publisher
	if cfg.AMQPURL != "" {
		conn, err := notify.Connect(ctx, cfg.AMQPURL, 5, 2*time.Second)
		if err != nil {
			sugar.Fatalw("rabbitmq connection error", "error", err.Error())
		}
		defer conn.Close()

		ch, err := notify.SetupChannel(conn, cfg.MailExchange)
		if err != nil {
			sugar.Fatalw("rabbitmq channel error", "error", err.Error())
		}
		defer ch.Close()
		publisher = ch
	}
	mailer := notify.NewMailer(publisher, cfg.MailExchange, cfg.MailFrom, cfg.BaseURL, logger)

	stripeGateway := gateway.New(cfg.StripeSecretKey, cfg.StripeWebhookKey, cfg.BaseURL)
	rec := reconciler.New(repo, stripeGateway, logger)

	svc := service.NewService(repo, stripeGateway, files, mailer, rec, logger)

	if cfg.RedisAddr != "" {
		c, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, catalogCacheTTL)
		if err != nil {
			sugar.Fatalw("redis connection error", "error", err.Error())
		}
		defer c.Close()
		svc = svc.WithCache(c)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret, cfg.JWTLifetime(), cfg.Production())
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter(handler.RouterConfig{
		StaticDir:     files.Root(),
		CORSOrigins:   cfg.CORSOrigins,
		AuthRateLimit: cfg.AuthRateLimit,
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Health:        repo.Ping,
	})

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting support-me server", "addr", cfg.RunAddress, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
