package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/notifyhub/supplytrack/internal/api"
	"github.com/notifyhub/supplytrack/internal/api/handler"
	"github.com/notifyhub/supplytrack/internal/audit"
	"github.com/notifyhub/supplytrack/internal/config"
	"github.com/notifyhub/supplytrack/internal/db"
	"github.com/notifyhub/supplytrack/internal/dispatcher"
	"github.com/notifyhub/supplytrack/internal/domain"
	"github.com/notifyhub/supplytrack/internal/metrics"
	"github.com/notifyhub/supplytrack/internal/provider"
	"github.com/notifyhub/supplytrack/internal/ratelimiter"
	"github.com/notifyhub/supplytrack/internal/repository"
	"github.com/notifyhub/supplytrack/internal/service"
	"github.com/notifyhub/supplytrack/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()
	ready := map[string]handler.Pinger{}

	// ---- entity store ----
	var repo repository.EntityRepository
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		logger.Info("database migrations applied")
		repo = repository.NewPgEntityRepository(pool)
		ready["database"] = pool
	} else {
		mem := repository.NewMemoryEntityRepository()
		if cfg.SeedFile != "" {
			entities, err := repository.LoadSeedFile(cfg.SeedFile)
			if err != nil {
				logger.Fatal("failed to load seed file", zap.String("path", cfg.SeedFile), zap.Error(err))
			}
			if err := mem.Upsert(ctx, entities); err != nil {
				logger.Fatal("failed to seed repository", zap.String("path", cfg.SeedFile), zap.Error(err))
			}
			logger.Info("in-memory repository seeded", zap.Int("entities", len(entities)))
		}
		repo = mem
	}

	// ---- pacing ----
	var rdb *redis.Client
	if cfg.PacerBackend == config.PacerRedis {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		ready["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	pacers := ratelimiter.New(func(ch domain.Channel) ratelimiter.Pacer {
		if ch != domain.ChannelEmail {
			return nil // deep links are generated locally
		}
		switch cfg.PacerBackend {
		case config.PacerRedis:
			return ratelimiter.NewRedisGate(rdb, "supplytrack:pacer:"+string(ch), cfg.DispatchInterval)
		case config.PacerToken:
			return ratelimiter.NewTokenBucket(cfg.DispatchInterval, cfg.DispatchBurst)
		default:
			return ratelimiter.NewIntervalGate(cfg.DispatchInterval, cfg.DispatchJitter)
		}
	})

	// ---- channel providers ----
	var emailProvider provider.Provider
	switch cfg.EmailProvider {
	case config.EmailProviderWebhook:
		emailProvider = provider.NewWebhookProvider(cfg.ProviderBaseURL, cfg.ProviderTimeout)
	default:
		emailProvider, err = provider.NewSMTPProvider(provider.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			Timeout:  cfg.SMTPTimeout,
		})
		if err != nil {
			logger.Fatal("failed to configure smtp", zap.Error(err))
		}
	}

	// ---- audit stream ----
	var sink audit.Sink = audit.NopSink{}
	if len(cfg.KafkaBrokers) > 0 {
		ks := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
		defer ks.Close()
		sink = ks
		logger.Info("publishing email audit events", zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaAuditTopic))
	}

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	hooks := m.DispatchHooks()

	routes := map[domain.Channel]service.Route{
		domain.ChannelEmail: {
			Dispatcher: dispatcher.New(pacers.For(domain.ChannelEmail), logger, hooks),
			Provider:   emailProvider,
		},
		domain.ChannelWhatsApp: {
			Dispatcher: dispatcher.New(pacers.For(domain.ChannelWhatsApp), logger, hooks),
			Provider:   provider.NewWhatsAppLinkProvider(),
		},
	}
	svc := service.NewTrackingService(repo, routes, service.Options{
		HorizonDays:   cfg.DueSoonHorizonDays,
		DefaultSender: cfg.DefaultSender,
		Audit:         sink,
		Observer:      m,
	}, logger)

	// ---- background sweeper ----
	// Context for background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var wg sync.WaitGroup
	if cfg.OverdueSweepInterval > 0 {
		sweeper := worker.NewOverdueSweeper(svc, cfg.OverdueSweepInterval, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sweeper.Run(workerCtx)
		}()
	}

	// ---- HTTP server ----
	router := api.NewRouter(svc, reg, api.Options{CronSecret: cfg.CronSecret, Ready: ready}, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests and let in-flight batches finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop the sweeper and wait for its current pass.
	cancelWorkers()
	wg.Wait()

	logger.Info("server stopped cleanly")
}
