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

	"github.com/redis/go-redis/v9"

	"dnsbot/internal/config"
	"dnsbot/internal/db"
	"dnsbot/internal/gates/ipgeo"
	"dnsbot/internal/health"
	"dnsbot/internal/ipreg"
	"dnsbot/internal/metrics"
	"dnsbot/internal/session"
	"dnsbot/internal/sweep"
	"dnsbot/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.SlogLevel(),
		AddSource: true,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting bot-service", "version", "1.0.0", "pid", os.Getpid())
	slog.Info("Configuration loaded",
		"db_dsn", cfg.DBDsn,
		"health_addr", cfg.HealthAddr,
		"server_host", cfg.ServerHost,
		"redis", cfg.RedisAddr != "",
		"has_admin", cfg.AdminID != 0,
		"has_bot_token", cfg.BotToken != "",
	)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	metrics.MustRegister()

	repo, err := db.NewRepository(cfg.DBDsn)
	if err != nil {
		slog.Error("Failed to initialize database repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.AutoMigrate(); err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations completed successfully")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var sessions session.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			slog.Error("Failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		sessions = session.NewRedisStore(client, "dnsbot:session", cfg.SessionTTL)
		slog.Info("Using redis session store", "addr", cfg.RedisAddr)
	} else {
		mem := session.NewMemoryStore(cfg.SessionTTL)
		go mem.RunJanitor(ctx, 10*time.Minute)
		sessions = mem
		slog.Info("Using in-memory session store; sessions are lost on restart")
	}

	geo, err := ipgeo.NewClient(ipgeo.Config{
		URL:     cfg.IPGeoURL,
		APIKey:  cfg.IPGeoAPIKey,
		Country: cfg.IPGeoCountry,
		Timeout: cfg.IPGeoTimeout,
	})
	if err != nil {
		slog.Error("Failed to create ip validator", "error", err)
		os.Exit(1)
	}
	defer geo.Close()

	telegramService, err := telegram.New(cfg, repo, sessions, ipreg.New(repo, geo))
	if err != nil {
		slog.Error("Failed to create Telegram service", "error", err)
		os.Exit(1)
	}

	sweeper := sweep.New(repo, telegramService, cfg.SweepInterval)
	if err := sweeper.Start(); err != nil {
		slog.Error("Failed to start expiry sweep", "error", err)
		os.Exit(1)
	}
	defer sweeper.Stop()

	healthServer := health.NewServer(cfg.HealthAddr, repo)
	go func() {
		if err := healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Health server failed", "error", err)
		}
	}()
	defer func() {
		if err := healthServer.Stop(); err != nil {
			slog.Error("Failed to stop health server", "error", err)
		}
	}()

	slog.Info("Starting Telegram bot...")
	if err := telegramService.Start(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("Telegram bot stopped by signal")
		} else {
			slog.Error("Telegram bot failed", "error", err)
		}
	}

	slog.Info("Bot service shutdown completed")
}
