package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"dnsbot/internal/config"
	"dnsbot/internal/db"
	"dnsbot/internal/gates/ipgeo"
	"dnsbot/internal/ipreg"
	"dnsbot/internal/metrics"
	"dnsbot/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.SlogLevel(),
		AddSource: true,
	})))

	slog.Info("Starting register-web", "addr", cfg.WebAddr, "pid", os.Getpid())

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

	server := web.NewServer(cfg.WebAddr, ipreg.New(repo, geo))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Registration web server failed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	if err := server.Stop(); err != nil {
		slog.Error("Failed to stop registration web server", "error", err)
	}
	slog.Info("Register-web shutdown completed")
}
