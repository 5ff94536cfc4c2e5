package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cf-ddns/external_resource/cloudflare"
	"cf-ddns/external_resource/ipecho"
	"cf-ddns/internal/handler/rest"
	"cf-ddns/internal/repository"
	"cf-ddns/internal/usecase"
	"cf-ddns/pkg/config"
	"cf-ddns/pkg/logger"
	"cf-ddns/pkg/telemetry"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	appLog, err := logger.New(logger.Options{Format: os.Getenv("DDNS_LOG_FORMAT")})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	shutdown, err := telemetry.Setup(ctx, telemetry.Options{Version: version})
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			appLog.Error(err, "failed to shutdown telemetry")
		}
	}()

	// Load configuration
	cfg, err := config.Load(ctx, config.Args{ConfigPath: os.Getenv("CF_DDNS_CONFIG")})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	apiKeys := rest.ParseAPIKeys(os.Getenv("DDNS_API_KEYS"))
	if apiKeys.Len() == 0 {
		appLog.Info("WARNING: no API keys configured, every /api request will be rejected. Set DDNS_API_KEYS (generate one with: openssl rand -hex 32)")
	}

	// Initialize Cloudflare client
	var cfClient cloudflare.Client
	if cfg.Credentials.UseAPIToken() {
		cfClient, err = cloudflare.NewClient(cfg.Credentials.APIToken, cloudflare.WithUserAgent("cf-ddns-http/"+version))
	} else {
		cfClient, err = cloudflare.NewClientWithKey(cfg.Credentials.APIKey, cfg.Credentials.AccountEmail, cloudflare.WithUserAgent("cf-ddns-http/"+version))
	}
	if err != nil {
		return fmt.Errorf("failed to create Cloudflare client: %w", err)
	}
	echo := ipecho.NewClient(cfg.IPTimeout)
	endpoints := repository.Endpoints{IPv4: cfg.IPv4URL, IPv6: cfg.IPv6URL}

	newRun := func() usecase.DDNSUsecase {
		return usecase.NewDDNSUsecase(
			repository.NewZoneRepository(cfClient),
			repository.NewIPRepository(echo, endpoints),
			repository.NewDNSRepository(cfClient),
			usecase.Options{Global: cfg.Global, Logger: appLog},
		)
	}
	srv := rest.NewServer(newRun, cfg.Hostnames, apiKeys, rest.Options{Version: version, Logger: appLog})

	// Get port from environment
	port := os.Getenv("DDNS_HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLog.Error(err, "graceful shutdown failed")
		}
	}()

	appLog.Info("starting HTTP server", "port", port, "hostnames", len(cfg.Hostnames), "version", version)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
