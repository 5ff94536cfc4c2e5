package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"cf-ddns/external_resource/cloudflare"
	"cf-ddns/external_resource/ipecho"
	mcphandler "cf-ddns/internal/handler/mcp"
	"cf-ddns/internal/repository"
	"cf-ddns/internal/usecase"
	"cf-ddns/pkg/config"
	"cf-ddns/pkg/logger"
	"cf-ddns/pkg/telemetry"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

var version = "dev"

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	// stdout carries the protocol, so logs go to stderr as JSON
	appLog, err := logger.New(logger.Options{Format: logger.FormatJSON, Output: os.Stderr})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	shutdown, err := telemetry.Setup(ctx, telemetry.Options{Version: version, Console: os.Stderr})
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

	// Initialize Cloudflare client
	var cfClient cloudflare.Client
	if cfg.Credentials.UseAPIToken() {
		cfClient, err = cloudflare.NewClient(cfg.Credentials.APIToken, cloudflare.WithUserAgent("cf-ddns-mcp/"+version))
	} else {
		cfClient, err = cloudflare.NewClientWithKey(cfg.Credentials.APIKey, cfg.Credentials.AccountEmail, cloudflare.WithUserAgent("cf-ddns-mcp/"+version))
	}
	if err != nil {
		return fmt.Errorf("failed to create Cloudflare client: %w", err)
	}
	echo := ipecho.NewClient(cfg.IPTimeout)
	endpoints := repository.Endpoints{IPv4: cfg.IPv4URL, IPv6: cfg.IPv6URL}

	// Every tool call gets fresh caches
	newRun := func() usecase.DDNSUsecase {
		return usecase.NewDDNSUsecase(
			repository.NewZoneRepository(cfClient),
			repository.NewIPRepository(echo, endpoints),
			repository.NewDNSRepository(cfClient),
			usecase.Options{Global: cfg.Global, Logger: appLog},
		)
	}
	tools := mcphandler.NewTools(ctx, newRun, cfg.Hostnames, appLog)

	// Create MCP server with tool capabilities enabled
	s := server.NewMCPServer(
		"cf-ddns",
		version,
		server.WithLogging(),
		server.WithToolCapabilities(true),
	)

	// Register tool: sync_all
	s.AddTool(mcp.NewTool("sync_all",
		"Point the A/AAAA records of every configured hostname at the current public addresses. Returns per-hostname outcomes (created, updated, unchanged, skipped) or errors.",
		map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	), tools.SyncAll)

	// Register tool: sync_hostname
	s.AddTool(mcp.NewTool("sync_hostname",
		"Reconcile one hostname prefix. Optional arguments override its configured values. Example: {\"hostname\":\"home\",\"aaaa\":true}",
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"hostname": map[string]interface{}{
					"type":        "string",
					"description": "Hostname prefix inside the zone, or @ for the apex (e.g., home)",
				},
				"zone_id": map[string]interface{}{
					"type":        "string",
					"description": "Zone ID (optional, overrides config)",
				},
				"ttl": map[string]interface{}{
					"type":        "number",
					"description": "TTL in seconds, 1 for auto or 30 to 86400 (optional)",
				},
				"proxied": map[string]interface{}{
					"type":        "boolean",
					"description": "Proxy traffic through Cloudflare (optional)",
				},
				"a": map[string]interface{}{
					"type":        "boolean",
					"description": "Manage the A record (optional)",
				},
				"aaaa": map[string]interface{}{
					"type":        "boolean",
					"description": "Manage the AAAA record (optional)",
				},
			},
			"required": []string{"hostname"},
		},
	), tools.SyncHostname)

	// Register tool: public_ip
	s.AddTool(mcp.NewTool("public_ip",
		"Return the current public address of this machine for an address family",
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"family": map[string]interface{}{
					"type":        "string",
					"description": "ipv4 (default) or ipv6",
					"enum":        []string{"ipv4", "ipv6"},
				},
			},
		},
	), tools.PublicIP)

	appLog.Info("starting MCP server", "hostnames", len(cfg.Hostnames), "version", version)

	// Start stdio server
	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
