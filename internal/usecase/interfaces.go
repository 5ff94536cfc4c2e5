package usecase

import (
	"context"

	"cf-ddns/internal/domain"

	"github.com/go-logr/logr"
)

// DDNSUsecase reconciles configured hostnames against the provider.
// One instance is one run: its zone and address caches live as long as it does.
// The interface is handler-agnostic and is driven by the CLI and the MCP server.
type DDNSUsecase interface {
	// CommitRecord reconciles the A/AAAA records of one hostname
	CommitRecord(ctx context.Context, hostname string, cfg domain.HostnameConfig) (*domain.Result, error)

	// SyncAll reconciles every hostname and reports per-hostname results
	SyncAll(ctx context.Context, hostnames map[string]domain.HostnameConfig) *domain.Report

	// PublicIP exposes the run's address oracle
	PublicIP(ctx context.Context, family domain.IPFamily) (string, error)
}

// Options tune a DDNSUsecase
type Options struct {
	// Global holds the defaults every hostname entry falls back to
	Global domain.HostnameConfig

	// Concurrency bounds parallel hostnames in SyncAll; values below 2 run sequentially
	Concurrency int

	Logger logr.Logger
}
