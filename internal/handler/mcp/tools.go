package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cf-ddns/internal/domain"
	"cf-ddns/internal/handler"
	"cf-ddns/internal/usecase"

	"github.com/go-logr/logr"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// RunFactory returns a reconciler with empty caches. Every tool call is its own run.
type RunFactory func() usecase.DDNSUsecase

// Tools implements the MCP tool handlers over the reconciler
type Tools struct {
	ctx       context.Context
	newRun    RunFactory
	hostnames map[string]domain.HostnameConfig
	log       logr.Logger
}

// NewTools creates the tool handlers for the configured hostnames
func NewTools(ctx context.Context, newRun RunFactory, hostnames map[string]domain.HostnameConfig, log logr.Logger) *Tools {
	return &Tools{
		ctx:       ctx,
		newRun:    newRun,
		hostnames: hostnames,
		log:       log,
	}
}

// SyncAll reconciles every configured hostname
func (t *Tools) SyncAll(arguments map[string]interface{}) (*mcpgo.CallToolResult, error) {
	report := t.newRun().SyncAll(t.ctx, t.hostnames)
	t.log.Info("sync_all finished", "hostnames", len(report.Hostnames), "failed", report.Failed())

	return jsonResult(handler.NewReportView(report), report.Failed() > 0)
}

// SyncHostname reconciles one hostname; argument overrides win over its config entry
func (t *Tools) SyncHostname(arguments map[string]interface{}) (*mcpgo.CallToolResult, error) {
	hostname, ok := arguments["hostname"].(string)
	if !ok || strings.TrimSpace(hostname) == "" {
		return errorResult("hostname is required"), nil
	}

	overrides, err := handler.ParseOverrides(arguments)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	cfg := overrides.Merge(t.hostnames[hostname])

	result, err := t.newRun().CommitRecord(t.ctx, hostname, cfg)
	if err != nil {
		t.log.Error(err, "sync_hostname failed", "hostname", hostname)
	}
	return jsonResult(handler.NewHostnameView(hostname, result, err), err != nil)
}

// PublicIP returns the current public address for a family
func (t *Tools) PublicIP(arguments map[string]interface{}) (*mcpgo.CallToolResult, error) {
	raw, _ := arguments["family"].(string)
	if raw == "" {
		raw = "ipv4"
	}
	family, ok := domain.ParseIPFamily(raw)
	if !ok {
		return errorResult(fmt.Sprintf("invalid family %q (want ipv4 or ipv6)", raw)), nil
	}

	ip, err := t.newRun().PublicIP(t.ctx, family)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(map[string]string{"family": family.String(), "ip": ip}, false)
}

func jsonResult(v interface{}, isError bool) (*mcpgo.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return &mcpgo.CallToolResult{
		IsError: isError,
		Content: []interface{}{mcpgo.NewTextContent(string(jsonData))},
	}, nil
}

func errorResult(msg string) *mcpgo.CallToolResult {
	return &mcpgo.CallToolResult{
		IsError: true,
		Content: []interface{}{mcpgo.NewTextContent("Error: " + msg)},
	}
}
