package handler

import (
	"context"
	"fmt"
	"strings"

	"cf-ddns/internal/domain"
)

// Notifier delivers a run report somewhere a human will read it.
// This allows swapping between different chat backends (Telegram, Slack, etc.)
type Notifier interface {
	Notify(ctx context.Context, report *domain.Report) error
}

// NotifyMode decides when a run report is delivered
type NotifyMode string

const (
	NotifyAuto   NotifyMode = "auto"
	NotifyAlways NotifyMode = "always"
	NotifyNever  NotifyMode = "never"
)

// ParseNotifyMode accepts auto, always or never (empty means auto)
func ParseNotifyMode(s string) (NotifyMode, error) {
	switch mode := NotifyMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "":
		return NotifyAuto, nil
	case NotifyAuto, NotifyAlways, NotifyNever:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid notify mode %q (want auto, always or never)", s)
	}
}

// ShouldNotify reports whether the report is worth sending. In auto mode
// only runs that wrote a record or failed a hostname are sent.
func (m NotifyMode) ShouldNotify(report *domain.Report) bool {
	switch m {
	case NotifyAlways:
		return true
	case NotifyNever:
		return false
	default:
		return report.Changed() > 0 || report.Failed() > 0
	}
}
