package telegram

import (
	"context"
	"fmt"
	"strings"

	"cf-ddns/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hashicorp/go-cleanhttp"
)

// Sender is the part of *tgbotapi.BotAPI the notifier needs
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier implements handler.Notifier by messaging one Telegram chat
type Notifier struct {
	sender Sender
	chatID int64
}

// NewNotifier logs in with the bot token and targets chatID
func NewNotifier(token string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, cleanhttp.DefaultPooledClient())
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return NewNotifierWithSender(bot, chatID), nil
}

// NewNotifierWithSender wraps an existing sender
func NewNotifierWithSender(sender Sender, chatID int64) *Notifier {
	return &Notifier{sender: sender, chatID: chatID}
}

// Notify sends the formatted run report
func (n *Notifier) Notify(ctx context.Context, report *domain.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, FormatReport(report))
	msg.DisableWebPagePreview = true
	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// FormatReport renders a report as a plain-text chat message
func FormatReport(report *domain.Report) string {
	var sb strings.Builder

	if report.Failed() > 0 {
		sb.WriteString(fmt.Sprintf("❌ DDNS run: %d of %d hostnames failed\n", report.Failed(), len(report.Hostnames)))
	} else {
		sb.WriteString(fmt.Sprintf("✅ DDNS run: %d hostnames, %d changed\n", len(report.Hostnames), report.Changed()))
	}

	for _, h := range report.Hostnames {
		sb.WriteString("\n")
		if h.Err != nil {
			sb.WriteString(fmt.Sprintf("❌ %s\n   %v\n", h.Hostname, h.Err))
			continue
		}
		r := h.Result
		icon := "▫️"
		if r.Changed() {
			icon = "🔄"
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", icon, r.FQDN))
		for _, family := range domain.Families {
			outcome := r.Get(family)
			if outcome == domain.Skipped {
				continue
			}
			sb.WriteString(fmt.Sprintf("   %s: %s (%s)\n", family.RecordType(), outcome, r.Addresses[family.RecordType()]))
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}
