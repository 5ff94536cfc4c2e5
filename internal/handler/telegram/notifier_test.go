package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cf-ddns/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func sampleReport() *domain.Report {
	return &domain.Report{Hostnames: []domain.HostnameReport{
		{Hostname: "broken", Err: errors.New("hostname[broken]: api error")},
		{Hostname: "home", Result: &domain.Result{
			Hostname:  "home",
			FQDN:      "home.example.com",
			A:         domain.Created,
			AAAA:      domain.Skipped,
			Addresses: map[domain.RecordType]string{domain.RecordTypeA: "203.0.113.7"},
		}},
	}}
}

func TestFormatReport(t *testing.T) {
	text := FormatReport(sampleReport())

	for _, want := range []string{
		"1 of 2 hostnames failed",
		"❌ broken",
		"hostname[broken]: api error",
		"🔄 home.example.com",
		"A: created (203.0.113.7)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report text missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "AAAA") {
		t.Errorf("skipped family should not be listed:\n%s", text)
	}
}

func TestNotify(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifierWithSender(sender, 42)

	if err := n.Notify(context.Background(), sampleReport()); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	if sender.sent[0].ChatID != 42 {
		t.Errorf("ChatID = %d, want 42", sender.sent[0].ChatID)
	}

	sender.err = errors.New("Forbidden: bot was blocked by the user")
	if err := n.Notify(context.Background(), sampleReport()); err == nil {
		t.Error("expected send failure to be returned")
	}
}
