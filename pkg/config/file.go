package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"cf-ddns/internal/domain"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

// File is the on-disk configuration, TOML or YAML
type File struct {
	Cloudflare CloudflareSection       `toml:"cloudflare" yaml:"cloudflare"`
	Defaults   EntrySection            `toml:"subdomains" yaml:"subdomains"`
	Subdomains map[string]EntrySection `toml:"subdomain" yaml:"subdomain"`
	IP         IPSection               `toml:"ip" yaml:"ip"`
	Notify     NotifySection           `toml:"notify" yaml:"notify"`
}

// CloudflareSection holds credentials
type CloudflareSection struct {
	APIToken     string `toml:"api_token" yaml:"api_token"`
	APIKey       string `toml:"api_key" yaml:"api_key"`
	AccountEmail string `toml:"account_email" yaml:"account_email"`
}

// EntrySection is one hostname entry or the global defaults
type EntrySection struct {
	ZoneID  *string `toml:"zone_id" yaml:"zone_id"`
	TTL     *int    `toml:"ttl" yaml:"ttl"`
	Proxied *bool   `toml:"proxied" yaml:"proxied"`
	A       *bool   `toml:"a" yaml:"a"`
	AAAA    *bool   `toml:"aaaa" yaml:"aaaa"`
}

// IPSection overrides the address echo endpoints
type IPSection struct {
	IPv4URL        string `toml:"ipv4_url" yaml:"ipv4_url"`
	IPv6URL        string `toml:"ipv6_url" yaml:"ipv6_url"`
	TimeoutSeconds int    `toml:"timeout_secs" yaml:"timeout_secs"`
}

// NotifySection configures run-summary delivery
type NotifySection struct {
	Telegram TelegramSection `toml:"telegram" yaml:"telegram"`
}

// TelegramSection targets one chat
type TelegramSection struct {
	BotToken string `toml:"bot_token" yaml:"bot_token"`
	ChatID   int64  `toml:"chat_id" yaml:"chat_id"`
}

// HostnameConfig converts the section to its domain form
func (s EntrySection) HostnameConfig() domain.HostnameConfig {
	return domain.HostnameConfig{
		ZoneID:  s.ZoneID,
		TTL:     s.TTL,
		Proxied: s.Proxied,
		UseA:    s.A,
		UseAAAA: s.AAAA,
	}
}

// ReadFile parses the file at path, picking the decoder by extension.
// Unknown keys are rejected so that a typo never silently falls back to a default.
func ReadFile(ctx context.Context, fs afero.Fs, path string) (*File, error) {
	tracer := otel.Tracer("cf-ddns")
	_, span := tracer.Start(ctx, "config.ReadFile")
	defer span.End()

	span.SetAttributes(attribute.String("config.file", path))

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = decodeYAML(data, &file)
	case ".toml", "":
		err = decodeTOML(data, &file)
	default:
		err = fmt.Errorf("unsupported config format %q (want .toml, .yaml or .yml)", ext)
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	span.SetAttributes(attribute.Int("config.subdomains", len(file.Subdomains)))
	return &file, nil
}

func decodeTOML(data []byte, file *File) error {
	md, err := toml.Decode(string(data), file)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func decodeYAML(data []byte, file *File) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(file); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
