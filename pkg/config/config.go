package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"cf-ddns/internal/domain"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
)

// Environment variables read when the matching flag is not given
const (
	EnvAPIToken      = "CF_API_TOKEN"
	EnvAPIKey        = "CF_API_KEY"
	EnvAccountEmail  = "CF_ACCOUNT_EMAIL"
	EnvZoneID        = "CF_ZONE_ID"
	EnvTelegramToken = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChat  = "TELEGRAM_CHAT_ID"
)

const defaultIPTimeout = 10 * time.Second

// Args are the command line values. Empty strings and nil pointers mean
// "not given" and fall through to the environment, then the file.
type Args struct {
	ConfigPath   string
	APIToken     string
	APIKey       string
	AccountEmail string
	ZoneID       string
	TTL          *int
	Proxied      *bool
	A            *bool
	AAAA         *bool
	Subdomain    string
}

// Config holds all application configuration
type Config struct {
	// Cloudflare
	Credentials Credentials

	// Global defaults and the hostname entries keyed by prefix
	Global    domain.HostnameConfig
	Hostnames map[string]domain.HostnameConfig

	// Address echo
	IPv4URL   string
	IPv6URL   string
	IPTimeout time.Duration

	// Telegram
	TelegramBotToken string
	TelegramChatID   int64

	// Path of the file that was read, empty when none was
	Path string
}

// Credentials authenticate against the Cloudflare API
type Credentials struct {
	APIToken     string
	APIKey       string
	AccountEmail string
}

// UseAPIToken returns true if API token should be used
func (c Credentials) UseAPIToken() bool {
	return c.APIToken != ""
}

// TelegramEnabled reports whether run summaries can be delivered
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

// Loader resolves a Config from flags, environment and file
type Loader struct {
	Fs     afero.Fs
	Getenv func(string) string
	// ConfigHome returns the base directory of the default config file
	ConfigHome func() (string, error)
}

// NewLoader returns a Loader over the real filesystem and environment
func NewLoader() *Loader {
	return &Loader{
		Fs:         afero.NewOsFs(),
		Getenv:     os.Getenv,
		ConfigHome: defaultConfigHome,
	}
}

// Load loads .env if present, then resolves the configuration
func Load(ctx context.Context, args Args) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	return NewLoader().Load(ctx, args)
}

// DefaultPath is $XDG_CONFIG_HOME/cf-ddns/config.toml
func (l *Loader) DefaultPath() (string, error) {
	home, err := l.ConfigHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "cf-ddns", "config.toml"), nil
}

// Load layers flags over environment over file over defaults and validates
// the result. Every failure is a configuration error.
func (l *Loader) Load(ctx context.Context, args Args) (*Config, error) {
	file, path, err := l.readFile(ctx, args.ConfigPath)
	if err != nil {
		return nil, domain.NewError(domain.ErrConfig, "load config", err)
	}

	cfg := &Config{
		Credentials: Credentials{
			APIToken:     first(args.APIToken, l.Getenv(EnvAPIToken), file.Cloudflare.APIToken),
			APIKey:       first(args.APIKey, l.Getenv(EnvAPIKey), file.Cloudflare.APIKey),
			AccountEmail: first(args.AccountEmail, l.Getenv(EnvAccountEmail), file.Cloudflare.AccountEmail),
		},
		IPv4URL:          file.IP.IPv4URL,
		IPv6URL:          file.IP.IPv6URL,
		IPTimeout:        defaultIPTimeout,
		TelegramBotToken: first(l.Getenv(EnvTelegramToken), file.Notify.Telegram.BotToken),
		TelegramChatID:   file.Notify.Telegram.ChatID,
		Path:             path,
	}
	if file.IP.TimeoutSeconds > 0 {
		cfg.IPTimeout = time.Duration(file.IP.TimeoutSeconds) * time.Second
	}
	if raw := l.Getenv(EnvTelegramChat); raw != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, domain.NewError(domain.ErrConfig, "load config", fmt.Errorf("invalid chat ID in %s: %s", EnvTelegramChat, raw))
		}
		cfg.TelegramChatID = id
	}

	global := file.Defaults.HostnameConfig()
	if zoneID := first(args.ZoneID, l.Getenv(EnvZoneID)); zoneID != "" {
		global.ZoneID = &zoneID
	}
	cfg.Global = domain.HostnameConfig{
		TTL:     args.TTL,
		Proxied: args.Proxied,
		UseA:    args.A,
		UseAAAA: args.AAAA,
	}.Merge(global)

	if args.Subdomain != "" {
		cfg.Hostnames = map[string]domain.HostnameConfig{args.Subdomain: {}}
	} else {
		cfg.Hostnames = make(map[string]domain.HostnameConfig, len(file.Subdomains))
		for name, entry := range file.Subdomains {
			cfg.Hostnames[name] = entry.HostnameConfig()
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// readFile returns the parsed file, or an empty one when the default file
// does not exist. An explicit path that cannot be read is an error.
func (l *Loader) readFile(ctx context.Context, explicit string) (*File, string, error) {
	path := explicit
	if path == "" {
		p, err := l.DefaultPath()
		if err != nil {
			return &File{}, "", nil
		}
		path = p
		if ok, _ := afero.Exists(l.Fs, path); !ok {
			return &File{}, "", nil
		}
	}

	file, err := ReadFile(ctx, l.Fs, path)
	if err != nil {
		if explicit != "" && errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("-c supplied but couldn't open file: %w", err)
		}
		return nil, "", err
	}
	return file, path, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Credentials.Validate(); err != nil {
		return err
	}

	if c.Global.ZoneID == nil || *c.Global.ZoneID == "" {
		var missing []string
		for name, entry := range c.Hostnames {
			if entry.ZoneID == nil || *entry.ZoneID == "" {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return domain.NewError(domain.ErrConfig, "validate config",
				fmt.Errorf("zone_id not specified in config or arguments, subdomains missing zone_id: %s", strings.Join(missing, ", ")))
		}
	}

	if c.Global.TTL != nil {
		if err := domain.ValidateTTL(*c.Global.TTL); err != nil {
			return fmt.Errorf("subdomains: %w", err)
		}
	}
	for name, entry := range c.Hostnames {
		if entry.TTL != nil {
			if err := domain.ValidateTTL(*entry.TTL); err != nil {
				return fmt.Errorf("subdomain %s: %w", name, err)
			}
		}
	}

	return nil
}

// Validate checks that one authentication method is complete. A token
// wins over a key; a key needs an account email.
func (c Credentials) Validate() error {
	if c.UseAPIToken() {
		return nil
	}
	if c.APIKey == "" {
		return domain.NewError(domain.ErrConfig, "validate credentials", errors.New("neither api token nor api key were specified"))
	}
	if c.AccountEmail == "" {
		return domain.NewError(domain.ErrConfig, "validate credentials", errors.New("account email not specified when api key was"))
	}
	return nil
}

func defaultConfigHome() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config"), nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
