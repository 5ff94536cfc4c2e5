package main

import (
	"context"

	"cf-ddns/external_resource/cloudflare"
	"cf-ddns/external_resource/ipecho"
	"cf-ddns/internal/domain"
	"cf-ddns/internal/handler"
	"cf-ddns/internal/handler/telegram"
	"cf-ddns/internal/repository"
	"cf-ddns/internal/usecase"
	"cf-ddns/pkg/config"
	"cf-ddns/pkg/logger"
	"cf-ddns/pkg/telemetry"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type rootFlags struct {
	args        config.Args
	ttl         int
	proxied     bool
	a           bool
	aaaa        bool
	verbose     int
	quiet       bool
	logFormat   string
	concurrency int
	notify      string
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "cf-ddns",
		Short: "Cloudflare DDNS updater",
		Long: `cf-ddns points the A and AAAA records of the configured hostnames at
the current public addresses of this machine, creating or updating them through
the Cloudflare API. Records that already match are left untouched.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f.applyChanged(cmd)
			return runSync(cmd.Context(), f)
		},
	}

	f.register(cmd.Flags())

	return cmd
}

// register binds the command line flags to f
func (f *rootFlags) register(flags *pflag.FlagSet) {
	flags.IntVarP(&f.ttl, "ttl", "t", domain.DefaultTTL, "Time To Live in seconds, 30 to 86400. 1 means auto")
	flags.StringVarP(&f.args.ConfigPath, "config", "c", "", "Config file path (default $XDG_CONFIG_HOME/cf-ddns/config.toml)")
	flags.StringVar(&f.args.APIToken, "api-token", "", "Cloudflare API Token (env "+config.EnvAPIToken+")")
	flags.StringVar(&f.args.APIKey, "api-key", "", "Cloudflare API Key, must be used with account email (env "+config.EnvAPIKey+")")
	flags.StringVar(&f.args.AccountEmail, "account-email", "", "Cloudflare Account Email, must be used with API key (env "+config.EnvAccountEmail+")")
	flags.StringVar(&f.args.ZoneID, "zone-id", "", "Zone Id (env "+config.EnvZoneID+")")
	flags.BoolVar(&f.proxied, "proxied", domain.DefaultProxied, "Proxy traffic through Cloudflare")
	flags.BoolVar(&f.a, "a", domain.DefaultUseA, "Manage the A record (IPv4)")
	flags.BoolVar(&f.aaaa, "aaaa", domain.DefaultUseAAAA, "Manage the AAAA record (IPv6)")
	flags.StringVar(&f.args.Subdomain, "subdomain", "", "Update only this subdomain prefix instead of the ones in the config file")
	flags.CountVarP(&f.verbose, "verbose", "v", "Increase log verbosity (-v debug, -vv record dumps)")
	flags.BoolVarP(&f.quiet, "quiet", "q", false, "Only log errors")
	flags.StringVar(&f.logFormat, "log-format", logger.FormatConsole, "Log format: console or json")
	flags.IntVar(&f.concurrency, "concurrency", 1, "Number of hostnames reconciled in parallel")
	flags.StringVar(&f.notify, "notify", string(handler.NotifyAuto), "Telegram run summary: auto (changes or failures), always or never")
}

// applyChanged turns explicitly set flags into overrides. Flags left at
// their default must not shadow the environment or the config file.
func (f *rootFlags) applyChanged(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("ttl") {
		f.args.TTL = &f.ttl
	}
	if flags.Changed("proxied") {
		f.args.Proxied = &f.proxied
	}
	if flags.Changed("a") {
		f.args.A = &f.a
	}
	if flags.Changed("aaaa") {
		f.args.AAAA = &f.aaaa
	}
}

func runSync(ctx context.Context, f *rootFlags) error {
	log, err := logger.New(logger.Options{Verbosity: f.verbose, Quiet: f.quiet, Format: f.logFormat})
	if err != nil {
		return &exitError{code: exitConfig, err: err}
	}

	mode, err := handler.ParseNotifyMode(f.notify)
	if err != nil {
		return &exitError{code: exitConfig, err: err}
	}

	shutdown, err := telemetry.Setup(ctx, telemetry.Options{Version: version})
	if err != nil {
		return &exitError{code: exitConfig, err: err}
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Error(err, "failed to shutdown telemetry")
		}
	}()

	cfg, err := config.Load(ctx, f.args)
	if err != nil {
		log.Error(err, "invalid configuration")
		return &exitError{code: exitConfig}
	}
	if cfg.Path != "" {
		log.V(1).Info("loaded config file", "path", cfg.Path)
	}

	if len(cfg.Hostnames) == 0 {
		log.Info("no subdomains configured, nothing to do")
		return nil
	}

	cfClient, err := newCloudflareClient(cfg.Credentials)
	if err != nil {
		log.Error(err, "failed to create Cloudflare client")
		return &exitError{code: exitConfig}
	}

	ddns := usecase.NewDDNSUsecase(
		repository.NewZoneRepository(cfClient),
		repository.NewIPRepository(ipecho.NewClient(cfg.IPTimeout), repository.Endpoints{IPv4: cfg.IPv4URL, IPv6: cfg.IPv6URL}),
		repository.NewDNSRepository(cfClient),
		usecase.Options{Global: cfg.Global, Concurrency: f.concurrency, Logger: log},
	)

	report := ddns.SyncAll(ctx, cfg.Hostnames)
	log.Info("run finished",
		"hostnames", len(report.Hostnames), "changed", report.Changed(), "failed", report.Failed())

	notify(ctx, log, cfg, mode, report)

	if code := report.ExitCode(); code != exitOK {
		return &exitError{code: exitFailed}
	}
	return nil
}

func newCloudflareClient(creds config.Credentials) (cloudflare.Client, error) {
	ua := cloudflare.WithUserAgent("cf-ddns/" + version)
	if creds.UseAPIToken() {
		return cloudflare.NewClient(creds.APIToken, ua)
	}
	return cloudflare.NewClientWithKey(creds.APIKey, creds.AccountEmail, ua)
}

// notify delivers the run summary. Its failures never change the exit code.
func notify(ctx context.Context, log logr.Logger, cfg *config.Config, mode handler.NotifyMode, report *domain.Report) {
	if !cfg.TelegramEnabled() || !mode.ShouldNotify(report) {
		return
	}

	n, err := newNotifier(cfg)
	if err != nil {
		log.Error(err, "failed to create Telegram notifier")
		return
	}
	if err := n.Notify(ctx, report); err != nil {
		log.Error(err, "failed to send run summary", "chat_id", cfg.TelegramChatID)
		return
	}
	log.V(1).Info("run summary sent", "chat_id", cfg.TelegramChatID)
}

func newNotifier(cfg *config.Config) (handler.Notifier, error) {
	return telegram.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
}
