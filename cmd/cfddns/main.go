package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"

	"github.com/Travis-Britz/cfddns"
	"github.com/Travis-Britz/cfddns/internal/config"
)

var flags = struct {
	Config  string
	KeyFile string
	IP      string
	Once    bool
	Setup   bool
	Verbose bool
}{}

func init() {
	flag.StringVar(&flags.Config, "c", "", "Path to config file (required)")
	flag.StringVar(&flags.KeyFile, "k", "", "Path to cloudflare API token file; overrides token_file from the config")
	flag.StringVar(&flags.IP, "ip", "", "IPv4 address to set instead of looking it up")
	flag.BoolVar(&flags.Once, "once", false, "Run a single update and exit")
	flag.BoolVar(&flags.Setup, "setup", false, "Prompt for a cloudflare API token, verify it, and write it to the token file")
	flag.BoolVar(&flags.Verbose, "v", false, "Enable verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] -c config.yaml hosts.txt\n", os.Args[0])
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	zl, err := newZap(flags.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer zl.Sync()
	log := zapr.NewLogger(zl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil && !errors.Is(err, context.Canceled) {
		zl.Sync()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newZap(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, log logr.Logger) error {
	setupLog := log.WithName("setup")

	if flags.Config == "" {
		flag.Usage()
		return fmt.Errorf("%w: -c is required", cfddns.ErrConfig)
	}
	cfg, err := config.Load(flags.Config)
	if err != nil {
		return err
	}
	if flags.KeyFile != "" {
		cfg.Token, cfg.TokenFile = "", flags.KeyFile
	}
	setupLog.Info("loaded config", "path", flags.Config, "interval", cfg.Interval, "endpoint", cfg.Endpoint)

	if flags.Setup {
		return runSetup(ctx, setupLog, cfg.TokenFile)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		return fmt.Errorf("%w: expected exactly one host list file", cfddns.ErrConfig)
	}
	hostnames, err := config.LoadHostList(flag.Arg(0))
	if err != nil {
		return err
	}

	token, err := cfg.APIToken()
	if err != nil {
		return err
	}

	resolver, err := newResolver(cfg)
	if err != nil {
		return err
	}
	client, err := cfddns.New(
		cfddns.UsingCloudflare(token),
		cfddns.UsingResolver(resolver),
		cfddns.WithLogger(log.WithName("cfddns")),
	)
	if err != nil {
		return fmt.Errorf("error creating cfddns.Client: %w", err)
	}

	hosts, err := client.Setup(ctx, hostnames)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	s := &cfddns.Scheduler{
		Client:      client,
		Hosts:       hosts,
		Interval:    cfg.IntervalDuration(),
		PassTimeout: cfg.TimeoutDuration(),
		Logger:      log.WithName("scheduler"),
	}
	if cfg.NotificationsEnabled() {
		s.Notifier = cfddns.SMTPNotifier{Addr: cfg.Notification.SMTP}
		s.From, s.To = cfg.Notification.From, cfg.Notification.To
	}

	if flags.Once {
		_, err := s.RunOnce(ctx)
		return err
	}
	setupLog.Info("starting scheduler", "hosts", len(hosts))
	return s.Run(ctx)
}

func newResolver(cfg *config.Config) (cfddns.Resolver, error) {
	switch {
	case flags.IP != "":
		return cfddns.FromString(flags.IP)
	case cfg.Interface != "":
		return cfddns.InterfaceResolver(cfg.Interface), nil
	default:
		return cfddns.WebResolver(cfg.Endpoint...)
	}
}
