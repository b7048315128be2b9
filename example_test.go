package cfddns_test

import (
	"context"
	"log"
	"net/netip"
	"os"
	"os/signal"
	"time"

	"github.com/go-logr/zapr"
	"go.uber.org/zap"

	"github.com/Travis-Britz/cfddns"
)

func ExampleNew() {
	zl, _ := zap.NewProduction()
	c, err := cfddns.New(
		cfddns.UsingCloudflare(os.Getenv("CLOUDFLARE_API_TOKEN")),
		cfddns.UsingResolver(cfddns.InterfaceResolver("eth0")),
		cfddns.WithLogger(zapr.NewLogger(zl)),
	)
	if err != nil {
		log.Fatalf("error creating ddns client: %s", err)
	}
	hosts, err := c.Setup(context.Background(), []string{"home.example.com"})
	if err != nil {
		log.Fatalf("error resolving zones: %s", err)
	}
	// run once:
	var changes cfddns.ChangeLog
	if _, err := c.RunPass(context.Background(), hosts, &changes); err != nil {
		log.Fatalf("ddns update failed: %s", err)
	}
}

func ExampleScheduler() {
	c, err := cfddns.New(
		cfddns.UsingCloudflare(os.Getenv("CLOUDFLARE_API_TOKEN")),
		cfddns.UsingWebResolver("https://api.ipify.org", "https://ipv4.icanhazip.com", "https://checkip.amazonaws.com"),
	)
	if err != nil {
		log.Fatalf("error creating ddns client: %s", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	hosts, err := c.Setup(ctx, []string{"home.example.com", "vpn.example.com"})
	if err != nil {
		log.Fatalf("error resolving zones: %s", err)
	}
	s := &cfddns.Scheduler{
		Client:   c,
		Hosts:    hosts,
		Interval: 5 * time.Minute,
		Notifier: cfddns.SMTPNotifier{Addr: "localhost:25"},
		From:     "cfddns@example.com",
		To:       "admin@example.com",
	}
	// runs every 5 minutes until interrupted:
	s.Run(ctx)
}

func ExampleResolverFunc() {
	fn := func(ctx context.Context) (netip.Addr, error) {
		select {
		case <-ctx.Done():
			return netip.Addr{}, ctx.Err()
		case <-time.After(100 * time.Millisecond): // simulating some lookup method
			return netip.ParseAddr("198.51.100.10")
		}
	}
	c, err := cfddns.New(
		cfddns.UsingCloudflare(os.Getenv("CLOUDFLARE_API_TOKEN")),
		cfddns.UsingResolver(cfddns.ResolverFunc(fn)),
	)
	if err != nil {
		log.Fatalf("error creating ddns client: %s", err)
	}
	hosts, err := c.Setup(context.Background(), []string{"home.example.com"})
	if err != nil {
		log.Fatalf("error resolving zones: %s", err)
	}
	var changes cfddns.ChangeLog
	if _, err := c.RunPass(context.Background(), hosts, &changes); err != nil {
		log.Fatalf("ddns update failed: %s", err)
	}
}
