package cfddns

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"

	"github.com/cloudflare/cloudflare-go"
	"github.com/go-logr/logr"
)

// DefaultEndpoint is the IP lookup service used when no resolver is configured.
const DefaultEndpoint = "https://api.ipify.org"

// New constructs a Client.
//
// A Provider is required (see UsingCloudflare and UsingProvider).
// The resolver defaults to a web resolver for DefaultEndpoint and log output is discarded unless WithLogger is given.
func New(options ...clientOption) (*Client, error) {
	c := &Client{
		logger: logr.Discard(),
	}
	for i, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("cfddns.New: option %d returned an error: %w", i, err)
		}
	}

	if c.provider == nil {
		return nil, fmt.Errorf("cfddns.New: %w: no DNS provider was registered - use cfddns.UsingCloudflare or similar", ErrConfig)
	}
	if c.resolver == nil {
		r, err := WebResolver(DefaultEndpoint)
		if err != nil {
			return nil, fmt.Errorf("cfddns.New: %w", err)
		}
		c.resolver = r
	}

	// this lets us propagate the logger to dependencies that use one if WithLogger was called before all of the dependencies were registered
	c.propagateLogger()
	return c, nil
}

type clientOption func(*Client) error

// UsingCloudflare registers Cloudflare as the DNS provider.
// Extra cloudflare options are passed through to the API client.
func UsingCloudflare(token string, opts ...cloudflare.Option) clientOption {
	return func(c *Client) (err error) {
		if c.provider, err = newCloudflareProvider(token, opts...); err != nil {
			return fmt.Errorf("cfddns.UsingCloudflare: error creating cloudflare DNS provider: %w", err)
		}
		return nil
	}
}

// UsingProvider registers any Provider implementation.
func UsingProvider(p Provider) clientOption {
	return func(c *Client) error {
		if p == nil {
			return fmt.Errorf("%w: provider cannot be nil", ErrConfig)
		}
		c.provider = p
		return nil
	}
}

func UsingResolver(resolver Resolver) clientOption {
	return func(c *Client) error {
		c.resolver = resolver
		return nil
	}
}

// UsingWebResolver looks up the public IP with GET requests to the given endpoints.
// See WebResolver for how multiple answers are combined.
func UsingWebResolver(endpoints ...string) clientOption {
	return func(c *Client) (err error) {
		c.resolver, err = WebResolver(endpoints...)
		return err
	}
}

func WithLogger(logger logr.Logger) clientOption {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// UsingHTTPClient sets the http.Client used by the resolver and provider.
// It must be given after the options that register them.
func UsingHTTPClient(httpclient *http.Client) clientOption {
	return func(c *Client) error {
		if httpclient == nil {
			httpclient = http.DefaultClient
		}
		type setHTTPClient interface {
			SetHTTPClient(*http.Client)
		}
		if hc, ok := c.resolver.(setHTTPClient); ok {
			hc.SetHTTPClient(httpclient)
		}
		switch p := c.provider.(type) {
		case *cloudflareProvider:
			if err := cloudflare.HTTPClient(httpclient)(p.api); err != nil {
				return fmt.Errorf("setting cloudflare http client: %w", err)
			}
		case setHTTPClient:
			p.SetHTTPClient(httpclient)
		}
		return nil
	}
}

func (c *Client) propagateLogger() {
	type setLogger interface {
		SetLogger(logr.Logger)
	}
	if p, ok := c.provider.(setLogger); ok {
		p.SetLogger(c.logger.WithName("provider"))
	}
	if r, ok := c.resolver.(setLogger); ok {
		r.SetLogger(c.logger.WithName("resolver"))
	}
}

// Client keeps a set of hostnames pointed at the address reported by its Resolver.
type Client struct {
	provider Provider
	resolver Resolver
	logger   logr.Logger

	zones ZoneMap
}

// Setup turns hostnames into DesiredHosts.
//
// The provider's zones are listed on the first call and cached for the life of the Client.
// Errors wrap ErrInvalidHostname, ErrUnknownZone, or ErrProvider and should be treated as fatal.
func (c *Client) Setup(ctx context.Context, hostnames []string) ([]DesiredHost, error) {
	if c.zones == nil {
		zm, err := NewZoneMap(ctx, c.provider)
		if err != nil {
			return nil, err
		}
		c.logger.V(1).Info("loaded zones", "count", len(zm))
		c.zones = zm
	}
	hosts, err := c.zones.DesiredHosts(hostnames)
	if err != nil {
		return nil, err
	}
	for _, h := range hosts {
		c.logger.Info("managing host", "name", h.FQDN, "zone", h.Zone, "zoneID", h.ZoneID)
	}
	return hosts, nil
}

// Result describes what a pass did.
type Result struct {
	IP      netip.Addr
	Effects []Effect
	Applied int
}

// RunPass resolves the current IP and reconciles hosts against it, writing the report to changes.
//
// Resolver errors are returned before the provider is contacted.
func (c *Client) RunPass(ctx context.Context, hosts []DesiredHost, changes *ChangeLog) (Result, error) {
	ip, err := c.resolver.Resolve(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrIPResolution, err)
	}
	c.logger.Info("resolved public address", "ip", ip)
	changes.Appendf("ip: %s", ip)

	effects, applied, err := Reconcile(ctx, c.provider, hosts, ip, changes, c.logger)
	return Result{IP: ip, Effects: effects, Applied: applied}, err
}
