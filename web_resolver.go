package cfddns

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// WebResolver constructs a resolver which asks external web services for our "public" IPv4 address.
//
// Each endpoint must speak http and answer a GET with status "200 OK"
// and a bare IPv4 address as the response body.
// Surrounding whitespace is ignored.
// Any other status is retried, up to three attempts in total,
// and anything other than an IPv4 address in the body is an error.
//
// If only one endpoint is given,
// then the resolver will simply return its answer.
// If multiple are given,
// then the resolver will ask up to three of them at once and only return successfully if the first two non-error answers agree on the IP.
// This approach is taken due to the sensitive nature of having control over DNS records.
//
// The recommended approach is to run your own service over https.
func WebResolver(endpoints ...string) (Resolver, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("%w: no external IP lookup services were provided", ErrConfig)
	}
	var urls []*url.URL
	for _, e := range endpoints {
		u, err := url.Parse(e)
		if err != nil {
			return nil, fmt.Errorf("%w: error parsing URL: %w", ErrConfig, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("%w: endpoint %q must be an http or https URL", ErrConfig, e)
		}
		urls = append(urls, u)
	}
	// 15 seconds is an eternity for the size of the request we're making,
	// but this ensures that every attempt eventually completes even if the caller supplied context.Background.
	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = 15 * time.Second
	return &webResolver{
		endpoints:  urls,
		httpClient: hc,
		attempts:   3,
		wait:       5 * time.Second,
		logger:     logr.Discard(),
	}, nil
}

type webResolver struct {
	endpoints  []*url.URL
	httpClient *http.Client
	attempts   int
	wait       time.Duration
	logger     logr.Logger
}

func (wr *webResolver) SetHTTPClient(c *http.Client) { wr.httpClient = c }
func (wr *webResolver) SetLogger(l logr.Logger)      { wr.logger = l }

// maxBody is far more than any address literal needs.
const maxBody = 64

// quorumSize is the most endpoints asked during one Resolve.
const quorumSize = 3

// Resolve implements cfddns.Resolver.
func (wr *webResolver) Resolve(ctx context.Context) (netip.Addr, error) {
	if len(wr.endpoints) == 1 {
		return wr.lookup(ctx, wr.endpoints[0])
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		addr netip.Addr
		err  error
	}

	n := min(len(wr.endpoints), quorumSize)
	results := make(chan result, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for _, u := range wr.endpoints[:n] {
		u := u
		go func() {
			defer wg.Done()
			var r result
			r.addr, r.err = wr.lookup(ctx, u)
			results <- r
		}()
	}
	go func() { wg.Wait(); close(results) }()

	var errs []error
	var ip netip.Addr
	for r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		if !ip.IsValid() {
			ip = r.addr
			continue
		}
		if ip == r.addr {
			return ip, nil
		}
		return netip.Addr{}, fmt.Errorf("IP resolvers did not agree on our IP: got %s and %s", ip, r.addr)
	}
	return netip.Addr{}, fmt.Errorf("not enough resolvers responded without errors: %w", errors.Join(errs...))
}

// lookup asks a single endpoint, retrying error statuses.
func (wr *webResolver) lookup(ctx context.Context, u *url.URL) (netip.Addr, error) {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = wr.httpClient
	rc.Logger = nil
	rc.RetryMax = wr.attempts - 1
	rc.RetryWaitMin = wr.wait
	rc.RetryWaitMax = wr.wait
	rc.CheckRetry = wr.checkRetry
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		wr.logger.V(1).Info("requesting public IP", "url", req.URL.String(), "attempt", attempt+1)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := rc.Do(req)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%s: %w", u.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%s: error reading response body: %w", u.Host, err)
	}
	if len(body) > maxBody {
		return netip.Addr{}, fmt.Errorf("%s: response body is too long to be an IPv4 address", u.Host)
	}
	ip, err := parseIPv4(strings.TrimSpace(string(body)))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%s: %w", u.Host, err)
	}
	return ip, nil
}

// checkRetry retries transport errors and every status other than 200.
func (wr *webResolver) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	if resp.StatusCode != http.StatusOK {
		wr.logger.Info("IP lookup returned an error status", "status", resp.Status)
		return true, nil
	}
	return false, nil
}

func parseIPv4(s string) (netip.Addr, error) {
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error parsing IP address %q: %w", truncate(s, 32), err)
	}
	if !ip.Is4() {
		return netip.Addr{}, errors.New(ip.String() + " is not an IPv4 address")
	}
	return ip, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
