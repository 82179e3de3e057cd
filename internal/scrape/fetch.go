package scrape

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const userAgent = "jobtriage/1.0 (+local)"

// Fetcher retrieves a URL's body. A failed fetch returns the empty string;
// parsers treat that as a page with nothing on it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) string
}

// HostLimiter rate-limits per hostname so one board's pagination does not
// hammer its server.
type HostLimiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
	r  rate.Limit
	b  int
}

func NewHostLimiter(reqPerSec float64, burst int) *HostLimiter {
	return &HostLimiter{
		m: make(map[string]*rate.Limiter),
		r: rate.Limit(reqPerSec),
		b: burst,
	}
}

func (hl *HostLimiter) limiterFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	if lim, ok := hl.m[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(hl.r, hl.b)
	hl.m[host] = lim
	return lim
}

func (hl *HostLimiter) WaitURL(ctx context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return hl.limiterFor("_").Wait(ctx)
	}
	return hl.limiterFor(u.Host).Wait(ctx)
}

// HTTPFetcher is the production Fetcher: rate limited per host, with a short
// exponential backoff on transient failures.
type HTTPFetcher struct {
	hc      *http.Client
	limiter *HostLimiter
	log     *zap.SugaredLogger
}

func NewHTTPFetcher(limiter *HostLimiter, log *zap.SugaredLogger) *HTTPFetcher {
	return &HTTPFetcher{
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
		log:     log.Named("fetch"),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) string {
	if err := f.limiter.WaitURL(ctx, rawURL); err != nil {
		return ""
	}

	var body string
	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)

		res, err := f.hc.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer res.Body.Close()

		if res.StatusCode >= 500 {
			return retry.RetryableError(statusError(res.StatusCode))
		}
		if res.StatusCode >= 400 {
			return statusError(res.StatusCode)
		}
		b, err := io.ReadAll(res.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		body = string(b)
		return nil
	})
	if err != nil {
		f.log.Warnw("fetch failed", "url", rawURL, "err", err)
		return ""
	}
	return body
}

type statusError int

func (e statusError) Error() string {
	return "status " + http.StatusText(int(e))
}
