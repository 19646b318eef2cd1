package fetcher

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/crop-explorer/internal/resilience"
)

const defaultUserAgent = "crop-explorer/1.0"

// HTTPFetcher downloads over HTTP(S) with pacing and retry on transient
// failures (network errors, 408, 429, 5xx).
type HTTPFetcher struct {
	client  *http.Client
	opts    Options
	limiter *rate.Limiter
	backoff resilience.Backoff
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	backoff := resilience.DefaultBackoff().WithAttempts(opts.MaxRetries)
	backoff.Label = "http download"
	return &HTTPFetcher{
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		backoff: backoff,
	}
}

// Download fetches url and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	body, err := resilience.Do(ctx, f.backoff, func(ctx context.Context) (io.ReadCloser, error) {
		return f.get(ctx, url)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "http: download %s", url)
	}
	return body, nil
}

func (f *HTTPFetcher) get(ctx context.Context, url string) (io.ReadCloser, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "http: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "http: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, resilience.Transient(err, 0)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		zap.L().Debug("http: fetched",
			zap.String("url", url),
			zap.Int64("content_length", resp.ContentLength),
		)
		return resp.Body, nil
	case resilience.IsTransientStatus(resp.StatusCode):
		_ = resp.Body.Close()
		return nil, resilience.Transient(eris.Errorf("http: status %d", resp.StatusCode), resp.StatusCode)
	default:
		_ = resp.Body.Close()
		return nil, eris.Errorf("http: unexpected status %d", resp.StatusCode)
	}
}
