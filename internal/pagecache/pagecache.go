// Package pagecache fetches web pages and keeps each one in the key-value
// store for a short time.
//
// Keys written per URL u:
//   - u         the page text, expiring after the fetcher's TTL
//   - count:u   how many times u was requested, hits and misses alike
//
// The check-then-set on a miss is not atomic across processes: two processes
// missing the same URL at once both fetch it. Within one Fetcher, concurrent
// misses for a URL share a single request.
package pagecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/kvcache/internal/instrument"
	"github.com/roach88/kvcache/internal/store"
)

// DefaultTTL is how long a fetched page stays cached.
const DefaultTTL = 10 * time.Second

// DefaultTimeout bounds a single page request.
const DefaultTimeout = 10 * time.Second

// CountKey returns the key counting requests for url.
func CountKey(url string) string {
	return "count:" + url
}

// Fetcher fetches pages through the store-backed cache.
type Fetcher struct {
	st        store.Store
	client    *http.Client
	ttl       time.Duration
	userAgent string
	group     singleflight.Group
	getPage   instrument.Func[string, string]
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client used for uncached requests.
func WithHTTPClient(h *http.Client) Option {
	return func(f *Fetcher) {
		if h != nil {
			f.client = h
		}
	}
}

// WithTTL overrides how long pages stay cached.
func WithTTL(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.ttl = d
		}
	}
}

// WithUserAgent sets the User-Agent header sent with page requests.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// New creates a Fetcher over st.
func New(st store.Store, opts ...Option) *Fetcher {
	f := &Fetcher{
		st:     st,
		client: &http.Client{Timeout: DefaultTimeout},
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.getPage = Track(st, f.ttl, f.fetchOnce)
	return f
}

// GetPage returns the text of url, from the cache when a live copy exists.
func (f *Fetcher) GetPage(ctx context.Context, url string) (string, error) {
	return f.getPage(ctx, url)
}

// Count returns how many times url was requested through GetPage.
func (f *Fetcher) Count(ctx context.Context, url string) (int64, error) {
	raw, err := f.st.Get(ctx, CountKey(url))
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("pagecache: %w", err)
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("pagecache: counter for %s: %w", url, err)
	}
	return n, nil
}

// Track wraps a page fetch with the per-URL counter and the TTL cache entry.
//
// The counter is incremented on every call. A cached page is returned without
// calling fetch; otherwise fetch runs and its result is cached for ttl.
func Track(st store.Store, ttl time.Duration, fetch instrument.Func[string, string]) instrument.Func[string, string] {
	return func(ctx context.Context, url string) (string, error) {
		if _, err := st.Incr(ctx, CountKey(url)); err != nil {
			return "", fmt.Errorf("pagecache: %w", err)
		}

		cached, err := st.Get(ctx, url)
		switch {
		case err == nil:
			slog.Debug("page cache hit", "url", url)
			return instrument.DecodeText(cached), nil
		case !errors.Is(err, store.ErrNotFound):
			return "", fmt.Errorf("pagecache: %w", err)
		}

		slog.Debug("page cache miss", "url", url)
		text, err := fetch(ctx, url)
		if err != nil {
			return "", err
		}
		if err := st.Set(ctx, url, []byte(text), ttl); err != nil {
			return "", fmt.Errorf("pagecache: %w", err)
		}
		return text, nil
	}
}

// fetchOnce collapses concurrent requests for the same URL into one.
//
// The shared request is detached from the cancellation of whichever caller
// started it; each caller stops waiting when its own ctx is done.
func (f *Fetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	flight := context.WithoutCancel(ctx)
	ch := f.group.DoChan(url, func() (any, error) {
		return f.fetch(flight, url)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			slog.Debug("page fetch shared", "url", url)
		}
		return res.Val.(string), nil
	}
}

// fetch performs one blocking GET and returns the body text.
func (f *Fetcher) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("pagecache: build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("pagecache: get %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("pagecache: read %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("page fetched with non-success status", "url", url, "status", resp.StatusCode)
	}
	slog.Info("page fetched", "url", url, "status", resp.StatusCode, "bytes", len(body))
	return instrument.DecodeText(body), nil
}
