package dictionary

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lehigh-university-libraries/alphaocr/internal/httpclient"
	"github.com/lehigh-university-libraries/alphaocr/internal/utils"
	"golang.org/x/time/rate"
)

const (
	DefaultURL     = "https://jisho.org/api/v1/search/words?keyword={word}"
	DefaultTimeout = 5 * time.Second

	wordPlaceholder = "{word}"
)

// Options configure a Client.
type Options struct {
	// URL is the search endpoint with {word} where the query-escaped word goes.
	URL     string
	Timeout time.Duration
	// RateLimit is the maximum number of requests per second; 0 disables limiting.
	RateLimit float64
	// CacheSize is the number of successful entries kept in memory; 0 disables caching.
	CacheSize int

	HTTPClient *http.Client
}

// Client queries an external word-lookup service.
// It is safe for concurrent use.
type Client struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
	limiter  *rate.Limiter
	cache    *lru.Cache[string, Entry]
}

func New(opts Options) (*Client, error) {
	endpoint := opts.URL
	if endpoint == "" {
		endpoint = DefaultURL
	}
	if !strings.Contains(endpoint, wordPlaceholder) {
		return nil, fmt.Errorf("dictionary url %q has no %s placeholder", endpoint, wordPlaceholder)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		endpoint: endpoint,
		timeout:  timeout,
		http:     opts.HTTPClient,
	}

	if c.http == nil {
		c.http = httpclient.New(timeout)
	}

	if opts.RateLimit > 0 {
		burst := max(1, int(opts.RateLimit))
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	if opts.CacheSize > 0 {
		cache, err := lru.New[string, Entry](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create dictionary cache: %w", err)
		}
		c.cache = cache
	}

	return c, nil
}

// Lookup returns the entry to report for word, falling back on any failure.
func (c *Client) Lookup(ctx context.Context, word string) Entry {
	result := c.Query(ctx, word)
	if !result.Found() {
		slog.Warn("Dictionary lookup failed", "word", word, "reason", result.Reason, "err", utils.MaskSensitiveError(result.Err))
	}
	return result.Resolve(word)
}

// Query performs the lookup and reports why it failed, if it did.
func (c *Client) Query(ctx context.Context, word string) Result {
	if c.cache != nil {
		if entry, ok := c.cache.Get(word); ok {
			slog.Debug("Dictionary cache hit", "word", word)
			return Result{Entry: entry, Reason: ReasonFound}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Result{Reason: ReasonTransport, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(word), nil)
	if err != nil {
		return Result{Reason: ReasonTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	body, resp, err := httpclient.DoAndRead(c.http, req)
	if err != nil {
		return Result{Reason: ReasonTransport, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{
			Reason: ReasonStatus,
			Err:    fmt.Errorf("dictionary service returned %d", resp.StatusCode),
		}
	}

	entry, reason, err := parseSearch(body)
	if reason != ReasonFound {
		return Result{Reason: reason, Err: err}
	}

	if c.cache != nil {
		c.cache.Add(word, entry)
	}

	return Result{Entry: entry, Reason: ReasonFound}
}

func (c *Client) url(word string) string {
	return strings.ReplaceAll(c.endpoint, wordPlaceholder, url.QueryEscape(word))
}
