package cleardarksky

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker/v2"

	"darksky-monitor/internal/forecast"
	"darksky-monitor/internal/observability"
)

// Config controls where pages come from and how hard to try.
type Config struct {
	BaseURL      string // printf pattern taking the location key
	LocationsURL string
	UserAgent    string
	RetryCount   int
	RetryDelay   time.Duration
	Timeout      time.Duration
}

// Client fetches clock pages. Every GET goes through a circuit breaker
// owned by its location key, or by the location index, so one failing
// chart never blocks another. Fetch retries a bounded number of times with
// a fixed delay.
type Client struct {
	cfg   Config
	http  *http.Client
	clock clockwork.Clock

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[[]byte]

	cache   PageCache
	metrics *observability.Metrics
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClock replaces the clock used for retry delays.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

func WithCache(cache PageCache) Option {
	return func(c *Client) { c.cache = cache }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.RetryCount < 1 {
		cfg.RetryCount = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	c := &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		clock:    clockwork.NewRealClock(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[[]byte]),
		logger:   observability.DiscardLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the forecast series for a location key. When the page
// cannot be fetched and parsed within RetryCount attempts the error wraps
// ErrUnavailable.
func (c *Client) Fetch(ctx context.Context, location string) (*forecast.Series, error) {
	began := c.clock.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.FetchDuration.Observe(c.clock.Since(began).Seconds())
		}
	}()

	if s, ok := c.fromCache(ctx, location); ok {
		c.countFetch("cached")
		return s, nil
	}

	url := fmt.Sprintf(c.cfg.BaseURL, location)
	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryCount; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				c.countFetch("unavailable")
				return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, location, ctx.Err())
			case <-c.clock.After(c.cfg.RetryDelay):
			}
		}

		if c.metrics != nil {
			c.metrics.FetchAttempts.Inc()
		}
		page, err := c.get(ctx, "page:"+location, url)
		if err == nil {
			var s *forecast.Series
			s, err = c.build(location, page)
			if err == nil {
				c.storeCache(ctx, location, page)
				c.countFetch("success")
				return s, nil
			}
		}

		lastErr = err
		c.logger.Warn("forecast fetch attempt failed",
			"location", location, "attempt", attempt, "max_attempts", c.cfg.RetryCount, "error", err)
	}

	c.countFetch("unavailable")
	return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrUnavailable, location, c.cfg.RetryCount, lastErr)
}

// ValidateLocation reports whether key is listed in the location index.
// Index lines look like "key|name|...".
func (c *Client) ValidateLocation(ctx context.Context, key string) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, nil
	}
	body, err := c.get(ctx, indexBreaker, c.cfg.LocationsURL)
	if err != nil {
		return false, fmt.Errorf("%w: fetch location index: %w", ErrUnavailable, err)
	}
	for _, line := range strings.Split(string(body), "\n") {
		field, _, _ := strings.Cut(line, "|")
		if strings.TrimSpace(field) == key {
			return true, nil
		}
	}
	return false, nil
}

const indexBreaker = "index"

// statusError is a non-2xx response.
type statusError struct {
	URL  string
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
}

// breakerSuccess decides what a breaker counts against its target. A 4xx
// answer or a cancelled caller says nothing about the server's health.
func breakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *statusError
	return errors.As(err, &se) && se.Code >= 400 && se.Code < 500
}

func (c *Client) breaker(key string) *gobreaker.CircuitBreaker[[]byte] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cb, ok := c.breakers[key]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "cleardarksky:" + key,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	c.breakers[key] = cb
	return cb
}

func (c *Client) get(ctx context.Context, key, url string) ([]byte, error) {
	return c.breaker(key).Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		if c.cfg.UserAgent != "" {
			req.Header.Set("User-Agent", c.cfg.UserAgent)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			io.Copy(io.Discard, resp.Body)
			return nil, &statusError{URL: url, Code: resp.StatusCode}
		}
		return io.ReadAll(resp.Body)
	})
}

func (c *Client) build(location string, page []byte) (*forecast.Series, error) {
	_, readings, err := ParsePage(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}
	s := forecast.BuildSeries(location, readings)
	if s.Malformed > 0 {
		c.logger.Debug("malformed forecast cells replaced", "location", location, "count", s.Malformed)
		if c.metrics != nil {
			c.metrics.MalformedCells.Add(float64(s.Malformed))
		}
	}
	return s, nil
}

func (c *Client) fromCache(ctx context.Context, location string) (*forecast.Series, bool) {
	if c.cache == nil {
		return nil, false
	}
	page, ok, err := c.cache.Get(ctx, location)
	if err != nil {
		c.logger.Warn("page cache read failed", "location", location, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	s, err := c.build(location, page)
	if err != nil {
		return nil, false
	}
	return s, true
}

func (c *Client) storeCache(ctx context.Context, location string, page []byte) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, location, page); err != nil {
		c.logger.Warn("page cache write failed", "location", location, "error", err)
	}
}

func (c *Client) countFetch(outcome string) {
	if c.metrics != nil {
		c.metrics.FetchTotal.WithLabelValues(outcome).Inc()
	}
}
