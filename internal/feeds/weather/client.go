package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sync"
	"time"

	"github.com/bluele/gcache"

	"github.com/transit-board/internal/common/config"
	"github.com/transit-board/internal/common/httpclient"
	"github.com/transit-board/internal/common/logger"
)

const cacheKey = "current"

type pointResponse struct {
	Current *struct {
		Temperature *float64 `json:"temperature"`
	} `json:"current"`
}

// Client reports the current temperature from Meteosource. Readings are
// cached for the configured TTL and the last good reading outlives failures.
type Client struct {
	baseURL string
	apiKey  string
	placeID string
	units   string
	http    *httpclient.Client
	cache   gcache.Cache
	logger  logger.Logger

	mu       sync.Mutex
	lastGood *int
}

type Option func(*gcache.CacheBuilder)

// WithClock swaps the cache clock, for tests
func WithClock(clock gcache.Clock) Option {
	return func(b *gcache.CacheBuilder) {
		b.Clock(clock)
	}
}

func NewClient(cfg config.WeatherConfig, timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	builder := gcache.New(1).LRU().Expiration(cfg.TTL)
	for _, opt := range opts {
		opt(builder)
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		placeID: cfg.PlaceID,
		units:   cfg.Units,
		http:    httpclient.New("weather", httpclient.Options{Timeout: timeout, Accept: "application/json"}),
		cache:   builder.Build(),
		logger:  log.With("source", "weather"),
	}
}

// Temperature returns the current temperature rounded to a whole degree
func (c *Client) Temperature(ctx context.Context) (int, error) {
	if v, err := c.cache.Get(cacheKey); err == nil {
		return v.(int), nil
	}

	temp, err := c.fetch(ctx)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.lastGood != nil {
			c.logger.Warn("Weather fetch failed, reusing last reading", "error", err)
			return *c.lastGood, nil
		}
		return 0, err
	}

	c.mu.Lock()
	c.lastGood = &temp
	c.mu.Unlock()
	if err := c.cache.Set(cacheKey, temp); err != nil {
		c.logger.Debug("Failed to cache temperature", "error", err)
	}
	return temp, nil
}

func (c *Client) fetch(ctx context.Context) (int, error) {
	q := url.Values{}
	q.Set("place_id", c.placeID)
	q.Set("sections", "current")
	q.Set("units", c.units)
	q.Set("key", c.apiKey)

	body, err := c.http.Get(ctx, c.baseURL+"?"+q.Encode())
	if err != nil {
		return 0, err
	}

	var resp pointResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("failed to decode weather: %w", err)
	}
	if resp.Current == nil || resp.Current.Temperature == nil {
		return 0, errors.New("weather response has no current temperature")
	}
	return int(math.Round(*resp.Current.Temperature)), nil
}
