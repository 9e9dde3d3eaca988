package ctabus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/transit-board/internal/common/config"
	"github.com/transit-board/internal/common/httpclient"
	"github.com/transit-board/internal/common/logger"
	"github.com/transit-board/internal/feeds"
	"github.com/transit-board/pkg/transit/models"
)

// maxStopsPerRequest is the Bus Tracker limit on stpid values per call
const maxStopsPerRequest = 10

type apiError struct {
	Message string `json:"msg"`
	StopID  string `json:"stpid"`
	Route   string `json:"rt"`
}

type response struct {
	Body *struct {
		Predictions []json.RawMessage `json:"prd"`
		Errors      []apiError        `json:"error"`
	} `json:"bustime-response"`
}

// Client reads bus predictions for a set of stops from Bus Tracker
type Client struct {
	apiKey  string
	baseURL string
	stops   []config.BusStop
	byID    map[string]config.BusStop
	http    *httpclient.Client
	logger  logger.Logger
}

func NewClient(cfg config.BusConfig, timeout time.Duration, log logger.Logger) *Client {
	byID := make(map[string]config.BusStop, len(cfg.Stops))
	for _, stop := range cfg.Stops {
		byID[stop.ID] = stop
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		stops:   cfg.Stops,
		byID:    byID,
		http:    httpclient.New(string(models.SourceCTABus), httpclient.Options{Timeout: timeout, Accept: "application/json"}),
		logger:  log.With("source", string(models.SourceCTABus)),
	}
}

func (c *Client) Name() models.Source {
	return models.SourceCTABus
}

// Fetch requests stops in batches and keeps predictions for the routes each
// stop is configured to watch.
func (c *Client) Fetch(ctx context.Context) ([]models.RawArrival, error) {
	var (
		arrivals []models.RawArrival
		firstErr error
		failed   int
		skipped  int
	)

	batches := batchStops(c.stops, maxStopsPerRequest)
	for _, batch := range batches {
		records, bad, err := c.fetchBatch(ctx, batch)
		if err != nil {
			c.logger.Debug("Stop batch failed", "stops", len(batch), "error", err)
			if firstErr == nil {
				firstErr = err
			}
			failed++
			skipped += len(batch)
			continue
		}
		skipped += bad
		arrivals = append(arrivals, records...)
	}

	if failed > 0 && failed == len(batches) {
		return nil, firstErr
	}
	return arrivals, feeds.Partial(models.SourceCTABus, skipped, firstErr)
}

func (c *Client) fetchBatch(ctx context.Context, batch []config.BusStop) ([]models.RawArrival, int, error) {
	body, err := c.http.Get(ctx, c.buildURL(batch))
	if err != nil {
		return nil, 0, feeds.Transport(models.SourceCTABus, err)
	}
	return c.parse(body)
}

func (c *Client) buildURL(batch []config.BusStop) string {
	ids := make([]string, 0, len(batch))
	for _, stop := range batch {
		ids = append(ids, stop.ID)
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("stpid", strings.Join(ids, ","))
	q.Set("format", "json")
	return c.baseURL + "?" + q.Encode()
}

func (c *Client) parse(body []byte) ([]models.RawArrival, int, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, feeds.Format(models.SourceCTABus, fmt.Errorf("failed to decode predictions: %w", err))
	}
	if resp.Body == nil {
		return nil, 0, feeds.Format(models.SourceCTABus, errors.New("missing bustime-response envelope"))
	}

	for _, e := range resp.Body.Errors {
		// errors scoped to a stop or route mean there is simply no service
		if e.StopID == "" && e.Route == "" && len(resp.Body.Predictions) == 0 {
			return nil, 0, feeds.Format(models.SourceCTABus, fmt.Errorf("bus tracker error: %s", e.Message))
		}
		c.logger.Debug("No predictions", "stop_id", e.StopID, "message", e.Message)
	}

	arrivals := make([]models.RawArrival, 0, len(resp.Body.Predictions))
	skipped := 0
	for _, raw := range resp.Body.Predictions {
		var prd models.BusPrediction
		if err := json.Unmarshal(raw, &prd); err != nil {
			skipped++
			continue
		}

		stop, ok := c.byID[prd.StopID]
		if !ok || !watches(stop, prd.Route) {
			continue
		}
		arrivals = append(arrivals, models.RawArrival{
			Source:      models.SourceCTABus,
			StationName: stop.Name,
			Bus:         &prd,
		})
	}
	return arrivals, skipped, nil
}

// watches reports whether stop shows route. No route filter means all routes.
func watches(stop config.BusStop, route string) bool {
	if len(stop.Routes) == 0 {
		return true
	}
	for _, r := range stop.Routes {
		if r == route {
			return true
		}
	}
	return false
}

func batchStops(stops []config.BusStop, size int) [][]config.BusStop {
	var batches [][]config.BusStop
	for start := 0; start < len(stops); start += size {
		end := start + size
		if end > len(stops) {
			end = len(stops)
		}
		batches = append(batches, stops[start:end])
	}
	return batches
}
