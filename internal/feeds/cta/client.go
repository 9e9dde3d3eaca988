package cta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/transit-board/internal/common/config"
	"github.com/transit-board/internal/common/httpclient"
	"github.com/transit-board/internal/common/logger"
	"github.com/transit-board/internal/feeds"
	"github.com/transit-board/pkg/transit/models"
)

// maxStationsPerRequest is the Train Tracker limit on mapid values per call
const maxStationsPerRequest = 4

type response struct {
	CTATT *struct {
		Timestamp string            `json:"tmst"`
		ErrCode   string            `json:"errCd"`
		ErrName   string            `json:"errNm"`
		ETA       []json.RawMessage `json:"eta"`
	} `json:"ctatt"`
}

// Client reads train arrivals for a set of stations from Train Tracker
type Client struct {
	apiKey     string
	baseURL    string
	stations   []config.Station
	names      map[string]string
	maxResults int
	http       *httpclient.Client
	logger     logger.Logger
}

func NewClient(cfg config.CTAConfig, timeout time.Duration, log logger.Logger) *Client {
	names := make(map[string]string, len(cfg.Stations))
	for _, st := range cfg.Stations {
		names[st.ID] = st.Name
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		stations:   cfg.Stations,
		names:      names,
		maxResults: cfg.MaxResults,
		http:       httpclient.New(string(models.SourceCTATrain), httpclient.Options{Timeout: timeout, Accept: "application/json"}),
		logger:     log.With("source", string(models.SourceCTATrain)),
	}
}

func (c *Client) Name() models.Source {
	return models.SourceCTATrain
}

// Fetch requests stations in batches. If every batch fails the first error
// is returned; if only some fail the records that did arrive come back with
// a PartialDataError.
func (c *Client) Fetch(ctx context.Context) ([]models.RawArrival, error) {
	var (
		arrivals []models.RawArrival
		firstErr error
		failed   int
		skipped  int
	)

	batches := batchStations(c.stations, maxStationsPerRequest)
	for _, batch := range batches {
		records, bad, err := c.fetchBatch(ctx, batch)
		if err != nil {
			c.logger.Debug("Station batch failed", "stations", len(batch), "error", err)
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
	return arrivals, feeds.Partial(models.SourceCTATrain, skipped, firstErr)
}

func (c *Client) fetchBatch(ctx context.Context, batch []config.Station) ([]models.RawArrival, int, error) {
	body, err := c.http.Get(ctx, c.buildURL(batch))
	if err != nil {
		return nil, 0, feeds.Transport(models.SourceCTATrain, err)
	}
	return c.parse(body)
}

func (c *Client) buildURL(batch []config.Station) string {
	q := url.Values{}
	q.Set("key", c.apiKey)
	for _, st := range batch {
		q.Add("mapid", st.ID)
	}
	// max caps the whole response, so each station keeps its own budget
	q.Set("max", strconv.Itoa(c.maxResults*len(batch)))
	q.Set("outputType", "JSON")
	return c.baseURL + "?" + q.Encode()
}

// parse decodes one Train Tracker document. Individual eta entries that do
// not decode are counted and skipped.
func (c *Client) parse(body []byte) ([]models.RawArrival, int, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, feeds.Format(models.SourceCTATrain, fmt.Errorf("failed to decode arrivals: %w", err))
	}
	if resp.CTATT == nil {
		return nil, 0, feeds.Format(models.SourceCTATrain, errors.New("missing ctatt envelope"))
	}
	if code := resp.CTATT.ErrCode; code != "" && code != "0" {
		return nil, 0, feeds.Format(models.SourceCTATrain, fmt.Errorf("train tracker error %s: %s", code, resp.CTATT.ErrName))
	}

	arrivals := make([]models.RawArrival, 0, len(resp.CTATT.ETA))
	skipped := 0
	for _, raw := range resp.CTATT.ETA {
		var eta models.TrainETA
		if err := json.Unmarshal(raw, &eta); err != nil {
			skipped++
			continue
		}
		arrivals = append(arrivals, models.RawArrival{
			Source:      models.SourceCTATrain,
			StationName: c.names[eta.StationID],
			Train:       &eta,
		})
	}
	return arrivals, skipped, nil
}

func batchStations(stations []config.Station, size int) [][]config.Station {
	var batches [][]config.Station
	for start := 0; start < len(stations); start += size {
		end := start + size
		if end > len(stations) {
			end = len(stations)
		}
		batches = append(batches, stations[start:end])
	}
	return batches
}
