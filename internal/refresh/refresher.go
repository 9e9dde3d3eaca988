package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/transit-board/internal/board"
	"github.com/transit-board/internal/common/logger"
	"github.com/transit-board/internal/feeds"
	"github.com/transit-board/pkg/transit/models"
)

type State int32

const (
	StateIdle State = iota
	StateFetching
	StatePresenting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StatePresenting:
		return "presenting"
	default:
		return "unknown"
	}
}

// PresentFunc renders a finished snapshot. Its error is logged and never
// fails the cycle.
type PresentFunc func(ctx context.Context, snap models.Snapshot) error

// TemperatureSource supplies the current temperature for the board header
type TemperatureSource interface {
	Temperature(ctx context.Context) (int, error)
}

type Option func(*Refresher)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Refresher) { r.now = now }
}

// WithWeather attaches a temperature source
func WithWeather(w TemperatureSource) Option {
	return func(r *Refresher) { r.weather = w }
}

// Refresher runs fetch, normalize, aggregate and present cycles. Cycles never
// overlap; a caller arriving mid-cycle waits for it to finish.
type Refresher struct {
	sources  []feeds.Source
	limits   board.Limits
	location *time.Location
	weather  TemperatureSource
	logger   logger.Logger
	now      func() time.Time

	cycleMu sync.Mutex
	state   atomic.Int32

	lastMu sync.RWMutex
	last   *models.Snapshot
}

func NewRefresher(sources []feeds.Source, limits board.Limits, loc *time.Location, log logger.Logger, opts ...Option) *Refresher {
	if loc == nil {
		loc = time.UTC
	}
	r := &Refresher{
		sources:  sources,
		limits:   limits,
		location: loc,
		logger:   log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cycle runs one full cycle and returns the snapshot handed to present.
// Feed failures only empty the affected source.
func (r *Refresher) Cycle(ctx context.Context, present PresentFunc) models.Snapshot {
	r.cycleMu.Lock()
	defer r.cycleMu.Unlock()

	start := time.Now()
	r.state.Store(int32(StateFetching))
	snap := r.build(ctx)
	cycleDuration.Observe(time.Since(start).Seconds())

	r.lastMu.Lock()
	r.last = &snap
	r.lastMu.Unlock()

	r.state.Store(int32(StatePresenting))
	if present != nil {
		if err := present(ctx, snap); err != nil {
			r.logger.Error("Presenter failed", "error", err)
		}
	}
	r.state.Store(int32(StateIdle))

	return snap
}

// State reports where the current cycle is
func (r *Refresher) State() State {
	return State(r.state.Load())
}

// Last returns the most recent snapshot, if any cycle has completed
func (r *Refresher) Last() (models.Snapshot, bool) {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()
	if r.last == nil {
		return models.Snapshot{}, false
	}
	return *r.last, true
}

// Location is the zone the board is rendered in
func (r *Refresher) Location() *time.Location {
	return r.location
}

type fetchResult struct {
	records   []models.RawArrival
	err       error
	fetchedAt time.Time
}

func (r *Refresher) build(ctx context.Context) models.Snapshot {
	results := make([]fetchResult, len(r.sources))

	var wg sync.WaitGroup
	for i, src := range r.sources {
		wg.Add(1)
		go func(i int, src feeds.Source) {
			defer wg.Done()
			records, err := src.Fetch(ctx)
			results[i] = fetchResult{records: records, err: err, fetchedAt: r.now()}
		}(i, src)
	}

	var temperature *int
	if r.weather != nil {
		if t, err := r.weather.Temperature(ctx); err != nil {
			r.logger.Warn("Weather unavailable", "error", err)
		} else {
			temperature = &t
		}
	}
	wg.Wait()

	now := r.now()
	var arrivals []models.Arrival
	statuses := make([]models.SourceStatus, len(r.sources))
	for i, src := range r.sources {
		res := results[i]
		name := src.Name()
		kind := feeds.Classify(res.err)

		status := models.SourceStatus{
			Source:    name,
			OK:        res.err == nil,
			ErrorKind: string(kind),
			FetchedAt: res.fetchedAt,
		}
		// any failure, partial included, empties the source for this cycle
		if res.err != nil {
			feedFailures.WithLabelValues(string(name), string(kind)).Inc()
			r.logger.Warn("Feed degraded", "source", string(name), "kind", string(kind), "error", res.err)
		}

		if status.OK {
			normalized, dropped := board.NormalizeAll(res.records, now, r.location)
			status.Dropped = dropped
			arrivals = append(arrivals, normalized...)
		}
		statuses[i] = status
	}

	b := board.Aggregate(arrivals, r.limits)
	for i := range statuses {
		statuses[i].Arrivals = b.Count(statuses[i].Source)
		boardArrivals.WithLabelValues(string(statuses[i].Source)).Set(float64(statuses[i].Arrivals))
	}

	r.logger.Debug("Cycle complete", "arrivals", len(arrivals), "lines", len(b.Lines))

	return models.Snapshot{
		Board:       b,
		GeneratedAt: now,
		Sources:     statuses,
		Temperature: temperature,
	}
}
