package refresh

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/transit-board/internal/board"
	"github.com/transit-board/internal/common/config"
	"github.com/transit-board/internal/common/logger"
	"github.com/transit-board/internal/feeds"
	"github.com/transit-board/internal/feeds/cta"
	"github.com/transit-board/internal/feeds/metra"
	"github.com/transit-board/pkg/transit/models"
)

var fixedNow = time.Date(2025, 1, 15, 18, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fakeSource struct {
	name  models.Source
	fetch func(ctx context.Context) ([]models.RawArrival, error)
}

func (f *fakeSource) Name() models.Source { return f.name }

func (f *fakeSource) Fetch(ctx context.Context) ([]models.RawArrival, error) {
	return f.fetch(ctx)
}

type fakeWeather struct {
	temp int
	err  error
}

func (f fakeWeather) Temperature(context.Context) (int, error) { return f.temp, f.err }

func metraRecord(number string, in time.Duration) models.RawArrival {
	return models.RawArrival{
		Source:      models.SourceMetra,
		StationName: "MILLENNIUM",
		Metra: &models.MetraDeparture{
			RouteID:     "ME",
			StopID:      "MILLENNIUM",
			TrainNumber: number,
			Time:        fixedNow.Add(in),
		},
	}
}

func staticSource(name models.Source, records []models.RawArrival, err error) *fakeSource {
	return &fakeSource{name: name, fetch: func(context.Context) ([]models.RawArrival, error) {
		return records, err
	}}
}

func metraFeed(t *testing.T) []byte {
	t.Helper()
	var entity []*gtfs.FeedEntity
	for i, trip := range []string{"ME_ME320_V3_B", "ME_ME322_V3_B"} {
		entity = append(entity, &gtfs.FeedEntity{
			Id: proto.String(trip),
			TripUpdate: &gtfs.TripUpdate{
				Trip: &gtfs.TripDescriptor{TripId: proto.String(trip), RouteId: proto.String("ME")},
				StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{{
					StopId:    proto.String("MILLENNIUM"),
					Departure: &gtfs.TripUpdate_StopTimeEvent{Time: proto.Int64(fixedNow.Add(time.Duration(5+10*i) * time.Minute).Unix())},
				}},
			},
		})
	}
	data, err := proto.Marshal(&gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		Entity: entity,
	})
	require.NoError(t, err)
	return data
}

func TestCycleSurvivesCTATransportFailure(t *testing.T) {
	feed := metraFeed(t)
	metraSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(feed)
	}))
	defer metraSrv.Close()

	ctaSrv := httptest.NewServer(http.NotFoundHandler())
	ctaURL := ctaSrv.URL
	ctaSrv.Close()

	log := logger.Nop()
	sources := []feeds.Source{
		cta.NewClient(config.CTAConfig{APIKey: "k", BaseURL: ctaURL, Stations: []config.Station{{ID: "40380", Name: "Clark/Lake"}}, MaxResults: 20}, time.Second, log),
		metra.NewClient(config.MetraConfig{Token: "t", URL: metraSrv.URL, RouteID: "ME", StopID: "MILLENNIUM"}, time.Second, log),
	}
	r := NewRefresher(sources, board.DefaultLimits(), time.UTC, log, WithClock(clock))

	var presented *models.Snapshot
	snap := r.Cycle(context.Background(), func(_ context.Context, s models.Snapshot) error {
		presented = &s
		return nil
	})

	require.NotNil(t, presented, "cycle must always reach the presenter")
	assert.Empty(t, snap.Board.ForSource(models.SourceCTATrain))
	require.Len(t, snap.Board.Line("ME"), 2)
	assert.Equal(t, "Train 320", snap.Board.Line("ME")[0].Destination)
	assert.Equal(t, 5, snap.Board.Line("ME")[0].MinutesAway)

	ctaStatus, ok := snap.Status(models.SourceCTATrain)
	require.True(t, ok)
	assert.False(t, ctaStatus.OK)
	assert.Equal(t, string(feeds.KindTransport), ctaStatus.ErrorKind)

	metraStatus, ok := snap.Status(models.SourceMetra)
	require.True(t, ok)
	assert.True(t, metraStatus.OK)
	assert.Equal(t, 2, metraStatus.Arrivals)
}

func TestCycleEmptiesPartialSource(t *testing.T) {
	records := []models.RawArrival{metraRecord("320", 4*time.Minute), metraRecord("322", 9*time.Minute)}
	src := staticSource(models.SourceMetra, records, feeds.Partial(models.SourceMetra, 1, nil))

	r := NewRefresher([]feeds.Source{src}, board.DefaultLimits(), time.UTC, logger.Nop(), WithClock(clock))
	snap := r.Cycle(context.Background(), nil)

	assert.Empty(t, snap.Board.Lines)
	status, _ := snap.Status(models.SourceMetra)
	assert.False(t, status.OK)
	assert.Equal(t, string(feeds.KindPartial), status.ErrorKind)
	assert.Zero(t, status.Arrivals)
}

func TestCycleDiscardsRecordsFromFailedSource(t *testing.T) {
	records := []models.RawArrival{metraRecord("320", 4*time.Minute)}
	src := staticSource(models.SourceMetra, records, feeds.Format(models.SourceMetra, errors.New("bad")))

	r := NewRefresher([]feeds.Source{src}, board.DefaultLimits(), time.UTC, logger.Nop(), WithClock(clock))
	snap := r.Cycle(context.Background(), nil)
	assert.Empty(t, snap.Board.Lines)
}

func TestCycleCountsDroppedRecords(t *testing.T) {
	records := []models.RawArrival{
		metraRecord("320", 4*time.Minute),
		metraRecord("318", -5*time.Minute),
		{Source: models.SourceMetra, Metra: &models.MetraDeparture{RouteID: "ME", TrainNumber: "324"}},
	}
	r := NewRefresher([]feeds.Source{staticSource(models.SourceMetra, records, nil)}, board.DefaultLimits(), time.UTC, logger.Nop(), WithClock(clock))
	snap := r.Cycle(context.Background(), nil)

	status, _ := snap.Status(models.SourceMetra)
	assert.Equal(t, 2, status.Dropped)
	assert.Equal(t, 1, status.Arrivals)
}

func TestCycleStateMachine(t *testing.T) {
	var r *Refresher
	src := &fakeSource{name: models.SourceMetra, fetch: func(context.Context) ([]models.RawArrival, error) {
		assert.Equal(t, StateFetching, r.State())
		return nil, nil
	}}
	r = NewRefresher([]feeds.Source{src}, board.DefaultLimits(), time.UTC, logger.Nop(), WithClock(clock))
	assert.Equal(t, StateIdle, r.State())

	r.Cycle(context.Background(), func(context.Context, models.Snapshot) error {
		assert.Equal(t, StatePresenting, r.State())
		return errors.New("display unplugged")
	})
	assert.Equal(t, StateIdle, r.State())

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, fixedNow, last.GeneratedAt)
}

func TestCyclesNeverOverlap(t *testing.T) {
	var inFlight, maxInFlight int32
	src := &fakeSource{name: models.SourceMetra, fetch: func(context.Context) ([]models.RawArrival, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil, nil
	}}
	r := NewRefresher([]feeds.Source{src}, board.DefaultLimits(), time.UTC, logger.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Cycle(context.Background(), nil)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&maxInFlight))
}

func TestCycleTemperature(t *testing.T) {
	src := staticSource(models.SourceMetra, nil, nil)

	r := NewRefresher([]feeds.Source{src}, board.DefaultLimits(), time.UTC, logger.Nop(), WithWeather(fakeWeather{temp: 41}))
	snap := r.Cycle(context.Background(), nil)
	require.NotNil(t, snap.Temperature)
	assert.Equal(t, 41, *snap.Temperature)

	r = NewRefresher([]feeds.Source{src}, board.DefaultLimits(), time.UTC, logger.Nop(), WithWeather(fakeWeather{err: errors.New("quota")}))
	snap = r.Cycle(context.Background(), nil)
	assert.Nil(t, snap.Temperature)
}
