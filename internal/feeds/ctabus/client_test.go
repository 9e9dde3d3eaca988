package ctabus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transit-board/internal/common/config"
	"github.com/transit-board/internal/common/logger"
	"github.com/transit-board/internal/feeds"
	"github.com/transit-board/pkg/transit/models"
)

const predictionsFixture = `{"bustime-response":{"prd":[
{"tmstmp":"20250115 12:00","typ":"A","stpnm":"State & Lake","stpid":"1423","vid":"8123","dstp":1200,"rt":"2","rtdd":"2","rtdir":"Southbound","des":"Museum Campus","prdtm":"20250115 12:04","tablockid":"2 -701","tatripid":"1","dly":false,"prdctdn":"4","zone":""},
{"tmstmp":"20250115 12:00","typ":"A","stpnm":"State & Lake","stpid":"1423","vid":"8124","dstp":300,"rt":"2","rtdd":"2","rtdir":"Southbound","des":"Museum Campus","prdtm":"20250115 12:01","tablockid":"2 -702","tatripid":"2","dly":false,"prdctdn":"DUE","zone":""},
{"tmstmp":"20250115 12:00","typ":"A","stpnm":"State & Lake","stpid":"1423","vid":"4001","dstp":900,"rt":"146","rtdd":"146","rtdir":"Southbound","des":"Museum Campus","prdtm":"20250115 12:03","tablockid":"146 -1","tatripid":"3","dly":false,"prdctdn":"3","zone":""}
]}}`

func testConfig(baseURL string) config.BusConfig {
	return config.BusConfig{
		APIKey:  "bus-key",
		BaseURL: baseURL,
		Stops:   []config.BusStop{{ID: "1423", Name: "State & Lake", Routes: []string{"2"}}},
	}
}

func TestFetchFiltersByRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "bus-key", q.Get("key"))
		assert.Equal(t, "1423", q.Get("stpid"))
		assert.Equal(t, "json", q.Get("format"))
		w.Write([]byte(predictionsFixture))
	}))
	defer srv.Close()

	arrivals, err := NewClient(testConfig(srv.URL), time.Second, logger.Nop()).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, arrivals, 2)

	for _, a := range arrivals {
		assert.Equal(t, models.SourceCTABus, a.Source)
		require.NotNil(t, a.Bus)
		assert.Equal(t, "2", a.Bus.Route)
		assert.Equal(t, "State & Lake", a.StationName)
	}
	assert.Equal(t, "DUE", arrivals[1].Bus.Countdown)
}

func TestFetchEmptyRouteFilterKeepsAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(predictionsFixture))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Stops[0].Routes = nil
	arrivals, err := NewClient(cfg, time.Second, logger.Nop()).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, arrivals, 3)
}

func TestFetchNoServiceIsNotAFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bustime-response":{"error":[{"stpid":"1423","msg":"No service scheduled"}]}}`))
	}))
	defer srv.Close()

	arrivals, err := NewClient(testConfig(srv.URL), time.Second, logger.Nop()).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, arrivals)
}

func TestFetchKeyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bustime-response":{"error":[{"msg":"Invalid API access key supplied"}]}}`))
	}))
	defer srv.Close()

	arrivals, err := NewClient(testConfig(srv.URL), time.Second, logger.Nop()).Fetch(context.Background())
	assert.Nil(t, arrivals)
	assert.Equal(t, feeds.KindFormat, feeds.Classify(err))
}

func TestFetchNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL), time.Second, logger.Nop()).Fetch(context.Background())
	assert.Equal(t, feeds.KindFormat, feeds.Classify(err))
}

func TestFetchUpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	arrivals, err := NewClient(testConfig(srv.URL), time.Second, logger.Nop()).Fetch(context.Background())
	assert.Nil(t, arrivals)
	assert.Equal(t, feeds.KindTransport, feeds.Classify(err))
}

func TestBatchStops(t *testing.T) {
	stops := make([]config.BusStop, 23)
	batches := batchStops(stops, maxStopsPerRequest)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 10)
	assert.Len(t, batches[2], 3)
}
