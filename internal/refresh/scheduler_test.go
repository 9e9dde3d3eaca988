package refresh

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transit-board/internal/board"
	"github.com/transit-board/internal/common/config"
	"github.com/transit-board/internal/common/logger"
	"github.com/transit-board/internal/feeds"
	"github.com/transit-board/pkg/transit/models"
)

func TestSchedulerRunsUntilStopped(t *testing.T) {
	r := NewRefresher([]feeds.Source{staticSource(models.SourceMetra, nil, nil)}, board.DefaultLimits(), time.UTC, logger.Nop())

	var cycles int32
	s := NewScheduler(10*time.Millisecond, r, func(context.Context, models.Snapshot) error {
		atomic.AddInt32(&cycles, 1)
		return nil
	}, logger.Nop())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(context.Background()) }()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&cycles) >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start(context.Background()), "second start must fail")

	require.NoError(t, s.Stop())
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.False(t, s.IsRunning())
}

func TestSchedulerStopWhenIdle(t *testing.T) {
	s := NewScheduler(time.Second, nil, nil, logger.Nop())
	assert.Error(t, s.Stop())
}

func TestSchedulerRejectsZeroInterval(t *testing.T) {
	s := NewScheduler(0, nil, nil, logger.Nop())
	assert.Error(t, s.Start(context.Background()))
}

func testManagerConfig() *config.Config {
	return &config.Config{
		Sources: []models.Source{models.SourceMetra},
		Metra:   config.MetraConfig{Token: "t", URL: "http://127.0.0.1:1/feed", RouteID: "ME", StopID: "MILLENNIUM"},
		Board:   config.BoardConfig{TrainMaxPerLine: 3, BusMaxPerLine: 5, MetraMaxPerLine: 2, LineMax: map[string]int{"Red": 6}, Location: time.UTC},
		Refresh: config.RefreshConfig{Interval: 10 * time.Millisecond, HTTPTimeout: 100 * time.Millisecond},
	}
}

func TestManagerLifecycle(t *testing.T) {
	m, err := NewManager(testManagerConfig(), logger.Nop())
	require.NoError(t, err)

	var cycles int32
	present := func(_ context.Context, snap models.Snapshot) error {
		atomic.AddInt32(&cycles, 1)
		return nil
	}

	require.NoError(t, m.Start(context.Background(), present))
	assert.True(t, m.IsRunning())
	assert.Error(t, m.Start(context.Background(), present))

	require.Eventually(t, func() bool { return atomic.LoadInt32(&cycles) >= 1 }, 2*time.Second, 5*time.Millisecond)
	m.Stop()
	assert.False(t, m.IsRunning())

	snap, ok := m.Refresher().Last()
	require.True(t, ok)
	status, _ := snap.Status(models.SourceMetra)
	assert.False(t, status.OK)
}

func TestManagerRejectsEmptySources(t *testing.T) {
	cfg := testManagerConfig()
	cfg.Sources = nil
	_, err := NewManager(cfg, logger.Nop())
	assert.Error(t, err)
}

func TestLimitsFromConfig(t *testing.T) {
	limits := LimitsFromConfig(testManagerConfig())
	assert.Equal(t, 2, limits.For("ME", models.SourceMetra))
	assert.Equal(t, 3, limits.For("Blue", models.SourceCTATrain))
	assert.Equal(t, 6, limits.For("Red", models.SourceCTATrain))
}
