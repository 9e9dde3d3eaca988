package refresh

import (
	"context"
	"fmt"
	"sync"

	"github.com/transit-board/internal/board"
	"github.com/transit-board/internal/common/config"
	"github.com/transit-board/internal/common/logger"
	"github.com/transit-board/internal/feeds"
	"github.com/transit-board/internal/feeds/cta"
	"github.com/transit-board/internal/feeds/ctabus"
	"github.com/transit-board/internal/feeds/metra"
	"github.com/transit-board/internal/feeds/weather"
	"github.com/transit-board/pkg/transit/models"
)

// Manager wires the configured feeds into a Refresher and owns the
// background scheduler when one is running.
type Manager struct {
	config    *config.Config
	logger    logger.Logger
	refresher *Refresher

	mu        sync.RWMutex
	scheduler *Scheduler
	cancelFn  context.CancelFunc
	done      chan struct{}
}

func NewManager(cfg *config.Config, log logger.Logger, opts ...Option) (*Manager, error) {
	m := &Manager{
		config: cfg,
		logger: log,
	}
	if err := m.validateConfig(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	timeout := cfg.Refresh.HTTPTimeout
	var sources []feeds.Source
	for _, src := range cfg.Sources {
		switch src {
		case models.SourceCTATrain:
			sources = append(sources, cta.NewClient(cfg.CTA, timeout, log))
		case models.SourceCTABus:
			sources = append(sources, ctabus.NewClient(cfg.Bus, timeout, log))
		case models.SourceMetra:
			sources = append(sources, metra.NewClient(cfg.Metra, timeout, log))
		}
	}

	if cfg.Weather.Enabled() {
		opts = append([]Option{WithWeather(weather.NewClient(cfg.Weather, timeout, log))}, opts...)
	} else {
		log.Info("Weather disabled (no API key provided)")
	}

	m.refresher = NewRefresher(sources, LimitsFromConfig(cfg), cfg.Board.Location, log, opts...)
	return m, nil
}

// LimitsFromConfig builds display caps from the board configuration
func LimitsFromConfig(cfg *config.Config) board.Limits {
	limits := board.DefaultLimits()
	for src, max := range cfg.MaxPerSource() {
		limits.BySource[src] = max
	}
	limits.ByLine = make(map[string]int, len(cfg.Board.LineMax))
	for line, max := range cfg.Board.LineMax {
		limits.ByLine[line] = max
	}
	return limits
}

func (m *Manager) Refresher() *Refresher {
	return m.refresher
}

// Start launches the interval scheduler in the background
func (m *Manager) Start(ctx context.Context, present PresentFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.scheduler != nil {
		return fmt.Errorf("refresh manager is already running")
	}

	// Create cancellable context
	ctx, cancel := context.WithCancel(ctx)

	s := NewScheduler(m.config.Refresh.Interval, m.refresher, present, m.logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.Start(ctx); err != nil {
			m.logger.Error("Refresh scheduler error", "error", err)
		}
	}()

	m.scheduler = s
	m.cancelFn = cancel
	m.done = done
	m.logger.Info("Refresh manager started", "sources", len(m.config.Sources))
	return nil
}

// Stop halts the scheduler and waits for an in-flight cycle to finish
func (m *Manager) Stop() {
	m.mu.Lock()
	s, cancel, done := m.scheduler, m.cancelFn, m.done
	m.scheduler, m.cancelFn, m.done = nil, nil, nil
	m.mu.Unlock()

	if s == nil {
		return
	}

	m.logger.Info("Stopping refresh manager")
	cancel()
	<-done
	m.logger.Info("Refresh manager stopped")
}

func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scheduler != nil
}

func (m *Manager) validateConfig() error {
	if m.config == nil {
		return fmt.Errorf("configuration is required")
	}
	if len(m.config.Sources) == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}
	if m.config.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh interval must be positive")
	}
	if m.config.Refresh.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive")
	}
	return nil
}
