package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/transit-board/internal/common/logger"
)

// Scheduler runs a cycle immediately and then once per interval until
// stopped. A cycle that overruns the interval delays the next tick rather
// than overlapping it.
type Scheduler struct {
	interval  time.Duration
	refresher *Refresher
	present   PresentFunc
	logger    logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

func NewScheduler(interval time.Duration, refresher *Refresher, present PresentFunc, log logger.Logger) *Scheduler {
	return &Scheduler{
		interval:  interval,
		refresher: refresher,
		present:   present,
		logger:    log,
	}
}

// Start blocks until ctx is done or Stop is called
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	if s.interval <= 0 {
		s.mu.Unlock()
		return fmt.Errorf("refresh interval must be positive")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("Starting refresh scheduler", "interval", s.interval.String())

	// Initial cycle
	s.refresher.Cycle(ctx, s.present)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		case <-ticker.C:
			s.refresher.Cycle(ctx, s.present)
		}
	}
}

func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return fmt.Errorf("scheduler not running")
	}

	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
