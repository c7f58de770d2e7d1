package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"AeroPulse/internal/domain/models"
	"AeroPulse/internal/domain/repository"
	xlogger "AeroPulse/pkg/logger"
)

// DashboardService keeps the latest dashboard, refreshes it on a schedule
// and fans each new one out to publishers.
type DashboardService struct {
	engine     *KPIEngine
	publishers []repository.DashboardPublisher
	interval   time.Duration
	logger     *xlogger.Logger

	latest atomic.Pointer[models.Dashboard]

	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	inflight *cycle
}

// cycle is one engine run shared by every caller that joined it. It is
// canceled when its last waiter leaves or the service closes.
type cycle struct {
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	result  *models.Dashboard
	waiters int
}

func NewDashboardService(engine *KPIEngine, interval time.Duration, logger *xlogger.Logger, publishers ...repository.DashboardPublisher) *DashboardService {
	if logger == nil {
		logger = xlogger.Nop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &DashboardService{
		engine:     engine,
		publishers: publishers,
		interval:   interval,
		logger:     logger,
		base:       base,
		cancel:     cancel,
	}
}

// Latest returns the most recent dashboard, or nil before the first cycle.
func (s *DashboardService) Latest() *models.Dashboard {
	return s.latest.Load()
}

// Get returns the latest dashboard, running a cycle when there is none or
// refresh is requested.
func (s *DashboardService) Get(ctx context.Context, refresh bool) *models.Dashboard {
	if d := s.latest.Load(); d != nil && !refresh {
		return d
	}
	return s.Refresh(ctx)
}

// Refresh runs a cycle. Concurrent callers share one cycle. When ctx ends
// first the previous dashboard is returned, which is nil before the first
// completed cycle.
func (s *DashboardService) Refresh(ctx context.Context) *models.Dashboard {
	c := s.join()
	defer s.leave(c)

	select {
	case <-c.done:
		return c.result
	case <-ctx.Done():
		return s.latest.Load()
	}
}

// Close cancels any cycle in flight. Later refreshes return the last
// dashboard without running the engine.
func (s *DashboardService) Close() {
	s.cancel()
}

func (s *DashboardService) join() *cycle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c := s.inflight; c != nil {
		c.waiters++
		return c
	}
	ctx, cancel := context.WithCancel(s.base)
	c := &cycle{ctx: ctx, cancel: cancel, done: make(chan struct{}), waiters: 1}
	s.inflight = c
	go s.run(c)
	return c
}

func (s *DashboardService) leave(c *cycle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.waiters--
	if c.waiters > 0 {
		return
	}
	if s.inflight == c {
		s.inflight = nil
	}
	c.cancel()
}

func (s *DashboardService) run(c *cycle) {
	defer c.cancel()

	if c.ctx.Err() != nil {
		s.finish(c, s.latest.Load())
		return
	}
	d := s.engine.Run(c.ctx)
	if err := c.ctx.Err(); err != nil {
		s.logger.Info("dashboard cycle abandoned",
			xlogger.String("cycle_id", d.CycleID),
			xlogger.Error(err),
		)
		s.finish(c, s.latest.Load())
		return
	}
	s.latest.Store(d)
	s.publish(d)
	s.finish(c, d)
}

func (s *DashboardService) finish(c *cycle, d *models.Dashboard) {
	s.mu.Lock()
	if s.inflight == c {
		s.inflight = nil
	}
	s.mu.Unlock()
	c.result = d
	close(c.done)
}

// HealthCheck tests every source connection.
func (s *DashboardService) HealthCheck(ctx context.Context) []models.HealthStatus {
	return s.engine.HealthCheck(ctx)
}

// Start refreshes immediately and then on every interval until ctx ends.
// Ending ctx also cancels cycles started by other callers.
func (s *DashboardService) Start(ctx context.Context) {
	context.AfterFunc(ctx, s.Close)
	s.Refresh(ctx)
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

func (s *DashboardService) publish(d *models.Dashboard) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for _, p := range s.publishers {
		if p == nil {
			continue
		}
		wg.Add(1)
		go func(p repository.DashboardPublisher) {
			defer wg.Done()
			if err := p.Publish(ctx, d); err != nil {
				s.logger.Warn("dashboard publish failed",
					xlogger.String("cycle_id", d.CycleID),
					xlogger.Error(err),
				)
			}
		}(p)
	}
	wg.Wait()
}
