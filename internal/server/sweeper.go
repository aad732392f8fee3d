package server

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper periodically drops quest runs that were left idle.
type Sweeper struct {
	Cron    *cron.Cron
	handler *Handler
	maxIdle time.Duration
	logger  *zap.Logger
}

// NewSweeper registers the idle-run sweep on the given cron schedule.
func NewSweeper(logger *zap.Logger, h *Handler, schedule string, maxIdle time.Duration) (*Sweeper, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxIdle <= 0 {
		return nil, fmt.Errorf("idle timeout must be positive, got %s", maxIdle)
	}

	s := &Sweeper{
		Cron:    cron.New(),
		handler: h,
		maxIdle: maxIdle,
		logger:  logger,
	}
	if _, err := s.Cron.AddFunc(schedule, s.Sweep); err != nil {
		return nil, fmt.Errorf("register run sweep %q: %w", schedule, err)
	}
	return s, nil
}

// Start starts the cron scheduler.
func (s *Sweeper) Start() {
	s.Cron.Start()
	s.logger.Info("run sweeper started",
		zap.String("op", "server.Sweeper.Start"),
		zap.Duration("maxIdle", s.maxIdle),
	)
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("run sweeper stopped", zap.String("op", "server.Sweeper.Stop"))
}

// Sweep expires idle runs once.
func (s *Sweeper) Sweep() {
	expired := s.handler.ExpireIdleRuns(s.maxIdle)
	if expired == 0 {
		return
	}
	s.logger.Info("expired idle quest runs",
		zap.String("op", "server.Sweeper.Sweep"),
		zap.Int("expired", expired),
		zap.Int("active", s.handler.ActiveRuns()),
	)
}
