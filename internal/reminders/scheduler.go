package reminders

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var errMissingTickRunner = errors.New("tick runner is required")

// TickRunner dispatches the reminders due at a minute.
type TickRunner interface {
	RunTickAt(ctx context.Context, at time.Time) (TickResult, error)
}

// TickLock claims a minute across replicas. Acquire reports false when another
// process already owns the minute.
type TickLock interface {
	Acquire(ctx context.Context, minute time.Time) (bool, error)
}

type SchedulerConfig struct {
	Runner   TickRunner
	Lock     TickLock
	Clock    func() time.Time
	Observer Observer
	Logger   *zap.Logger
}

// Scheduler fires one tick per wall-clock minute. It never overlaps ticks and
// never runs the same minute twice, whichever caller asks.
type Scheduler struct {
	runner   TickRunner
	lock     TickLock
	clock    func() time.Time
	observer Observer
	logger   *zap.Logger

	// running guards lastMinute.
	running    sync.Mutex
	lastMinute time.Time
	wg         sync.WaitGroup
}

func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Runner == nil {
		return nil, errMissingTickRunner
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Scheduler{
		runner:   cfg.Runner,
		lock:     cfg.Lock,
		clock:    clock,
		observer: cfg.Observer,
		logger:   logger,
	}, nil
}

// Run ticks at the start of every minute until ctx is done, then waits for the
// in-flight tick to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.wg.Wait()
	for {
		now := s.clock()
		next := now.Truncate(time.Minute).Add(time.Minute)
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		s.wg.Add(1)
		go func(minute time.Time) {
			defer s.wg.Done()
			if _, _, err := s.Tick(ctx, minute); err != nil {
				s.logger.Error("reminder tick failed", zap.Time("minute", minute), zap.Error(err))
			}
		}(next)
	}
}

// Tick runs the tick for minute unless one is already running in this process,
// this process already ran that minute or a later one, or another replica holds
// the minute. The boolean reports whether it ran.
func (s *Scheduler) Tick(ctx context.Context, minute time.Time) (TickResult, bool, error) {
	minute = minute.Truncate(time.Minute)
	if !s.running.TryLock() {
		s.logger.Warn("reminder tick skipped, previous tick still running", zap.Time("minute", minute))
		s.observeSkip()
		return TickResult{}, false, nil
	}
	defer s.running.Unlock()

	if !s.lastMinute.IsZero() && !minute.After(s.lastMinute) {
		s.logger.Debug("reminder tick skipped, minute already dispatched", zap.Time("minute", minute))
		s.observeSkip()
		return TickResult{}, false, nil
	}

	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, minute)
		if err != nil {
			return TickResult{}, false, err
		}
		if !acquired {
			s.logger.Debug("reminder tick claimed by another replica", zap.Time("minute", minute))
			s.observeSkip()
			return TickResult{}, false, nil
		}
	}

	s.lastMinute = minute
	result, err := s.runner.RunTickAt(ctx, minute)
	return result, err == nil, err
}

func (s *Scheduler) observeSkip() {
	if s.observer != nil {
		s.observer.ObserveTick(tickOutcomeSkipped, 0)
	}
}
