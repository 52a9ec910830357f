package bot

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const debounceCleanupInterval = time.Minute

// ExpiryScheduler is the deferred-expiry loop started alongside the bot.
type ExpiryScheduler interface {
	Start(ctx context.Context)
	Stop()
}

// DebounceCleaner drops stale modlog debounces.
type DebounceCleaner interface {
	CleanupDebounces()
}

// Scheduler manages all background tasks.
type Scheduler struct {
	expiry  ExpiryScheduler
	modlog  DebounceCleaner
	logger  *zap.Logger
	done    chan struct{}
	wg      sync.WaitGroup
	started bool
	once    sync.Once
}

// NewScheduler creates a new scheduler.
func NewScheduler(expiry ExpiryScheduler, modlog DebounceCleaner, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		expiry: expiry,
		modlog: modlog,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start begins all scheduled tasks.
func (s *Scheduler) Start(ctx context.Context) {
	s.started = true
	s.expiry.Start(ctx)

	s.wg.Add(1)
	go s.startScheduledTasks()
}

// Stop terminates all scheduled tasks gracefully. It is a no-op before Start.
func (s *Scheduler) Stop() {
	if !s.started {
		return
	}
	s.once.Do(func() {
		s.logger.Info("stopping scheduler")
		close(s.done)
		s.wg.Wait()
		s.expiry.Stop()
		s.logger.Info("scheduler stopped")
	})
}

func (s *Scheduler) startScheduledTasks() {
	defer s.wg.Done()
	debounceTicker := time.NewTicker(debounceCleanupInterval)
	defer debounceTicker.Stop()

	for {
		select {
		case <-debounceTicker.C:
			s.modlog.CleanupDebounces()
		case <-s.done:
			return
		}
	}
}
