package expiry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"admin-bot/model"
	"admin-bot/utils"

	"go.uber.org/zap"
)

// Store is the part of the infraction store the scheduler reads and closes.
type Store interface {
	FindEarliestActiveDated(ctx context.Context) (*model.Infraction, error)
	FindEarliestActiveDatedAfter(ctx context.Context, t time.Time) (*model.Infraction, error)
	FindAllDue(ctx context.Context, now time.Time) ([]model.Infraction, error)
	CompareAndClose(ctx context.Context, id int64) (bool, error)
}

type PunishmentReverser interface {
	Reverse(ctx context.Context, inf *model.Infraction) error
}

type ModLogger interface {
	Log(ctx context.Context, guildID string, action utils.Action, entry utils.Entry)
}

type Options struct {
	// StartDelay is waited before the first store query.
	StartDelay time.Duration
	// CallTimeout bounds the reversal of a single infraction.
	CallTimeout time.Duration
	// RetryInterval is how long records that failed to reverse wait before
	// the next attempt.
	RetryInterval time.Duration
}

func (o *Options) setDefaults() {
	if o.CallTimeout <= 0 {
		o.CallTimeout = 10 * time.Second
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = time.Minute
	}
}

// Scheduler reverses dated infractions when they expire. A single goroutine
// owns one timer, armed for the earliest expiry in the store; nothing is
// queued in memory, so a restart only has to query the store again.
type Scheduler struct {
	store    Store
	reverser PunishmentReverser
	modlog   ModLogger
	logger   *zap.Logger
	opts     Options

	mu      sync.Mutex
	armedAt time.Time // zero while idle or processing
	pending time.Time // earliest Reschedule not yet picked up by the loop
	wake    chan struct{}

	cancel context.CancelFunc
	done   chan struct{}

	armHook func(time.Time)
}

// NewScheduler builds a Scheduler. modlog may be nil.
func NewScheduler(store Store, reverser PunishmentReverser, modlog ModLogger, logger *zap.Logger, opts Options) *Scheduler {
	opts.setDefaults()
	return &Scheduler{
		store:    store,
		reverser: reverser,
		modlog:   modlog,
		logger:   logger.With(zap.String("component", "expiry")),
		opts:     opts,
		wake:     make(chan struct{}, 1),
	}
}

// Start launches the scheduler loop. It must be called once.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
}

// Stop ends the loop and waits for an in-flight batch to finish.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("expiry scheduler stopped")
}

// ArmedAt returns the deadline the timer is set for. ok is false while the
// scheduler is idle or processing a batch.
func (s *Scheduler) ArmedAt() (t time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armedAt, !s.armedAt.IsZero()
}

// Reschedule asks the scheduler to wake at t if that is earlier than its
// current arm. It is called after a dated infraction is created and reports
// whether the arm moved.
func (s *Scheduler) Reschedule(t time.Time) bool {
	s.mu.Lock()
	current := earliest(s.armedAt, s.pending)
	if !current.IsZero() && !t.Before(current) {
		s.mu.Unlock()
		return false
	}
	s.pending = t
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	timer := time.NewTimer(time.Hour)
	stopTimer(timer)
	defer timer.Stop()

	if s.opts.StartDelay > 0 {
		select {
		case <-time.After(s.opts.StartDelay):
		case <-ctx.Done():
			return
		}
	}

	var next time.Time
	inf, err := s.store.FindEarliestActiveDated(ctx)
	switch {
	case err != nil:
		s.logger.Error("failed to query earliest infraction", zap.Error(err))
		next = time.Now().Add(s.opts.RetryInterval)
	case inf != nil:
		next, _ = inf.Expiry()
	}
	s.arm(timer, s.takePending(next))
	s.logger.Info("expiry scheduler started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			s.mu.Lock()
			p := s.pending
			s.pending = time.Time{}
			current := s.armedAt
			s.mu.Unlock()
			if !p.IsZero() && (current.IsZero() || p.Before(current)) {
				s.arm(timer, p)
			}
		case <-timer.C:
			s.mu.Lock()
			s.armedAt = time.Time{}
			s.mu.Unlock()
			s.arm(timer, s.takePending(s.fire(ctx)))
		}
	}
}

// fire processes every due record and returns the next deadline, or the
// zero time when nothing is left.
func (s *Scheduler) fire(ctx context.Context) time.Time {
	// A batch always runs to completion; each call is bounded by CallTimeout.
	batchCtx := context.WithoutCancel(ctx)

	now := time.Now()
	due, err := s.store.FindAllDue(batchCtx, now)
	if err != nil {
		s.logger.Error("failed to query due infractions", zap.Error(err))
		return time.Now().Add(s.opts.RetryInterval)
	}

	retry := false
	for i := range due {
		if !s.process(batchCtx, &due[i]) {
			retry = true
		}
	}

	var next time.Time
	if retry {
		next = time.Now().Add(s.opts.RetryInterval)
	}
	inf, err := s.store.FindEarliestActiveDatedAfter(batchCtx, now)
	if err != nil {
		s.logger.Error("failed to query next infraction", zap.Error(err))
		return earliest(next, time.Now().Add(s.opts.RetryInterval))
	}
	if inf != nil {
		t, _ := inf.Expiry()
		next = earliest(next, t)
	}
	return next
}

// process reverses and closes one record. It returns false if the record was
// left active to be retried.
func (s *Scheduler) process(ctx context.Context, inf *model.Infraction) bool {
	log := s.logger.With(
		zap.Int64("infraction_id", inf.ID),
		zap.String("guild_id", inf.GuildID),
		zap.String("user_id", inf.UserID),
		zap.String("type", string(inf.Type)))

	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	err := s.reverser.Reverse(callCtx, inf)
	cancel()

	switch {
	case err == nil:
	case errors.Is(err, ErrNotDated), errors.Is(err, ErrNoMuteRole):
		log.Error("invalid dated infraction, closing without reversal", zap.Error(err))
	case utils.IsTransient(err):
		log.Warn("failed to reverse infraction, will retry", zap.Error(err))
		return false
	default:
		log.Warn("infraction could not be reversed, closing", zap.Error(err))
	}

	closed, err := s.store.CompareAndClose(ctx, inf.ID)
	if err != nil {
		log.Error("failed to close infraction", zap.Error(err))
		return false
	}
	if !closed {
		log.Debug("infraction already closed")
		return true
	}
	log.Info("infraction expired")

	if s.modlog != nil {
		entry := utils.Entry{
			UserID: inf.UserID,
			Reason: fmt.Sprintf("%s #%d expired", inf.Type, inf.ID),
		}
		if inf.Reason.Valid {
			entry.Fields = map[string]string{"Original reason": inf.Reason.String}
		}
		s.modlog.Log(ctx, inf.GuildID, utils.ActionExpired, entry)
	}
	return true
}

// takePending merges the pending Reschedule slot into next.
func (s *Scheduler) takePending(next time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	next = earliest(next, s.pending)
	s.pending = time.Time{}
	return next
}

// arm points the timer at t; the zero time leaves the scheduler idle.
func (s *Scheduler) arm(timer *time.Timer, t time.Time) {
	stopTimer(timer)
	if !t.IsZero() {
		timer.Reset(time.Until(t))
	}

	s.mu.Lock()
	s.armedAt = t
	s.mu.Unlock()

	if t.IsZero() {
		s.logger.Debug("no dated infractions, idle")
	} else {
		s.logger.Debug("armed", zap.Time("at", t))
	}
	if s.armHook != nil {
		s.armHook(t)
	}
}

func stopTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}

// earliest returns the earlier of two times, ignoring zero values.
func earliest(a, b time.Time) time.Time {
	switch {
	case a.IsZero():
		return b
	case b.IsZero():
		return a
	case b.Before(a):
		return b
	default:
		return a
	}
}
