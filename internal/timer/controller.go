// Package timer derives the countdown from the server-authoritative end time
// and drives the one-time auto-submission when it expires. Two independent
// producers can fire the same transition — the local 1-second tick and the
// server status poll — and both feed one consumer behind a single
// re-entrancy guard.
package timer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/evalify/examclient/internal/model"
	"github.com/evalify/examclient/internal/session"
	"github.com/evalify/examclient/internal/submit"
)

// State is the controller's lifecycle state.
type State string

const (
	StateNotStarted    State = "NOT_STARTED"
	StateRunning       State = "RUNNING"
	StateExpired       State = "EXPIRED_PENDING_SUBMIT"
	StateRetryRequired State = "RETRY_REQUIRED"
	StateSubmitted     State = "SUBMITTED"
	StateAutoSubmitted State = "AUTO_SUBMITTED"
)

// ErrRetryNotPending rejects a manual retry when no failed auto-submission is
// waiting on one.
var ErrRetryNotPending = errors.New("no submission retry pending")

// StatusChecker is the server's auto-submit status endpoint.
type StatusChecker interface {
	CheckAutoSubmit(ctx context.Context) (bool, error)
}

// Submitter is the terminal transition the controller drives on expiry.
type Submitter interface {
	Submit(ctx context.Context, status model.SubmissionStatus) error
	AdoptRemoteSubmission(ctx context.Context)
}

// Tick is pushed to the UI stream every second while the session runs.
type Tick struct {
	Remaining time.Duration `json:"remaining_ms"`
	Warning   bool          `json:"warning"`
}

// Controller owns the 1-second countdown and the periodic status poll. Both
// are torn down the instant any terminal state is reached.
type Controller struct {
	meta      *session.Metadata
	checker   StatusChecker
	submitter Submitter
	log       zerolog.Logger

	tickInterval  time.Duration
	pollInterval  time.Duration
	warnThreshold time.Duration
	maxRetries    int
	retryDelay    time.Duration

	// fired guards the expiry transition: a second tick landing before the
	// first submission attempt resolves must be a no-op.
	fired        atomic.Bool
	retryPending atomic.Bool
	started      atomic.Bool

	mu     sync.Mutex
	onTick func(Tick)
	cancel context.CancelFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithIntervals overrides the tick/poll cadence. Production uses the config
// defaults; tests compress time.
func WithIntervals(tick, poll time.Duration) Option {
	return func(c *Controller) {
		c.tickInterval = tick
		c.pollInterval = poll
	}
}

// WithRetryPolicy overrides the bounded submit retry policy.
func WithRetryPolicy(attempts int, delay time.Duration) Option {
	return func(c *Controller) {
		c.maxRetries = attempts
		c.retryDelay = delay
	}
}

// WithWarningThreshold overrides the remaining-time warning boundary.
func WithWarningThreshold(d time.Duration) Option {
	return func(c *Controller) {
		c.warnThreshold = d
	}
}

// New creates a Controller with the product defaults: 1 s tick, 30 s poll,
// 2 minute warning, 5 submit attempts 2 s apart.
func New(meta *session.Metadata, checker StatusChecker, submitter Submitter, log zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		meta:          meta,
		checker:       checker,
		submitter:     submitter,
		log:           log.With().Str("component", "timer").Logger(),
		tickInterval:  time.Second,
		pollInterval:  30 * time.Second,
		warnThreshold: 2 * time.Minute,
		maxRetries:    5,
		retryDelay:    2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnTick registers the countdown callback for the UI stream.
func (c *Controller) OnTick(fn func(Tick)) {
	c.mu.Lock()
	c.onTick = fn
	c.mu.Unlock()
}

// State reports the controller's current lifecycle state.
func (c *Controller) State() State {
	switch c.meta.Status() {
	case model.StatusSubmitted:
		return StateSubmitted
	case model.StatusAutoSubmitted:
		return StateAutoSubmitted
	}
	if c.retryPending.Load() {
		return StateRetryRequired
	}
	if c.fired.Load() {
		return StateExpired
	}
	if !c.started.Load() {
		return StateNotStarted
	}
	return StateRunning
}

// Remaining returns the time left on the wall clock, clamped at zero.
func (c *Controller) Remaining() time.Duration {
	end, ok := c.meta.EndTime()
	if !ok {
		return 0
	}
	if r := time.Until(end); r > 0 {
		return r
	}
	return 0
}

// Start launches the tick and poll loops. Call in a goroutine; returns when
// ctx is cancelled or a terminal state is reached.
func (c *Controller) Start(ctx context.Context) {
	if c.meta.IsTerminal() {
		return
	}
	end, ok := c.meta.EndTime()
	if !ok {
		c.log.Error().Msg("No end time available, timer not started")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	c.started.Store(true)

	c.log.Info().Time("end_time", end).Msg("Countdown started")

	tick := time.NewTicker(c.tickInterval)
	poll := time.NewTicker(c.pollInterval)
	defer tick.Stop()
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if c.meta.IsTerminal() {
				return
			}
			c.handleTick(ctx)
		case <-poll.C:
			if c.meta.IsTerminal() {
				return
			}
			c.handlePoll(ctx)
		}
	}
}

// Stop tears down both loops. Safe to call from any goroutine and after a
// terminal state already stopped them.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Controller) handleTick(ctx context.Context) {
	remaining := c.Remaining()

	if remaining > 0 {
		c.emit(Tick{Remaining: remaining, Warning: remaining <= c.warnThreshold})
		return
	}

	// Expiry: exactly one tick wins the guard; later ticks (and a concurrent
	// manual submit racing for the submitter's in-flight flag) no-op.
	if !c.fired.CompareAndSwap(false, true) {
		return
	}

	c.emit(Tick{Remaining: 0, Warning: true})
	c.log.Info().Msg("Time expired, auto-submitting")
	c.runAutoSubmit(ctx)
}

// runAutoSubmit drives the bounded retry loop. After exhausting attempts the
// failure is surfaced as a pending manual retry — never silently.
func (c *Controller) runAutoSubmit(ctx context.Context) {
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		err := c.submitter.Submit(ctx, model.StatusAutoSubmitted)
		if err == nil || errors.Is(err, submit.ErrAlreadySubmitted) {
			c.Stop()
			return
		}
		if errors.Is(err, submit.ErrSubmitInFlight) {
			// A manual submission is mid-flight; it owns the transition.
			c.log.Info().Msg("Manual submission in flight, auto-submit standing down")
			return
		}

		c.log.Warn().Err(err).Int("attempt", attempt).Int("max", c.maxRetries).Msg("Auto-submit attempt failed")
		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
		}
	}

	c.retryPending.Store(true)
	c.log.Error().Msg("Auto-submit retries exhausted, manual retry required")
}

// RetryManual re-attempts the expired submission once on the student's
// explicit request. A success completes the AUTO_SUBMITTED transition the
// expiry path started.
func (c *Controller) RetryManual(ctx context.Context) error {
	if !c.retryPending.Load() {
		return ErrRetryNotPending
	}

	err := c.submitter.Submit(ctx, model.StatusAutoSubmitted)
	if err == nil || errors.Is(err, submit.ErrAlreadySubmitted) {
		c.retryPending.Store(false)
		c.Stop()
		return nil
	}
	return err
}

// RetryPending reports whether a failed auto-submission awaits manual retry.
func (c *Controller) RetryPending() bool {
	return c.retryPending.Load()
}

func (c *Controller) handlePoll(ctx context.Context) {
	done, err := c.checker.CheckAutoSubmit(ctx)
	c.meta.Touch()
	if err != nil {
		c.log.Warn().Err(err).Msg("Auto-submit status check failed")
		return
	}
	if !done {
		return
	}

	// The server (or another tab) already submitted this attempt. Adopt the
	// terminal state locally without re-invoking the submit endpoint.
	c.submitter.AdoptRemoteSubmission(ctx)
	c.Stop()
}

func (c *Controller) emit(t Tick) {
	c.mu.Lock()
	fn := c.onTick
	c.mu.Unlock()
	if fn != nil {
		fn(t)
	}
}
