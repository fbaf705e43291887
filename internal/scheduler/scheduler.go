// Package scheduler drives the scrape pipeline at a fixed interval.
//
// One pass at a time: a tick that arrives while a pass is still running is
// skipped, not queued. A failing pass is logged and the next tick proceeds
// normally. Stop waits for an in-flight pass to finish.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Pass states reported by State.
const (
	StateDisabled = "disabled"
	StateIdle     = "idle"
	StateRunning  = "running"
)

// Scheduler runs one pipeline pass per tick.
type Scheduler struct {
	cron     *cron.Cron
	interval time.Duration
	run      func(context.Context) error
	enabled  bool
	logger   *slog.Logger

	baseCtx context.Context
	running atomic.Bool
	started atomic.Bool
	initial sync.WaitGroup
}

// New creates a scheduler for the given pass function. When enabled is
// false the scheduler stays permanently idle until the process restarts
// with the flag set.
func New(interval time.Duration, enabled bool, run func(context.Context) error, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		interval: interval,
		run:      run,
		enabled:  enabled,
		logger:   logger,
	}
}

// Start launches the tick loop and kicks off an immediate first pass.
// No-op when the scheduler is disabled.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.enabled {
		s.logger.Info("Scheduler disabled; no passes will run")
		return
	}
	if !s.started.CompareAndSwap(false, true) {
		return
	}

	s.baseCtx = ctx
	lg := cronLogger{s.logger}
	s.cron = cron.New(cron.WithLogger(lg))

	job := cron.NewChain(
		cron.SkipIfStillRunning(lg),
		cron.Recover(lg),
	).Then(cron.FuncJob(s.pass))

	s.cron.Schedule(cron.Every(s.interval), job)
	s.cron.Start()
	s.logger.Info("Scheduler started", "interval", s.interval)

	// First pass immediately; the chain still guards against overlap. This
	// pass runs outside the cron runner, so Stop tracks it separately.
	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		job.Run()
	}()
}

// Stop halts ticking and returns a context that is done once any in-flight
// pass has finished. Safe to call when never started.
func (s *Scheduler) Stop() context.Context {
	if s.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	cronCtx := s.cron.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		<-cronCtx.Done()
		s.initial.Wait()
	}()
	return ctx
}

// State reports the scheduler's current state for the heartbeat surface.
func (s *Scheduler) State() string {
	switch {
	case !s.enabled:
		return StateDisabled
	case s.running.Load():
		return StateRunning
	default:
		return StateIdle
	}
}

func (s *Scheduler) pass() {
	s.running.Store(true)
	defer s.running.Store(false)

	if err := s.baseCtx.Err(); err != nil {
		return
	}
	if err := s.run(s.baseCtx); err != nil {
		s.logger.Error("Pass failed", "error", err)
	}
}

// cronLogger adapts slog to cron's logger interface. Routine messages go to
// debug; cron errors (including recovered panics) to error.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
