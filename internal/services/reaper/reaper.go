package reaper

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/lobbyworks/presencehub/internal/services/identity"
	"github.com/lobbyworks/presencehub/internal/services/presence"
	"github.com/lobbyworks/presencehub/internal/services/ratelimit"
)

// Reaper runs the periodic sweep: stale statuses are flipped offline,
// long-idle bindings and identities are evicted, and the rate limiter's
// bookkeeping is pruned. It runs on a fixed period independent of message
// traffic and publishes presence at most once per sweep, only when a status
// actually changed.
type Reaper struct {
	engine    *identity.Engine
	publisher *presence.Publisher
	limiter   *ratelimit.Limiter
	logger    *slog.Logger
	period    time.Duration
	scheduler gocron.Scheduler
}

// New creates a Reaper sweeping every period
func New(engine *identity.Engine, publisher *presence.Publisher, limiter *ratelimit.Limiter, period time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{
		engine:    engine,
		publisher: publisher,
		limiter:   limiter,
		logger:    logger.With(slog.String("component", "reaper")),
		period:    period,
	}
}

// Start schedules the sweep. The scheduler owns its own goroutine; Stop
// cancels it at process shutdown.
func (r *Reaper) Start() error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	if _, err := scheduler.NewJob(
		gocron.DurationJob(r.period),
		gocron.NewTask(r.RunOnce),
	); err != nil {
		return err
	}
	scheduler.Start()
	r.scheduler = scheduler
	r.logger.Info("reaper started", slog.Duration("period", r.period))
	return nil
}

// Stop cancels the scheduled sweep
func (r *Reaper) Stop() {
	if r.scheduler == nil {
		return
	}
	if err := r.scheduler.Shutdown(); err != nil {
		r.logger.Warn("reaper shutdown", slog.Any("error", err))
	}
}

// RunOnce executes a single sweep. Any panic out of a sweep is contained
// here so a bad pass can never take the process down or cancel future runs.
func (r *Reaper) RunOnce() {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("sweep panicked", slog.Any("panic", rec))
		}
	}()

	result := r.engine.Sweep()
	r.limiter.Prune()

	if result.Changed() {
		r.publisher.PublishAll()
	}
}
