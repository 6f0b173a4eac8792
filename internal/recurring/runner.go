package recurring

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	id "quorum/pkg/domain"
	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/requestcontext"
)

// SchedulerPrincipal is the identity background sweeps act as. Settlement is
// open to any caller, so it needs no membership; it only labels the executor
// in history and audit records.
const SchedulerPrincipal = id.Principal("scheduler")

// TickSource supplies the current tick for sweep contexts.
type TickSource interface {
	Current() id.Tick
}

// Runner sweeps due schedules on a cron cadence.
type Runner struct {
	svc       *Service
	ticks     TickSource
	cron      *cron.Cron
	spec      string
	batchSize int
	logger    *slog.Logger
}

func NewRunner(svc *Service, ticks TickSource, spec string, batchSize int, logger *slog.Logger) *Runner {
	return &Runner{
		svc:       svc,
		ticks:     ticks,
		cron:      cron.New(),
		spec:      spec,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Start registers the sweep job and begins the cron loop.
func (r *Runner) Start() error {
	if _, err := r.cron.AddFunc(r.spec, r.sweep); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "register sweep schedule")
	}
	r.cron.Start()
	r.logger.Info("recurring payment runner started", "spec", r.spec)
	return nil
}

// Stop halts the cron loop and returns a context that closes once any
// in-flight sweep finishes.
func (r *Runner) Stop() context.Context {
	return r.cron.Stop()
}

func (r *Runner) sweep() {
	ctx := requestcontext.WithCaller(context.Background(), SchedulerPrincipal)
	ctx = requestcontext.WithTick(ctx, r.ticks.Current())

	results := r.svc.ExecuteAllDue(ctx, r.batchSize)
	settled, failed := 0, 0
	for _, result := range results {
		if result.Error != "" {
			failed++
		} else {
			settled++
		}
	}
	if settled > 0 || failed > 0 {
		r.logger.InfoContext(ctx, "due payment sweep finished",
			"settled", settled,
			"failed", failed,
		)
	}
}
