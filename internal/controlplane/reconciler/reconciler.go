package reconciler

import (
	"context"
	"errors"
	"time"

	"github.com/VerteraIO/taskbalancer/internal/controlplane/balancer"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/scheduler"
	"github.com/VerteraIO/taskbalancer/internal/logx"
)

// Scheduler is the part of the scheduler service the reconciler drives.
type Scheduler interface {
	PendingCount() int
	ScheduleTask(threshold int) (scheduler.Plan, error)
}

// Reconciler periodically recomputes the placement while tasks are
// pending, so tasks displaced by an unregistered node get a home without
// an explicit schedule call.
type Reconciler struct {
	sched     Scheduler
	threshold int
	interval  time.Duration
}

// New returns a reconciler that schedules with threshold every interval
// while tasks are pending.
func New(s Scheduler, threshold int, interval time.Duration) *Reconciler {
	return &Reconciler{sched: s, threshold: threshold, interval: interval}
}

// Start runs until ctx is done. It returns immediately when the interval
// or threshold is not positive.
func (r *Reconciler) Start(ctx context.Context) {
	if r.interval <= 0 || r.threshold <= 0 {
		logx.Log.Info().Msg("controlplane: reconciler disabled")
		return
	}
	logx.Log.Info().Dur("interval", r.interval).Int("threshold", r.threshold).Msg("controlplane: reconciler started")
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			logx.Log.Info().Msg("controlplane: reconciler stopped")
			return
		case <-t.C:
			r.Tick()
		}
	}
}

// Tick runs one reconciliation pass and reports whether a plan was
// committed.
func (r *Reconciler) Tick() bool {
	n := r.sched.PendingCount()
	if n == 0 {
		return false
	}
	_, err := r.sched.ScheduleTask(r.threshold)
	switch {
	case err == nil:
		logx.Log.Info().Int("pending", n).Msg("reconciler: placed pending tasks")
		return true
	case errors.Is(err, balancer.ErrInfeasible), errors.Is(err, balancer.ErrNoNodes):
		logx.Log.Debug().Err(err).Int("pending", n).Msg("reconciler: no feasible plan")
	default:
		logx.Log.Warn().Err(err).Msg("reconciler: schedule failed")
	}
	return false
}
