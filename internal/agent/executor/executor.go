// Package executor applies assignments on a node: tasks that appear in a
// new assignment are started, tasks that disappear are stopped.
package executor

import (
	"slices"
	"sync"

	"github.com/VerteraIO/taskbalancer/api/schedv1"
	"github.com/VerteraIO/taskbalancer/internal/logx"
)

// Executor runs tasks on the local node. Implementations should be
// idempotent when possible.
type Executor interface {
	Start(taskID int) error
	Stop(taskID int) error
}

// LogExecutor only logs; it is what the agent runs when tasks have no
// local side effects.
type LogExecutor struct{}

func (LogExecutor) Start(taskID int) error {
	logx.Log.Info().Int("task_id", taskID).Msg("task started")
	return nil
}

func (LogExecutor) Stop(taskID int) error {
	logx.Log.Info().Int("task_id", taskID).Msg("task stopped")
	return nil
}

// Applier tracks the tasks running on this node and reconciles them
// against each assignment received.
type Applier struct {
	exec Executor

	mu      sync.Mutex
	running map[int]struct{}
	planID  string
}

func NewApplier(e Executor) *Applier {
	if e == nil {
		e = LogExecutor{}
	}
	return &Applier{exec: e, running: make(map[int]struct{})}
}

// Apply stops tasks missing from a and starts new ones. Tasks whose start
// fails are not recorded as running and are retried on the next
// assignment.
func (ap *Applier) Apply(a schedv1.Assignment) (started, stopped []int) {
	ap.mu.Lock()
	defer ap.mu.Unlock()

	want := make(map[int]struct{}, len(a.TaskIDs))
	for _, id := range a.TaskIDs {
		want[id] = struct{}{}
	}
	for id := range ap.running {
		if _, ok := want[id]; ok {
			continue
		}
		if err := ap.exec.Stop(id); err != nil {
			logx.Log.Warn().Err(err).Int("task_id", id).Msg("stop task")
			continue
		}
		delete(ap.running, id)
		stopped = append(stopped, id)
	}
	for _, id := range a.TaskIDs {
		if _, ok := ap.running[id]; ok {
			continue
		}
		if err := ap.exec.Start(id); err != nil {
			logx.Log.Warn().Err(err).Int("task_id", id).Msg("start task")
			continue
		}
		ap.running[id] = struct{}{}
		started = append(started, id)
	}
	ap.planID = a.PlanID
	slices.Sort(started)
	slices.Sort(stopped)
	return started, stopped
}

// Running returns the ids of running tasks in ascending order.
func (ap *Applier) Running() []int {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	out := make([]int, 0, len(ap.running))
	for id := range ap.running {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// StopAll stops every running task, e.g. when the agent exits.
func (ap *Applier) StopAll() {
	ap.Apply(schedv1.Assignment{PlanID: ap.PlanID()})
}

// PlanID is the plan of the last applied assignment.
func (ap *Applier) PlanID() string {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	return ap.planID
}
