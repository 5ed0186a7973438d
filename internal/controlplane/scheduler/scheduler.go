package scheduler

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/VerteraIO/taskbalancer/internal/controlplane/balancer"
	"github.com/VerteraIO/taskbalancer/internal/controlplane/registry"
	"github.com/VerteraIO/taskbalancer/internal/logx"
	"github.com/VerteraIO/taskbalancer/internal/metrics"
)

// Service exposes the scheduler operations over a Registry. Each operation
// either applies fully or leaves the registry untouched.
type Service struct {
	reg       *registry.Registry
	observers []Observer
	newPlanID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithRegistry uses r instead of a fresh registry.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Service) { s.reg = r }
}

// WithObserver adds o to the observers notified after each successful
// mutation.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observers = append(s.observers, o) }
}

// WithPlanIDs overrides the plan id generator.
func WithPlanIDs(fn func() string) Option {
	return func(s *Service) { s.newPlanID = fn }
}

func New(opts ...Option) *Service {
	s := &Service{newPlanID: uuid.NewString}
	for _, o := range opts {
		o(s)
	}
	if s.reg == nil {
		s.reg = registry.New()
	}
	return s
}

// AddObserver registers o after construction.
func (s *Service) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Init clears all nodes and tasks.
func (s *Service) Init() error {
	s.reg.Reset()
	s.finish(Event{Op: OpInit}, nil)
	return nil
}

func (s *Service) RegisterNode(nodeID int) error {
	err := s.reg.RegisterNode(nodeID)
	if err != nil {
		err = fmt.Errorf("register node %d: %w", nodeID, err)
	}
	s.finish(Event{Op: OpRegisterNode, NodeID: nodeID}, err)
	return err
}

// UnregisterNode removes the node; its tasks return to pending.
func (s *Service) UnregisterNode(nodeID int) error {
	moved, err := s.reg.UnregisterNode(nodeID)
	if err != nil {
		err = fmt.Errorf("unregister node %d: %w", nodeID, err)
	}
	s.finish(Event{Op: OpUnregisterNode, NodeID: nodeID, Moved: moved}, err)
	return err
}

func (s *Service) AddTask(taskID, consumption int) error {
	err := s.reg.AddTask(taskID, consumption)
	if err != nil {
		err = fmt.Errorf("add task %d: %w", taskID, err)
	}
	s.finish(Event{Op: OpAddTask, TaskID: taskID}, err)
	return err
}

func (s *Service) DeleteTask(taskID int) error {
	err := s.reg.DeleteTask(taskID)
	if err != nil {
		err = fmt.Errorf("delete task %d: %w", taskID, err)
	}
	s.finish(Event{Op: OpDeleteTask, TaskID: taskID}, err)
	return err
}

// Plan is a committed (or rejected) placement.
type Plan struct {
	ID          string      `json:"planId,omitempty"`
	Threshold   int         `json:"threshold"`
	Assignments map[int]int `json:"assignments,omitempty"`
	Loads       map[int]int `json:"loads,omitempty"`
	MaxDiff     int         `json:"maxDiff"`
}

// ScheduleTask recomputes the placement of every task over every node.
// A feasible plan replaces all prior placements. When no plan keeps the
// load spread within threshold the previous placement stays in effect and
// the returned error matches balancer.ErrInfeasible or balancer.ErrNoNodes;
// the returned Plan then describes the rejected attempt.
func (s *Service) ScheduleTask(threshold int) (Plan, error) {
	if threshold <= 0 {
		err := fmt.Errorf("schedule with threshold %d: %w", threshold, ErrInvalidThreshold)
		s.finish(Event{Op: OpSchedule}, err)
		return Plan{}, err
	}

	planID := s.newPlanID()
	var attempt balancer.Plan
	err := s.reg.Plan(planID, func(v registry.View) (registry.Placement, error) {
		items := make([]balancer.Item, len(v.Tasks))
		for i, t := range v.Tasks {
			items[i] = balancer.Item{ID: t.ID, Weight: t.Consumption}
		}
		p, err := balancer.Balance(v.Nodes, items, threshold)
		attempt = p
		if err != nil {
			return nil, err
		}
		return registry.Placement(p.Assignments), nil
	})

	plan := Plan{
		Threshold:   threshold,
		Assignments: attempt.Assignments,
		Loads:       attempt.Loads,
		MaxDiff:     attempt.MaxDiff,
	}
	if err != nil {
		err = fmt.Errorf("schedule with threshold %d: %w", threshold, err)
		s.finish(Event{Op: OpSchedule}, err)
		return plan, err
	}
	plan.ID = planID
	s.finish(Event{Op: OpSchedule, Plan: &plan}, nil)
	return plan, nil
}

// QueryTaskStatus returns every task ordered by id. Pending tasks carry
// registry.Pending as node id.
func (s *Service) QueryTaskStatus() ([]registry.TaskInfo, error) {
	out := s.reg.Snapshot()
	s.record(OpQuery, nil)
	return out, nil
}

// QueryInto replaces the content of *out with the current task status.
func (s *Service) QueryInto(out *[]registry.TaskInfo) error {
	if out == nil {
		err := fmt.Errorf("query: %w", ErrInvalidOutput)
		s.record(OpQuery, err)
		return err
	}
	*out = append((*out)[:0], s.reg.Snapshot()...)
	s.record(OpQuery, nil)
	return nil
}

// NodeLoad is a registered node with its current load.
type NodeLoad = registry.NodeLoad

// Nodes lists registered nodes with their loads, ascending by id.
func (s *Service) Nodes() []NodeLoad { return s.reg.NodeLoads() }

// HasNode reports whether nodeID is registered.
func (s *Service) HasNode(nodeID int) bool { return s.reg.HasNode(nodeID) }

// PendingCount returns the number of unplaced tasks.
func (s *Service) PendingCount() int { return s.reg.PendingCount() }

// State returns a copy of the registry content.
func (s *Service) State() registry.State { return s.reg.State() }

// Restore loads st into the registry.
func (s *Service) Restore(st registry.State) error {
	err := s.reg.Restore(st)
	s.finish(Event{Op: OpRestore}, err)
	return err
}

func (s *Service) record(op Op, err error) Status {
	st := StatusFor(op, err)
	metrics.RecordOperation(string(op), st.Name)
	return st
}

// finish records the outcome of a mutation and, on success, refreshes the
// registry gauges and notifies observers.
func (s *Service) finish(ev Event, err error) {
	st := s.record(ev.Op, err)
	if err != nil {
		lvl := zerolog.InfoLevel
		if st == StatusInternal {
			lvl = zerolog.ErrorLevel
		}
		logEvent(logx.Log.WithLevel(lvl), ev).Err(err).Str("status", st.Name).Msg("operation rejected")
		return
	}
	ev.State = s.reg.State()
	s.updateGauges(ev)
	logEvent(logx.Log.Debug(), ev).Str("status", st.Name).Msg("operation applied")
	if ev.Plan != nil {
		logx.Log.Info().Str("plan_id", ev.Plan.ID).Int("threshold", ev.Plan.Threshold).Int("max_diff", ev.Plan.MaxDiff).Int("tasks", len(ev.Plan.Assignments)).Msg("plan committed")
	}
	for _, o := range s.observers {
		o.Observe(ev)
	}
}

func (s *Service) updateGauges(ev Event) {
	pending := 0
	loads := make(map[int]int, len(ev.State.Nodes))
	for _, id := range ev.State.Nodes {
		loads[id] = 0
	}
	for _, t := range ev.State.Tasks {
		if t.NodeID == registry.Pending {
			pending++
			continue
		}
		loads[t.NodeID] += t.Consumption
	}
	metrics.SetRegistrySize(len(ev.State.Nodes), pending, len(ev.State.Tasks)-pending)
	metrics.SetNodeLoads(loads)
	if ev.Plan != nil {
		metrics.SetPlanSpread(ev.Plan.MaxDiff)
	}
}

func logEvent(e *zerolog.Event, ev Event) *zerolog.Event {
	e = e.Str("op", string(ev.Op))
	if ev.NodeID != 0 {
		e = e.Int("node_id", ev.NodeID)
	}
	if ev.TaskID != 0 {
		e = e.Int("task_id", ev.TaskID)
	}
	return e
}
