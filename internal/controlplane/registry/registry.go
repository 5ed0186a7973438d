package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Pending is the node id reported for tasks without a placement.
const Pending = -1

var (
	ErrInvalidNodeID      = errors.New("invalid node id")
	ErrNodeExists         = errors.New("node already registered")
	ErrNodeNotFound       = errors.New("node not found")
	ErrInvalidTaskID      = errors.New("invalid task id")
	ErrTaskExists         = errors.New("task already added")
	ErrTaskNotFound       = errors.New("task not found")
	ErrInvalidConsumption = errors.New("invalid consumption")
	ErrInvalidPlacement   = errors.New("invalid placement")
)

// Registry holds the registered nodes and known tasks. A single lock
// guards both so placement changes are linearizable with membership
// changes.
type Registry struct {
	mu         sync.RWMutex
	nodes      map[int]struct{}
	tasks      map[int]*Task
	generation uint64
	planID     string
}

func New() *Registry {
	return &Registry{
		nodes: make(map[int]struct{}),
		tasks: make(map[int]*Task),
	}
}

// Reset drops every node and task.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes = make(map[int]struct{})
	r.tasks = make(map[int]*Task)
	r.planID = ""
	r.generation++
}

func (r *Registry) RegisterNode(id int) error {
	if id <= 0 {
		return ErrInvalidNodeID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[id]; ok {
		return ErrNodeExists
	}
	r.nodes[id] = struct{}{}
	r.generation++
	return nil
}

// UnregisterNode removes the node and moves every task placed on it back
// to pending. It returns the ids of the tasks that were moved.
func (r *Registry) UnregisterNode(id int) ([]int, error) {
	if id <= 0 {
		return nil, ErrInvalidNodeID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[id]; !ok {
		return nil, ErrNodeNotFound
	}
	delete(r.nodes, id)
	var moved []int
	for _, t := range r.tasks {
		if t.NodeID == id {
			t.NodeID = Pending
			moved = append(moved, t.ID)
		}
	}
	slices.Sort(moved)
	r.generation++
	return moved, nil
}

// HasNode reports whether id is registered.
func (r *Registry) HasNode(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.nodes[id]
	return ok
}

// Nodes returns the registered node ids in ascending order.
func (r *Registry) Nodes() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nodeIDs()
}

// NodeLoad is a registered node with its current load.
type NodeLoad struct {
	NodeID int `json:"nodeId"`
	Load   int `json:"load"`
}

// NodeLoads returns every registered node with its load, ascending by id,
// from a single consistent read.
func (r *Registry) NodeLoads() []NodeLoad {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loads := make(map[int]int, len(r.nodes))
	for _, t := range r.tasks {
		if t.NodeID != Pending {
			loads[t.NodeID] += t.Consumption
		}
	}
	ids := r.nodeIDs()
	out := make([]NodeLoad, len(ids))
	for i, id := range ids {
		out[i] = NodeLoad{NodeID: id, Load: loads[id]}
	}
	return out
}

// Generation increases on every successful mutation.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// nodeIDs must be called with r.mu held.
func (r *Registry) nodeIDs() []int {
	ids := make([]int, 0, len(r.nodes))
	for id := range r.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// View is a consistent copy of the registry handed to a planner.
type View struct {
	Nodes []int
	Tasks []Task
}

// Placement maps task ids to node ids.
type Placement map[int]int

// Plan runs planner over a consistent view of the registry while holding
// the write lock. When planner succeeds its placement replaces every prior
// placement and planID is recorded; when it fails nothing changes.
// The placement must cover every task and only reference registered nodes.
func (r *Registry) Plan(planID string, planner func(View) (Placement, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	view := View{Nodes: r.nodeIDs(), Tasks: r.taskList()}
	placement, err := planner(view)
	if err != nil {
		return err
	}
	if len(placement) != len(r.tasks) {
		return fmt.Errorf("%w: %d of %d tasks placed", ErrInvalidPlacement, len(placement), len(r.tasks))
	}
	for taskID, nodeID := range placement {
		if _, ok := r.tasks[taskID]; !ok {
			return fmt.Errorf("%w: unknown task %d", ErrInvalidPlacement, taskID)
		}
		if _, ok := r.nodes[nodeID]; !ok {
			return fmt.Errorf("%w: task %d on unknown node %d", ErrInvalidPlacement, taskID, nodeID)
		}
	}
	for taskID, nodeID := range placement {
		r.tasks[taskID].NodeID = nodeID
	}
	r.planID = planID
	r.generation++
	return nil
}
