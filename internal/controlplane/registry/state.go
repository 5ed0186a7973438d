package registry

import "fmt"

// State is the exportable content of a Registry.
type State struct {
	Generation uint64 `json:"generation"`
	PlanID     string `json:"planId,omitempty"`
	Nodes      []int  `json:"nodes"`
	Tasks      []Task `json:"tasks"`
}

// State returns a point-in-time copy of the registry.
func (r *Registry) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return State{
		Generation: r.generation,
		PlanID:     r.planID,
		Nodes:      r.nodeIDs(),
		Tasks:      r.taskList(),
	}
}

// PlanID returns the identifier of the last committed plan.
func (r *Registry) PlanID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.planID
}

// Restore replaces the registry content with st after checking that it
// satisfies the registry invariants. On error the registry is unchanged.
func (r *Registry) Restore(st State) error {
	nodes := make(map[int]struct{}, len(st.Nodes))
	for _, id := range st.Nodes {
		if id <= 0 {
			return fmt.Errorf("restore: %w: %d", ErrInvalidNodeID, id)
		}
		if _, dup := nodes[id]; dup {
			return fmt.Errorf("restore: %w: %d", ErrNodeExists, id)
		}
		nodes[id] = struct{}{}
	}
	tasks := make(map[int]*Task, len(st.Tasks))
	for _, t := range st.Tasks {
		if t.ID <= 0 {
			return fmt.Errorf("restore: %w: %d", ErrInvalidTaskID, t.ID)
		}
		if t.Consumption < 0 {
			return fmt.Errorf("restore: %w: task %d", ErrInvalidConsumption, t.ID)
		}
		if _, dup := tasks[t.ID]; dup {
			return fmt.Errorf("restore: %w: %d", ErrTaskExists, t.ID)
		}
		if t.NodeID != Pending {
			if _, ok := nodes[t.NodeID]; !ok {
				return fmt.Errorf("restore: %w: task %d on unknown node %d", ErrInvalidPlacement, t.ID, t.NodeID)
			}
		}
		task := t
		tasks[t.ID] = &task
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes = nodes
	r.tasks = tasks
	r.planID = st.PlanID
	if st.Generation > r.generation {
		r.generation = st.Generation
	} else {
		r.generation++
	}
	return nil
}
